package calendar

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Form carries the user-editable fields of an appointment prior to validation.
type Form struct {
	Date        string `json:"date"`
	Time        string `json:"time"`
	PatientName string `json:"patientName"`
	Doctor      string `json:"doctor"`
	Symptoms    string `json:"symptoms"`
}

// FieldErrors maps field name to a human-readable validation message.
// A non-empty map blocks the mutation entirely; no partial writes happen.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	parts := make([]string, 0, len(e))
	for field, msg := range e {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Validate checks every field and returns all failures at once. priorDate is
// the appointment's current date when editing ("" when creating): keeping a
// past appointment on its existing date is allowed, but selecting a new date
// in the past is not.
func (f Form) Validate(now time.Time, priorDate string) FieldErrors {
	errs := FieldErrors{}

	if f.Date == "" {
		errs["date"] = "please select a date for the appointment"
	} else if parsed, err := time.Parse(DateLayout, f.Date); err != nil {
		errs["date"] = "date must be in YYYY-MM-DD format"
	} else if f.Date != priorDate {
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		if parsed.Before(today) {
			errs["date"] = "appointment date cannot be in the past"
		}
	}

	if f.Time == "" {
		errs["time"] = "please select a time"
	} else if !ValidSlot(f.Time) {
		errs["time"] = "time must be one of the available slots"
	}

	name := strings.TrimSpace(f.PatientName)
	if utf8.RuneCountInString(name) < 2 {
		errs["patientName"] = "patient name must be at least 2 characters"
	} else if utf8.RuneCountInString(name) > 100 {
		errs["patientName"] = "patient name must be less than 100 characters"
	}

	if f.Doctor == "" {
		errs["doctor"] = "please select a doctor"
	} else if !ValidDoctor(f.Doctor) {
		errs["doctor"] = "doctor must be chosen from the roster"
	}

	symptoms := strings.TrimSpace(f.Symptoms)
	if utf8.RuneCountInString(symptoms) < 5 {
		errs["symptoms"] = "please describe symptoms (at least 5 characters)"
	} else if utf8.RuneCountInString(symptoms) > 500 {
		errs["symptoms"] = "symptoms description must be less than 500 characters"
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Normalized returns a copy with the trimmed name and symptoms, ready to store.
func (f Form) Normalized() Form {
	f.PatientName = strings.TrimSpace(f.PatientName)
	f.Symptoms = strings.TrimSpace(f.Symptoms)
	return f
}
