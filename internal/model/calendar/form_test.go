package calendar_test

import (
	"strings"
	"testing"
	"time"

	"github.com/carewell/medibot/internal/model/calendar"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func validForm() calendar.Form {
	return calendar.Form{
		Date:        "2026-03-15",
		Time:        "09:00 AM",
		PatientName: "Jane Doe",
		Doctor:      calendar.Doctors[0],
		Symptoms:    "persistent cough and mild fever",
	}
}

func TestValidateAcceptsCompleteForm(t *testing.T) {
	if errs := validForm().Validate(now, ""); errs != nil {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateRejectsPastDate(t *testing.T) {
	form := validForm()
	form.Date = "2026-03-09"
	errs := form.Validate(now, "")
	if errs == nil || errs["date"] == "" {
		t.Fatalf("expected date error, got %v", errs)
	}
}

func TestValidateAcceptsTodayAsDate(t *testing.T) {
	form := validForm()
	form.Date = "2026-03-10"
	if errs := form.Validate(now, ""); errs != nil {
		t.Fatalf("today must be bookable, got %v", errs)
	}
}

func TestValidateAllowsKeepingPastDateOnEdit(t *testing.T) {
	form := validForm()
	form.Date = "2026-02-01"
	if errs := form.Validate(now, "2026-02-01"); errs != nil {
		t.Fatalf("keeping an existing past date must be allowed, got %v", errs)
	}
	// Moving to a different past date is still rejected.
	form.Date = "2026-02-02"
	if errs := form.Validate(now, "2026-02-01"); errs == nil || errs["date"] == "" {
		t.Fatalf("expected date error, got %v", errs)
	}
}

func TestValidateNameBoundaries(t *testing.T) {
	form := validForm()
	form.PatientName = " A "
	if errs := form.Validate(now, ""); errs == nil || errs["patientName"] == "" {
		t.Fatalf("one-rune name after trim must fail, got %v", errs)
	}
	form.PatientName = "Al"
	if errs := form.Validate(now, ""); errs != nil {
		t.Fatalf("two-rune name must pass, got %v", errs)
	}
	form.PatientName = strings.Repeat("a", 100)
	if errs := form.Validate(now, ""); errs != nil {
		t.Fatalf("100-rune name must pass, got %v", errs)
	}
	form.PatientName = strings.Repeat("a", 101)
	if errs := form.Validate(now, ""); errs == nil || errs["patientName"] == "" {
		t.Fatalf("101-rune name must fail, got %v", errs)
	}
}

func TestValidateSymptomsBoundaries(t *testing.T) {
	form := validForm()
	form.Symptoms = " achy "
	if errs := form.Validate(now, ""); errs == nil || errs["symptoms"] == "" {
		t.Fatalf("four-rune symptoms after trim must fail, got %v", errs)
	}
	form.Symptoms = "achy."
	if errs := form.Validate(now, ""); errs != nil {
		t.Fatalf("five-rune symptoms must pass, got %v", errs)
	}
	form.Symptoms = strings.Repeat("s", 501)
	if errs := form.Validate(now, ""); errs == nil || errs["symptoms"] == "" {
		t.Fatalf("501-rune symptoms must fail, got %v", errs)
	}
}

func TestValidateRejectsUnknownSlotAndDoctor(t *testing.T) {
	form := validForm()
	form.Time = "09:05 AM"
	form.Doctor = "Dr. Nobody"
	errs := form.Validate(now, "")
	if errs == nil || errs["time"] == "" || errs["doctor"] == "" {
		t.Fatalf("expected time and doctor errors, got %v", errs)
	}
}

func TestValidateReportsAllFailuresAtOnce(t *testing.T) {
	errs := calendar.Form{}.Validate(now, "")
	for _, field := range []string{"date", "time", "patientName", "doctor", "symptoms"} {
		if errs[field] == "" {
			t.Fatalf("expected %s error, got %v", field, errs)
		}
	}
}

func TestSlotMinutesOrdersRoster(t *testing.T) {
	prev := -1
	for _, slot := range calendar.TimeSlots {
		m := calendar.SlotMinutes(slot)
		if m <= prev {
			t.Fatalf("slot %q out of order (minutes %d after %d)", slot, m, prev)
		}
		prev = m
	}
	if calendar.SlotMinutes("bogus") <= calendar.SlotMinutes(calendar.TimeSlots[len(calendar.TimeSlots)-1]) {
		t.Fatal("unknown slots must sort after every roster slot")
	}
}
