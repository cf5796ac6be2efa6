package calendar

import (
	"time"

	"github.com/google/uuid"
)

// Status values an appointment moves through.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
	StatusNoShow    Status = "no_show"
)

// DateLayout is the day-bucket key format used throughout the calendar.
const DateLayout = "2006-01-02"

// slotLayout parses the clock-face slot strings ("09:00 AM").
const slotLayout = "03:04 PM"

// Doctors is the fixed roster an appointment may be booked with.
var Doctors = []string{
	"Dr. Smith",
	"Dr. Johnson",
	"Dr. Williams",
	"Dr. Brown",
	"Dr. Davis",
	"Dr. Miller",
}

// TimeSlots is the fixed list of bookable times.
var TimeSlots = []string{
	"09:00 AM", "09:30 AM", "10:00 AM", "10:30 AM",
	"11:00 AM", "11:30 AM", "12:00 PM", "12:30 PM",
	"02:00 PM", "02:30 PM", "03:00 PM", "03:30 PM",
	"04:00 PM", "04:30 PM", "05:00 PM",
}

// Appointment is a staff-calendar booking. Appointments live purely in memory,
// keyed by their Date bucket and ordered by time of day.
type Appointment struct {
	ID          string `json:"id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	PatientName string `json:"patientName"`
	Doctor      string `json:"doctor"`
	Symptoms    string `json:"symptoms"`
	Status      Status `json:"status"`
}

// NewID mints an appointment identifier.
func NewID() string {
	return uuid.NewString()
}

// SlotMinutes converts a slot string to minutes past midnight for ordering.
// Unknown slots sort last.
func SlotMinutes(slot string) int {
	t, err := time.Parse(slotLayout, slot)
	if err != nil {
		return 24 * 60
	}
	return t.Hour()*60 + t.Minute()
}

// ValidSlot reports whether slot is one of the bookable times.
func ValidSlot(slot string) bool {
	for _, s := range TimeSlots {
		if s == slot {
			return true
		}
	}
	return false
}

// ValidStatus reports whether s is a known appointment status.
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// ValidDoctor reports whether name is on the roster.
func ValidDoctor(name string) bool {
	for _, d := range Doctors {
		if d == name {
			return true
		}
	}
	return false
}
