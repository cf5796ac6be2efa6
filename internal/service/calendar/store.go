package calendar

import (
	"errors"
	"sort"
	"sync"
	"time"

	cal "github.com/carewell/medibot/internal/model/calendar"
)

// ErrNotFound is returned when no appointment carries the requested id.
var ErrNotFound = errors.New("appointment not found")

// Store keeps appointments in memory, bucketed by date and ordered by time of
// day within each bucket. All methods are safe for concurrent use.
type Store struct {
	mu    sync.RWMutex
	byDay map[string][]cal.Appointment
	now   func() time.Time
}

// NewStore creates an empty appointment store.
func NewStore() *Store {
	return &Store{
		byDay: make(map[string][]cal.Appointment),
		now:   time.Now,
	}
}

// Create validates the form and books a new pending appointment. A non-nil
// error with FieldErrors type means validation failed and nothing was written.
func (s *Store) Create(form cal.Form) (cal.Appointment, error) {
	if errs := form.Validate(s.now(), ""); errs != nil {
		return cal.Appointment{}, errs
	}
	form = form.Normalized()

	appt := cal.Appointment{
		ID:          cal.NewID(),
		Date:        form.Date,
		Time:        form.Time,
		PatientName: form.PatientName,
		Doctor:      form.Doctor,
		Symptoms:    form.Symptoms,
		Status:      cal.StatusPending,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.insertLocked(appt)
	return appt, nil
}

// Update rewrites the appointment's editable fields. When the date changes,
// the appointment moves buckets in one step; it never appears in both and
// never disappears. The status is preserved.
func (s *Store) Update(id string, form cal.Form) (cal.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.findLocked(id)
	if !ok {
		return cal.Appointment{}, ErrNotFound
	}
	if errs := form.Validate(s.now(), current.Date); errs != nil {
		return cal.Appointment{}, errs
	}
	form = form.Normalized()

	updated := cal.Appointment{
		ID:          id,
		Date:        form.Date,
		Time:        form.Time,
		PatientName: form.PatientName,
		Doctor:      form.Doctor,
		Symptoms:    form.Symptoms,
		Status:      current.Status,
	}

	s.removeLocked(current.Date, id)
	s.insertLocked(updated)
	return updated, nil
}

// SetStatus changes only the appointment's status.
func (s *Store) SetStatus(id string, status cal.Status) (cal.Appointment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.findLocked(id)
	if !ok {
		return cal.Appointment{}, ErrNotFound
	}
	bucket := s.byDay[current.Date]
	for i := range bucket {
		if bucket[i].ID == id {
			bucket[i].Status = status
			return bucket[i], nil
		}
	}
	return cal.Appointment{}, ErrNotFound
}

// Delete removes the appointment.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.findLocked(id)
	if !ok {
		return ErrNotFound
	}
	s.removeLocked(current.Date, id)
	return nil
}

// Get looks an appointment up by id.
func (s *Store) Get(id string) (cal.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	appt, ok := s.findLocked(id)
	if !ok {
		return cal.Appointment{}, ErrNotFound
	}
	return appt, nil
}

// ListDay returns the appointments for one date, ordered by time of day.
func (s *Store) ListDay(date string) []cal.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bucket := s.byDay[date]
	out := make([]cal.Appointment, len(bucket))
	copy(out, bucket)
	return out
}

// ListAll returns every appointment ordered by date, then by time of day.
func (s *Store) ListAll() []cal.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dates := make([]string, 0, len(s.byDay))
	for date := range s.byDay {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	out := make([]cal.Appointment, 0, len(dates))
	for _, date := range dates {
		out = append(out, s.byDay[date]...)
	}
	return out
}

func (s *Store) insertLocked(appt cal.Appointment) {
	bucket := append(s.byDay[appt.Date], appt)
	sort.SliceStable(bucket, func(i, j int) bool {
		return cal.SlotMinutes(bucket[i].Time) < cal.SlotMinutes(bucket[j].Time)
	})
	s.byDay[appt.Date] = bucket
}

func (s *Store) removeLocked(date, id string) {
	bucket := s.byDay[date]
	for i := range bucket {
		if bucket[i].ID == id {
			s.byDay[date] = append(bucket[:i:i], bucket[i+1:]...)
			break
		}
	}
	if len(s.byDay[date]) == 0 {
		delete(s.byDay, date)
	}
}

func (s *Store) findLocked(id string) (cal.Appointment, bool) {
	for _, bucket := range s.byDay {
		for _, appt := range bucket {
			if appt.ID == id {
				return appt, true
			}
		}
	}
	return cal.Appointment{}, false
}
