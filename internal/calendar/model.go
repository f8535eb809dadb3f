package calendar

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle status of an appointment.
type Status string

const (
	StatusPending                 Status = "pending"
	StatusConfirmed               Status = "confirmed"
	StatusCompleted               Status = "completed"
	StatusCancelledByPatient      Status = "cancelled_by_patient"
	StatusCancelledByPractitioner Status = "cancelled_by_practitioner"
	StatusNoShow                  Status = "no_show"
)

// Terminal reports whether no further transition is permitted from s.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusCancelledByPatient, StatusCancelledByPractitioner, StatusNoShow:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted,
		StatusCancelledByPatient, StatusCancelledByPractitioner, StatusNoShow:
		return true
	}
	return false
}

// AppointmentSource records which channel originally created an appointment.
// It is informational only and never gates behavior.
type AppointmentSource string

const (
	SourcePractice     AppointmentSource = "practice"
	SourceMobile       AppointmentSource = "mobile"
	SourceExternalSync AppointmentSource = "external_sync"
	SourceUnknown      AppointmentSource = "unknown"
)

type Appointment struct {
	ID             uuid.UUID
	PractitionerID uuid.UUID
	// PatientID is nil for draft/unlinked appointments. Drafts are a display
	// concern, distinct from status.
	PatientID *uuid.UUID

	// Date is the calendar date in YYYY-MM-DD form; StartTime and EndTime are
	// local wall-clock values normalized to zero-padded HH:MM:SS on the same day,
	// with EndTime after StartTime.
	Date      string
	StartTime string
	EndTime   string

	Status Status
	Source AppointmentSource

	CancellationReason  *string
	PractitionerNotes   *string
	TitleOverride       *string
	DescriptionOverride *string
	LocationOverride    *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Draft reports whether the appointment has no patient bound yet.
func (a Appointment) Draft() bool {
	return a.PatientID == nil
}

// EventType is the import pipeline's classification hint for an external event.
type EventType string

const (
	EventTypeAppointment EventType = "appointment"
	EventTypeBusy        EventType = "busy"
)

// EventSource distinguishes user-entered events from imported ones. Imported
// events are read-only here and can only be removed via the external provider.
type EventSource string

const (
	EventSourceManual   EventSource = "manual"
	EventSourceImported EventSource = "imported"
)

type ExternalEvent struct {
	ID uuid.UUID

	// Date is the calendar date in YYYY-MM-DD form. StartAt and EndAt are
	// instants; only their time-of-day component is used for display.
	Date    string
	StartAt time.Time
	EndAt   time.Time

	Title       string
	Description *string
	Location    *string

	TypeDetected EventType
	Source       EventSource

	// FeedID and ImportUID identify the origin of imported events so the sync
	// worker can upsert per occurrence. Both are nil for manual events.
	FeedID    *string
	ImportUID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemKind discriminates the two arms of the CalendarItem union.
type ItemKind string

const (
	KindAppointment   ItemKind = "appointment"
	KindExternalEvent ItemKind = "external_event"
)

// CalendarItem is the unified view-model produced by the aggregator: exactly
// one of Appointment or Event is set, per Kind. Downstream consumers switch on
// Kind rather than sniffing fields.
type CalendarItem struct {
	Kind        ItemKind
	Appointment *Appointment
	Event       *ExternalEvent
}

// DateKey returns the YYYY-MM-DD bucket key for the item, validating that the
// underlying date actually parses.
func (it CalendarItem) DateKey() (string, bool) {
	var raw string
	switch it.Kind {
	case KindAppointment:
		raw = it.Appointment.Date
	case KindExternalEvent:
		raw = it.Event.Date
	default:
		return "", false
	}
	if _, err := ParseDateKey(raw); err != nil {
		return "", false
	}
	return raw, true
}

// StartClock returns the item's start time-of-day as a zero-padded HH:MM:SS
// string suitable for lexicographic ordering.
func (it CalendarItem) StartClock() (string, bool) {
	switch it.Kind {
	case KindAppointment:
		return NormalizeClock(it.Appointment.StartTime)
	case KindExternalEvent:
		if it.Event.StartAt.IsZero() {
			return "", false
		}
		return it.Event.StartAt.Format("15:04:05"), true
	}
	return "", false
}

// EndClock returns the item's end time-of-day as a zero-padded HH:MM:SS string.
func (it CalendarItem) EndClock() (string, bool) {
	switch it.Kind {
	case KindAppointment:
		return NormalizeClock(it.Appointment.EndTime)
	case KindExternalEvent:
		if it.Event.EndAt.IsZero() {
			return "", false
		}
		return it.Event.EndAt.Format("15:04:05"), true
	}
	return "", false
}

const dateKeyLayout = "2006-01-02"

// DateKey formats t as a YYYY-MM-DD bucket key.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// ParseDateKey parses a YYYY-MM-DD key back into a midnight time.Time.
func ParseDateKey(s string) (time.Time, error) {
	t, err := time.Parse(dateKeyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", s, err)
	}
	return t, nil
}

// NormalizeClock validates a wall-clock string and returns it as zero-padded
// HH:MM:SS. Accepts H:MM, HH:MM and HH:MM:SS input.
func NormalizeClock(s string) (string, bool) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return "", false
	}
	if len(parts) == 2 {
		parts = append(parts, "0")
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return "", false
		}
		nums[i] = n
	}
	if nums[0] > 23 || nums[1] > 59 || nums[2] > 59 {
		return "", false
	}
	return fmt.Sprintf("%02d:%02d:%02d", nums[0], nums[1], nums[2]), true
}

// ClockMinutes converts an HH:MM[:SS] string into fractional minutes of day.
func ClockMinutes(s string) (float64, bool) {
	norm, ok := NormalizeClock(s)
	if !ok {
		return 0, false
	}
	h, _ := strconv.Atoi(norm[0:2])
	m, _ := strconv.Atoi(norm[3:5])
	sec, _ := strconv.Atoi(norm[6:8])
	return float64(h)*60 + float64(m) + float64(sec)/60, true
}
