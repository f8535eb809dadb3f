package appointment

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
)

var (
	ErrPatientNotFound      = errors.New("patient not found")
	ErrPractitionerNotFound = errors.New("practitioner not found")
	ErrAppointmentNotFound  = errors.New("appointment not found")
)

// Repository contains all DB interactions needed by the service.
// Appointments are never hard-deleted; the cancellation statuses are the
// deletion surrogate.
type Repository interface {
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetPractitionerByID(ctx context.Context, id uuid.UUID) (*Practitioner, error)

	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*calendar.Appointment, error)

	// ListRange returns appointments whose date falls in [from, to], both
	// YYYY-MM-DD, narrowed by scope.
	ListRange(ctx context.Context, from, to string, scope Scope) ([]calendar.Appointment, error)

	InsertAppointment(ctx context.Context, appt calendar.Appointment) (*calendar.Appointment, error)

	// UpdateAppointmentStatus applies a compare-and-swap status change,
	// persisting any payload text alongside. ErrAppointmentNotFound means the
	// row was not in the expected from-status anymore.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to calendar.Status, payload calendar.TransitionPayload) (*calendar.Appointment, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
