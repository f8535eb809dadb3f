package appointment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
	redisclient "github.com/clinicdesk/practice-calendar/internal/redis"
)

const (
	EventAppointmentCreated = "APPOINTMENT_CREATED"
	EventStatusChanged      = "APPOINTMENT_STATUS_CHANGED"
)

var (
	ErrTransitionInFlight  = errors.New("a transition for this appointment is already in flight")
	ErrTransitionConflict  = errors.New("appointment status changed concurrently, re-fetch and retry")
	ErrInvalidTimes        = errors.New("end time must be after start time on the same day")
	ErrInvalidScope        = errors.New("invalid scope")
	ErrPractitionerMissing = errors.New("practitioner reference is required")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	log    zerolog.Logger
}

func NewService(repo Repository, locker redisclient.Locker, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		log:    log,
	}
}

// ListRange fetches appointments for an inclusive date range and scope. The
// range comes from the calendar resolver; the scope decides whose rows are
// visible. The call is read-only and safely retryable.
func (s *Service) ListRange(ctx context.Context, r calendar.DateRange, scope Scope) ([]calendar.Appointment, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}

	appts, err := s.repo.ListRange(ctx, calendar.DateKey(r.From), calendar.DateKey(r.To), scope)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	return appts, nil
}

func validateScope(scope Scope) error {
	switch scope.Kind {
	case ScopeMine:
		if scope.PractitionerID == nil {
			return fmt.Errorf("%w: mine requires a practitioner id", ErrInvalidScope)
		}
	case ScopeOrganization:
		if scope.OrganizationID == nil {
			return fmt.Errorf("%w: organization requires an organization id", ErrInvalidScope)
		}
	case ScopeAll:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidScope, scope.Kind)
	}
	return nil
}

// CreateParams describes a booking request. PatientID may be nil: the result
// is a draft/unlinked appointment. Status may be nil (defaults to pending) or
// an explicit staff choice of pending/confirmed.
type CreateParams struct {
	PractitionerID uuid.UUID
	PatientID      *uuid.UUID
	Date           string
	StartTime      string
	EndTime        string
	Notes          *string
	Status         *calendar.Status
	Source         calendar.AppointmentSource
}

// Create books a new appointment after validating its temporal fields and the
// referenced records.
func (s *Service) Create(ctx context.Context, params CreateParams) (*calendar.Appointment, error) {
	if params.PractitionerID == uuid.Nil {
		return nil, ErrPractitionerMissing
	}

	if _, err := calendar.ParseDateKey(params.Date); err != nil {
		return nil, fmt.Errorf("invalid appointment date: %w", err)
	}
	start, ok := calendar.NormalizeClock(params.StartTime)
	if !ok {
		return nil, fmt.Errorf("%w: bad start time %q", ErrInvalidTimes, params.StartTime)
	}
	end, ok := calendar.NormalizeClock(params.EndTime)
	if !ok {
		return nil, fmt.Errorf("%w: bad end time %q", ErrInvalidTimes, params.EndTime)
	}
	if end <= start {
		return nil, ErrInvalidTimes
	}

	status, err := calendar.InitialStatus(params.Status)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.GetPractitionerByID(ctx, params.PractitionerID); err != nil {
		if errors.Is(err, ErrPractitionerNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load practitioner: %w", err)
	}
	if params.PatientID != nil {
		if _, err := s.repo.GetPatientByID(ctx, *params.PatientID); err != nil {
			if errors.Is(err, ErrPatientNotFound) {
				return nil, err
			}
			return nil, fmt.Errorf("load patient: %w", err)
		}
	}

	source := params.Source
	if source == "" {
		source = calendar.SourcePractice
	}

	appt := calendar.Appointment{
		ID:                uuid.New(),
		PractitionerID:    params.PractitionerID,
		PatientID:         params.PatientID,
		Date:              params.Date,
		StartTime:         start,
		EndTime:           end,
		Status:            status,
		Source:            source,
		PractitionerNotes: params.Notes,
	}

	created, err := s.repo.InsertAppointment(ctx, appt)
	if err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logEvent(ctx, created.ID, EventAppointmentCreated, map[string]any{
		"practitioner_id": created.PractitionerID.String(),
		"date":            created.Date,
		"status":          string(created.Status),
	})

	return created, nil
}

// ApplyTransition moves an appointment through the lifecycle state machine.
//
// The action is checked against the permitted-transition table before any
// write. A per-appointment lock serializes concurrent requests for the same
// appointment; the status update itself is a compare-and-swap, so a transition
// that raced with another actor surfaces as ErrTransitionConflict and the
// caller re-fetches. The actor class selects the mutation channel only; both
// classes share the same permitted table.
func (s *Service) ApplyTransition(ctx context.Context, id uuid.UUID, action calendar.Action, payload calendar.TransitionPayload, actor calendar.Actor) (*calendar.Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	next, err := calendar.Next(appt.Status, action)
	if err != nil {
		return nil, err
	}

	var updated *calendar.Appointment

	err = s.locker.WithAppointmentLock(ctx, id, func(lockCtx context.Context) error {
		updated, err = s.repo.UpdateAppointmentStatus(lockCtx, id, appt.Status, next, payload)
		if err != nil {
			if errors.Is(err, ErrAppointmentNotFound) {
				return ErrTransitionConflict
			}
			return fmt.Errorf("update status: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrTransitionInFlight
		}
		return nil, err
	}

	s.logEvent(ctx, updated.ID, EventStatusChanged, map[string]any{
		"action":  string(action),
		"from":    string(appt.Status),
		"to":      string(updated.Status),
		"channel": string(actor.Channel()),
	})

	return updated, nil
}

func (s *Service) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.log.Error().Err(err).Str("event_type", eventType).Msg("marshal event payload")
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		s.log.Error().Err(err).
			Str("event_type", eventType).
			Str("appointment_id", appointmentID.String()).
			Msg("insert event log")
	}
}
