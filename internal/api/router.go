package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/practice-calendar/internal/appointment"
	"github.com/clinicdesk/practice-calendar/internal/calendar"
	"github.com/clinicdesk/practice-calendar/internal/external"
)

// AppointmentService is the slice of the appointment service the handlers use.
type AppointmentService interface {
	ListRange(ctx context.Context, r calendar.DateRange, scope appointment.Scope) ([]calendar.Appointment, error)
	Create(ctx context.Context, params appointment.CreateParams) (*calendar.Appointment, error)
	ApplyTransition(ctx context.Context, id uuid.UUID, action calendar.Action, payload calendar.TransitionPayload, actor calendar.Actor) (*calendar.Appointment, error)
}

// ExternalEventService is the slice of the external-event service the handlers use.
type ExternalEventService interface {
	ListRange(ctx context.Context, r calendar.DateRange) []calendar.ExternalEvent
	CreateManual(ctx context.Context, params external.CreateParams) (*calendar.ExternalEvent, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type RouterConfig struct {
	Appointments AppointmentService
	Events       ExternalEventService
	Aggregator   calendar.Aggregator
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Log          zerolog.Logger
	Env          string
	Version      string
	// Now supplies the wall clock for the now-indicator; defaults to time.Now.
	Now func() time.Time
	// GridStartHour/GridEndHour override the visible-hour window of the
	// week/day grids; zero values fall back to the calendar defaults.
	GridStartHour int
	GridEndHour   int
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.GridStartHour == 0 && cfg.GridEndHour == 0 {
		cfg.GridStartHour = calendar.DefaultStartHour
		cfg.GridEndHour = calendar.DefaultEndHour
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Merged calendar view
	r.Get("/calendar", calendarHandler(cfg.Appointments, cfg.Events, cfg.Aggregator, cfg.Now, cfg.GridStartHour, cfg.GridEndHour))

	// Appointments: practitioner-scoped channel
	r.Post("/appointments", createAppointmentHandler(cfg.Appointments))
	r.Post("/appointments/{id}/transitions/{action}", transitionHandler(cfg.Appointments, calendar.ActorPractitioner))

	// Appointments: organization-scoped channel for delegated staff
	r.Post("/org/appointments/{id}/transitions/{action}", transitionHandler(cfg.Appointments, calendar.ActorOrganizationStaff))

	// External calendar events
	r.Get("/events", listEventsHandler(cfg.Events))
	r.Post("/events", createEventHandler(cfg.Events))
	r.Delete("/events/{id}", deleteEventHandler(cfg.Events))

	return r
}
