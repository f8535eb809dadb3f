package external

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
)

var ErrInvalidEvent = errors.New("invalid external event")

type Service struct {
	repo Repository
	log  zerolog.Logger
}

func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log}
}

// ListRange fetches external events for an inclusive date range.
//
// External events are best-effort data: the preferred store is tried first,
// then the legacy one, and on total failure the result degrades to an empty
// list instead of propagating the error. Both failures are logged. This is the
// one documented place a data-layer error is swallowed.
func (s *Service) ListRange(ctx context.Context, r calendar.DateRange) []calendar.ExternalEvent {
	from, to := calendar.DateKey(r.From), calendar.DateKey(r.To)

	events, err := s.repo.ListRange(ctx, from, to)
	if err == nil {
		return events
	}
	s.log.Warn().Err(err).Str("from", from).Str("to", to).
		Msg("external events query failed, falling back to legacy store")

	events, err = s.repo.ListRangeLegacy(ctx, from, to)
	if err == nil {
		return events
	}
	s.log.Error().Err(err).Str("from", from).Str("to", to).
		Msg("legacy external events query failed, returning none")

	return nil
}

// CreateParams describes a user-entered calendar entry.
type CreateParams struct {
	Date        string
	StartAt     time.Time
	EndAt       time.Time
	Title       string
	Description *string
	Location    *string
}

// CreateManual stores a user-entered event. Manual entries are always typed as
// appointments; only the import pipeline produces busy blocks.
func (s *Service) CreateManual(ctx context.Context, params CreateParams) (*calendar.ExternalEvent, error) {
	if _, err := calendar.ParseDateKey(params.Date); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEvent, err)
	}
	if params.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidEvent)
	}
	if !params.EndAt.After(params.StartAt) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidEvent)
	}

	ev := calendar.ExternalEvent{
		ID:           uuid.New(),
		Date:         params.Date,
		StartAt:      params.StartAt,
		EndAt:        params.EndAt,
		Title:        params.Title,
		Description:  params.Description,
		Location:     params.Location,
		TypeDetected: calendar.EventTypeAppointment,
		Source:       calendar.EventSourceManual,
	}

	created, err := s.repo.InsertEvent(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("create external event: %w", err)
	}
	return created, nil
}

// Delete removes a user-entered event. Imported events are read-only here and
// return ErrEventReadOnly.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ev, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load external event: %w", err)
	}
	if ev.Source != calendar.EventSourceManual {
		return ErrEventReadOnly
	}

	if err := s.repo.DeleteEvent(ctx, id); err != nil {
		return fmt.Errorf("delete external event: %w", err)
	}
	return nil
}
