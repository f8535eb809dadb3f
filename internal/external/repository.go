package external

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
)

var (
	ErrEventNotFound = errors.New("external event not found")
	ErrEventReadOnly = errors.New("imported events can only be removed via the external provider")
)

// Repository contains all DB interactions for external calendar events.
type Repository interface {
	GetEventByID(ctx context.Context, id uuid.UUID) (*calendar.ExternalEvent, error)

	// ListRange reads from the current external_events store.
	ListRange(ctx context.Context, from, to string) ([]calendar.ExternalEvent, error)
	// ListRangeLegacy reads from the pre-migration imported_events store. Kept
	// until the last deployments stop writing there.
	ListRangeLegacy(ctx context.Context, from, to string) ([]calendar.ExternalEvent, error)

	InsertEvent(ctx context.Context, ev calendar.ExternalEvent) (*calendar.ExternalEvent, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	// UpsertImported replaces-or-inserts events from a feed sync, keyed by
	// feed id + import UID.
	UpsertImported(ctx context.Context, feedID string, events []calendar.ExternalEvent) error
}
