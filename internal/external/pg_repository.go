package external

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdesk/practice-calendar/internal/calendar"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const eventColumns = `
	id, to_char(event_date, 'YYYY-MM-DD'), start_at, end_at,
	title, description, location,
	type_detected, source, feed_id, import_uid,
	created_at, updated_at`

func scanEvent(row pgx.Row) (*calendar.ExternalEvent, error) {
	var ev calendar.ExternalEvent

	err := row.Scan(
		&ev.ID,
		&ev.Date,
		&ev.StartAt,
		&ev.EndAt,
		&ev.Title,
		&ev.Description,
		&ev.Location,
		&ev.TypeDetected,
		&ev.Source,
		&ev.FeedID,
		&ev.ImportUID,
		&ev.CreatedAt,
		&ev.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	return &ev, nil
}

func (r *PgRepository) GetEventByID(ctx context.Context, id uuid.UUID) (*calendar.ExternalEvent, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+eventColumns+`
		FROM external_events
		WHERE id = $1
	`, id)
	return scanEvent(row)
}

func (r *PgRepository) ListRange(ctx context.Context, from, to string) ([]calendar.ExternalEvent, error) {
	return r.listRangeFrom(ctx, "external_events", from, to)
}

func (r *PgRepository) ListRangeLegacy(ctx context.Context, from, to string) ([]calendar.ExternalEvent, error) {
	return r.listRangeFrom(ctx, "imported_events", from, to)
}

func (r *PgRepository) listRangeFrom(ctx context.Context, table, from, to string) ([]calendar.ExternalEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+eventColumns+`
		FROM `+table+`
		WHERE event_date BETWEEN $1 AND $2
		ORDER BY event_date, start_at, id
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []calendar.ExternalEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev calendar.ExternalEvent) (*calendar.ExternalEvent, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO external_events (
			id, event_date, start_at, end_at,
			title, description, location,
			type_detected, source, feed_id, import_uid,
			created_at, updated_at
		)
		VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
		RETURNING `+eventColumns+`
	`, ev.ID, ev.Date, ev.StartAt, ev.EndAt,
		ev.Title, ev.Description, ev.Location,
		ev.TypeDetected, ev.Source, ev.FeedID, ev.ImportUID)

	return scanEvent(row)
}

func (r *PgRepository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM external_events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete external event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrEventNotFound
	}
	return nil
}

func (r *PgRepository) UpsertImported(ctx context.Context, feedID string, events []calendar.ExternalEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, ev := range events {
		_, err := tx.Exec(ctx, `
			INSERT INTO external_events (
				id, event_date, start_at, end_at,
				title, description, location,
				type_detected, source, feed_id, import_uid,
				created_at, updated_at
			)
			VALUES ($1, $2::date, $3, $4, $5, $6, $7, $8, $9, $10, $11, now(), now())
			ON CONFLICT (feed_id, import_uid) DO UPDATE SET
				event_date = EXCLUDED.event_date,
				start_at = EXCLUDED.start_at,
				end_at = EXCLUDED.end_at,
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				location = EXCLUDED.location,
				type_detected = EXCLUDED.type_detected,
				updated_at = now()
		`, ev.ID, ev.Date, ev.StartAt, ev.EndAt,
			ev.Title, ev.Description, ev.Location,
			ev.TypeDetected, ev.Source, feedID, ev.ImportUID)
		if err != nil {
			return fmt.Errorf("upsert imported event: %w", err)
		}
	}

	return tx.Commit(ctx)
}
