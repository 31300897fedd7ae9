package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"eventbooking/internal/database"
	"eventbooking/internal/models"
)

const eventColumns = `id, name, description, start_time, end_time, venue, location, price_cents,
	total_seats, available_seats, creator_id, archived, created_at, updated_at`

type EventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row rowScanner) (*models.Event, error) {
	event := &models.Event{}
	err := row.Scan(
		&event.ID,
		&event.Name,
		&event.Description,
		&event.StartTime,
		&event.EndTime,
		&event.Venue,
		&event.Location,
		&event.PriceCents,
		&event.TotalSeats,
		&event.AvailableSeats,
		&event.CreatorID,
		&event.Archived,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	return event, err
}

func scanEvents(rows *sql.Rows) ([]models.Event, error) {
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *event)
	}
	return events, rows.Err()
}

func (r *EventRepository) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		event.ID,
		event.Name,
		event.Description,
		event.StartTime,
		event.EndTime,
		event.Venue,
		event.Location,
		event.PriceCents,
		event.TotalSeats,
		event.AvailableSeats,
		event.CreatorID,
		event.Archived,
		event.CreatedAt,
		event.UpdatedAt,
	)
	return err
}

func (r *EventRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id)
}

func (r *EventRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return r.get(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, id)
}

func (r *EventRepository) get(ctx context.Context, query string, id uuid.UUID) (*models.Event, error) {
	event, err := scanEvent(r.db.Conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

func (r *EventRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	strIDs := make([]string, len(ids))
	for i, id := range ids {
		strIDs[i] = id.String()
	}

	rows, err := r.db.Conn(ctx).QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ANY($1::uuid[])`, pq.Array(strIDs))
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *EventRepository) Update(ctx context.Context, event *models.Event) error {
	query := `
		UPDATE events
		SET name = $1, description = $2, start_time = $3, end_time = $4,
		    venue = $5, location = $6, price_cents = $7, updated_at = $8
		WHERE id = $9`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		event.Name,
		event.Description,
		event.StartTime,
		event.EndTime,
		event.Venue,
		event.Location,
		event.PriceCents,
		event.UpdatedAt,
		event.ID,
	)
	return err
}

func (r *EventRepository) DecrementAvailableSeats(ctx context.Context, id uuid.UUID, n int) (int, bool, error) {
	query := `
		UPDATE events
		SET available_seats = available_seats - $2, updated_at = NOW()
		WHERE id = $1 AND available_seats >= $2
		RETURNING available_seats`

	var remaining int
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, id, n).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return remaining, true, nil
}

func (r *EventRepository) IncrementAvailableSeats(ctx context.Context, id uuid.UUID, n int) (int, error) {
	query := `
		UPDATE events
		SET available_seats = LEAST(total_seats, available_seats + $2), updated_at = NOW()
		WHERE id = $1
		RETURNING available_seats`

	var available int
	err := r.db.Conn(ctx).QueryRowContext(ctx, query, id, n).Scan(&available)
	return available, err
}

func (r *EventRepository) Archive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE events SET archived = TRUE, updated_at = $2 WHERE id = $1 AND NOT archived`, id, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *EventRepository) ArchiveEndedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		UPDATE events
		SET archived = TRUE, updated_at = $1
		WHERE end_time < $1 AND NOT archived
		RETURNING id`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *EventRepository) ListUpcoming(ctx context.Context, now, until time.Time) ([]models.Event, error) {
	rows, err := r.db.QueryWithRetry(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE NOT archived AND end_time > $1 AND start_time <= $2
		ORDER BY start_time ASC, id ASC`, now, until)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *EventRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Event, error) {
	rows, err := r.db.QueryWithRetry(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE creator_id = $1
		ORDER BY start_time ASC, id ASC`, creatorID)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func (r *EventRepository) SearchByName(ctx context.Context, query string, limit int) ([]models.Event, error) {
	rows, err := r.db.QueryWithRetry(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE NOT archived AND name ILIKE $1
		ORDER BY start_time ASC, id ASC
		LIMIT $2`, "%"+escapeLike(strings.TrimSpace(query))+"%", limit)
	if err != nil {
		return nil, err
	}
	return scanEvents(rows)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
