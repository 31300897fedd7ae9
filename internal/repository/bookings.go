package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"eventbooking/internal/database"
	"eventbooking/internal/models"
)

const bookingColumns = `id, event_id, user_id, seats_booked, status, total_price_cents,
	confirmation_artifact, created_at, confirmed_at, cancelled_at, updated_at`

type BookingRepository struct {
	db *database.DB
}

func NewBookingRepository(db *database.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	booking := &models.Booking{}
	err := row.Scan(
		&booking.ID,
		&booking.EventID,
		&booking.UserID,
		&booking.SeatsBooked,
		&booking.Status,
		&booking.TotalPriceCents,
		&booking.ConfirmationArtifact,
		&booking.CreatedAt,
		&booking.ConfirmedAt,
		&booking.CancelledAt,
		&booking.UpdatedAt,
	)
	return booking, err
}

func (r *BookingRepository) Create(ctx context.Context, booking *models.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		booking.ID,
		booking.EventID,
		booking.UserID,
		booking.SeatsBooked,
		booking.Status,
		booking.TotalPriceCents,
		booking.ConfirmationArtifact,
		booking.CreatedAt,
		booking.ConfirmedAt,
		booking.CancelledAt,
		booking.UpdatedAt,
	)
	return err
}

func (r *BookingRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id)
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	return r.get(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id)
}

func (r *BookingRepository) get(ctx context.Context, query string, id uuid.UUID) (*models.Booking, error) {
	booking, err := scanBooking(r.db.Conn(ctx).QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return booking, nil
}

// Update persists the mutable lifecycle fields. created_at is never rewritten.
func (r *BookingRepository) Update(ctx context.Context, booking *models.Booking) error {
	query := `
		UPDATE bookings
		SET status = $1, total_price_cents = $2, confirmation_artifact = $3,
		    confirmed_at = $4, cancelled_at = $5, updated_at = $6
		WHERE id = $7`

	_, err := r.db.Conn(ctx).ExecContext(ctx, query,
		booking.Status,
		booking.TotalPriceCents,
		booking.ConfirmationArtifact,
		booking.ConfirmedAt,
		booking.CancelledAt,
		booking.UpdatedAt,
		booking.ID,
	)
	return err
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE user_id = $1
		ORDER BY created_at DESC, id ASC`, userID)
}

func (r *BookingRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	return r.list(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE event_id = $1
		ORDER BY created_at ASC, id ASC`, eventID)
}

func (r *BookingRepository) list(ctx context.Context, query string, arg any) ([]models.Booking, error) {
	rows, err := r.db.QueryWithRetry(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		booking, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *booking)
	}
	return bookings, rows.Err()
}
