package repository

import (
	"context"

	"github.com/google/uuid"

	"eventbooking/internal/database"
	"eventbooking/internal/models"
)

type AuditRepository struct {
	db *database.DB
}

func NewAuditRepository(db *database.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// SeatDrift lists events whose available_seats differ from total minus confirmed seats.
func (r *AuditRepository) SeatDrift(ctx context.Context) ([]models.SeatDrift, error) {
	rows, err := r.db.Conn(ctx).QueryContext(ctx, `
		SELECT e.id, e.total_seats, e.available_seats, COALESCE(SUM(b.seats_booked), 0) AS confirmed
		FROM events e
		LEFT JOIN bookings b ON b.event_id = e.id AND b.status = 'CONFIRMED'
		GROUP BY e.id, e.total_seats, e.available_seats
		HAVING e.available_seats <> e.total_seats - COALESCE(SUM(b.seats_booked), 0)
		ORDER BY e.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drift []models.SeatDrift
	for rows.Next() {
		var d models.SeatDrift
		if err := rows.Scan(&d.EventID, &d.TotalSeats, &d.AvailableSeats, &d.ConfirmedSeats); err != nil {
			return nil, err
		}
		drift = append(drift, d)
	}
	return drift, rows.Err()
}

func (r *AuditRepository) SetAvailableSeats(ctx context.Context, id uuid.UUID, available int) error {
	_, err := r.db.Conn(ctx).ExecContext(ctx,
		`UPDATE events SET available_seats = $2, updated_at = NOW() WHERE id = $1`, id, available)
	return err
}
