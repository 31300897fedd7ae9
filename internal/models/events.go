package models

import (
	"time"

	"github.com/google/uuid"
)

// NATS subjects
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventEventCreated     = "event.created"
	EventEventUpdated     = "event.updated"
	EventEventArchived    = "event.archived"
)

// BookingCreatedEvent is published after a PENDING booking is persisted
type BookingCreatedEvent struct {
	BookingID   uuid.UUID `json:"booking_id"`
	EventID     uuid.UUID `json:"event_id"`
	UserID      uuid.UUID `json:"user_id"`
	SeatsBooked int       `json:"seats_booked"`
	Timestamp   time.Time `json:"timestamp"`
}

// BookingConfirmedEvent is published after a confirmation commits
type BookingConfirmedEvent struct {
	BookingID       uuid.UUID `json:"booking_id"`
	EventID         uuid.UUID `json:"event_id"`
	UserID          uuid.UUID `json:"user_id"`
	SeatsBooked     int       `json:"seats_booked"`
	TotalPriceCents int64     `json:"total_price_cents"`
	SeatsLeft       int       `json:"seats_left"`
	Timestamp       time.Time `json:"timestamp"`
}

// BookingCancelledEvent is published after a cancellation commits
type BookingCancelledEvent struct {
	BookingID     uuid.UUID `json:"booking_id"`
	EventID       uuid.UUID `json:"event_id"`
	UserID        uuid.UUID `json:"user_id"`
	SeatsReleased int       `json:"seats_released"`
	Reason        string    `json:"reason"`
	Timestamp     time.Time `json:"timestamp"`
}

// EventChangedEvent is published on event creation and update
type EventChangedEvent struct {
	EventID    uuid.UUID `json:"event_id"`
	Name       string    `json:"name"`
	TotalSeats int       `json:"total_seats"`
	PriceCents int64     `json:"price_cents"`
	CreatorID  uuid.UUID `json:"creator_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// EventArchivedEvent is published when an event is archived by a user or by the sweeper
type EventArchivedEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}
