package models

import (
	"time"

	"github.com/google/uuid"
)

// Role is the coarse authorization level of a principal.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// User represents a user in the system
type User struct {
	ID           uuid.UUID `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Name         string    `json:"name" db:"name"`
	Role         Role      `json:"role" db:"role"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	RegisteredAt time.Time `json:"registered_at" db:"registered_at"`
}

// Principal is the identity of the caller as supplied by the auth layer.
type Principal struct {
	UserID   uuid.UUID `json:"user_id"`
	Role     Role      `json:"role"`
	IsActive bool      `json:"is_active"`
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// Event represents a bookable occurrence with a fixed seat capacity
type Event struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Name           string    `json:"name" db:"name"`
	Description    string    `json:"description" db:"description"`
	StartTime      time.Time `json:"start_time" db:"start_time"`
	EndTime        time.Time `json:"end_time" db:"end_time"`
	Venue          string    `json:"venue" db:"venue"`
	Location       string    `json:"location" db:"location"`
	PriceCents     int64     `json:"price_cents" db:"price_cents"`
	TotalSeats     int       `json:"total_seats" db:"total_seats"`
	AvailableSeats int       `json:"available_seats" db:"available_seats"`
	CreatorID      uuid.UUID `json:"creator_id" db:"creator_id"`
	Archived       bool      `json:"archived" db:"archived"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// BookingStatus is the state of a booking. PENDING is initial, the others are terminal.
type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "PENDING"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

func (s BookingStatus) DisplayName() string {
	switch s {
	case BookingStatusPending:
		return "Waiting for confirmation"
	case BookingStatusConfirmed:
		return "Confirmed"
	case BookingStatusCancelled:
		return "Cancelled"
	default:
		return string(s)
	}
}

// Booking represents a claim by a user on some of an event's seats
type Booking struct {
	ID                   uuid.UUID     `json:"id" db:"id"`
	EventID              uuid.UUID     `json:"event_id" db:"event_id"`
	UserID               uuid.UUID     `json:"user_id" db:"user_id"`
	SeatsBooked          int           `json:"seats_booked" db:"seats_booked"`
	Status               BookingStatus `json:"status" db:"status"`
	TotalPriceCents      int64         `json:"total_price_cents" db:"total_price_cents"`
	ConfirmationArtifact *string       `json:"confirmation_artifact,omitempty" db:"confirmation_artifact"`
	CreatedAt            time.Time     `json:"created_at" db:"created_at"`
	ConfirmedAt          *time.Time    `json:"confirmed_at,omitempty" db:"confirmed_at"`
	CancelledAt          *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	UpdatedAt            time.Time     `json:"updated_at" db:"updated_at"`
}
