package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FormatCents renders minor units as a decimal amount, e.g. 1250 -> "12.50"
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// RegisterUserRequest - payload for self-registration
type RegisterUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name"`
}

// UserResponse - user as returned by the API
type UserResponse struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	RegisteredAt time.Time `json:"registered_at"`
}

func NewUserResponse(u User) UserResponse {
	return UserResponse{
		ID:           u.ID,
		Email:        u.Email,
		Name:         u.Name,
		Role:         u.Role,
		IsActive:     u.IsActive,
		RegisteredAt: u.RegisteredAt,
	}
}

// TokenResponse - bearer token issued for the caller
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateEventRequest - payload for creating an event
type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required"`
	Description string    `json:"description"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	Venue       string    `json:"venue"`
	Location    string    `json:"location"`
	PriceCents  int64     `json:"price_cents"`
	TotalSeats  int       `json:"total_seats" binding:"required"`
}

// UpdateEventRequest - partial update; nil fields are left untouched
type UpdateEventRequest struct {
	Name        *string    `json:"name,omitempty"`
	Description *string    `json:"description,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	Venue       *string    `json:"venue,omitempty"`
	Location    *string    `json:"location,omitempty"`
	PriceCents  *int64     `json:"price_cents,omitempty"`
}

// EventResponse - event as returned by the API
type EventResponse struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Venue          string    `json:"venue"`
	Location       string    `json:"location"`
	Price          string    `json:"price"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	CreatorID      uuid.UUID `json:"creator_id"`
	Archived       bool      `json:"archived"`
}

func NewEventResponse(e Event) EventResponse {
	return EventResponse{
		ID:             e.ID,
		Name:           e.Name,
		Description:    e.Description,
		StartTime:      e.StartTime,
		EndTime:        e.EndTime,
		Venue:          e.Venue,
		Location:       e.Location,
		Price:          FormatCents(e.PriceCents),
		TotalSeats:     e.TotalSeats,
		AvailableSeats: e.AvailableSeats,
		CreatorID:      e.CreatorID,
		Archived:       e.Archived,
	}
}

// CreateBookingRequest - payload for creating a booking
type CreateBookingRequest struct {
	EventID uuid.UUID `json:"event_id" binding:"required"`
	Seats   int       `json:"seats" binding:"required"`
}

// ConfirmBookingRequest - payload for confirming a booking
type ConfirmBookingRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

// CancelBookingRequest - payload for cancelling a booking
type CancelBookingRequest struct {
	BookingID uuid.UUID `json:"booking_id" binding:"required"`
}

// BookingResponse - booking as returned by the API
type BookingResponse struct {
	ID                   uuid.UUID     `json:"id"`
	EventID              uuid.UUID     `json:"event_id"`
	UserID               uuid.UUID     `json:"user_id"`
	SeatsBooked          int           `json:"seats_booked"`
	Status               BookingStatus `json:"status"`
	StatusDisplay        string        `json:"status_display"`
	TotalPrice           string        `json:"total_price"`
	ConfirmationArtifact *string       `json:"confirmation_artifact,omitempty"`
	CreatedAt            time.Time     `json:"created_at"`
}

func NewBookingResponse(b Booking) BookingResponse {
	return BookingResponse{
		ID:                   b.ID,
		EventID:              b.EventID,
		UserID:               b.UserID,
		SeatsBooked:          b.SeatsBooked,
		Status:               b.Status,
		StatusDisplay:        b.Status.DisplayName(),
		TotalPrice:           FormatCents(b.TotalPriceCents),
		ConfirmationArtifact: b.ConfirmationArtifact,
		CreatedAt:            b.CreatedAt,
	}
}

// ConfirmBookingResponse - confirmed booking plus derived links
type ConfirmBookingResponse struct {
	Booking      BookingResponse `json:"booking"`
	CalendarLink string          `json:"calendar_link"`
}

// ConfirmationResult is what the workflow returns after a successful confirmation
type ConfirmationResult struct {
	Booking Booking
	Event   Event
}

// CancellationResult is what the workflow returns after a successful cancellation
type CancellationResult struct {
	Booking       Booking
	SeatsReleased int
}

// BookingAnalytics - flattened booking summary sent to the analytics service
type BookingAnalytics struct {
	ID          uuid.UUID `json:"id"`
	EventID     uuid.UUID `json:"eventId"`
	UserID      uuid.UUID `json:"userId"`
	SeatsBooked int       `json:"seatsBooked"`
	Price       float64   `json:"price"`
}

// EventAnalytics - flattened event summary sent to the analytics service
type EventAnalytics struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	TotalSeats int       `json:"totalSeats"`
	Price      float64   `json:"price"`
}

// SeatDrift is one event whose counters disagree with its confirmed bookings
type SeatDrift struct {
	EventID        uuid.UUID `json:"event_id"`
	TotalSeats     int       `json:"total_seats"`
	AvailableSeats int       `json:"available_seats"`
	ConfirmedSeats int       `json:"confirmed_seats"`
}

// ExpectedAvailable is what available_seats should be given the confirmed bookings
func (d SeatDrift) ExpectedAvailable() int {
	return d.TotalSeats - d.ConfirmedSeats
}
