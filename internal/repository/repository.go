package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/database"
	"eventbooking/internal/models"
)

// Lookups return (nil, nil) when the row does not exist.

type EventStore interface {
	Create(ctx context.Context, event *models.Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error)
	// GetForUpdate locks the event row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Event, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Event, error)
	Update(ctx context.Context, event *models.Event) error
	// DecrementAvailableSeats subtracts n only if at least n seats remain.
	// ok is false when the guard failed and nothing was written.
	DecrementAvailableSeats(ctx context.Context, id uuid.UUID, n int) (remaining int, ok bool, err error)
	// IncrementAvailableSeats adds n, capped at total_seats.
	IncrementAvailableSeats(ctx context.Context, id uuid.UUID, n int) (int, error)
	// Archive reports whether the flag changed.
	Archive(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)
	ArchiveEndedBefore(ctx context.Context, cutoff time.Time) ([]uuid.UUID, error)
	ListUpcoming(ctx context.Context, now, until time.Time) ([]models.Event, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Event, error)
	SearchByName(ctx context.Context, query string, limit int) ([]models.Event, error)
}

type BookingStore interface {
	Create(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	// GetForUpdate locks the booking row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*models.Booking, error)
	Update(ctx context.Context, booking *models.Booking) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error)
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// SetActive reports whether the user exists.
	SetActive(ctx context.Context, id uuid.UUID, active bool) (bool, error)
	Count(ctx context.Context) (int, error)
}

// SeatAuditor compares seat counters with confirmed bookings.
type SeatAuditor interface {
	SeatDrift(ctx context.Context) ([]models.SeatDrift, error)
	SetAvailableSeats(ctx context.Context, id uuid.UUID, available int) error
}

// TxRunner runs fn in one transaction carried by ctx. Nested calls join it.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repositories struct {
	Events   EventStore
	Bookings BookingStore
	Users    UserStore
	Audit    SeatAuditor
	Tx       TxRunner
}

func NewRepositories(db *database.DB) *Repositories {
	return &Repositories{
		Events:   NewEventRepository(db),
		Bookings: NewBookingRepository(db),
		Users:    NewUserRepository(db),
		Audit:    NewAuditRepository(db),
		Tx:       db,
	}
}

func NewMemoryRepositories(store *MemoryStore) *Repositories {
	return &Repositories{
		Events:   store.Events(),
		Bookings: store.Bookings(),
		Users:    store.Users(),
		Audit:    store,
		Tx:       store,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}
