// Package ledger owns booking records and the PENDING -> CONFIRMED | CANCELLED
// state machine.
package ledger

import (
	"context"

	"github.com/google/uuid"

	"eventbooking/internal/clock"
	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

type Ledger struct {
	bookings repository.BookingStore
	clock    clock.Clock
}

func New(bookings repository.BookingStore, clk clock.Clock) *Ledger {
	return &Ledger{bookings: bookings, clock: clk}
}

// Open persists a new PENDING booking with a zero price.
func (l *Ledger) Open(ctx context.Context, eventID, userID uuid.UUID, seats int) (*models.Booking, error) {
	if seats < 1 {
		return nil, apperrors.Invalid("seats must be at least 1, got %d", seats)
	}

	now := l.clock.Now()
	booking := &models.Booking{
		ID:          uuid.New(),
		EventID:     eventID,
		UserID:      userID,
		SeatsBooked: seats,
		Status:      models.BookingStatusPending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := l.bookings.Create(ctx, booking); err != nil {
		return nil, apperrors.Internal("create booking", err)
	}
	return booking, nil
}

func (l *Ledger) Get(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := l.bookings.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("get booking", err)
	}
	if booking == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	return booking, nil
}

// Lock reads the booking and holds its row lock for the rest of the transaction.
func (l *Ledger) Lock(ctx context.Context, id uuid.UUID) (*models.Booking, error) {
	booking, err := l.bookings.GetForUpdate(ctx, id)
	if err != nil {
		return nil, apperrors.Internal("lock booking", err)
	}
	if booking == nil {
		return nil, apperrors.ErrBookingNotFound
	}
	return booking, nil
}

// CanConfirm reports the transition error confirm would hit, without writing.
func CanConfirm(b *models.Booking) error {
	switch b.Status {
	case models.BookingStatusPending:
		return nil
	case models.BookingStatusConfirmed:
		return apperrors.ErrAlreadyConfirmed
	case models.BookingStatusCancelled:
		return apperrors.ErrAlreadyCancelled
	default:
		return apperrors.Internal("unknown booking status "+string(b.Status), nil)
	}
}

// CanCancel reports the transition error cancel would hit, without writing.
func CanCancel(b *models.Booking) error {
	if b.Status == models.BookingStatusCancelled {
		return apperrors.ErrAlreadyCancelled
	}
	return nil
}

// Confirm moves a PENDING booking to CONFIRMED and records price and artifact.
func (l *Ledger) Confirm(ctx context.Context, b *models.Booking, totalPriceCents int64, artifact string) error {
	if err := CanConfirm(b); err != nil {
		return err
	}

	now := l.clock.Now()
	updated := *b
	updated.Status = models.BookingStatusConfirmed
	updated.TotalPriceCents = totalPriceCents
	updated.ConfirmationArtifact = &artifact
	updated.ConfirmedAt = &now
	updated.UpdatedAt = now

	if err := l.bookings.Update(ctx, &updated); err != nil {
		return apperrors.Internal("confirm booking", err)
	}
	*b = updated
	return nil
}

// Cancel moves a non-cancelled booking to CANCELLED and returns its previous status.
func (l *Ledger) Cancel(ctx context.Context, b *models.Booking) (models.BookingStatus, error) {
	if err := CanCancel(b); err != nil {
		return b.Status, err
	}

	prev := b.Status
	now := l.clock.Now()
	updated := *b
	updated.Status = models.BookingStatusCancelled
	updated.CancelledAt = &now
	updated.UpdatedAt = now

	if err := l.bookings.Update(ctx, &updated); err != nil {
		return prev, apperrors.Internal("cancel booking", err)
	}
	*b = updated
	return prev, nil
}

func (l *Ledger) ByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	bookings, err := l.bookings.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Internal("list bookings by user", err)
	}
	return bookings, nil
}

func (l *Ledger) ByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Booking, error) {
	bookings, err := l.bookings.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, apperrors.Internal("list bookings by event", err)
	}
	return bookings, nil
}
