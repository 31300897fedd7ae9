// Package inventory owns an event's seat counters and its archival flag.
package inventory

import (
	"context"
	"fmt"

	"eventbooking/internal/clock"
	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

type Inventory struct {
	events repository.EventStore
	clock  clock.Clock
}

func New(events repository.EventStore, clk clock.Clock) *Inventory {
	return &Inventory{events: events, clock: clk}
}

// ReserveCheck is advisory only; it writes nothing.
func (i *Inventory) ReserveCheck(event *models.Event, seats int) error {
	if seats > event.AvailableSeats {
		return apperrors.ErrInsufficientSeats
	}
	return nil
}

// CommitConfirmation decrements available seats at the storage boundary and
// fails with ErrInsufficientSeats when fewer than seats remain at commit time.
// On success event.AvailableSeats reflects the stored value.
func (i *Inventory) CommitConfirmation(ctx context.Context, event *models.Event, seats int) error {
	remaining, ok, err := i.events.DecrementAvailableSeats(ctx, event.ID, seats)
	if err != nil {
		return apperrors.Internal("decrement available seats", err)
	}
	if !ok {
		return apperrors.ErrInsufficientSeats
	}
	event.AvailableSeats = remaining
	return nil
}

// Release gives seats back, never exceeding the event's capacity.
func (i *Inventory) Release(ctx context.Context, event *models.Event, seats int) error {
	available, err := i.events.IncrementAvailableSeats(ctx, event.ID, seats)
	if err != nil {
		return apperrors.Internal("release seats", err)
	}
	event.AvailableSeats = available
	return nil
}

// Archive is idempotent; it reports whether this call flipped the flag.
func (i *Inventory) Archive(ctx context.Context, event *models.Event) (bool, error) {
	changed, err := i.events.Archive(ctx, event.ID, i.clock.Now())
	if err != nil {
		return false, apperrors.Internal(fmt.Sprintf("archive event %s", event.ID), err)
	}
	event.Archived = true
	return changed, nil
}
