package inventory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/clock"
	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

var now = time.Date(2026, 5, 10, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T, total int) (*Inventory, repository.EventStore, *models.Event) {
	t.Helper()
	clk := clock.NewManual(now)
	store := repository.NewMemoryStore(clk)
	event := &models.Event{
		ID:             uuid.New(),
		Name:           "Conference",
		StartTime:      now.Add(24 * time.Hour),
		EndTime:        now.Add(48 * time.Hour),
		TotalSeats:     total,
		AvailableSeats: total,
		CreatorID:      uuid.New(),
	}
	require.NoError(t, store.Events().Create(context.Background(), event))
	return New(store.Events(), clk), store.Events(), event
}

func TestReserveCheck(t *testing.T) {
	inv, _, event := setup(t, 10)

	assert.NoError(t, inv.ReserveCheck(event, 10))
	assert.ErrorIs(t, inv.ReserveCheck(event, 11), apperrors.ErrInsufficientSeats)
}

func TestCommitConfirmation(t *testing.T) {
	inv, events, event := setup(t, 10)
	ctx := context.Background()

	require.NoError(t, inv.CommitConfirmation(ctx, event, 7))
	assert.Equal(t, 3, event.AvailableSeats)

	err := inv.CommitConfirmation(ctx, event, 4)
	assert.ErrorIs(t, err, apperrors.ErrInsufficientSeats)

	stored, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.AvailableSeats)
}

func TestReleaseIsCappedAtTotal(t *testing.T) {
	inv, _, event := setup(t, 10)
	ctx := context.Background()

	require.NoError(t, inv.CommitConfirmation(ctx, event, 2))
	require.NoError(t, inv.Release(ctx, event, 5))
	assert.Equal(t, 10, event.AvailableSeats)
}

func TestArchiveIsIdempotent(t *testing.T) {
	inv, events, event := setup(t, 10)
	ctx := context.Background()

	changed, err := inv.Archive(ctx, event)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = inv.Archive(ctx, event)
	require.NoError(t, err)
	assert.False(t, changed)

	stored, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.True(t, stored.Archived)
}
