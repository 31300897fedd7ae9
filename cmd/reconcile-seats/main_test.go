package main

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/clock"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

func seedEvent(t *testing.T, repos *repository.Repositories, total, available int, confirmed ...int) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	event := &models.Event{
		ID:             uuid.New(),
		Name:           "Drifted",
		StartTime:      now.Add(time.Hour),
		EndTime:        now.Add(2 * time.Hour),
		TotalSeats:     total,
		AvailableSeats: available,
		CreatorID:      uuid.New(),
	}
	require.NoError(t, repos.Events.Create(ctx, event))

	for _, seats := range confirmed {
		require.NoError(t, repos.Bookings.Create(ctx, &models.Booking{
			ID:          uuid.New(),
			EventID:     event.ID,
			UserID:      uuid.New(),
			SeatsBooked: seats,
			Status:      models.BookingStatusConfirmed,
		}))
	}
	return event.ID
}

func TestReconcile(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore(clock.NewSystem()))

	healthy := seedEvent(t, repos, 10, 7, 3)
	drifted := seedEvent(t, repos, 10, 10, 3, 2)

	n, err := reconcile(ctx, repos, false)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	event, err := repos.Events.GetByID(ctx, drifted)
	require.NoError(t, err)
	assert.Equal(t, 10, event.AvailableSeats)

	n, err = reconcile(ctx, repos, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	event, err = repos.Events.GetByID(ctx, drifted)
	require.NoError(t, err)
	assert.Equal(t, 5, event.AvailableSeats)

	event, err = repos.Events.GetByID(ctx, healthy)
	require.NoError(t, err)
	assert.Equal(t, 7, event.AvailableSeats)

	n, err = reconcile(ctx, repos, false)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReconcileLeavesOversoldEvents(t *testing.T) {
	ctx := context.Background()
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore(clock.NewSystem()))

	oversold := seedEvent(t, repos, 4, 0, 3, 3)

	n, err := reconcile(ctx, repos, true)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	event, err := repos.Events.GetByID(ctx, oversold)
	require.NoError(t, err)
	assert.Equal(t, 0, event.AvailableSeats)
}
