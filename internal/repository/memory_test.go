package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/clock"
	"eventbooking/internal/models"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newEvent(total int, start, end time.Time) *models.Event {
	return &models.Event{
		ID:             uuid.New(),
		Name:           "Go Meetup",
		StartTime:      start,
		EndTime:        end,
		PriceCents:     1500,
		TotalSeats:     total,
		AvailableSeats: total,
		CreatorID:      uuid.New(),
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
}

func TestMemoryStoreRollsBackFailedTransaction(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(testNow))
	events := store.Events()
	ctx := context.Background()

	event := newEvent(10, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, events.Create(ctx, event))

	boom := errors.New("boom")
	err := store.WithTx(ctx, func(ctx context.Context) error {
		remaining, ok, err := events.DecrementAvailableSeats(ctx, event.ID, 4)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 6, remaining)

		inTx, err := events.GetByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, inTx.AvailableSeats)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	stored, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, stored.AvailableSeats)
}

func TestMemoryStoreDecrementGuard(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(testNow))
	events := store.Events()
	ctx := context.Background()

	event := newEvent(5, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, events.Create(ctx, event))

	_, ok, err := events.DecrementAvailableSeats(ctx, event.ID, 6)
	require.NoError(t, err)
	assert.False(t, ok)

	remaining, ok, err := events.DecrementAvailableSeats(ctx, event.ID, 5)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 0, remaining)

	available, err := events.IncrementAvailableSeats(ctx, event.ID, 50)
	require.NoError(t, err)
	assert.Equal(t, 5, available)
}

func TestMemoryStoreConcurrentDecrementsNeverOversell(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(testNow))
	events := store.Events()
	ctx := context.Background()

	event := newEvent(100, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, events.Create(ctx, event))

	var wg sync.WaitGroup
	var mu sync.Mutex
	granted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok, err := events.DecrementAvailableSeats(ctx, event.ID, 3)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				granted += 3
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	stored, err := events.GetByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, 99, granted)
	assert.Equal(t, 1, stored.AvailableSeats)
}

func TestMemoryStoreArchiveEndedBefore(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(testNow))
	events := store.Events()
	ctx := context.Background()

	past := newEvent(10, testNow.Add(-3*time.Hour), testNow.Add(-time.Hour))
	future := newEvent(10, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, events.Create(ctx, past))
	require.NoError(t, events.Create(ctx, future))

	ids, err := events.ArchiveEndedBefore(ctx, testNow)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{past.ID}, ids)

	ids, err = events.ArchiveEndedBefore(ctx, testNow)
	require.NoError(t, err)
	assert.Empty(t, ids)

	changed, err := events.Archive(ctx, past.ID, testNow)
	require.NoError(t, err)
	assert.False(t, changed)

	upcoming, err := events.ListUpcoming(ctx, testNow, testNow.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, future.ID, upcoming[0].ID)
}

func TestMemoryStoreSeatDrift(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(testNow))
	ctx := context.Background()

	event := newEvent(10, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, store.Events().Create(ctx, event))
	require.NoError(t, store.Bookings().Create(ctx, &models.Booking{
		ID:          uuid.New(),
		EventID:     event.ID,
		UserID:      uuid.New(),
		SeatsBooked: 4,
		Status:      models.BookingStatusConfirmed,
		CreatedAt:   testNow,
	}))

	drift, err := store.SeatDrift(ctx)
	require.NoError(t, err)
	require.Len(t, drift, 1)
	assert.Equal(t, 6, drift[0].ExpectedAvailable())

	require.NoError(t, store.SetAvailableSeats(ctx, event.ID, 6))
	drift, err = store.SeatDrift(ctx)
	require.NoError(t, err)
	assert.Empty(t, drift)
}

func TestMemoryUsersLookupIsCaseInsensitive(t *testing.T) {
	store := NewMemoryStore(nil)
	users := store.Users()
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "Alice@Example.com", Role: models.RoleUser, IsActive: true}
	require.NoError(t, users.Create(ctx, user))

	found, err := users.GetByEmail(ctx, "alice@example.COM")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, user.ID, found.ID)

	missing, err := users.GetByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryStoreLocksOnlyTouchedRows(t *testing.T) {
	store := NewMemoryStore(clock.NewManual(testNow))
	events := store.Events()
	ctx := context.Background()

	held := newEvent(10, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	other := newEvent(10, testNow.Add(time.Hour), testNow.Add(2*time.Hour))
	require.NoError(t, events.Create(ctx, held))
	require.NoError(t, events.Create(ctx, other))

	locked := make(chan struct{})
	finish := make(chan struct{})
	txDone := make(chan error, 1)
	go func() {
		txDone <- store.WithTx(ctx, func(ctx context.Context) error {
			if _, err := events.GetForUpdate(ctx, held.ID); err != nil {
				return err
			}
			close(locked)
			<-finish
			_, _, err := events.DecrementAvailableSeats(ctx, held.ID, 3)
			return err
		})
	}()
	<-locked

	// another event stays writable while the first row is held
	remaining, ok, err := events.DecrementAvailableSeats(ctx, other.ID, 2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 8, remaining)

	blocked := make(chan int, 1)
	go func() {
		n, _, _ := events.DecrementAvailableSeats(ctx, held.ID, 1)
		blocked <- n
	}()

	select {
	case <-blocked:
		t.Fatal("write to a locked event did not wait for the holder")
	case <-time.After(50 * time.Millisecond):
	}

	close(finish)
	require.NoError(t, <-txDone)

	select {
	case n := <-blocked:
		assert.Equal(t, 6, n)
	case <-time.After(time.Second):
		t.Fatal("write to the event never resumed")
	}
}

func TestMemoryUsersSetActiveAndCount(t *testing.T) {
	store := NewMemoryStore(nil)
	users := store.Users()
	ctx := context.Background()

	n, err := users.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	user := &models.User{ID: uuid.New(), Email: "bob@example.com", Role: models.RoleUser, IsActive: true}
	require.NoError(t, users.Create(ctx, user))

	found, err := users.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	assert.True(t, found)

	stored, err := users.GetByEmail(ctx, "bob@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	found, err = users.SetActive(ctx, uuid.New(), false)
	require.NoError(t, err)
	assert.False(t, found)

	n, err = users.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
