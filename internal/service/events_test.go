package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/models"
)

type fakeIndex struct {
	indexed []uuid.UUID
	hits    []uuid.UUID
	err     error
}

func (f *fakeIndex) IndexEvent(_ context.Context, event *models.Event) error {
	f.indexed = append(f.indexed, event.ID)
	return nil
}

func (f *fakeIndex) Search(context.Context, string, int) ([]uuid.UUID, error) {
	return f.hits, f.err
}

func TestCreateEventValidation(t *testing.T) {
	env := newTestEnv(t)
	start := now.Add(24 * time.Hour)

	tests := []struct {
		name string
		req  models.CreateEventRequest
	}{
		{"blank name", models.CreateEventRequest{Name: "  ", StartTime: start, EndTime: start.Add(time.Hour), TotalSeats: 10}},
		{"end before start", models.CreateEventRequest{Name: "x", StartTime: start, EndTime: start.Add(-time.Hour), TotalSeats: 10}},
		{"end equals start", models.CreateEventRequest{Name: "x", StartTime: start, EndTime: start, TotalSeats: 10}},
		{"negative price", models.CreateEventRequest{Name: "x", StartTime: start, EndTime: start.Add(time.Hour), PriceCents: -1, TotalSeats: 10}},
		{"zero seats", models.CreateEventRequest{Name: "x", StartTime: start, EndTime: start.Add(time.Hour)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.svcs.Events.CreateEvent(context.Background(), user(), tt.req)
			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
		})
	}
}

func TestCreateEventStartsWithAllSeatsAvailable(t *testing.T) {
	env := newTestEnv(t)
	owner := user()

	event := env.createEvent(t, owner, 25, 1500)

	assert.Equal(t, 25, event.TotalSeats)
	assert.Equal(t, 25, event.AvailableSeats)
	assert.Equal(t, owner.UserID, event.CreatorID)
	assert.False(t, event.Archived)
	assert.Equal(t, []string{models.EventEventCreated}, env.recorder.Subjects())
}

func TestDeleteEventPermissions(t *testing.T) {
	ctx := context.Background()

	t.Run("stranger is denied", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.createEvent(t, user(), 10, 100)

		err := env.svcs.Events.DeleteEvent(ctx, user(), event.ID)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.False(t, env.event(t, event.ID).Archived)
	})

	t.Run("owner with seats left", func(t *testing.T) {
		env := newTestEnv(t)
		owner := user()
		event := env.createEvent(t, owner, 10, 100)

		require.NoError(t, env.svcs.Events.DeleteEvent(ctx, owner, event.ID))
		assert.True(t, env.event(t, event.ID).Archived)
		assert.Contains(t, env.recorder.Subjects(), models.EventEventArchived)
	})

	t.Run("owner of sold out event is denied", func(t *testing.T) {
		env := newTestEnv(t)
		owner := user()
		event := env.createEvent(t, owner, 2, 100)

		booking, err := env.svcs.Bookings.CreateBooking(ctx, user(), event.ID, 2)
		require.NoError(t, err)
		_, err = env.svcs.Bookings.ConfirmBooking(ctx, booking.ID)
		require.NoError(t, err)

		err = env.svcs.Events.DeleteEvent(ctx, owner, event.ID)
		assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)
		assert.False(t, env.event(t, event.ID).Archived)
	})

	t.Run("admin may delete sold out event", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.createEvent(t, user(), 1, 100)

		booking, err := env.svcs.Bookings.CreateBooking(ctx, user(), event.ID, 1)
		require.NoError(t, err)
		_, err = env.svcs.Bookings.ConfirmBooking(ctx, booking.ID)
		require.NoError(t, err)

		require.NoError(t, env.svcs.Events.DeleteEvent(ctx, admin(), event.ID))
		assert.True(t, env.event(t, event.ID).Archived)
	})

	t.Run("unknown event", func(t *testing.T) {
		env := newTestEnv(t)
		err := env.svcs.Events.DeleteEvent(ctx, admin(), uuid.New())
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})
}

func TestDeleteEventTwiceIsQuiet(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := user()
	event := env.createEvent(t, owner, 10, 100)

	require.NoError(t, env.svcs.Events.DeleteEvent(ctx, owner, event.ID))
	require.NoError(t, env.svcs.Events.DeleteEvent(ctx, owner, event.ID))

	archived := 0
	for _, s := range env.recorder.Subjects() {
		if s == models.EventEventArchived {
			archived++
		}
	}
	assert.Equal(t, 1, archived)
}

func TestUpdateEvent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := user()
	event := env.createEvent(t, owner, 10, 100)

	name := "GopherCon EU"
	price := int64(4200)
	updated, err := env.svcs.Events.UpdateEvent(ctx, owner, event.ID, models.UpdateEventRequest{
		Name:       &name,
		PriceCents: &price,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.Equal(t, price, updated.PriceCents)
	assert.Equal(t, event.Venue, updated.Venue)
	assert.Equal(t, 10, updated.TotalSeats)

	badEnd := event.StartTime.Add(-time.Minute)
	_, err = env.svcs.Events.UpdateEvent(ctx, owner, event.ID, models.UpdateEventRequest{EndTime: &badEnd})
	assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
	assert.Equal(t, event.EndTime, env.event(t, event.ID).EndTime)

	_, err = env.svcs.Events.UpdateEvent(ctx, user(), event.ID, models.UpdateEventRequest{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	require.NoError(t, env.svcs.Events.DeleteEvent(ctx, owner, event.ID))
	_, err = env.svcs.Events.UpdateEvent(ctx, admin(), event.ID, models.UpdateEventRequest{Name: &name})
	assert.ErrorIs(t, err, apperrors.ErrEventArchived)
}

func TestListUpcomingReflectsWrites(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := user()

	first := env.createEvent(t, owner, 10, 100)
	upcoming, err := env.svcs.Events.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)

	env.createEvent(t, owner, 10, 100)
	upcoming, err = env.svcs.Events.ListUpcoming(ctx)
	require.NoError(t, err)
	assert.Len(t, upcoming, 2)

	require.NoError(t, env.svcs.Events.DeleteEvent(ctx, owner, first.ID))
	upcoming, err = env.svcs.Events.ListUpcoming(ctx)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.NotEqual(t, first.ID, upcoming[0].ID)
}

func TestSearchEvents(t *testing.T) {
	ctx := context.Background()

	t.Run("storage fallback without index", func(t *testing.T) {
		env := newTestEnv(t)
		env.createEvent(t, user(), 10, 100)

		events, err := env.svcs.Events.SearchEvents(ctx, "gopher", 10)
		require.NoError(t, err)
		assert.Len(t, events, 1)

		events, err = env.svcs.Events.SearchEvents(ctx, "rustconf", 10)
		require.NoError(t, err)
		assert.Empty(t, events)
	})

	t.Run("index hits keep order and skip archived", func(t *testing.T) {
		env := newTestEnv(t)
		owner := user()
		a := env.createEvent(t, owner, 10, 100)
		b := env.createEvent(t, owner, 10, 100)
		c := env.createEvent(t, owner, 10, 100)
		require.NoError(t, env.svcs.Events.DeleteEvent(ctx, owner, b.ID))

		idx := &fakeIndex{hits: []uuid.UUID{c.ID, b.ID, uuid.New(), a.ID}}
		env.svcs.Events.index = idx

		events, err := env.svcs.Events.SearchEvents(ctx, "anything", 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, c.ID, events[0].ID)
		assert.Equal(t, a.ID, events[1].ID)
	})

	t.Run("index failure falls back to storage", func(t *testing.T) {
		env := newTestEnv(t)
		env.createEvent(t, user(), 10, 100)
		env.svcs.Events.index = &fakeIndex{err: errors.New("cluster red")}

		events, err := env.svcs.Events.SearchEvents(ctx, "Gopher", 10)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("empty query lists upcoming", func(t *testing.T) {
		env := newTestEnv(t)
		env.createEvent(t, user(), 10, 100)

		events, err := env.svcs.Events.SearchEvents(ctx, "   ", 10)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})
}

func TestListEventBookings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := user()
	event := env.createEvent(t, owner, 10, 100)

	_, err := env.svcs.Bookings.CreateBooking(ctx, user(), event.ID, 1)
	require.NoError(t, err)
	_, err = env.svcs.Bookings.CreateBooking(ctx, user(), event.ID, 2)
	require.NoError(t, err)

	bookings, err := env.svcs.Events.ListEventBookings(ctx, owner, event.ID)
	require.NoError(t, err)
	assert.Len(t, bookings, 2)

	_, err = env.svcs.Events.ListEventBookings(ctx, admin(), event.ID)
	assert.NoError(t, err)

	_, err = env.svcs.Events.ListEventBookings(ctx, user(), event.ID)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)
}
