package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/cache"
	"eventbooking/internal/clock"
	"eventbooking/internal/messaging"
	"eventbooking/internal/metrics"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
	"eventbooking/internal/sweeper"
)

var now = time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)

type fakeArtifacts struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeArtifacts) Generate(_ context.Context, payload string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return "QR(" + payload + ")", nil
}

type testEnv struct {
	svcs      *Services
	repos     *repository.Repositories
	store     *repository.MemoryStore
	clock     *clock.Manual
	recorder  *messaging.Recorder
	artifacts *fakeArtifacts
	sweeper   *sweeper.Sweeper
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	clk := clock.NewManual(now)
	store := repository.NewMemoryStore(clk)
	repos := repository.NewMemoryRepositories(store)
	rec := messaging.NewRecorder()
	art := &fakeArtifacts{}

	sw := sweeper.New(sweeper.Config{
		Horizon:  30 * 24 * time.Hour,
		CacheTTL: time.Hour,
	}, sweeper.Deps{
		Events:    repos.Events,
		Cache:     cache.NewMemoryCache(clk),
		Publisher: rec,
		Clock:     clk,
	})

	svcs := NewServices(Deps{
		Repos:     repos,
		Artifacts: art,
		Publisher: rec,
		Upcoming:  sw,
		Clock:     clk,
		Metrics:   metrics.New(prometheus.NewRegistry()),
	})

	return &testEnv{
		svcs:      svcs,
		repos:     repos,
		store:     store,
		clock:     clk,
		recorder:  rec,
		artifacts: art,
		sweeper:   sw,
	}
}

func user() models.Principal {
	return models.Principal{UserID: uuid.New(), Role: models.RoleUser, IsActive: true}
}

func admin() models.Principal {
	return models.Principal{UserID: uuid.New(), Role: models.RoleAdmin, IsActive: true}
}

func (e *testEnv) createEvent(t *testing.T, owner models.Principal, seats int, priceCents int64) *models.Event {
	t.Helper()
	event, err := e.svcs.Events.CreateEvent(context.Background(), owner, models.CreateEventRequest{
		Name:        "GopherCon",
		Description: "Talks and workshops",
		StartTime:   now.Add(72 * time.Hour),
		EndTime:     now.Add(80 * time.Hour),
		Venue:       "Hall A",
		Location:    "Berlin",
		PriceCents:  priceCents,
		TotalSeats:  seats,
	})
	require.NoError(t, err)
	return event
}

func (e *testEnv) event(t *testing.T, id uuid.UUID) *models.Event {
	t.Helper()
	event, err := e.repos.Events.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, event)
	return event
}

func (e *testEnv) booking(t *testing.T, id uuid.UUID) *models.Booking {
	t.Helper()
	booking, err := e.repos.Bookings.GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, booking)
	return booking
}
