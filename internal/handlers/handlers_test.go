package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/cache"
	"eventbooking/internal/clock"
	"eventbooking/internal/middleware"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
	"eventbooking/internal/service"
	"eventbooking/internal/sweeper"
)

var (
	now       = time.Date(2026, 4, 20, 12, 0, 0, 0, time.UTC)
	jwtSecret = []byte("test-secret")
)

const password = "s3cret"

type stubArtifacts struct{}

func (stubArtifacts) Generate(context.Context, string) (string, error) {
	return "aW1hZ2U=", nil
}

type testServer struct {
	router *gin.Engine
	users  map[string]*models.User
}

func setupRouter(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	clk := clock.NewManual(now)
	repos := repository.NewMemoryRepositories(repository.NewMemoryStore(clk))

	sw := sweeper.New(sweeper.Config{Horizon: 30 * 24 * time.Hour, CacheTTL: time.Minute}, sweeper.Deps{
		Events: repos.Events,
		Cache:  cache.NewMemoryCache(clk),
		Clock:  clk,
	})
	services := service.NewServices(service.Deps{
		Repos:     repos,
		Artifacts: stubArtifacts{},
		Upcoming:  sw,
		Clock:     clk,
	})

	ts := &testServer{users: map[string]*models.User{}}
	for _, u := range []struct {
		key    string
		role   models.Role
		active bool
	}{
		{"owner", models.RoleUser, true},
		{"alice", models.RoleUser, true},
		{"bob", models.RoleUser, true},
		{"admin", models.RoleAdmin, true},
		{"inactive", models.RoleUser, false},
	} {
		user := &models.User{
			ID:           uuid.New(),
			Email:        u.key + "@example.com",
			PasswordHash: middleware.HashPassword(password),
			Name:         u.key,
			Role:         u.role,
			IsActive:     u.active,
			RegisteredAt: now,
		}
		require.NoError(t, repos.Users.Create(context.Background(), user))
		ts.users[u.key] = user
	}

	r := gin.New()
	r.Use(middleware.RequestID())
	NewHandlers(services).WithTokens(jwtSecret, time.Hour).Register(r.Group("/api"), middleware.Auth(repos.Users, jwtSecret))
	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, as, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if as != "" {
		req.SetBasicAuth(ts.users[as].Email, password)
	}

	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) createEvent(t *testing.T, as string, seats int) models.EventResponse {
	t.Helper()
	w := ts.do(t, as, http.MethodPost, "/api/events", models.CreateEventRequest{
		Name:       "Go Meetup",
		StartTime:  now.Add(48 * time.Hour),
		EndTime:    now.Add(50 * time.Hour),
		Venue:      "Hall A",
		Location:   "Almaty",
		PriceCents: 1250,
		TotalSeats: seats,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.EventResponse](t, w)
}

func (ts *testServer) createBooking(t *testing.T, as string, eventID uuid.UUID, seats int) models.BookingResponse {
	t.Helper()
	w := ts.do(t, as, http.MethodPost, "/api/bookings", models.CreateBookingRequest{EventID: eventID, Seats: seats})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[models.BookingResponse](t, w)
}

func TestAuthentication(t *testing.T) {
	ts := setupRouter(t)

	t.Run("missing credentials", func(t *testing.T) {
		w := ts.do(t, "", http.MethodGet, "/api/events", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NotEmpty(t, w.Header().Get("WWW-Authenticate"))
	})

	t.Run("wrong password", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.SetBasicAuth(ts.users["alice"].Email, "nope")
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("inactive user", func(t *testing.T) {
		w := ts.do(t, "inactive", http.MethodGet, "/api/events", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("email is case insensitive", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/events", nil)
		req.SetBasicAuth("ALICE@example.com", password)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bearer token", func(t *testing.T) {
		token, err := middleware.IssueToken(jwtSecret, ts.users["alice"], time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bearer token with wrong key", func(t *testing.T) {
		token, err := middleware.IssueToken([]byte("other"), ts.users["alice"], time.Hour)
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/api/bookings", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		ts.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestEventEndpoints(t *testing.T) {
	ts := setupRouter(t)

	event := ts.createEvent(t, "owner", 10)
	assert.Equal(t, "12.50", event.Price)
	assert.Equal(t, 10, event.AvailableSeats)
	assert.Equal(t, ts.users["owner"].ID, event.CreatorID)

	w := ts.do(t, "alice", http.MethodGet, "/api/events/"+event.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, event.ID, decode[models.EventResponse](t, w).ID)

	w = ts.do(t, "alice", http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.EventResponse](t, w), 1)

	w = ts.do(t, "alice", http.MethodGet, "/api/events?query=meetup", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.EventResponse](t, w), 1)

	w = ts.do(t, "owner", http.MethodGet, "/api/events/mine", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.EventResponse](t, w), 1)

	w = ts.do(t, "alice", http.MethodGet, "/api/events/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, "alice", http.MethodGet, "/api/events/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	name := "Go Meetup #2"
	w = ts.do(t, "alice", http.MethodPatch, "/api/events/"+event.ID.String(), models.UpdateEventRequest{Name: &name})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "owner", http.MethodPatch, "/api/events/"+event.ID.String(), models.UpdateEventRequest{Name: &name})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, name, decode[models.EventResponse](t, w).Name)

	w = ts.do(t, "alice", http.MethodDelete, "/api/events/"+event.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "owner", http.MethodDelete, "/api/events/"+event.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, "alice", http.MethodGet, "/api/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.EventResponse](t, w))
}

func TestCreateEventRejectsBadInput(t *testing.T) {
	ts := setupRouter(t)

	w := ts.do(t, "owner", http.MethodPost, "/api/events", models.CreateEventRequest{
		Name:       "Backwards",
		StartTime:  now.Add(2 * time.Hour),
		EndTime:    now.Add(time.Hour),
		TotalSeats: 5,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_argument", decode[map[string]string](t, w)["code"])

	w = ts.do(t, "owner", http.MethodPost, "/api/events", map[string]any{"name": "no seats"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingFlow(t *testing.T) {
	ts := setupRouter(t)
	event := ts.createEvent(t, "owner", 100)

	a := ts.createBooking(t, "alice", event.ID, 60)
	b := ts.createBooking(t, "bob", event.ID, 60)
	assert.Equal(t, models.BookingStatusPending, a.Status)
	assert.Equal(t, "0.00", a.TotalPrice)

	w := ts.do(t, "alice", http.MethodPatch, "/api/bookings/confirm", models.ConfirmBookingRequest{BookingID: a.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	confirmed := decode[models.ConfirmBookingResponse](t, w)
	assert.Equal(t, models.BookingStatusConfirmed, confirmed.Booking.Status)
	assert.Equal(t, "750.00", confirmed.Booking.TotalPrice)
	require.NotNil(t, confirmed.Booking.ConfirmationArtifact)
	assert.Contains(t, confirmed.CalendarLink, "https://calendar.google.com/calendar/r/eventedit?text=Go+Meetup")
	assert.Contains(t, confirmed.CalendarLink, "alice%40example.com")

	w = ts.do(t, "alice", http.MethodPatch, "/api/bookings/confirm", models.ConfirmBookingRequest{BookingID: a.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_confirmed", decode[map[string]string](t, w)["code"])

	w = ts.do(t, "bob", http.MethodPatch, "/api/bookings/confirm", models.ConfirmBookingRequest{BookingID: b.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "seats_exhausted", decode[map[string]string](t, w)["code"])

	w = ts.do(t, "alice", http.MethodGet, "/api/events/"+event.ID.String(), nil)
	assert.Equal(t, 40, decode[models.EventResponse](t, w).AvailableSeats)

	w = ts.do(t, "bob", http.MethodPost, "/api/bookings", models.CreateBookingRequest{EventID: event.ID, Seats: 41})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "insufficient_seats", decode[map[string]string](t, w)["code"])

	w = ts.do(t, "alice", http.MethodPatch, "/api/bookings/cancel", models.CancelBookingRequest{BookingID: a.ID})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.BookingStatusCancelled, decode[models.BookingResponse](t, w).Status)

	w = ts.do(t, "alice", http.MethodPatch, "/api/bookings/cancel", models.CancelBookingRequest{BookingID: a.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_cancelled", decode[map[string]string](t, w)["code"])

	w = ts.do(t, "alice", http.MethodGet, "/api/events/"+event.ID.String(), nil)
	assert.Equal(t, 100, decode[models.EventResponse](t, w).AvailableSeats)
}

func TestBookingOwnership(t *testing.T) {
	ts := setupRouter(t)
	event := ts.createEvent(t, "owner", 10)
	booking := ts.createBooking(t, "alice", event.ID, 2)

	w := ts.do(t, "bob", http.MethodPatch, "/api/bookings/confirm", models.ConfirmBookingRequest{BookingID: booking.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "bob", http.MethodPatch, "/api/bookings/cancel", models.CancelBookingRequest{BookingID: booking.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "bob", http.MethodGet, "/api/bookings/"+booking.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "admin", http.MethodGet, "/api/bookings/"+booking.ID.String(), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "alice", http.MethodGet, "/api/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.BookingResponse](t, w), 1)

	w = ts.do(t, "bob", http.MethodGet, "/api/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[[]models.BookingResponse](t, w))

	w = ts.do(t, "owner", http.MethodGet, "/api/events/"+event.ID.String()+"/bookings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.BookingResponse](t, w), 1)

	w = ts.do(t, "bob", http.MethodGet, "/api/events/"+event.ID.String()+"/bookings", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "alice", http.MethodPatch, "/api/bookings/confirm", models.ConfirmBookingRequest{BookingID: uuid.New()})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteSoldOutEvent(t *testing.T) {
	ts := setupRouter(t)
	event := ts.createEvent(t, "owner", 2)
	booking := ts.createBooking(t, "alice", event.ID, 2)

	w := ts.do(t, "alice", http.MethodPatch, "/api/bookings/confirm", models.ConfirmBookingRequest{BookingID: booking.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, "owner", http.MethodDelete, "/api/events/"+event.ID.String(), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(t, "admin", http.MethodDelete, "/api/events/"+event.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ts.do(t, "alice", http.MethodGet, "/api/events/"+event.ID.String(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decode[models.EventResponse](t, w).Archived)
}
