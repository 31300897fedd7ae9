// Package validation drives a running API through a full booking cycle.
package validation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/models"
)

// APIValidator runs smoke checks against baseURL using Basic credentials
type APIValidator struct {
	baseURL  string
	email    string
	password string
	client   *http.Client
}

func NewAPIValidator(baseURL, email, password string) *APIValidator {
	return &APIValidator{
		baseURL:  baseURL,
		email:    email,
		password: password,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// ValidateAll creates an event, books, confirms and cancels seats, then
// archives the event, checking seat counters at every step.
func (v *APIValidator) ValidateAll(ctx context.Context) error {
	slog.Info("Starting API validation", "base_url", v.baseURL)

	event, err := v.validateEvents(ctx)
	if err != nil {
		return fmt.Errorf("events validation failed: %w", err)
	}

	if err := v.validateBookings(ctx, event); err != nil {
		return fmt.Errorf("bookings validation failed: %w", err)
	}

	if err := v.request(ctx, http.MethodDelete, "/api/events/"+event.ID.String(), nil, http.StatusNoContent, nil); err != nil {
		return err
	}

	slog.Info("All endpoints passed validation")
	return nil
}

func (v *APIValidator) validateEvents(ctx context.Context) (*models.EventResponse, error) {
	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Minute)

	var event models.EventResponse
	err := v.request(ctx, http.MethodPost, "/api/events", models.CreateEventRequest{
		Name:        "Validation event " + uuid.NewString()[:8],
		Description: "created by the API validator",
		StartTime:   start,
		EndTime:     start.Add(2 * time.Hour),
		Venue:       "Main hall",
		Location:    "Online",
		PriceCents:  1000,
		TotalSeats:  5,
	}, http.StatusCreated, &event)
	if err != nil {
		return nil, err
	}
	if event.ID == uuid.Nil || event.AvailableSeats != 5 {
		return nil, fmt.Errorf("POST /api/events: unexpected event %+v", event)
	}

	var upcoming []models.EventResponse
	if err := v.request(ctx, http.MethodGet, "/api/events", nil, http.StatusOK, &upcoming); err != nil {
		return nil, err
	}
	if !containsEvent(upcoming, event.ID) {
		return nil, fmt.Errorf("GET /api/events: created event %s missing from upcoming list", event.ID)
	}

	var fetched models.EventResponse
	if err := v.request(ctx, http.MethodGet, "/api/events/"+event.ID.String(), nil, http.StatusOK, &fetched); err != nil {
		return nil, err
	}

	slog.Info("Events endpoints are valid", "event_id", event.ID)
	return &event, nil
}

func (v *APIValidator) validateBookings(ctx context.Context, event *models.EventResponse) error {
	if err := v.request(ctx, http.MethodPost, "/api/bookings",
		models.CreateBookingRequest{EventID: event.ID, Seats: event.TotalSeats + 1}, http.StatusConflict, nil); err != nil {
		return err
	}

	var booking models.BookingResponse
	if err := v.request(ctx, http.MethodPost, "/api/bookings",
		models.CreateBookingRequest{EventID: event.ID, Seats: 2}, http.StatusCreated, &booking); err != nil {
		return err
	}
	if booking.Status != models.BookingStatusPending {
		return fmt.Errorf("POST /api/bookings: expected PENDING, got %s", booking.Status)
	}

	var confirmed models.ConfirmBookingResponse
	if err := v.request(ctx, http.MethodPatch, "/api/bookings/confirm",
		models.ConfirmBookingRequest{BookingID: booking.ID}, http.StatusOK, &confirmed); err != nil {
		return err
	}
	if confirmed.Booking.Status != models.BookingStatusConfirmed || confirmed.CalendarLink == "" {
		return fmt.Errorf("PATCH /api/bookings/confirm: unexpected response %+v", confirmed)
	}
	if err := v.expectSeats(ctx, event.ID, event.TotalSeats-2); err != nil {
		return err
	}

	if err := v.request(ctx, http.MethodPatch, "/api/bookings/confirm",
		models.ConfirmBookingRequest{BookingID: booking.ID}, http.StatusConflict, nil); err != nil {
		return err
	}

	if err := v.request(ctx, http.MethodPatch, "/api/bookings/cancel",
		models.CancelBookingRequest{BookingID: booking.ID}, http.StatusOK, nil); err != nil {
		return err
	}
	if err := v.expectSeats(ctx, event.ID, event.TotalSeats); err != nil {
		return err
	}

	var mine []models.BookingResponse
	if err := v.request(ctx, http.MethodGet, "/api/bookings", nil, http.StatusOK, &mine); err != nil {
		return err
	}

	slog.Info("Bookings endpoints are valid", "booking_id", booking.ID)
	return nil
}

func (v *APIValidator) expectSeats(ctx context.Context, eventID uuid.UUID, want int) error {
	var event models.EventResponse
	if err := v.request(ctx, http.MethodGet, "/api/events/"+eventID.String(), nil, http.StatusOK, &event); err != nil {
		return err
	}
	if event.AvailableSeats != want {
		return fmt.Errorf("event %s: expected %d available seats, got %d", eventID, want, event.AvailableSeats)
	}
	return nil
}

// request sends body as JSON, checks the status and decodes the response into out when set
func (v *APIValidator) request(ctx context.Context, method, path string, body any, wantStatus int, out any) error {
	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, v.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.SetBasicAuth(v.email, v.password)

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != wantStatus {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%s %s: expected %d, got %d: %s", method, path, wantStatus, resp.StatusCode, msg)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("%s %s: failed to decode response: %w", method, path, err)
		}
	}
	return nil
}

func containsEvent(events []models.EventResponse, id uuid.UUID) bool {
	for _, e := range events {
		if e.ID == id {
			return true
		}
	}
	return false
}

// RunValidation validates the API at baseURL
func RunValidation(ctx context.Context, baseURL, email, password string) error {
	return NewAPIValidator(baseURL, email, password).ValidateAll(ctx)
}
