package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/stan.go"

	"eventbooking/internal/models"
)

// ErrMalformed marks payloads that will never decode; they are acked and dropped.
var ErrMalformed = errors.New("malformed message")

// AnalyticsSink receives flattened summaries
type AnalyticsSink interface {
	SendEvent(ctx context.Context, event models.EventAnalytics) error
	SendBooking(ctx context.Context, booking models.BookingAnalytics) error
}

type Handlers struct {
	analytics AnalyticsSink
	timeout   time.Duration
}

func NewHandlers(analytics AnalyticsSink, timeout time.Duration) *Handlers {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Handlers{analytics: analytics, timeout: timeout}
}

func centsToUnits(cents int64) float64 {
	return float64(cents) / 100
}

// HandleBookingConfirmed relays a confirmed booking to analytics
func (h *Handlers) HandleBookingConfirmed(ctx context.Context, data []byte) error {
	var event models.BookingConfirmedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: booking confirmed: %v", ErrMalformed, err)
	}

	slog.Info("Processing booking confirmed event", "booking_id", event.BookingID, "event_id", event.EventID)

	return h.analytics.SendBooking(ctx, models.BookingAnalytics{
		ID:          event.BookingID,
		EventID:     event.EventID,
		UserID:      event.UserID,
		SeatsBooked: event.SeatsBooked,
		Price:       centsToUnits(event.TotalPriceCents),
	})
}

// HandleEventChanged relays a created or updated event to analytics
func (h *Handlers) HandleEventChanged(ctx context.Context, data []byte) error {
	var event models.EventChangedEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("%w: event changed: %v", ErrMalformed, err)
	}

	slog.Info("Processing event changed event", "event_id", event.EventID)

	return h.analytics.SendEvent(ctx, models.EventAnalytics{
		ID:         event.EventID,
		Name:       event.Name,
		TotalSeats: event.TotalSeats,
		Price:      centsToUnits(event.PriceCents),
	})
}

// process runs fn and reports whether the message should be acked.
// Transient failures stay unacked so the server redelivers after AckWait.
func (h *Handlers) process(subject string, data []byte, fn func(context.Context, []byte) error) bool {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	err := fn(ctx, data)
	switch {
	case err == nil:
		return true
	case errors.Is(err, ErrMalformed):
		slog.Error("Dropping malformed message", "subject", subject, "error", err)
		return true
	default:
		slog.Error("Failed to process message, awaiting redelivery", "subject", subject, "error", err)
		return false
	}
}

// msgHandler adapts fn to a STAN handler with manual acks
func (h *Handlers) msgHandler(fn func(context.Context, []byte) error) stan.MsgHandler {
	return func(m *stan.Msg) {
		if h.process(m.Subject, m.Data, fn) {
			if err := m.Ack(); err != nil {
				slog.Error("Failed to ack message", "subject", m.Subject, "error", err)
			}
		}
	}
}
