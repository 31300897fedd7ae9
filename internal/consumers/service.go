package consumers

import (
	"context"
	"log/slog"

	"github.com/nats-io/stan.go"

	"eventbooking/internal/config"
	"eventbooking/internal/external"
	"eventbooking/internal/messaging"
	"eventbooking/internal/models"
)

const queueGroup = "analytics-relay"

type ConsumerService struct {
	nats     *messaging.NATSClient
	handlers *Handlers
	subs     []stan.Subscription
}

func NewConsumerService(cfg *config.Config) (*ConsumerService, error) {
	natsClient, err := messaging.NewNATSClient(cfg.NATS)
	if err != nil {
		return nil, err
	}

	analytics := external.NewAnalyticsClient(cfg.Analytics)

	return &ConsumerService{
		nats:     natsClient,
		handlers: NewHandlers(analytics, cfg.Analytics.Timeout),
	}, nil
}

func (cs *ConsumerService) Start() error {
	slog.Info("Starting NATS consumers...")

	routes := []struct {
		subject string
		fn      func(context.Context, []byte) error
	}{
		{models.EventBookingConfirmed, cs.handlers.HandleBookingConfirmed},
		{models.EventEventCreated, cs.handlers.HandleEventChanged},
		{models.EventEventUpdated, cs.handlers.HandleEventChanged},
	}

	for _, r := range routes {
		sub, err := cs.nats.SubscribeQueue(r.subject, queueGroup, cs.handlers.msgHandler(r.fn))
		if err != nil {
			return err
		}
		cs.subs = append(cs.subs, sub)
	}

	slog.Info("All consumers started successfully", "subjects", len(routes))
	return nil
}

func (cs *ConsumerService) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down consumer service...")

	// Close keeps the durable position
	for _, sub := range cs.subs {
		if err := sub.Close(); err != nil {
			slog.Error("Error closing subscription", "error", err)
		}
	}

	if cs.nats != nil {
		if err := cs.nats.Close(); err != nil {
			slog.Error("Error closing NATS connection", "error", err)
			return err
		}
	}

	return nil
}
