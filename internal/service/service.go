package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eventbooking/internal/clock"
	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/inventory"
	"eventbooking/internal/ledger"
	"eventbooking/internal/messaging"
	"eventbooking/internal/metrics"
	"eventbooking/internal/models"
	"eventbooking/internal/observability"
	"eventbooking/internal/repository"
)

// ArtifactGenerator renders the confirmation artifact (a base64 QR image).
type ArtifactGenerator interface {
	Generate(ctx context.Context, payload string) (string, error)
}

// UpcomingView is the cached upcoming-events listing owned by the sweeper.
type UpcomingView interface {
	Upcoming(ctx context.Context) ([]models.Event, error)
	Invalidate(ctx context.Context)
}

// EventIndex is the optional full-text index over events.
type EventIndex interface {
	IndexEvent(ctx context.Context, event *models.Event) error
	Search(ctx context.Context, query string, limit int) ([]uuid.UUID, error)
}

type Deps struct {
	Repos     *repository.Repositories
	Artifacts ArtifactGenerator
	Publisher messaging.Publisher
	Upcoming  UpcomingView
	Index     EventIndex
	Clock     clock.Clock
	Metrics   *metrics.Metrics
}

type Services struct {
	Events   *EventService
	Bookings *BookingService
	Users    *UserService
}

func NewServices(d Deps) *Services {
	if d.Clock == nil {
		d.Clock = clock.NewSystem()
	}
	if d.Publisher == nil {
		d.Publisher = messaging.Discard{}
	}

	inv := inventory.New(d.Repos.Events, d.Clock)
	led := ledger.New(d.Repos.Bookings, d.Clock)

	return &Services{
		Events:   NewEventService(d, inv, led),
		Bookings: NewBookingService(d, inv, led),
		Users:    NewUserService(d),
	}
}

func tracer() trace.Tracer {
	return observability.Tracer()
}

// endSpan records the outcome of an operation on its span.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("error.kind", apperrors.KindOf(err).String()))
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// outcome turns an error into a metric label.
func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.KindOf(err).String()
}
