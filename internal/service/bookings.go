package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"eventbooking/internal/clock"
	apperrors "eventbooking/internal/errors"
	"eventbooking/internal/inventory"
	"eventbooking/internal/ledger"
	"eventbooking/internal/logger"
	"eventbooking/internal/messaging"
	"eventbooking/internal/metrics"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

// BookingService runs the booking workflow across inventory and ledger.
type BookingService struct {
	tx        repository.TxRunner
	events    repository.EventStore
	users     repository.UserStore
	inventory *inventory.Inventory
	ledger    *ledger.Ledger
	artifacts ArtifactGenerator
	publisher messaging.Publisher
	upcoming  UpcomingView
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func NewBookingService(d Deps, inv *inventory.Inventory, led *ledger.Ledger) *BookingService {
	return &BookingService{
		tx:        d.Repos.Tx,
		events:    d.Repos.Events,
		users:     d.Repos.Users,
		inventory: inv,
		ledger:    led,
		artifacts: d.Artifacts,
		publisher: d.Publisher,
		upcoming:  d.Upcoming,
		clock:     d.Clock,
		metrics:   d.Metrics,
	}
}

// CreateBooking records a PENDING booking after an advisory seat check.
// No seats are taken until confirmation.
func (s *BookingService) CreateBooking(ctx context.Context, principal models.Principal, eventID uuid.UUID, seats int) (booking *models.Booking, err error) {
	ctx, span := tracer().Start(ctx, "booking.create")
	span.SetAttributes(attribute.String("event.id", eventID.String()), attribute.Int("booking.seats", seats))
	defer func() {
		s.metrics.BookingOperation("create", outcome(err))
		endSpan(span, err)
	}()

	log := logger.WithContext(ctx)

	if seats < 1 {
		return nil, apperrors.Invalid("seats must be at least 1, got %d", seats)
	}

	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, apperrors.Internal("get event", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	if event.Archived {
		return nil, apperrors.ErrEventArchived
	}

	if err := s.inventory.ReserveCheck(event, seats); err != nil {
		log.Warn("Booking rejected, not enough seats",
			"event_id", eventID, "requested", seats, "available", event.AvailableSeats)
		return nil, err
	}

	booking, err = s.ledger.Open(ctx, event.ID, principal.UserID, seats)
	if err != nil {
		return nil, err
	}

	log.Info("Booking created", "booking_id", booking.ID, "event_id", eventID, "seats", seats)

	s.publish(ctx, models.EventBookingCreated, models.BookingCreatedEvent{
		BookingID:   booking.ID,
		EventID:     booking.EventID,
		UserID:      booking.UserID,
		SeatsBooked: booking.SeatsBooked,
		Timestamp:   booking.CreatedAt,
	})

	return booking, nil
}

// ConfirmBooking takes the seats and confirms the booking in one transaction.
// Locks are taken booking first, then event.
func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID uuid.UUID) (result *models.ConfirmationResult, err error) {
	ctx, span := tracer().Start(ctx, "booking.confirm")
	span.SetAttributes(attribute.String("booking.id", bookingID.String()))
	defer func() {
		s.metrics.BookingOperation("confirm", outcome(err))
		endSpan(span, err)
	}()

	log := logger.WithContext(ctx)

	var booking *models.Booking
	var event *models.Event
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.ledger.Lock(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := ledger.CanConfirm(booking); err != nil {
			return err
		}

		event, err = s.events.GetForUpdate(ctx, booking.EventID)
		if err != nil {
			return apperrors.Internal("lock event", err)
		}
		if event == nil {
			return apperrors.ErrEventNotFound
		}
		if event.Archived {
			return apperrors.ErrEventArchived
		}
		if booking.SeatsBooked > event.AvailableSeats {
			return apperrors.ErrSeatsExhausted
		}

		if err := s.inventory.CommitConfirmation(ctx, event, booking.SeatsBooked); err != nil {
			if apperrors.Is(err, apperrors.ErrInsufficientSeats) {
				return apperrors.ErrSeatsExhausted
			}
			return err
		}

		artifact, err := s.artifacts.Generate(ctx, confirmationPayload(event, booking))
		if err != nil {
			return apperrors.Internal("generate confirmation artifact", err)
		}

		total := event.PriceCents * int64(booking.SeatsBooked)
		return s.ledger.Confirm(ctx, booking, total, artifact)
	})
	if err != nil {
		switch apperrors.KindOf(err) {
		case apperrors.KindInternal:
			log.Error("Failed to confirm booking", "booking_id", bookingID, "error", err)
		default:
			log.Warn("Booking confirmation rejected", "booking_id", bookingID, "reason", err.Error())
		}
		return nil, err
	}

	log.Info("Booking confirmed",
		"booking_id", booking.ID, "event_id", event.ID,
		"seats", booking.SeatsBooked, "seats_left", event.AvailableSeats)

	s.metrics.SeatsConfirmed(booking.SeatsBooked)
	s.invalidateUpcoming(ctx)
	s.publish(ctx, models.EventBookingConfirmed, models.BookingConfirmedEvent{
		BookingID:       booking.ID,
		EventID:         booking.EventID,
		UserID:          booking.UserID,
		SeatsBooked:     booking.SeatsBooked,
		TotalPriceCents: booking.TotalPriceCents,
		SeatsLeft:       event.AvailableSeats,
		Timestamp:       *booking.ConfirmedAt,
	})

	return &models.ConfirmationResult{Booking: *booking, Event: *event}, nil
}

// CancelBooking cancels a booking. Cancelling a CONFIRMED booking returns its
// seats to the event in the same transaction.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID uuid.UUID) (result *models.CancellationResult, err error) {
	ctx, span := tracer().Start(ctx, "booking.cancel")
	span.SetAttributes(attribute.String("booking.id", bookingID.String()))
	defer func() {
		s.metrics.BookingOperation("cancel", outcome(err))
		endSpan(span, err)
	}()

	log := logger.WithContext(ctx)

	var booking *models.Booking
	released := 0
	err = s.tx.WithTx(ctx, func(ctx context.Context) error {
		var err error
		booking, err = s.ledger.Lock(ctx, bookingID)
		if err != nil {
			return err
		}
		if err := ledger.CanCancel(booking); err != nil {
			return err
		}

		if booking.Status == models.BookingStatusConfirmed {
			event, err := s.events.GetForUpdate(ctx, booking.EventID)
			if err != nil {
				return apperrors.Internal("lock event", err)
			}
			if event == nil {
				return apperrors.ErrEventNotFound
			}
			if err := s.inventory.Release(ctx, event, booking.SeatsBooked); err != nil {
				return err
			}
			released = booking.SeatsBooked
		}

		_, err = s.ledger.Cancel(ctx, booking)
		return err
	})
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindInternal {
			log.Error("Failed to cancel booking", "booking_id", bookingID, "error", err)
		} else {
			log.Warn("Booking cancellation rejected", "booking_id", bookingID, "reason", err.Error())
		}
		return nil, err
	}

	log.Info("Booking cancelled", "booking_id", booking.ID, "seats_released", released)

	if released > 0 {
		s.metrics.SeatsReleased(released)
		s.invalidateUpcoming(ctx)
	}
	s.publish(ctx, models.EventBookingCancelled, models.BookingCancelledEvent{
		BookingID:     booking.ID,
		EventID:       booking.EventID,
		UserID:        booking.UserID,
		SeatsReleased: released,
		Reason:        "user_request",
		Timestamp:     *booking.CancelledAt,
	})

	return &models.CancellationResult{Booking: *booking, SeatsReleased: released}, nil
}

func (s *BookingService) GetBooking(ctx context.Context, bookingID uuid.UUID) (*models.Booking, error) {
	return s.ledger.Get(ctx, bookingID)
}

// GetBookingFor returns the booking if principal owns it or is an admin.
func (s *BookingService) GetBookingFor(ctx context.Context, principal models.Principal, bookingID uuid.UUID) (*models.Booking, error) {
	booking, err := s.ledger.Get(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.UserID != principal.UserID && !principal.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return booking, nil
}

func (s *BookingService) ListBookingsByUser(ctx context.Context, userID uuid.UUID) ([]models.Booking, error) {
	return s.ledger.ByUser(ctx, userID)
}

// CalendarLinkFor builds the calendar link shown after a confirmation.
func (s *BookingService) CalendarLinkFor(ctx context.Context, result *models.ConfirmationResult) string {
	user, err := s.users.GetByID(ctx, result.Booking.UserID)
	if err != nil {
		logger.WithContext(ctx).Warn("Failed to load booker for calendar link", "error", err)
	}
	return CalendarLink(&result.Event, user)
}

func (s *BookingService) invalidateUpcoming(ctx context.Context) {
	if s.upcoming != nil {
		s.upcoming.Invalidate(ctx)
	}
}

func (s *BookingService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(subject, data); err != nil {
		s.metrics.PublishFailed(subject)
		logger.WithContext(ctx).Error("Failed to publish domain event",
			"error", err,
			"event_type", subject)
	}
}
