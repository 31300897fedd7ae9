package service

import (
	"context"
	"strings"

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

const (
	ArchiveReasonDeleted = "deleted"
	defaultSearchLimit   = 20
)

type EventService struct {
	tx        repository.TxRunner
	events    repository.EventStore
	inventory *inventory.Inventory
	ledger    *ledger.Ledger
	publisher messaging.Publisher
	upcoming  UpcomingView
	index     EventIndex
	clock     clock.Clock
	metrics   *metrics.Metrics
}

func NewEventService(d Deps, inv *inventory.Inventory, led *ledger.Ledger) *EventService {
	return &EventService{
		tx:        d.Repos.Tx,
		events:    d.Repos.Events,
		inventory: inv,
		ledger:    led,
		publisher: d.Publisher,
		upcoming:  d.Upcoming,
		index:     d.Index,
		clock:     d.Clock,
		metrics:   d.Metrics,
	}
}

func (s *EventService) CreateEvent(ctx context.Context, principal models.Principal, req models.CreateEventRequest) (*models.Event, error) {
	ctx, span := tracer().Start(ctx, "event.create")
	var err error
	defer func() { endSpan(span, err) }()

	name := strings.TrimSpace(req.Name)
	switch {
	case name == "":
		err = apperrors.Invalid("event name is required")
	case !req.StartTime.Before(req.EndTime):
		err = apperrors.Invalid("start date must be before end date")
	case req.PriceCents < 0:
		err = apperrors.Invalid("price must not be negative")
	case req.TotalSeats <= 0:
		err = apperrors.Invalid("total seats must be positive, got %d", req.TotalSeats)
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	event := &models.Event{
		ID:             uuid.New(),
		Name:           name,
		Description:    req.Description,
		StartTime:      req.StartTime.UTC(),
		EndTime:        req.EndTime.UTC(),
		Venue:          req.Venue,
		Location:       req.Location,
		PriceCents:     req.PriceCents,
		TotalSeats:     req.TotalSeats,
		AvailableSeats: req.TotalSeats,
		CreatorID:      principal.UserID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	span.SetAttributes(attribute.String("event.id", event.ID.String()))

	if err = s.events.Create(ctx, event); err != nil {
		err = apperrors.Internal("create event", err)
		return nil, err
	}

	logger.WithContext(ctx).Info("Event created", "event_id", event.ID, "name", event.Name, "total_seats", event.TotalSeats)
	s.afterWrite(ctx, event, models.EventEventCreated)
	return event, nil
}

// UpdateEvent applies a partial update. The creator may edit while seats
// remain; admins may always edit. Seat capacity is immutable.
func (s *EventService) UpdateEvent(ctx context.Context, principal models.Principal, eventID uuid.UUID, req models.UpdateEventRequest) (*models.Event, error) {
	ctx, span := tracer().Start(ctx, "event.update")
	span.SetAttributes(attribute.String("event.id", eventID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	var event *models.Event
	err = s.withEventTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return apperrors.Internal("lock event", err)
		}
		if event == nil {
			return apperrors.ErrEventNotFound
		}
		if !canModify(principal, event) {
			return apperrors.ErrPermissionDenied
		}
		if event.Archived {
			return apperrors.ErrEventArchived
		}

		if req.Name != nil {
			name := strings.TrimSpace(*req.Name)
			if name == "" {
				return apperrors.Invalid("event name is required")
			}
			event.Name = name
		}
		if req.Description != nil {
			event.Description = *req.Description
		}
		if req.StartTime != nil {
			event.StartTime = req.StartTime.UTC()
		}
		if req.EndTime != nil {
			event.EndTime = req.EndTime.UTC()
		}
		if req.Venue != nil {
			event.Venue = *req.Venue
		}
		if req.Location != nil {
			event.Location = *req.Location
		}
		if req.PriceCents != nil {
			if *req.PriceCents < 0 {
				return apperrors.Invalid("price must not be negative")
			}
			event.PriceCents = *req.PriceCents
		}
		if !event.StartTime.Before(event.EndTime) {
			return apperrors.Invalid("start date must be before end date")
		}

		event.UpdatedAt = s.clock.Now()
		if err := s.events.Update(ctx, event); err != nil {
			return apperrors.Internal("update event", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.WithContext(ctx).Info("Event updated", "event_id", event.ID)
	s.afterWrite(ctx, event, models.EventEventUpdated)
	return event, nil
}

func (s *EventService) GetEvent(ctx context.Context, eventID uuid.UUID) (*models.Event, error) {
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, apperrors.Internal("get event", err)
	}
	if event == nil {
		return nil, apperrors.ErrEventNotFound
	}
	return event, nil
}

// DeleteEvent archives the event. Allowed for admins, and for the creator
// while the event still has available seats.
func (s *EventService) DeleteEvent(ctx context.Context, principal models.Principal, eventID uuid.UUID) error {
	ctx, span := tracer().Start(ctx, "event.delete")
	span.SetAttributes(attribute.String("event.id", eventID.String()))
	var err error
	defer func() { endSpan(span, err) }()

	log := logger.WithContext(ctx)

	var event *models.Event
	var changed bool
	err = s.withEventTx(ctx, func(ctx context.Context) error {
		var err error
		event, err = s.events.GetForUpdate(ctx, eventID)
		if err != nil {
			return apperrors.Internal("lock event", err)
		}
		if event == nil {
			return apperrors.ErrEventNotFound
		}
		if !canModify(principal, event) {
			log.Warn("Delete denied", "event_id", eventID, "available_seats", event.AvailableSeats)
			return apperrors.ErrPermissionDenied
		}
		changed, err = s.inventory.Archive(ctx, event)
		return err
	})
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}

	log.Info("Event archived", "event_id", eventID)
	s.metrics.EventsArchived(ArchiveReasonDeleted, 1)
	s.invalidateUpcoming(ctx)
	s.reindex(ctx, event)
	s.publish(ctx, models.EventEventArchived, models.EventArchivedEvent{
		EventID:   event.ID,
		Reason:    ArchiveReasonDeleted,
		Timestamp: s.clock.Now(),
	})
	return nil
}

func (s *EventService) ListEventsByCreator(ctx context.Context, creatorID uuid.UUID) ([]models.Event, error) {
	events, err := s.events.ListByCreator(ctx, creatorID)
	if err != nil {
		return nil, apperrors.Internal("list events by creator", err)
	}
	return events, nil
}

func (s *EventService) ListUpcoming(ctx context.Context) ([]models.Event, error) {
	events, err := s.upcoming.Upcoming(ctx)
	if err != nil {
		return nil, apperrors.Internal("list upcoming events", err)
	}
	return events, nil
}

// SearchEvents matches live events by text. The index supplies candidate ids
// and storage supplies current state; without an index it falls back to a
// name substring search.
func (s *EventService) SearchEvents(ctx context.Context, query string, limit int) ([]models.Event, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return s.ListUpcoming(ctx)
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}

	if s.index != nil {
		ids, err := s.index.Search(ctx, query, limit)
		if err == nil {
			return s.rehydrate(ctx, ids)
		}
		logger.WithContext(ctx).Warn("Search index unavailable, falling back to storage", "error", err)
	}

	events, err := s.events.SearchByName(ctx, query, limit)
	if err != nil {
		return nil, apperrors.Internal("search events", err)
	}
	return events, nil
}

func (s *EventService) rehydrate(ctx context.Context, ids []uuid.UUID) ([]models.Event, error) {
	found, err := s.events.GetByIDs(ctx, ids)
	if err != nil {
		return nil, apperrors.Internal("load search hits", err)
	}

	byID := make(map[uuid.UUID]models.Event, len(found))
	for _, e := range found {
		byID[e.ID] = e
	}

	// keep index ranking, drop hits archived since indexing
	events := make([]models.Event, 0, len(ids))
	for _, id := range ids {
		if e, ok := byID[id]; ok && !e.Archived {
			events = append(events, e)
		}
	}
	return events, nil
}

// ListEventBookings returns all bookings of an event to its creator or an admin.
func (s *EventService) ListEventBookings(ctx context.Context, principal models.Principal, eventID uuid.UUID) ([]models.Booking, error) {
	event, err := s.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	if event.CreatorID != principal.UserID && !principal.IsAdmin() {
		return nil, apperrors.ErrForbidden
	}
	return s.ledger.ByEvent(ctx, eventID)
}

// canModify: admins always; the creator only while seats remain.
func canModify(principal models.Principal, event *models.Event) bool {
	if principal.IsAdmin() {
		return true
	}
	return event.CreatorID == principal.UserID && event.AvailableSeats > 0
}

func (s *EventService) withEventTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.tx.WithTx(ctx, fn)
}

func (s *EventService) afterWrite(ctx context.Context, event *models.Event, subject string) {
	s.invalidateUpcoming(ctx)
	s.reindex(ctx, event)
	s.publish(ctx, subject, models.EventChangedEvent{
		EventID:    event.ID,
		Name:       event.Name,
		TotalSeats: event.TotalSeats,
		PriceCents: event.PriceCents,
		CreatorID:  event.CreatorID,
		Timestamp:  event.UpdatedAt,
	})
}

func (s *EventService) reindex(ctx context.Context, event *models.Event) {
	if s.index == nil {
		return
	}
	if err := s.index.IndexEvent(ctx, event); err != nil {
		logger.WithContext(ctx).Error("Failed to index event", "error", err, "event_id", event.ID)
	}
}

func (s *EventService) invalidateUpcoming(ctx context.Context) {
	if s.upcoming != nil {
		s.upcoming.Invalidate(ctx)
	}
}

func (s *EventService) publish(ctx context.Context, subject string, data interface{}) {
	if err := s.publisher.Publish(subject, data); err != nil {
		s.metrics.PublishFailed(subject)
		logger.WithContext(ctx).Error("Failed to publish domain event",
			"error", err,
			"event_type", subject)
	}
}
