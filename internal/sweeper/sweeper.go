// Package sweeper archives events that have ended and owns the cached
// upcoming-events snapshot.
package sweeper

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"eventbooking/internal/cache"
	"eventbooking/internal/clock"
	"eventbooking/internal/logger"
	"eventbooking/internal/messaging"
	"eventbooking/internal/metrics"
	"eventbooking/internal/models"
	"eventbooking/internal/repository"
)

const ArchiveReasonExpired = "expired"

type Config struct {
	Interval        time.Duration
	InitialDelay    time.Duration
	PrewarmInterval time.Duration
	// Horizon bounds how far ahead an event may start to count as upcoming.
	Horizon  time.Duration
	CacheTTL time.Duration
}

// ArchiveIndex is told about events the sweeper archived.
type ArchiveIndex interface {
	MarkArchived(ctx context.Context, ids []uuid.UUID) error
}

type Deps struct {
	Events    repository.EventStore
	Cache     cache.UpcomingCache
	Publisher messaging.Publisher
	Clock     clock.Clock
	Metrics   *metrics.Metrics
	Index     ArchiveIndex
}

type Sweeper struct {
	cfg       Config
	events    repository.EventStore
	cache     cache.UpcomingCache
	publisher messaging.Publisher
	clock     clock.Clock
	metrics   *metrics.Metrics
	index     ArchiveIndex
}

func New(cfg Config, deps Deps) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 24 * time.Hour
	}
	if cfg.Horizon <= 0 {
		cfg.Horizon = 30 * 24 * time.Hour
	}
	if deps.Publisher == nil {
		deps.Publisher = messaging.Discard{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.NewSystem()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache(deps.Clock)
	}

	return &Sweeper{
		cfg:       cfg,
		events:    deps.Events,
		cache:     deps.Cache,
		publisher: deps.Publisher,
		clock:     deps.Clock,
		metrics:   deps.Metrics,
		index:     deps.Index,
	}
}

// Run sweeps after the initial delay and then on every interval, and
// repopulates the snapshot on the prewarm interval, until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	slog.Info("Starting event lifecycle sweeper",
		"interval", s.cfg.Interval, "initial_delay", s.cfg.InitialDelay,
		"prewarm_interval", s.cfg.PrewarmInterval, "horizon", s.cfg.Horizon)

	initial := time.NewTimer(s.cfg.InitialDelay)
	defer initial.Stop()

	var sweepC <-chan time.Time
	var prewarmC <-chan time.Time
	if s.cfg.PrewarmInterval > 0 {
		prewarm := time.NewTicker(s.cfg.PrewarmInterval)
		defer prewarm.Stop()
		prewarmC = prewarm.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Event lifecycle sweeper stopped")
			return nil
		case <-initial.C:
			s.sweep(ctx)
			ticker := time.NewTicker(s.cfg.Interval)
			defer ticker.Stop()
			sweepC = ticker.C
		case <-sweepC:
			s.sweep(ctx)
		case <-prewarmC:
			if err := s.Prewarm(ctx); err != nil && ctx.Err() == nil {
				slog.Error("Failed to prewarm upcoming events cache", "error", err)
			}
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && ctx.Err() == nil {
		slog.Error("Event sweep failed", "error", err)
	}
}

// RunOnce archives every live event whose end time has passed and drops the
// cached snapshot. It is idempotent and returns the newly archived ids.
func (s *Sweeper) RunOnce(ctx context.Context) ([]uuid.UUID, error) {
	now := s.clock.Now()

	ids, err := s.events.ArchiveEndedBefore(ctx, now)
	if err != nil {
		s.metrics.SweeperRun("error")
		return nil, err
	}

	s.Invalidate(ctx)
	s.metrics.SweeperRun("ok")
	s.metrics.EventsArchived(ArchiveReasonExpired, len(ids))

	if len(ids) == 0 {
		slog.Debug("No expired events found")
		return nil, nil
	}

	slog.Info("Archived expired events", "count", len(ids))

	for _, id := range ids {
		msg := models.EventArchivedEvent{EventID: id, Reason: ArchiveReasonExpired, Timestamp: now}
		if err := s.publisher.Publish(models.EventEventArchived, msg); err != nil {
			s.metrics.PublishFailed(models.EventEventArchived)
			slog.Error("Failed to publish event archived", "error", err, "event_id", id)
		}
	}

	if s.index != nil {
		if err := s.index.MarkArchived(ctx, ids); err != nil {
			slog.Error("Failed to mark archived events in search index", "error", err, "count", len(ids))
		}
	}

	return ids, nil
}

// Upcoming returns live events that have not ended and start within the
// horizon, reading through the cache.
func (s *Sweeper) Upcoming(ctx context.Context) ([]models.Event, error) {
	log := logger.WithContext(ctx)
	now := s.clock.Now()

	gen, err := s.cache.Generation(ctx)
	if err != nil {
		log.Warn("Upcoming cache unavailable, reading from storage", "error", err)
		return s.load(ctx, now)
	}

	if events, ok, err := s.cache.Get(ctx, gen); err != nil {
		log.Warn("Upcoming cache read failed", "error", err)
	} else if ok {
		return stillUpcoming(events, now), nil
	}

	events, err := s.load(ctx, now)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, gen, events, s.cfg.CacheTTL); err != nil {
		log.Warn("Upcoming cache write failed", "error", err)
	}
	return events, nil
}

// Prewarm reloads the snapshot for the current generation.
func (s *Sweeper) Prewarm(ctx context.Context) error {
	gen, err := s.cache.Generation(ctx)
	if err != nil {
		return err
	}
	events, err := s.load(ctx, s.clock.Now())
	if err != nil {
		return err
	}
	slog.Debug("Prewarmed upcoming events cache", "count", len(events))
	return s.cache.Set(ctx, gen, events, s.cfg.CacheTTL)
}

// Invalidate drops the snapshot. Failures are logged; the TTL bounds staleness.
func (s *Sweeper) Invalidate(ctx context.Context) {
	if err := s.cache.Invalidate(ctx); err != nil {
		logger.WithContext(ctx).Error("Failed to invalidate upcoming events cache", "error", err)
	}
}

func (s *Sweeper) load(ctx context.Context, now time.Time) ([]models.Event, error) {
	events, err := s.events.ListUpcoming(ctx, now, now.Add(s.cfg.Horizon))
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []models.Event{}
	}
	return events, nil
}

func stillUpcoming(events []models.Event, now time.Time) []models.Event {
	out := make([]models.Event, 0, len(events))
	for _, e := range events {
		if e.EndTime.After(now) {
			out = append(out, e)
		}
	}
	return out
}
