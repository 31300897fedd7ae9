// Package cache holds the upcoming-events snapshot.
//
// Snapshots are keyed by a generation counter. Invalidate bumps the
// generation, so a reader that loaded from storage before an invalidation
// stores its result under a generation nobody reads anymore.
package cache

import (
	"context"
	"sync"
	"time"

	"eventbooking/internal/clock"
	"eventbooking/internal/models"
)

type UpcomingCache interface {
	Generation(ctx context.Context) (uint64, error)
	Get(ctx context.Context, gen uint64) ([]models.Event, bool, error)
	Set(ctx context.Context, gen uint64, events []models.Event, ttl time.Duration) error
	Invalidate(ctx context.Context) error
}

type MemoryCache struct {
	clock clock.Clock

	mu        sync.Mutex
	gen       uint64
	snapGen   uint64
	snapshot  []models.Event
	expiresAt time.Time
	filled    bool
}

func NewMemoryCache(clk clock.Clock) *MemoryCache {
	return &MemoryCache{clock: clk}
}

func (c *MemoryCache) Generation(context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *MemoryCache) Get(_ context.Context, gen uint64) ([]models.Event, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.filled || c.snapGen != gen || gen != c.gen {
		return nil, false, nil
	}
	if !c.expiresAt.IsZero() && !c.clock.Now().Before(c.expiresAt) {
		return nil, false, nil
	}
	return append([]models.Event(nil), c.snapshot...), true, nil
}

func (c *MemoryCache) Set(_ context.Context, gen uint64, events []models.Event, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.gen {
		return nil
	}
	c.snapGen = gen
	c.snapshot = append([]models.Event(nil), events...)
	c.filled = true
	c.expiresAt = time.Time{}
	if ttl > 0 {
		c.expiresAt = c.clock.Now().Add(ttl)
	}
	return nil
}

func (c *MemoryCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.gen++
	c.snapshot = nil
	c.filled = false
	return nil
}
