package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventbooking/internal/clock"
	"eventbooking/internal/models"
)

func TestMemoryCacheGenerations(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(clock.NewManual(time.Now()))
	events := []models.Event{{ID: uuid.New(), Name: "Jazz night"}}

	gen, err := c.Generation(ctx)
	require.NoError(t, err)

	_, ok, err := c.Get(ctx, gen)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, gen, events, time.Minute))
	got, ok, err := c.Get(ctx, gen)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, events, got)

	require.NoError(t, c.Invalidate(ctx))
	_, ok, err = c.Get(ctx, gen)
	require.NoError(t, err)
	assert.False(t, ok)

	// a snapshot loaded before the invalidation is dropped
	require.NoError(t, c.Set(ctx, gen, events, time.Minute))
	next, err := c.Generation(ctx)
	require.NoError(t, err)
	_, ok, err = c.Get(ctx, next)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk)

	require.NoError(t, c.Set(ctx, 0, []models.Event{{ID: uuid.New()}}, time.Minute))
	clk.Advance(59 * time.Second)
	_, ok, _ := c.Get(ctx, 0)
	assert.True(t, ok)

	clk.Advance(time.Second)
	_, ok, _ = c.Get(ctx, 0)
	assert.False(t, ok)
}

func TestMemoryCacheZeroTTLNeverExpires(t *testing.T) {
	ctx := context.Background()
	clk := clock.NewManual(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	c := NewMemoryCache(clk)

	require.NoError(t, c.Set(ctx, 0, []models.Event{{ID: uuid.New()}}, 0))
	clk.Advance(365 * 24 * time.Hour)
	_, ok, _ := c.Get(ctx, 0)
	assert.True(t, ok)
}
