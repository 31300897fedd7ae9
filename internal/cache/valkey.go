package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/rueidis"

	"eventbooking/internal/models"
)

type ValkeyConfig struct {
	Addr      string
	Password  string
	KeyPrefix string
}

// ValkeyCache shares the upcoming snapshot between API replicas.
type ValkeyCache struct {
	client rueidis.Client
	prefix string
}

func NewValkeyCache(ctx context.Context, cfg ValkeyConfig) (*ValkeyCache, error) {
	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  []string{cfg.Addr},
		Password:     cfg.Password,
		DisableCache: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Valkey client: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "eventbooking"
	}
	return &ValkeyCache{client: client, prefix: prefix}, nil
}

func (v *ValkeyCache) genKey() string {
	return v.prefix + ":upcoming:gen"
}

func (v *ValkeyCache) snapshotKey(gen uint64) string {
	return v.prefix + ":upcoming:snapshot:" + strconv.FormatUint(gen, 10)
}

func (v *ValkeyCache) Generation(ctx context.Context) (uint64, error) {
	n, err := v.client.Do(ctx, v.client.B().Get().Key(v.genKey()).Build()).AsInt64()
	if rueidis.IsRedisNil(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("cache generation lookup: %w", err)
	}
	return uint64(n), nil
}

func (v *ValkeyCache) Get(ctx context.Context, gen uint64) ([]models.Event, bool, error) {
	raw, err := v.client.Do(ctx, v.client.B().Get().Key(v.snapshotKey(gen)).Build()).AsBytes()
	if rueidis.IsRedisNil(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache lookup error: %w", err)
	}

	var events []models.Event
	if err := json.Unmarshal(raw, &events); err != nil {
		return nil, false, fmt.Errorf("invalid snapshot in cache: %w", err)
	}
	return events, true, nil
}

func (v *ValkeyCache) Set(ctx context.Context, gen uint64, events []models.Event, ttl time.Duration) error {
	raw, err := json.Marshal(events)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	var cmd rueidis.Completed
	set := v.client.B().Set().Key(v.snapshotKey(gen)).Value(rueidis.BinaryString(raw))
	if seconds, ok := expirySeconds(ttl); ok {
		cmd = set.ExSeconds(seconds).Build()
	} else {
		cmd = set.Build()
	}
	if err := v.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("cache store error: %w", err)
	}
	return nil
}

// expirySeconds converts ttl to an EX argument. A non-positive ttl means the
// snapshot never expires, matching MemoryCache; sub-second ttls round up.
func expirySeconds(ttl time.Duration) (int64, bool) {
	if ttl <= 0 {
		return 0, false
	}
	seconds := int64((ttl + time.Second - 1) / time.Second)
	return seconds, true
}

func (v *ValkeyCache) Invalidate(ctx context.Context) error {
	if err := v.client.Do(ctx, v.client.B().Incr().Key(v.genKey()).Build()).Error(); err != nil {
		return fmt.Errorf("cache invalidation error: %w", err)
	}
	return nil
}

func (v *ValkeyCache) Close() {
	v.client.Close()
}
