package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/epo/internal/panel"
	"github.com/wonny/epo/pkg/redis"
)

// KV is the subset of redis.Cache used to persist scaler statistics
type KV interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// StatsCache stores frozen scaler statistics keyed by experiment hash,
// so later runs transform with exactly the training fit.
type StatsCache struct {
	kv  KV
	ttl time.Duration
}

// NewStatsCache creates a stats cache; entries never expire
func NewStatsCache(kv KV) *StatsCache {
	return &StatsCache{kv: kv, ttl: redis.TTLNone}
}

// Load restores a fitted scaler; found is false when nothing is stored
func (c *StatsCache) Load(ctx context.Context, hash string) (*panel.GroupScaler, bool, error) {
	var state panel.ScalerState
	found, err := c.kv.Get(ctx, redis.ScalerStatsKey(hash), &state)
	if err != nil {
		return nil, false, fmt.Errorf("load scaler stats: %w", err)
	}
	if !found {
		return nil, false, nil
	}
	return panel.FromState(state), true, nil
}

// Save stores the statistics of a fitted scaler
func (c *StatsCache) Save(ctx context.Context, hash string, s *panel.GroupScaler) error {
	state, err := s.State()
	if err != nil {
		return fmt.Errorf("save scaler stats: %w", err)
	}
	if err := c.kv.Set(ctx, redis.ScalerStatsKey(hash), state, c.ttl); err != nil {
		return fmt.Errorf("save scaler stats: %w", err)
	}
	return nil
}
