// Package cache implements the advisory Redis cache for computed
// summaries. Every miss or failure falls through to the database.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/FitSync-G13/fitsync-progress-service/internal/analytics"
)

// Key prefixes for namespacing Redis keys.
const (
	prefixWeekly   = "progress:weekly:"
	prefixProgress = "progress:stats:"
)

// DefaultTTL bounds staleness of cached summaries.
const DefaultTTL = 5 * time.Minute

// StatsCache stores computed summaries in Redis.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewStatsCache constructs a StatsCache. A zero ttl uses DefaultTTL.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &StatsCache{client: client, ttl: ttl}
}

func weeklyKey(userID, week string) string {
	return fmt.Sprintf("%s%s:%s", prefixWeekly, userID, week)
}

func progressKey(userID, period string) string {
	return fmt.Sprintf("%s%s:%s", prefixProgress, userID, period)
}

// GetWeekly returns cached weekly stats, or nil on a miss.
func (c *StatsCache) GetWeekly(ctx context.Context, userID, week string) (*analytics.WeeklyStats, error) {
	var stats analytics.WeeklyStats
	ok, err := c.get(ctx, weeklyKey(userID, week), &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

// SetWeekly caches weekly stats.
func (c *StatsCache) SetWeekly(ctx context.Context, userID, week string, stats analytics.WeeklyStats) error {
	return c.set(ctx, weeklyKey(userID, week), stats)
}

// InvalidateWeekly drops the cached stats for one week.
func (c *StatsCache) InvalidateWeekly(ctx context.Context, userID, week string) error {
	return c.client.Del(ctx, weeklyKey(userID, week)).Err()
}

// GetProgress returns the cached lifetime summary, or nil on a miss.
func (c *StatsCache) GetProgress(ctx context.Context, userID, period string) (*analytics.ProgressStats, error) {
	var stats analytics.ProgressStats
	ok, err := c.get(ctx, progressKey(userID, period), &stats)
	if err != nil || !ok {
		return nil, err
	}
	return &stats, nil
}

// SetProgress caches the lifetime summary for one trend period.
func (c *StatsCache) SetProgress(ctx context.Context, userID, period string, stats analytics.ProgressStats) error {
	return c.set(ctx, progressKey(userID, period), stats)
}

// InvalidateProgress drops every cached summary for the user, across
// all trend periods.
func (c *StatsCache) InvalidateProgress(ctx context.Context, userID string) error {
	pattern := progressKey(userID, "*")
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

func (c *StatsCache) get(ctx context.Context, key string, out interface{}) (bool, error) {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return false, fmt.Errorf("decode cached value for %s: %w", key, err)
	}
	return true, nil
}

func (c *StatsCache) set(ctx context.Context, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode value for %s: %w", key, err)
	}
	return c.client.Set(ctx, key, raw, c.ttl).Err()
}
