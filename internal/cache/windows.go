package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"clinic/internal/events"
	"clinic/internal/metrics"
)

const (
	keyPrefix         = "availability:"
	invalidateTimeout = 5 * time.Second
)

// WindowCache stores resolved availability in Redis. A nil *WindowCache or a
// non-positive TTL disables caching.
type WindowCache struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zerolog.Logger
}

func NewWindowCache(client *redis.Client, ttl time.Duration, logger *zerolog.Logger) *WindowCache {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &WindowCache{redis: client, ttl: ttl, logger: logger}
}

// Key identifies one resolution. The revision makes entries of an edited
// schedule unreachable even before they are invalidated.
func Key(professionalID uuid.UUID, revision int64, timeZone string, from, to civil.Date) string {
	return fmt.Sprintf("%s%s:%d:%s:%s:%s", keyPrefix, professionalID, revision, timeZone, from, to)
}

func (c *WindowCache) enabled() bool {
	return c != nil && c.redis != nil && c.ttl > 0
}

// Get decodes the cached value for key into out.
func (c *WindowCache) Get(ctx context.Context, key string, out any) bool {
	if !c.enabled() {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		metrics.IncCache("miss")
		return false
	}
	if err != nil {
		metrics.IncCache("error")
		c.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		return false
	}
	if err := json.Unmarshal(val, out); err != nil {
		metrics.IncCache("error")
		c.logger.Warn().Err(err).Str("key", key).Msg("cache entry is corrupt")
		return false
	}
	metrics.IncCache("hit")
	return true
}

// Set stores val under key. Failures only get logged.
func (c *WindowCache) Set(ctx context.Context, key string, val any) {
	if !c.enabled() {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache encode failed")
		return
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
	}
}

// Invalidate drops every cached resolution of a professional.
func (c *WindowCache) Invalidate(ctx context.Context, professionalID uuid.UUID) (int, error) {
	if !c.enabled() {
		return 0, nil
	}
	pattern := fmt.Sprintf("%s%s:*", keyPrefix, professionalID)
	removed := 0
	iter := c.redis.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		if err := c.redis.Del(ctx, iter.Val()).Err(); err != nil {
			return removed, fmt.Errorf("delete %s: %w", iter.Val(), err)
		}
		removed++
	}
	if err := iter.Err(); err != nil {
		return removed, fmt.Errorf("scan %s: %w", pattern, err)
	}
	return removed, nil
}

// OnScheduleUpdated is an events.EventHandler for events.TypeScheduleUpdated.
// It drops the cached resolutions of the edited professional.
func (c *WindowCache) OnScheduleUpdated(e events.Event) error {
	p, err := events.DecodeScheduleUpdated(e)
	if err != nil {
		return fmt.Errorf("decode %s: %w", e.Type, err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
	defer cancel()

	n, err := c.Invalidate(ctx, p.ProfessionalID)
	if err != nil {
		return err
	}
	if c != nil {
		c.logger.Debug().
			Str("professional_id", p.ProfessionalID.String()).
			Int64("revision", p.Revision).
			Int("removed", n).
			Msg("availability cache invalidated")
	}
	return nil
}

// Ping checks the Redis connection.
func (c *WindowCache) Ping(ctx context.Context) error {
	if c == nil || c.redis == nil {
		return nil
	}
	return c.redis.Ping(ctx).Err()
}
