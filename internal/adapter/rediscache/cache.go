// Package rediscache caches raw irradiance series in Redis.
package rediscache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/couchcryptid/solar-feasibility-service/internal/domain"
	"github.com/couchcryptid/solar-feasibility-service/internal/observability"
)

const keyPrefix = "solar:irradiance:"

// NewClient parses a redis:// URL and returns a connected client.
func NewClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// IrradianceCache decorates an IrradianceSource. Series are keyed by
// coordinate and date range and expire after the configured TTL. Redis
// failures degrade to a direct upstream call.
type IrradianceCache struct {
	inner   domain.IrradianceSource
	client  redis.UniversalClient
	ttl     time.Duration
	metrics *observability.Metrics
	logger  *slog.Logger
}

// NewIrradianceCache creates the cache decorator.
func NewIrradianceCache(inner domain.IrradianceSource, client redis.UniversalClient, ttl time.Duration, metrics *observability.Metrics, logger *slog.Logger) *IrradianceCache {
	return &IrradianceCache{
		inner:   inner,
		client:  client,
		ttl:     ttl,
		metrics: metrics,
		logger:  logger,
	}
}

func (c *IrradianceCache) Fetch(ctx context.Context, coord domain.Coordinate, dateRange domain.DateRange) (domain.IrradianceSeries, error) {
	key := cacheKey(coord, dateRange)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var series domain.IrradianceSeries
		if err := json.Unmarshal(raw, &series); err == nil {
			c.metrics.CacheLookups.WithLabelValues("irradiance", "hit").Inc()
			return series, nil
		}
		c.logger.Warn("discarding corrupt irradiance cache entry", "key", key)
	case errors.Is(err, redis.Nil):
	default:
		c.logger.Warn("irradiance cache read failed", "key", key, "error", err)
	}
	c.metrics.CacheLookups.WithLabelValues("irradiance", "miss").Inc()

	series, err := c.inner.Fetch(ctx, coord, dateRange)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(series)
	if err != nil {
		return series, nil
	}
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn("irradiance cache write failed", "key", key, "error", err)
	}
	return series, nil
}

// cacheKey rounds coordinates to four decimals (about 11 m), well below the
// irradiance grid resolution.
func cacheKey(coord domain.Coordinate, dateRange domain.DateRange) string {
	return fmt.Sprintf("%s%.4f:%.4f:%s:%s", keyPrefix, coord.Lat, coord.Lon, dateRange.StartCompact(), dateRange.EndCompact())
}
