package currency

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/portfolio-service/internal/metrics"
	"github.com/trogers1052/portfolio-service/internal/models"
	"go.uber.org/zap"
)

// RedisRateCache keeps resolved exchange rates in Redis with a fixed TTL.
// Cache failures are logged and treated as misses.
type RedisRateCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisRateCache creates a Redis-backed rate cache
func NewRedisRateCache(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *RedisRateCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisRateCache{
		rdb:    rdb,
		ttl:    ttl,
		logger: logger,
	}
}

// GetRate returns a cached rate if present and parseable
func (c *RedisRateCache) GetRate(ctx context.Context, from, to models.CurrencyCode) (decimal.Decimal, bool) {
	val, err := c.rdb.Get(ctx, rateKey(from, to)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("rate cache read failed", zap.Error(err))
		}
		metrics.FXCacheLookups.WithLabelValues("miss").Inc()
		return decimal.Zero, false
	}

	rate, err := decimal.NewFromString(val)
	if err != nil {
		c.logger.Debug("rate cache holds invalid value", zap.String("value", val))
		metrics.FXCacheLookups.WithLabelValues("miss").Inc()
		return decimal.Zero, false
	}
	metrics.FXCacheLookups.WithLabelValues("hit").Inc()
	return rate, true
}

// SetRate stores a rate until the TTL elapses
func (c *RedisRateCache) SetRate(ctx context.Context, from, to models.CurrencyCode, rate decimal.Decimal) {
	if err := c.rdb.Set(ctx, rateKey(from, to), rate.String(), c.ttl).Err(); err != nil {
		c.logger.Debug("rate cache write failed", zap.Error(err))
	}
}

func rateKey(from, to models.CurrencyCode) string {
	return fmt.Sprintf("fx:%s:%s", from, to)
}
