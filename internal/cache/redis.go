// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/ManuGH/thesisgrey/internal/resilience"
)

const (
	opTimeout = 2 * time.Second

	breakerThreshold = 5
	breakerReset     = 15 * time.Second
)

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisCache shares counters across daemon replicas. Errors are logged and
// reported as misses so a Redis outage degrades to "allow". Round-trips go
// through a circuit breaker; while it is open, calls fail without touching
// the network.
type RedisCache struct {
	client  *redis.Client
	breaker *resilience.CircuitBreaker
	prefix string
	logger zerolog.Logger

	hits, misses, sets atomic.Int64
}

// NewRedisCache connects and pings Redis.
func NewRedisCache(ctx context.Context, cfg RedisConfig, logger zerolog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", cfg.Addr).
		Int("db", cfg.DB).
		Msg("connected to redis counter store")

	return newRedisCache(client, cfg.KeyPrefix, logger), nil
}

func newRedisCache(client *redis.Client, prefix string, logger zerolog.Logger) *RedisCache {
	return &RedisCache{
		client:  client,
		breaker: resilience.NewCircuitBreaker("redis", breakerThreshold, breakerReset),
		prefix:  prefix,
		logger:  logger,
	}
}

// call runs op through the breaker. redis.Nil is a valid answer, not a failure.
func (c *RedisCache) call(op func() error) error {
	var miss bool
	err := c.breaker.Execute(func() error {
		err := op()
		if errors.Is(err, redis.Nil) {
			miss = true
			return nil
		}
		return err
	})
	if err == nil && miss {
		return redis.Nil
	}
	return err
}

func (c *RedisCache) Get(ctx context.Context, key string) (any, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var raw []byte
	err := c.call(func() (err error) {
		raw, err = c.client.Get(ctx, c.prefix+key).Bytes()
		return err
	})
	if errors.Is(err, redis.Nil) {
		c.misses.Add(1)
		return nil, false
	}
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis get failed")
		c.misses.Add(1)
		return nil, false
	}

	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis value decode failed")
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return v, true
}

func (c *RedisCache) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := json.Marshal(value)
	if err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis value encode failed")
		return
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.call(func() error { return c.client.Set(ctx, c.prefix+key, data, ttl).Err() }); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis set failed")
		return
	}
	c.sets.Add(1)
}

func (c *RedisCache) Delete(ctx context.Context, key string) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := c.call(func() error { return c.client.Del(ctx, c.prefix+key).Err() }); err != nil {
		c.logger.Warn().Err(err).Str("key", key).Msg("redis delete failed")
	}
}

// Stats reports local counters; CurrentSize is the size of the selected DB.
func (c *RedisCache) Stats() Stats {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	size, err := c.client.DBSize(ctx).Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("redis dbsize failed")
		size = 0
	}
	return Stats{
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Sets:        c.sets.Load(),
		CurrentSize: int(size),
	}
}

// HealthCheck pings Redis. An open breaker is reported without pinging.
func (c *RedisCache) HealthCheck(ctx context.Context) error {
	if c.breaker.State() == resilience.StateOpen {
		return resilience.ErrCircuitOpen
	}
	return c.client.Ping(ctx).Err()
}

// BreakerState reports the state of the Redis circuit breaker.
func (c *RedisCache) BreakerState() resilience.State {
	return c.breaker.State()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}
