// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0

package main

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/ManuGH/thesisgrey/internal/cache"
	"github.com/ManuGH/thesisgrey/internal/config"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store"
	"github.com/ManuGH/thesisgrey/internal/domain/session/store/gormstore"
	xglog "github.com/ManuGH/thesisgrey/internal/log"
	"github.com/ManuGH/thesisgrey/internal/ratelimit"
)

// openStore opens the configured backend. Server databases go through gorm;
// embedded ones through the native stores.
func openStore(cfg config.AppConfig) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		st, err := gormstore.OpenPostgres(cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return st, nil
	default:
		return store.OpenStore(cfg.Store.Backend, cfg.Store.Path)
	}
}

// counterStore is the cache behind the rate limiter plus its cleanup hook.
type counterStore struct {
	cache.Cache
	healthCheck func(ctx context.Context) error
	close       func() error
}

// openCounterStore uses Redis when configured so replicas share limits.
func openCounterStore(ctx context.Context, cfg config.AppConfig) (*counterStore, error) {
	if cfg.Redis.Addr == "" {
		mc := cache.NewMemoryCache(cfg.RateLimit.Mutate.Window)
		return &counterStore{
			Cache: mc,
			close: func() error { mc.Stop(); return nil },
		}, nil
	}
	rc, err := cache.NewRedisCache(ctx, cache.RedisConfig{
		Addr:      cfg.Redis.Addr,
		Password:  cfg.Redis.Password,
		DB:        cfg.Redis.DB,
		KeyPrefix: cfg.Redis.KeyPrefix,
	}, xglog.WithComponent("cache"))
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return &counterStore{Cache: rc, healthCheck: rc.HealthCheck, close: rc.Close}, nil
}

func limiterConfig(rl config.RateLimitConfig) ratelimit.Config {
	return ratelimit.Config{
		Rules: map[ratelimit.Action]ratelimit.Rule{
			ratelimit.ActionCreateSession: {Limit: rl.CreateSession.Limit, Window: rl.CreateSession.Window},
			ratelimit.ActionMutateSession: {Limit: rl.Mutate.Limit, Window: rl.Mutate.Window},
		},
		GlobalRate:  rate.Limit(rl.GlobalRPS),
		GlobalBurst: rl.GlobalBurst,
	}
}
