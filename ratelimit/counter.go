// Package ratelimit enforces the per application request budgets and the
// per ip throttle of the token endpoint.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/config"
)

// Counter atomically counts one hit in the bucket now.Truncate(length).
// It returns the count of that bucket after the increment and the final count
// of the bucket right before it.
// *db.DataStore is the default implementation.
type Counter interface {
	IncrementRateCounter(
		ctx context.Context,
		applicationID int,
		window string,
		length time.Duration,
		now time.Time,
	) (current int64, previous int64, err error)
}

// CounterFromConfig selects the counter backend, store is used as is for the store backend.
// The returned close function releases the backend connections.
func CounterFromConfig(
	log *zap.Logger,
	cfg *config.RateLimitConfiguration,
	store Counter,
) (Counter, func() error, error) {
	if cfg == nil {
		return nil, nil, errors.New("no rate-limit configuration")
	}
	switch cfg.Backend {
	case "", "store":
		return store, func() error { return nil }, nil
	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		log.Info("using redis rate counters", zap.String("address", cfg.RedisAddress))
		return NewRedisCounter(client), client.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
}
