package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stackernews/oauthd/config"
)

func TestRedisCounter(t *testing.T) {
	addr := os.Getenv("INTEGRATION_TEST_REDIS_ADDRESS")
	if addr == "" {
		t.Skip("Skipping redis integration tests")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	c := NewRedisCounter(client)
	c.prefix = "oauthd:test:" + time.Now().Format("150405.000000")

	now := time.Now().Truncate(time.Minute)
	count, previous, err := c.IncrementRateCounter(ctx, 1, WindowMinute, time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Zero(t, previous)

	count, _, err = c.IncrementRateCounter(ctx, 1, WindowMinute, time.Minute, now.Add(59*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	count, _, err = c.IncrementRateCounter(ctx, 2, WindowMinute, time.Minute, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, previous, err = c.IncrementRateCounter(ctx, 1, WindowMinute, time.Minute, now.Add(61*time.Second))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, int64(2), previous)

	count, previous, err = c.IncrementRateCounter(ctx, 1, WindowMinute, time.Minute, now.Add(3*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
	assert.Zero(t, previous)

	ttl, err := client.PTTL(ctx, c.key(1, WindowMinute, now.UnixMilli()/time.Minute.Milliseconds())).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)
}

func TestCounterFromConfig(t *testing.T) {
	log := zaptest.NewLogger(t)
	store := &RedisCounter{}

	c, closer, err := CounterFromConfig(log, &config.RateLimitConfiguration{Backend: "store"}, store)
	require.NoError(t, err)
	assert.Same(t, store, c)
	assert.NoError(t, closer())

	c, closer, err = CounterFromConfig(log, &config.RateLimitConfiguration{
		Backend:      "redis",
		RedisAddress: "127.0.0.1:6379",
	}, store)
	require.NoError(t, err)
	assert.IsType(t, &RedisCounter{}, c)
	assert.NoError(t, closer())

	_, _, err = CounterFromConfig(log, &config.RateLimitConfiguration{Backend: "memcached"}, store)
	assert.Error(t, err)
}
