package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// buckets live for two lengths so the next bucket can still read them
var incrementScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
redis.call("PEXPIRE", KEYS[1], ARGV[1], "NX")
local previous = tonumber(redis.call("GET", KEYS[2]) or "0")
return {count, previous}
`)

// RedisCounter keeps the counters in redis so several processes can share them
// without touching the database on every call.
type RedisCounter struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{client: client, prefix: "oauthd:rl"}
}

func (r *RedisCounter) key(applicationID int, window string, bucket int64) string {
	return fmt.Sprintf("%s:%d:%s:%d", r.prefix, applicationID, window, bucket)
}

func (r *RedisCounter) IncrementRateCounter(
	ctx context.Context,
	applicationID int,
	window string,
	length time.Duration,
	now time.Time,
) (int64, int64, error) {
	bucket := now.UnixMilli() / length.Milliseconds()
	res, err := incrementScript.Run(ctx, r.client,
		[]string{
			r.key(applicationID, window, bucket),
			r.key(applicationID, window, bucket-1),
		},
		2*length.Milliseconds()).Slice()
	if err != nil {
		return 0, 0, err
	}
	if len(res) != 2 {
		return 0, 0, errors.New("unexpected rate counter reply")
	}
	count, ok := res[0].(int64)
	if !ok {
		return 0, 0, errors.New("unexpected rate counter count")
	}
	previous, ok := res[1].(int64)
	if !ok {
		return 0, 0, errors.New("unexpected rate counter previous count")
	}
	return count, previous, nil
}
