package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stackernews/oauthd/db/dbtest"
)

type countingMetrics struct {
	mu       sync.Mutex
	exceeded map[string]int
}

func (c *countingMetrics) RecordRateLimitExceeded(_ context.Context, limiter string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.exceeded == nil {
		c.exceeded = map[string]int{}
	}
	c.exceeded[limiter]++
}

type clock struct {
	at time.Time
}

func (c *clock) now() time.Time {
	return c.at
}

func intPtr(v int) *int {
	return &v
}

func newLimiter(t *testing.T) (*Limiter, *clock, *countingMetrics, int) {
	store := dbtest.NewStore(t)
	app := dbtest.SeedApplication(t, store, "limited", nil)
	c := &clock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := &countingMetrics{}
	return NewLimiter(zaptest.NewLogger(t), store, m).WithClock(c.now), c, m, app.ID
}

func TestUnlimitedApplicationsAreNotCounted(t *testing.T) {
	l, _, _, id := newLimiter(t)
	d, err := l.Check(context.Background(), id, nil, nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.True(t, d.Unlimited)
}

func TestMinuteWindow(t *testing.T) {
	ctx := context.Background()
	l, c, m, id := newLimiter(t)

	for i := 1; i <= 5; i++ {
		d, err := l.Check(ctx, id, intPtr(5), nil)
		require.NoError(t, err)
		assert.True(t, d.Allowed, "call %d", i)
		assert.Equal(t, 5, d.Limit)
		assert.Equal(t, 5-i, d.Remaining)
		c.at = c.at.Add(time.Second)
	}

	d, err := l.Check(ctx, id, intPtr(5), nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, WindowMinute, d.Window)
	assert.Equal(t, 60, d.RetryAfter)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, 1, m.exceeded[WindowMinute])

	// half of the previous minute is still inside the trailing window
	c.at = c.at.Truncate(time.Minute).Add(90 * time.Second)
	d, err = l.Check(ctx, id, intPtr(5), nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)

	d, err = l.Check(ctx, id, intPtr(5), nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)

	d, err = l.Check(ctx, id, intPtr(5), nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	c.at = c.at.Add(2 * time.Minute)
	d, err = l.Check(ctx, id, intPtr(5), nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 4, d.Remaining)
}

func TestNoBurstAcrossWindowBoundary(t *testing.T) {
	for _, offset := range []time.Duration{0, time.Second, 30 * time.Second, 58 * time.Second} {
		t.Run(offset.String(), func(t *testing.T) {
			ctx := context.Background()
			l, c, _, id := newLimiter(t)
			start := c.at.Add(offset)
			allowed := func(at time.Duration, calls int) int {
				c.at = start.Add(at)
				n := 0
				for i := 0; i < calls; i++ {
					d, err := l.Check(ctx, id, intPtr(5), nil)
					require.NoError(t, err)
					if d.Allowed {
						n++
					}
				}
				return n
			}

			require.Equal(t, 1, allowed(0, 1))
			burst := allowed(59*time.Second, 4) + allowed(61*time.Second, 5)
			assert.LessOrEqual(t, burst, 5)
			assert.Equal(t, 0, allowed(61*time.Second, 1))
		})
	}
}

func TestDayWindowOnly(t *testing.T) {
	ctx := context.Background()
	l, c, _, id := newLimiter(t)
	for i := 0; i < 3; i++ {
		d, err := l.Check(ctx, id, nil, intPtr(3))
		require.NoError(t, err)
		assert.True(t, d.Allowed)
		assert.Equal(t, 3, d.Limit)
	}
	d, err := l.Check(ctx, id, nil, intPtr(3))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 86400, d.RetryAfter)

	c.at = c.at.Add(24 * time.Hour)
	d, err = l.Check(ctx, id, nil, intPtr(3))
	require.NoError(t, err)
	assert.True(t, d.Allowed)
}

func TestDayWindowWinsAndMinuteIsReported(t *testing.T) {
	ctx := context.Background()
	l, _, m, id := newLimiter(t)
	for i := 0; i < 2; i++ {
		d, err := l.Check(ctx, id, intPtr(10), intPtr(2))
		require.NoError(t, err)
		assert.True(t, d.Allowed)
	}
	d, err := l.Check(ctx, id, intPtr(10), intPtr(2))
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, WindowDay, d.Window)
	assert.Equal(t, 86400, d.RetryAfter)
	assert.Equal(t, 10, d.Limit)
	assert.Equal(t, 7, d.Remaining)
	assert.Equal(t, 1, m.exceeded[WindowDay])
	assert.Zero(t, m.exceeded[WindowMinute])
}

func TestApplicationsAreCountedSeparately(t *testing.T) {
	ctx := context.Background()
	store := dbtest.NewStore(t)
	a := dbtest.SeedApplication(t, store, "a", nil)
	b := dbtest.SeedApplication(t, store, "b", nil)
	l := NewLimiter(zaptest.NewLogger(t), store, &countingMetrics{})

	_, err := l.Check(ctx, a.ID, intPtr(1), nil)
	require.NoError(t, err)
	d, err := l.Check(ctx, b.ID, intPtr(1), nil)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	d, err = l.Check(ctx, a.ID, intPtr(1), nil)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}
