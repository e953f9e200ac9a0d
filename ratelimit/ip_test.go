package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zaptest"
)

func TestIPThrottle(t *testing.T) {
	c := &clock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	th := NewIPThrottle(zaptest.NewLogger(t), 1, 2)
	th.now = c.now

	ok, _ := th.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, _ = th.Allow("10.0.0.1")
	assert.True(t, ok)
	ok, retry := th.Allow("10.0.0.1")
	assert.False(t, ok)
	assert.Equal(t, 1, retry)

	ok, _ = th.Allow("10.0.0.2")
	assert.True(t, ok, "other ips have their own bucket")

	c.at = c.at.Add(time.Second)
	ok, _ = th.Allow("10.0.0.1")
	assert.True(t, ok)
}

func TestIPThrottleEviction(t *testing.T) {
	c := &clock{at: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	th := NewIPThrottle(zaptest.NewLogger(t), 1, 1)
	th.now = c.now
	th.maxEntries = 2

	th.Allow("a")
	th.Allow("b")
	th.Allow("c")
	assert.Equal(t, 2, th.Len())

	// "a" was evicted and starts with a full bucket again
	ok, _ := th.Allow("a")
	assert.True(t, ok)

	c.at = c.at.Add(time.Hour)
	th.Allow("d")
	assert.Equal(t, 1, th.Len())
}

func TestDisabledIPThrottle(t *testing.T) {
	th := NewIPThrottle(zaptest.NewLogger(t), 0, 0)
	assert.Nil(t, th)
	ok, retry := th.Allow("10.0.0.1")
	assert.True(t, ok)
	assert.Zero(t, retry)
	assert.Zero(t, th.Len())
}
