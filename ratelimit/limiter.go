package ratelimit

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	WindowMinute = "minute"
	WindowDay    = "day"
)

type window struct {
	name       string
	length     time.Duration
	retryAfter int
}

var (
	minute = window{WindowMinute, time.Minute, 60}
	day    = window{WindowDay, 24 * time.Hour, 86400}
)

// Metrics is the observability hook of the limiter
type Metrics interface {
	RecordRateLimitExceeded(ctx context.Context, limiter string)
}

// Decision is the outcome of one counted call
type Decision struct {
	Allowed bool
	// Window names the exceeded window
	Window     string
	RetryAfter int
	// Unlimited is set for applications without any limit, they are not counted
	Unlimited bool
	Limit     int
	Remaining int
	Reset     time.Time
}

// Limiter counts authenticated calls per application over trailing windows.
// A window is approximated by two fixed buckets aligned to its length, the
// previous bucket weighted by how much of it the trailing window still covers.
type Limiter struct {
	log     *zap.Logger
	counter Counter
	metrics Metrics
	now     func() time.Time
}

func NewLimiter(log *zap.Logger, counter Counter, metrics Metrics) *Limiter {
	return &Limiter{
		log:     log,
		counter: counter,
		metrics: metrics,
		now:     time.Now,
	}
}

// WithClock replaces the clock windows are measured with
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

// tally weights the previous bucket by the part of it still inside the
// trailing window and adds the current bucket
type tally struct {
	limit    int
	estimate float64
	reset    time.Time
}

func newTally(limit int, current, previous int64, w window, now time.Time) *tally {
	start := now.Truncate(w.length)
	overlap := float64(w.length-now.Sub(start)) / float64(w.length)
	return &tally{
		limit:    limit,
		estimate: float64(previous)*overlap + float64(current),
		reset:    start.Add(w.length),
	}
}

func (t *tally) exceeded() bool {
	return t.estimate > float64(t.limit)
}

func (t *tally) remaining() int {
	r := t.limit - int(math.Ceil(t.estimate))
	if r < 0 {
		return 0
	}
	return r
}

// Check counts one call of the application, nil limits are unlimited
func (l *Limiter) Check(ctx context.Context, applicationID int, rpm *int, daily *int) (*Decision, error) {
	if rpm == nil && daily == nil {
		return &Decision{Allowed: true, Unlimited: true}, nil
	}
	now := l.now()
	counted := map[string]*tally{}
	for _, w := range []struct {
		window
		limit *int
	}{{minute, rpm}, {day, daily}} {
		if w.limit == nil {
			continue
		}
		current, previous, err := l.counter.IncrementRateCounter(ctx, applicationID, w.name, w.length, now)
		if err != nil {
			l.log.Error("unable to count call",
				zap.Int("application_id", applicationID),
				zap.String("window", w.name),
				zap.Error(err))
			return nil, err
		}
		counted[w.name] = newTally(*w.limit, current, previous, w.window, now)
	}

	reported := counted[WindowMinute]
	if reported == nil {
		reported = counted[WindowDay]
	}
	decision := &Decision{
		Allowed:   true,
		Limit:     reported.limit,
		Remaining: reported.remaining(),
		Reset:     reported.reset,
	}
	// the day window wins, waiting out the minute would not help
	for _, w := range []window{day, minute} {
		t := counted[w.name]
		if t == nil || !t.exceeded() {
			continue
		}
		decision.Allowed = false
		decision.Window = w.name
		decision.RetryAfter = w.retryAfter
		l.metrics.RecordRateLimitExceeded(ctx, w.name)
		l.log.Debug("rate limit exceeded",
			zap.Int("application_id", applicationID),
			zap.String("window", w.name),
			zap.Float64("estimate", t.estimate))
		break
	}
	return decision, nil
}
