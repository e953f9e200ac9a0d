package ratelimit

import (
	"container/list"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type ipEntry struct {
	ip         string
	limiter    *rate.Limiter
	lastAccess time.Time
}

// IPThrottle is a token bucket per client ip, the least recently seen ips are
// evicted once maxEntries is reached
type IPThrottle struct {
	mu         sync.Mutex
	log        *zap.Logger
	entries    map[string]*list.Element
	lru        *list.List
	rps        rate.Limit
	burst      int
	maxEntries int
	maxIdle    time.Duration
	now        func() time.Time
	evictions  int64
}

// NewIPThrottle returns nil if rps is not positive, a nil throttle allows everything
func NewIPThrottle(log *zap.Logger, rps float64, burst int) *IPThrottle {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(math.Ceil(rps))
	}
	return &IPThrottle{
		log:        log,
		entries:    make(map[string]*list.Element),
		lru:        list.New(),
		rps:        rate.Limit(rps),
		burst:      burst,
		maxEntries: 10000,
		maxIdle:    30 * time.Minute,
		now:        time.Now,
	}
}

// Allow takes one token for ip. If none is left it returns the seconds until the next one.
func (t *IPThrottle) Allow(ip string) (bool, int) {
	if t == nil {
		return true, 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()

	var entry *ipEntry
	if elem, ok := t.entries[ip]; ok {
		t.lru.MoveToFront(elem)
		entry = elem.Value.(*ipEntry)
	} else {
		t.sweep(now)
		if len(t.entries) >= t.maxEntries {
			t.evictOldest()
		}
		entry = &ipEntry{ip: ip, limiter: rate.NewLimiter(t.rps, t.burst)}
		t.entries[ip] = t.lru.PushFront(entry)
	}
	entry.lastAccess = now

	if entry.limiter.AllowN(now, 1) {
		return true, 0
	}
	wait := entry.limiter.ReserveN(now, 1)
	delay := wait.DelayFrom(now)
	wait.CancelAt(now)
	retryAfter := int(math.Ceil(delay.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return false, retryAfter
}

// sweep drops idle entries from the back of the list
func (t *IPThrottle) sweep(now time.Time) {
	for elem := t.lru.Back(); elem != nil; elem = t.lru.Back() {
		entry := elem.Value.(*ipEntry)
		if now.Sub(entry.lastAccess) <= t.maxIdle {
			return
		}
		delete(t.entries, entry.ip)
		t.lru.Remove(elem)
	}
}

func (t *IPThrottle) evictOldest() {
	elem := t.lru.Back()
	if elem == nil {
		return
	}
	entry := elem.Value.(*ipEntry)
	delete(t.entries, entry.ip)
	t.lru.Remove(elem)
	t.evictions++
	t.log.Debug("token endpoint throttle evicted ip",
		zap.String("ip", entry.ip),
		zap.Int64("total_evictions", t.evictions))
}

// Len is the number of tracked ips
func (t *IPThrottle) Len() int {
	if t == nil {
		return 0
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}
