// Package usage appends api usage records asynchronously. Recording never
// blocks or fails the request it belongs to.
package usage

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/sanitize"
)

const (
	defaultQueueSize = 1024
	defaultWorkers   = 2
	writeTimeout     = 5 * time.Second
)

// failure reasons handed to the FailureReporter
const (
	ReasonQueueFull  = "queue_full"
	ReasonStoreError = "store_error"
	ReasonClosed     = "closed"
)

// ErrClosed is returned by Close when called twice
var ErrClosed = errors.New("usage logger already closed")

// Record is one authenticated resource call
type Record struct {
	ApplicationID int
	AccessTokenID int
	UserID        string
	Endpoint      string
	Method        string
	IP            string
	UserAgent     string
	At            time.Time
}

// column sizes of api_usage, the narrowest dialect wins
const (
	maxEndpoint  = 1024
	maxMethod    = 16
	maxUserID    = 64
	maxIP        = 64
	maxUserAgent = 512
)

func (r *Record) table() *tables.APIUsageTable {
	return &tables.APIUsageTable{
		ApplicationID: r.ApplicationID,
		AccessTokenID: r.AccessTokenID,
		Endpoint:      sanitize.Truncate(r.Endpoint, maxEndpoint),
		Method:        sanitize.Truncate(r.Method, maxMethod),
		UserID:        sanitize.Truncate(r.UserID, maxUserID),
		IP:            sanitize.Truncate(r.IP, maxIP),
		UserAgent:     sanitize.Truncate(r.UserAgent, maxUserAgent),
		CreatedAt:     r.At,
	}
}

//go:generate mockery --name Store
type Store interface {
	InsertUsage(ctx context.Context, usage *tables.APIUsageTable) error
}

//go:generate mockery --name FailureReporter

// FailureReporter is told about every record that got lost
type FailureReporter interface {
	ReportUsageFailure(ctx context.Context, reason string, err error)
}

type successReporter interface {
	RecordUsage(ctx context.Context)
}

// Logger is a bounded queue drained by a fixed number of workers
type Logger struct {
	log      *zap.Logger
	store    Store
	reporter FailureReporter
	queue    chan *Record
	wg       sync.WaitGroup
	mu       sync.RWMutex
	closed   bool
}

func NewLogger(log *zap.Logger, store Store, reporter FailureReporter, cfg *config.UsageConfiguration) *Logger {
	size, workers := defaultQueueSize, defaultWorkers
	if cfg != nil {
		if cfg.QueueSize > 0 {
			size = cfg.QueueSize
		}
		if cfg.Workers > 0 {
			workers = cfg.Workers
		}
	}
	l := &Logger{
		log:      log,
		store:    store,
		reporter: reporter,
		queue:    make(chan *Record, size),
	}
	l.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go l.work()
	}
	return l
}

// Record enqueues rec and returns immediately, a full queue drops it
func (l *Logger) Record(ctx context.Context, rec Record) bool {
	if rec.At.IsZero() {
		rec.At = time.Now()
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		l.report(ctx, ReasonClosed, nil)
		return false
	}
	select {
	case l.queue <- &rec:
		return true
	default:
		l.log.Warn("usage queue full, dropping record",
			zap.Int("application_id", rec.ApplicationID),
			zap.String("endpoint", rec.Endpoint))
		l.report(ctx, ReasonQueueFull, nil)
		return false
	}
}

func (l *Logger) work() {
	defer l.wg.Done()
	for rec := range l.queue {
		l.write(rec)
	}
}

func (l *Logger) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := l.store.InsertUsage(ctx, rec.table()); err != nil {
		l.log.Error("unable to record api usage",
			zap.Int("application_id", rec.ApplicationID),
			zap.String("endpoint", rec.Endpoint),
			zap.Error(err))
		l.report(ctx, ReasonStoreError, err)
		return
	}
	if s, ok := l.reporter.(successReporter); ok {
		s.RecordUsage(ctx)
	}
}

func (l *Logger) report(ctx context.Context, reason string, err error) {
	if l.reporter != nil {
		l.reporter.ReportUsageFailure(ctx, reason, err)
	}
}

// Close stops accepting records and waits until the queue is drained or ctx is done
func (l *Logger) Close(ctx context.Context) error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return ErrClosed
	}
	l.closed = true
	close(l.queue)
	l.mu.Unlock()

	done := make(chan struct{})
	go func() {
		l.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		l.log.Warn("usage logger closed before the queue was drained", zap.Int("pending", len(l.queue)))
		return ctx.Err()
	}
}
