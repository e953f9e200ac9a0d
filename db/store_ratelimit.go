package db

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/db/tables"
)

// IncrementRateCounter counts one hit in the bucket now.Truncate(length).
// Moving into a new bucket keeps the count of the bucket right before it.
// It returns the current count after the increment and the previous count.
func (d *DataStore) IncrementRateCounter(
	ctx context.Context,
	applicationID int,
	window string,
	length time.Duration,
	now time.Time,
) (int64, int64, error) {
	var (
		counter *tables.RateLimitCounterTable
		err     error
	)
	for attempt := 0; attempt < 3; attempt++ {
		counter, err = d.incrementRateCounter(ctx, applicationID, window, length, now.UTC())
		if err == nil {
			return counter.Count, counter.PreviousCount, nil
		}
		if !errors.Is(err, ErrConflict) {
			return 0, 0, err
		}
		d.log.Debug("rate counter insert raced, retrying",
			zap.Int("application_id", applicationID),
			zap.String("window", window))
	}
	return 0, 0, err
}

func (d *DataStore) incrementRateCounter(
	ctx context.Context,
	applicationID int,
	window string,
	length time.Duration,
	now time.Time,
) (*tables.RateLimitCounterTable, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return nil, err
	}
	defer d.rollBack(tx)

	pred := sq.Eq{"application_id": applicationID, "window_name": window}
	start := now.Truncate(length)
	previous := start.Add(-length)
	// window_start is assigned last, mysql evaluates assignments in order
	update := d.sq.
		Update("rate_limit_counters").
		Set("previous_count", sq.Expr(
			"CASE WHEN window_start >= ? THEN previous_count WHEN window_start >= ? THEN count ELSE 0 END",
			start, previous)).
		Set("count", sq.Expr("CASE WHEN window_start >= ? THEN count + 1 ELSE 1 END", start)).
		Set("window_start", sq.Expr("CASE WHEN window_start >= ? THEN window_start ELSE ? END", start, start)).
		Where(pred)
	err = d.conditionalUpdate(ctx, update, tx)
	if errors.Is(err, ErrConflict) {
		insert := d.sq.Insert("rate_limit_counters").SetMap(map[string]interface{}{
			"application_id": applicationID,
			"window_name":    window,
			"window_start":   start,
			"count":          1,
			"previous_count": 0,
		})
		if _, ierr := d.insertStatement(ctx, insert, tx); ierr != nil {
			// someone else created the row first
			return nil, ErrConflict
		}
	} else if err != nil {
		return nil, err
	}

	var counter tables.RateLimitCounterTable
	q := d.sq.
		Select("application_id", "window_name", "window_start", "count", "previous_count").
		From("rate_limit_counters").
		Where(pred)
	if err := d.getStatement(ctx, &counter, q, tx); err != nil {
		return nil, err
	}
	return &counter, tx.Commit()
}
