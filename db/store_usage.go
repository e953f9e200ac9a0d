package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/stackernews/oauthd/db/tables"
)

// InsertUsage appends one api usage record
func (d *DataStore) InsertUsage(ctx context.Context, usage *tables.APIUsageTable) error {
	created := usage.CreatedAt.UTC()
	if usage.CreatedAt.IsZero() {
		created = d.now()
	}
	insert := d.sq.Insert("api_usage").SetMap(map[string]interface{}{
		"application_id":  usage.ApplicationID,
		"access_token_id": usage.AccessTokenID,
		"endpoint":        usage.Endpoint,
		"method":          usage.Method,
		"user_id":         usage.UserID,
		"ip":              usage.IP,
		"user_agent":      usage.UserAgent,
		"created_at":      created,
	})
	_, err := d.insertStatement(ctx, insert, nil)
	return err
}

// UsageCountSince counts the recorded calls of an application since the given time
func (d *DataStore) UsageCountSince(ctx context.Context, applicationID int, since time.Time) (int64, error) {
	var c int64
	err := d.sq.
		Select("COUNT(*)").
		From("api_usage").
		Where(sq.And{
			sq.Eq{"application_id": applicationID},
			sq.GtOrEq{"created_at": since.UTC()},
		}).
		RunWith(d.db).
		QueryRowContext(ctx).
		Scan(&c)
	return c, err
}

// DeleteUsageBefore prunes usage records older than the given time
func (d *DataStore) DeleteUsageBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.deleteStatement(ctx,
		d.sq.Delete("api_usage").Where(sq.Lt{"created_at": before.UTC()}), nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
