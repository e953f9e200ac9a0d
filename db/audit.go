package db

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/stackernews/oauthd/db/tables"
)

type auditor struct {
	db  *sqlx.DB
	sq  sq.StatementBuilderType
	now func() time.Time
}

func (d *auditor) addToAuditLog(ctx context.Context, event string, payload tables.MapStructure) error {
	insert := d.sq.
		Insert("audit_logs").
		Columns("event_type", "event", "created_at").
		Values(event, payload, d.now())
	_, err := insert.RunWith(d.db).ExecContext(ctx)
	return err
}

// AuditTrail returns the newest audit entries first, eventType narrows it to one event when set
func (d *DataStore) AuditTrail(ctx context.Context, eventType string, limit uint64) ([]*tables.AuditLogTable, error) {
	q := d.sq.
		Select("id", "event_type", "event", "created_at").
		From("audit_logs").
		OrderBy("id DESC").
		Limit(limit)
	if eventType != "" {
		q = q.Where(sq.Eq{"event_type": eventType})
	}
	entries := make([]*tables.AuditLogTable, 0)
	if err := d.selectStatement(ctx, &entries, q, nil); err != nil {
		return nil, err
	}
	return entries, nil
}
