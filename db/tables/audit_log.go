package tables

import "time"

// AuditLogTable is one persisted domain event, the payload never carries secrets
type AuditLogTable struct {
	ID        int          `db:"id"`
	EventType string       `db:"event_type"`
	Event     MapStructure `db:"event"`
	CreatedAt time.Time    `db:"created_at"`
}
