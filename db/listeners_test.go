package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/events/event"

	_ "github.com/mattn/go-sqlite3"
)

func sqliteStore(t *testing.T) *DataStore {
	t.Helper()
	store, err := NewSqliteStore(zaptest.NewLogger(t), &config.DatabaseConfiguration{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "audit.db"),
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureUsable())
	t.Cleanup(store.Close)
	return store
}

func TestEventsReachTheAuditTrail(t *testing.T) {
	store := sqliteStore(t)
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return at }

	log := zaptest.NewLogger(t)
	dispatcher := events.NewDispatcher(log)
	dispatcher.Register(BootstrapListeners(store.Auditor(), log)...)

	ctx := context.Background()
	dispatcher.Dispatch(ctx, &event.ApplicationApproved{ApplicationID: 4, ClientID: "abc"})
	dispatcher.Dispatch(ctx, &event.ApplicationSuspended{
		ApplicationID:  4,
		ClientID:       "abc",
		Reason:         "spam",
		TokensAffected: 3,
	})
	limit := 10
	dispatcher.Dispatch(ctx, &event.ApplicationRateLimitsChanged{ApplicationID: 4, ClientID: "abc", PerMinute: &limit})

	trail, err := store.AuditTrail(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, trail, 3)
	assert.Equal(t, string(event.ApplicationRateLimitsChangedEvent), trail[0].EventType)
	assert.Equal(t, "10", trail[0].Event["per_minute"])
	assert.Equal(t, "unlimited", trail[0].Event["per_day"])
	assert.True(t, at.Equal(trail[0].CreatedAt))

	suspended, err := store.AuditTrail(ctx, string(event.ApplicationSuspendedEvent), 10)
	require.NoError(t, err)
	require.Len(t, suspended, 1)
	assert.Equal(t, "spam", suspended[0].Event["reason"])
	assert.Equal(t, float64(3), suspended[0].Event["affected_tokens"])
	assert.Equal(t, "abc", suspended[0].Event["client_id"])

	newest, err := store.AuditTrail(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, newest, 1)
}
