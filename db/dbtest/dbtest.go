// Package dbtest opens migrated throwaway sqlite stores for tests
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	_ "github.com/mattn/go-sqlite3"
)

// NewStore returns a migrated store backed by a file in the test temp dir
func NewStore(t testing.TB) *db.DataStore {
	t.Helper()
	store, err := db.NewSqliteStore(zap.NewNop(), &config.DatabaseConfiguration{
		Type: "sqlite",
		DSN:  filepath.Join(t.TempDir(), "oauthd.db"),
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureUsable())
	t.Cleanup(store.Close)
	return store
}

// SeedApplication inserts an approved confidential application accepting https://a/cb,
// mutate may adjust it before the insert
func SeedApplication(
	t testing.TB,
	store *db.DataStore,
	clientID string,
	mutate func(app *tables.ApplicationTable),
) *tables.ApplicationTable {
	t.Helper()
	app := &tables.ApplicationTable{
		OwnerUserID:    "owner",
		Name:           "Seeded " + clientID,
		ClientID:       clientID,
		RedirectURIs:   tables.StringList{"https://a/cb"},
		Scopes:         "read",
		IsConfidential: true,
		Approved:       true,
	}
	if mutate != nil {
		mutate(app)
	}
	id, err := store.CreateApplication(context.Background(), app)
	require.NoError(t, err)
	created, err := store.ApplicationByID(context.Background(), id)
	require.NoError(t, err)
	return created
}
