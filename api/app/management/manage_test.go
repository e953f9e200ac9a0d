package management

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/dbtest"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/manage"
)

var adminKey = strings.Repeat("a", 32)

func newRessource(t *testing.T) (http.Handler, *db.DataStore) {
	log := zaptest.NewLogger(t)
	store := dbtest.NewStore(t)
	dbtest.SeedApplication(t, store, "pending-app", func(a *tables.ApplicationTable) {
		a.Approved = false
	})
	service := manage.NewApplicationSevice(store, log, events.NewDispatcher(log))
	res := NewManagementRessource(log, &config.ManageEndpointConfirugation{
		Enable:   true,
		AdminKey: adminKey,
		CORS: &config.CORSConfiguration{
			AllowedOrigins: []string{"https://admin.test"},
			AllowedMethods: []string{"GET", "PUT", "DELETE"},
		},
	}, service)
	return res.Router(), store
}

func TestAdminKeyIsRequired(t *testing.T) {
	handler, _ := newRessource(t)
	apitest.New().
		Handler(handler).
		Get("/applications/").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	apitest.New().
		Handler(handler).
		Get("/applications/").
		Header("Authorization", "Bearer "+strings.Repeat("b", 32)).
		Expect(t).
		Status(http.StatusUnauthorized).
		End()
	apitest.New().
		Handler(handler).
		Get("/.ping").
		Expect(t).
		Status(http.StatusOK).
		Body("pong").
		End()
}

func TestListApplications(t *testing.T) {
	handler, _ := newRessource(t)
	apitest.New().
		Handler(handler).
		Get("/applications/").
		Header("Authorization", "Bearer "+adminKey).
		Expect(t).
		Status(http.StatusOK).
		Assert(func(res *http.Response, _ *http.Request) error {
			var body struct {
				Total   int                      `json:"total"`
				Entries []*manage.ApplicationDTO `json:"entries"`
			}
			require.NoError(t, json.NewDecoder(res.Body).Decode(&body))
			assert.Equal(t, 1, body.Total)
			require.Len(t, body.Entries, 1)
			assert.Equal(t, "pending", body.Entries[0].Status)
			return nil
		}).
		End()
}

func TestApproveAndSuspend(t *testing.T) {
	handler, store := newRessource(t)
	apitest.New().
		Handler(handler).
		Put("/applications/approve").
		Header("Authorization", "Bearer "+adminKey).
		JSON(`{"client_id":"pending-app"}`).
		Expect(t).
		Status(http.StatusOK).
		Body(`{"success":true,"message":"Successfully approved application"}`).
		End()

	apitest.New().
		Handler(handler).
		Put("/applications/suspend").
		Header("Authorization", "Bearer "+adminKey).
		JSON(`{"client_id":"pending-app","reason":"abuse"}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	app, err := store.ApplicationByClientID(context.Background(), "pending-app")
	require.NoError(t, err)
	assert.True(t, app.Approved)
	assert.True(t, app.Suspended)
}

func TestRateLimitsAndErrors(t *testing.T) {
	handler, _ := newRessource(t)
	apitest.New().
		Handler(handler).
		Put("/applications/rate-limits").
		Header("Authorization", "Bearer "+adminKey).
		JSON(`{"client_id":"pending-app","rate_limit_rpm":0}`).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	apitest.New().
		Handler(handler).
		Put("/applications/rate-limits").
		Header("Authorization", "Bearer "+adminKey).
		JSON(`{"client_id":"pending-app","rate_limit_rpm":5}`).
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(handler).
		Get("/applications/by-client-id").
		Query("client_id", "nope").
		Header("Authorization", "Bearer "+adminKey).
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"error":"application not found"}`).
		End()

	apitest.New().
		Handler(handler).
		Get("/applications/usage").
		Query("client_id", "pending-app").
		Query("since", "yesterday").
		Header("Authorization", "Bearer "+adminKey).
		Expect(t).
		Status(http.StatusBadRequest).
		End()

	apitest.New().
		Handler(handler).
		Delete("/applications/delete").
		Header("Authorization", "Bearer "+adminKey).
		JSON(`{"client_id":"pending-app"}`).
		Expect(t).
		Status(http.StatusOK).
		End()
}
