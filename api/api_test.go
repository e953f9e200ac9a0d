package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/steinfletcher/apitest"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/authorization"
	"github.com/stackernews/oauthd/bearer"
	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/db/dbtest"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/instrumentation"
	"github.com/stackernews/oauthd/manage"
	"github.com/stackernews/oauthd/ratelimit"
	"github.com/stackernews/oauthd/session"
	"github.com/stackernews/oauthd/tokens"
	"github.com/stackernews/oauthd/usage"
)

func testConfiguration(manageEnabled bool) *config.Configuration {
	return &config.Configuration{
		Server: &config.ServerConfiguration{
			PublicURL: "https://auth.example.com/",
			CSRFToken: strings.Repeat("c", 32),
		},
		OAuth: &config.OAuthConfiguration{
			CodeExpiry:         10 * time.Minute,
			AccessTokenExpiry:  2 * time.Hour,
			RefreshTokenExpiry: 720 * time.Hour,
		},
		Session: &config.SessionConfiguration{
			Resolver:   "header",
			Header:     "X-User-Id",
			LoginURL:   "https://example.com/login",
			ConsentURL: "https://example.com/oauth/consent",
		},
		ManageEndpoint: &config.ManageEndpointConfirugation{
			Enable:   manageEnabled,
			AdminKey: strings.Repeat("a", 32),
			CORS:     &config.CORSConfiguration{AllowedOrigins: []string{"*"}},
		},
	}
}

func testServices(t *testing.T, cfg *config.Configuration) *Services {
	log := zaptest.NewLogger(t)
	store := dbtest.NewStore(t)
	dispatcher := events.NewDispatcher(log)
	metrics := instrumentation.NewNoop()
	hasher := application.BcryptHasher{Cost: bcrypt.MinCost}
	apps := application.NewApplicationSevice(log, store, dispatcher, hasher, nil)
	recorder := usage.NewLogger(log, store, metrics, nil)
	t.Cleanup(func() { _ = recorder.Close(context.Background()) })
	return &Services{
		Applications:  apps,
		Authorization: authorization.NewAuthorizationService(log, store, dispatcher, apps, authorization.SettingsFromConfig(cfg)),
		Tokens:        tokens.NewEngine(log, store, apps, hasher, dispatcher, metrics, tokens.SettingsFromConfig(cfg.OAuth)),
		Authenticator: bearer.NewAuthenticator(log, store, apps, ratelimit.NewLimiter(log, store, metrics), recorder, metrics),
		Resolver:      session.NewHeaderResolver(cfg.Session.Header),
		Manage:        manage.NewApplicationSevice(store, log, dispatcher),
		Health:        store,
	}
}

func TestComposeMountsRessources(t *testing.T) {
	cfg := testConfiguration(true)
	handler := compose(zaptest.NewLogger(t), cfg, testServices(t, cfg))

	apitest.New().
		Handler(handler).
		Get("/.well-known/oauth-authorization-server").
		Expect(t).
		Status(http.StatusOK).
		End()

	apitest.New().
		Handler(handler).
		Get("/oauth/grants").
		Expect(t).
		Status(http.StatusUnauthorized).
		End()

	apitest.New().
		Handler(handler).
		Get("/manage/.ping").
		Expect(t).
		Status(http.StatusOK).
		Body("pong").
		End()

	apitest.New().
		Handler(handler).
		Get("/nowhere").
		Expect(t).
		Status(http.StatusNotFound).
		Body(`{"error":"not_found","error_description":"no such endpoint"}`).
		End()
}

func TestManageEndpointIsOptional(t *testing.T) {
	cfg := testConfiguration(false)
	handler := compose(zaptest.NewLogger(t), cfg, testServices(t, cfg))

	apitest.New().
		Handler(handler).
		Get("/manage/.ping").
		Expect(t).
		Status(http.StatusNotFound).
		End()
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestReadiness(t *testing.T) {
	cfg := testConfiguration(false)
	services := testServices(t, cfg)

	apitest.New().
		Handler(compose(zaptest.NewLogger(t), cfg, services)).
		Get("/.ready").
		Expect(t).
		Status(http.StatusOK).
		Body("ready").
		End()

	services.Health = failingPinger{}
	apitest.New().
		Handler(compose(zaptest.NewLogger(t), cfg, services)).
		Get("/.ready").
		Expect(t).
		Status(http.StatusServiceUnavailable).
		Body("unavailable").
		End()
}
