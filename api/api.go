package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/api/app/management"
	"github.com/stackernews/oauthd/api/app/meta"
	"github.com/stackernews/oauthd/api/app/oauth"
	"github.com/stackernews/oauthd/api/auth"
	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/authorization"
	"github.com/stackernews/oauthd/bearer"
	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/manage"
	oauthErrors "github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/ratelimit"
	"github.com/stackernews/oauthd/session"
	"github.com/stackernews/oauthd/tokens"
)

// Services are the components the http surface is composed of
type Services struct {
	Applications  *application.Service
	Authorization *authorization.Service
	Tokens        *tokens.Engine
	Authenticator *bearer.Authenticator
	Resolver      session.Resolver
	Throttle      *ratelimit.IPThrottle
	Manage        *manage.ApplicationService
	Health        Pinger
}

func compose(logger *zap.Logger, cfg *config.Configuration, services *Services) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)

	r.Use(loggerMiddleware(logger))

	r.Use(middleware.Recoverer)

	r.Use(middleware.Timeout(50 * time.Second))

	if cfg.DebugMode() {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("running in debug mode"))
		})
	}
	if services.Health != nil {
		r.Get("/.ready", readiness(logger.Named("readiness"), services.Health))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		auth.RenderError(logger, w, r, oauthErrors.NotFound("no such endpoint"))
	})

	oauthRessource := oauth.NewOAuthRessource(
		logger.Named("oauth_ressource"),
		cfg.Server,
		cfg.Session,
		services.Applications,
		services.Authorization,
		services.Tokens,
		services.Authenticator,
		services.Resolver,
		services.Throttle,
	)
	metaRessource := meta.NewMetaRessource(logger.Named("meta_ressource"), cfg.Server)

	if cfg.ManageEndpoint != nil && cfg.ManageEndpoint.Enable {
		manageRessource := management.NewManagementRessource(
			logger.Named("management_ressource"),
			cfg.ManageEndpoint,
			services.Manage,
		)
		r.Mount("/manage", manageRessource.Router())
	}

	r.Mount("/oauth", oauthRessource.Router())

	r.Mount("/.well-known", metaRessource.Router())

	return r
}
