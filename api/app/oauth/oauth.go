package oauth

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/api/auth"
	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/session"
)

// csrfFieldName is the form field (and consent url parameter) carrying the csrf token
const csrfFieldName = "csrf_token"

// OAuthRessource serves the authorization server endpoints below /oauth
type OAuthRessource struct {
	log           *zap.Logger
	serverCfg     *config.ServerConfiguration
	sessionCfg    *config.SessionConfiguration
	apps          ApplicationService
	authz         AuthorizationService
	engine        TokenEngine
	authenticator auth.Authenticator
	resolver      session.Resolver
	throttle      Throttle
}

func (o *OAuthRessource) Router() *chi.Mux {
	r := chi.NewRouter()

	// client facing endpoints, authenticated by client credentials or bearer tokens
	r.Group(func(ri chi.Router) {
		ri.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"https://*", "http://*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
		ri.Post("/token", o.token)
		ri.Post("/revoke", o.revoke)
		ri.With(auth.Bearer(o.log, o.authenticator)).Get("/userinfo", o.userinfo)
	})

	// user facing endpoints, authenticated by the session of the login system
	r.Group(func(ri chi.Router) {
		ri.Use(auth.Session(o.log, o.resolver))

		ri.Group(func(rc chi.Router) {
			rc.Use(o.csrfProtection())
			rc.Get("/authorize", o.authorize)
			rc.Post("/authorize", o.consent)
		})

		ri.Group(func(rs chi.Router) {
			rs.Use(auth.RequireSession(o.log))
			rs.Use(middleware.NoCache)

			rs.Route("/applications", func(ra chi.Router) {
				ra.With(middleware.AllowContentType("application/json")).Post("/", o.registerApplication)
				ra.Get("/", o.listApplications)
				ra.Get("/{id}", o.getApplication)
				ra.With(middleware.AllowContentType("application/json")).Put("/{id}", o.updateApplication)
				ra.Delete("/{id}", o.deleteApplication)
			})

			rs.Get("/grants", o.listGrants)
			rs.Delete("/grants/{applicationId}", o.revokeGrant)
		})
	})

	return r
}

func (o *OAuthRessource) csrfProtection() func(http.Handler) http.Handler {
	opts := []csrf.Option{
		csrf.FieldName(csrfFieldName),
		csrf.Path("/oauth"),
		csrf.Secure(o.serverCfg.SecureCookies),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			o.log.Warn("consent submission failed csrf validation", zap.Error(csrf.FailureReason(r)))
			o.renderError(w, r, oauth.AccessDenied("invalid csrf token"))
		})),
	}
	// the consent screen may live on another host of the same site
	if u, err := url.Parse(o.sessionCfg.ConsentURL); err == nil && u.Host != "" {
		opts = append(opts, csrf.TrustedOrigins([]string{u.Host}))
	}
	return csrf.Protect([]byte(o.serverCfg.CSRFToken), opts...)
}

func (o *OAuthRessource) renderError(w http.ResponseWriter, r *http.Request, err error) {
	auth.RenderError(o.log, w, r, err)
}

func NewOAuthRessource(
	log *zap.Logger,
	serverCfg *config.ServerConfiguration,
	sessionCfg *config.SessionConfiguration,
	apps ApplicationService,
	authz AuthorizationService,
	engine TokenEngine,
	authenticator auth.Authenticator,
	resolver session.Resolver,
	throttle Throttle,
) *OAuthRessource {
	return &OAuthRessource{
		log:           log,
		serverCfg:     serverCfg,
		sessionCfg:    sessionCfg,
		apps:          apps,
		authz:         authz,
		engine:        engine,
		authenticator: authenticator,
		resolver:      resolver,
		throttle:      throttle,
	}
}
