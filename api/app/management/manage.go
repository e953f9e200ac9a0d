package management

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/config"
	"github.com/stackernews/oauthd/sanitize"
)

// ManagementRessource habours the headless admin endpoints
type ManagementRessource struct {
	log        *zap.Logger
	cfg        *config.ManageEndpointConfirugation
	appService ApplicationAdministration
}

func (m *ManagementRessource) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   m.cfg.CORS.AllowedOrigins,
		AllowedMethods:   m.cfg.CORS.AllowedMethods,
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: m.cfg.CORS.AllowCredentials,
		MaxAge:           300,
	}))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		m.log.Debug(
			"Could not found",
			zap.String("method", r.Method),
			sanitize.UserInputString("path", r.URL.Path),
		)
		w.WriteHeader(404)
	})

	r.Get("/.ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("pong"))
	})

	r.Group(func(gr chi.Router) {
		gr.Use(adminKeyMiddleware(m.log, m.cfg.AdminKey))
		gr.Route("/applications", func(r chi.Router) {
			r.With(pageinate).Get("/", m.listApplications)
			r.Get("/by-client-id", m.appByClientID)
			r.Get("/usage", m.applicationUsage)
			r.Put("/approve", m.approveApplication)
			r.Put("/suspend", m.suspendApplication)
			r.Put("/unsuspend", m.unsuspendApplication)
			r.Put("/rate-limits", m.setApplicationRateLimits)
			r.Delete("/delete", m.deleteApplication)
		})
	})
	return r
}

func NewManagementRessource(logger *zap.Logger,
	cfg *config.ManageEndpointConfirugation,
	appService ApplicationAdministration) *ManagementRessource {
	return &ManagementRessource{
		log:        logger,
		cfg:        cfg,
		appService: appService,
	}
}

type manageKey string

var pageSizeKey manageKey = "page_size"
var pageKey manageKey = "page"
var queryKey manageKey = "query"
var sortKey manageKey = "sort"

func pageinate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		p := r.URL.Query().Get("page")

		intOrDefault := func(in string, def int) int {
			if in == "" {
				return def
			}
			i, err := strconv.Atoi(in)
			if err != nil {
				return def
			}
			return i
		}
		ctx = context.WithValue(ctx, pageKey, intOrDefault(p, 1))
		s := r.URL.Query().Get("page_size")
		ctx = context.WithValue(ctx, pageSizeKey, intOrDefault(s, 12))

		q := r.URL.Query().Get("query")
		ctx = context.WithValue(ctx, queryKey, q)

		sort := r.URL.Query().Get("sort")
		ctx = context.WithValue(ctx, sortKey, sort)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// adminKeyMiddleware only lets requests carrying "Authorization: Bearer <admin-key>" through
func adminKeyMiddleware(log *zap.Logger, adminKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			kind, key, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(kind, "bearer") || adminKey == "" ||
				subtle.ConstantTimeCompare([]byte(strings.TrimSpace(key)), []byte(adminKey)) != 1 {
				log.Warn("rejected manage request without a valid admin key",
					zap.String("method", r.Method),
					sanitize.UserInputString("path", r.URL.Path))
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
