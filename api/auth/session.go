package auth

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/session"
)

type contextKey struct {
	name string
}

var (
	UserIDContextKey    = &contextKey{"UserID"}
	PrincipalContextKey = &contextKey{"Principal"}
)

// UserIDFromContext returns the logged in user or ""
func UserIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(UserIDContextKey).(string)
	return v
}

// Session resolves the logged in user of the external login system, the
// request continues without one if there is no session
func Session(log *zap.Logger, resolver session.Resolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := session.UserID(r.Context(), log, resolver, r)
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := context.WithValue(r.Context(), UserIDContextKey, userID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireSession answers 401 unless Session found a user
func RequireSession(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserIDFromContext(r.Context()) == "" {
				RenderError(log, w, r, oauth.Unauthenticated())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
