package auth

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/stackernews/oauthd/bearer"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/ratelimit"
	"github.com/stackernews/oauthd/sanitize"
	"github.com/stackernews/oauthd/scope"
)

type Authenticator interface {
	Authenticate(ctx context.Context, req *bearer.Request) (*bearer.Principal, *ratelimit.Decision, error)
}

// PrincipalFromContext returns the caller authenticated by Bearer
func PrincipalFromContext(ctx context.Context) (*bearer.Principal, bool) {
	p, ok := ctx.Value(PrincipalContextKey).(*bearer.Principal)
	return p, ok
}

func rateLimitHeaders(w http.ResponseWriter, d *ratelimit.Decision) {
	if d == nil {
		return
	}
	if d.Unlimited {
		w.Header().Set("X-RateLimit-Limit", "unlimited")
		w.Header().Set("X-RateLimit-Remaining", "unlimited")
		return
	}
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	if !d.Reset.IsZero() {
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.Reset.Unix(), 10))
	}
}

// https://datatracker.ietf.org/doc/html/rfc6750#section-3
func challenge(e *oauth.Error, required scope.Set, hasToken bool) string {
	if !hasToken {
		return `Bearer realm="oauthd"`
	}
	parts := []string{
		`realm="oauthd"`,
		fmt.Sprintf(`error="%s"`, e.Code()),
	}
	if e.Description != "" {
		parts = append(parts, fmt.Sprintf(`error_description="%s"`, strings.ReplaceAll(e.Description, `"`, "'")))
	}
	if e.Kind == oauth.KindInsufficientScope && len(required) > 0 {
		parts = append(parts, fmt.Sprintf(`scope="%s"`, required.String()))
	}
	return "Bearer " + strings.Join(parts, ", ")
}

// Bearer authenticates resource calls and requires the given scopes
func Bearer(log *zap.Logger, authenticator Authenticator, scopes ...scope.Scope) func(http.Handler) http.Handler {
	required := scope.Set(scopes)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, err := bearer.TokenFromHeader(header)
			if err != nil {
				w.Header().Set("WWW-Authenticate", challenge(oauth.As(err), required, header != ""))
				RenderError(log, w, r, err)
				return
			}
			principal, decision, err := authenticator.Authenticate(r.Context(), &bearer.Request{
				Token:     token,
				Required:  required,
				IP:        ClientIP(r),
				UserAgent: r.UserAgent(),
				Endpoint:  r.URL.Path,
				Method:    r.Method,
			})
			rateLimitHeaders(w, decision)
			if err != nil {
				e := oauth.As(err)
				if e.Status() == http.StatusUnauthorized {
					w.Header().Set("WWW-Authenticate", challenge(e, required, true))
				}
				log.Debug("bearer authentication failed",
					sanitize.UserInputString("path", r.URL.Path),
					zap.String("error", e.Code()))
				RenderError(log, w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), PrincipalContextKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
