// Package bearer authenticates resource calls made with an access token
// https://datatracker.ietf.org/doc/html/rfc6750
package bearer

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/ratelimit"
	"github.com/stackernews/oauthd/scope"
	"github.com/stackernews/oauthd/usage"
)

type TokenStore interface {
	AccessTokenByHash(ctx context.Context, tokenHash string) (*tables.AccessTokenTable, error)
	TouchAccessToken(ctx context.Context, id int, ip string, at time.Time) error
}

type ApplicationSupplier interface {
	ByID(ctx context.Context, id int) (*application.Application, error)
}

type Limiter interface {
	Check(ctx context.Context, applicationID int, rpm *int, daily *int) (*ratelimit.Decision, error)
}

type UsageRecorder interface {
	Record(ctx context.Context, rec usage.Record) bool
}

type Metrics interface {
	RecordBearerRejected(ctx context.Context, reason string)
}

// Request is one resource call
type Request struct {
	Token     string
	Required  scope.Set
	IP        string
	UserAgent string
	Endpoint  string
	Method    string
}

// Principal is who is calling and with what
type Principal struct {
	UserID        string
	Application   *application.Application
	Scopes        scope.Set
	AccessTokenID int
}

// ClientID is a shorthand for the calling application
func (p *Principal) ClientID() string {
	return p.Application.ClientID()
}

// TokenFromHeader extracts the token of an Authorization header value
func TokenFromHeader(header string) (string, error) {
	if header == "" {
		return "", oauth.InvalidToken("missing bearer token")
	}
	kind, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(kind, "bearer") {
		return "", oauth.InvalidToken("malformed authorization header")
	}
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " \t") {
		return "", oauth.InvalidToken("malformed bearer token")
	}
	return token, nil
}

type Authenticator struct {
	log      *zap.Logger
	store    TokenStore
	supplier ApplicationSupplier
	limiter  Limiter
	usage    UsageRecorder
	metrics  Metrics
	now      func() time.Time
}

func NewAuthenticator(
	log *zap.Logger,
	store TokenStore,
	supplier ApplicationSupplier,
	limiter Limiter,
	usage UsageRecorder,
	metrics Metrics,
) *Authenticator {
	return &Authenticator{
		log:      log,
		store:    store,
		supplier: supplier,
		limiter:  limiter,
		usage:    usage,
		metrics:  metrics,
		now:      time.Now,
	}
}

// WithClock replaces the clock token expiry is checked against
func (a *Authenticator) WithClock(now func() time.Time) *Authenticator {
	a.now = now
	return a
}

func (a *Authenticator) reject(ctx context.Context, reason string, err *oauth.Error) *oauth.Error {
	a.metrics.RecordBearerRejected(ctx, reason)
	return err
}

// Authenticate runs the checks in order, the first failing one wins.
// The rate limit decision is returned whenever the call got counted, rejections included.
func (a *Authenticator) Authenticate(ctx context.Context, req *Request) (*Principal, *ratelimit.Decision, error) {
	if req.Token == "" {
		return nil, nil, a.reject(ctx, "missing", oauth.InvalidToken("missing bearer token"))
	}
	token, err := a.store.AccessTokenByHash(ctx, generator.Hash(req.Token))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, nil, a.reject(ctx, "unknown", oauth.InvalidToken("invalid access token"))
		}
		a.log.Error("unable to load access token", zap.Error(err))
		return nil, nil, oauth.Internal(err)
	}
	now := a.now()
	if token.Revoked {
		return nil, nil, a.reject(ctx, "revoked", oauth.InvalidToken("access token has been revoked"))
	}
	if !now.Before(token.ExpiresAt) {
		return nil, nil, a.reject(ctx, "expired", oauth.InvalidToken("access token expired"))
	}

	app, err := a.supplier.ByID(ctx, token.ApplicationID)
	if err != nil {
		if errors.Is(err, oauth.ErrNotFound) {
			return nil, nil, a.reject(ctx, "application", oauth.InvalidToken("invalid access token"))
		}
		a.log.Error("unable to load application", zap.Error(err))
		return nil, nil, oauth.As(err)
	}
	if !app.IsUsable() {
		return nil, nil, a.reject(ctx, "application", oauth.InvalidToken("application is not available"))
	}

	rpm, daily := app.RateLimits()
	decision, err := a.limiter.Check(ctx, app.ID(), rpm, daily)
	if err != nil {
		return nil, nil, oauth.Internal(err)
	}
	if !decision.Allowed {
		return nil, decision, a.reject(ctx, "rate_limited", oauth.RateLimited(decision.RetryAfter))
	}

	// narrowing the application's scopes narrows every token it issued
	granted := scope.FromStorage(token.Scopes).Intersect(app.Scopes())
	if missing := granted.Missing(req.Required); len(missing) > 0 {
		return nil, decision, a.reject(ctx, "insufficient_scope", oauth.InsufficientScope(missing.Strings()))
	}

	if err := a.store.TouchAccessToken(ctx, token.ID, req.IP, now); err != nil {
		a.log.Warn("unable to record access token use", zap.Int("access_token_id", token.ID), zap.Error(err))
	}
	a.usage.Record(ctx, usage.Record{
		ApplicationID: app.ID(),
		AccessTokenID: token.ID,
		UserID:        token.UserID,
		Endpoint:      req.Endpoint,
		Method:        req.Method,
		IP:            req.IP,
		UserAgent:     req.UserAgent,
		At:            now,
	})
	return &Principal{
		UserID:        token.UserID,
		Application:   app,
		Scopes:        granted,
		AccessTokenID: token.ID,
	}, decision, nil
}
