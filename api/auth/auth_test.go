package auth

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/steinfletcher/apitest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/bearer"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/ratelimit"
	"github.com/stackernews/oauthd/scope"
)

func formRequest(t *testing.T, form url.Values, basic string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/oauth/token", strings.NewReader(form.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if basic != "" {
		r.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(basic)))
	}
	require.NoError(t, r.ParseForm())
	return r
}

func TestClientCredentialsFromRequest(t *testing.T) {
	creds, err := ClientCredentialsFromRequest(formRequest(t, url.Values{
		"client_id":     {"app"},
		"client_secret": {"s3cret"},
	}, ""))
	require.NoError(t, err)
	assert.Equal(t, "app", creds.ClientID)
	assert.Equal(t, "s3cret", creds.ClientSecret)

	creds, err = ClientCredentialsFromRequest(formRequest(t, url.Values{}, "my%3Aapp:p%40ss:word"))
	require.NoError(t, err)
	assert.Equal(t, "my:app", creds.ClientID)
	assert.Equal(t, "p@ss:word", creds.ClientSecret)

	creds, err = ClientCredentialsFromRequest(formRequest(t, url.Values{"client_id": {"app"}}, "app:x"))
	require.NoError(t, err)
	assert.Equal(t, "x", creds.ClientSecret)

	_, err = ClientCredentialsFromRequest(formRequest(t, url.Values{"client_secret": {"x"}}, "app:x"))
	assert.ErrorIs(t, err, oauth.ErrValidation)

	_, err = ClientCredentialsFromRequest(formRequest(t, url.Values{"client_id": {"other"}}, "app:x"))
	assert.ErrorIs(t, err, oauth.ErrValidation)

	_, err = ClientCredentialsFromRequest(formRequest(t, url.Values{}, "no-colon"))
	assert.ErrorIs(t, err, oauth.ErrInvalidClient)

	r := formRequest(t, url.Values{}, "")
	r.Header.Set("Authorization", "Basic !!!")
	_, err = ClientCredentialsFromRequest(r)
	assert.ErrorIs(t, err, oauth.ErrInvalidClient)
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.1.2.3:5555"
	assert.Equal(t, "10.1.2.3", ClientIP(r))
	r.RemoteAddr = "10.1.2.3"
	assert.Equal(t, "10.1.2.3", ClientIP(r))
}

func TestRenderErrorHidesInternals(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		RenderError(zap.NewNop(), w, r, errors.New("connection refused to 10.0.0.5"))
	})
	apitest.New().
		Handler(handler).
		Get("/").
		Expect(t).
		Status(http.StatusInternalServerError).
		Body(`{"error":"server_error"}`).
		End()
}

type fakeAuthenticator struct {
	principal *bearer.Principal
	decision  *ratelimit.Decision
	err       error
	got       *bearer.Request
}

func (f *fakeAuthenticator) Authenticate(_ context.Context, req *bearer.Request) (*bearer.Principal, *ratelimit.Decision, error) {
	f.got = req
	return f.principal, f.decision, f.err
}

func protected(a Authenticator, scopes ...scope.Scope) http.Handler {
	return Bearer(zap.NewNop(), a, scopes...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFromContext(r.Context())
		if !ok {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		_, _ = w.Write([]byte(p.UserID))
	}))
}

func TestBearerMissingToken(t *testing.T) {
	apitest.New().
		Handler(protected(&fakeAuthenticator{})).
		Get("/oauth/userinfo").
		Expect(t).
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate", `Bearer realm="oauthd"`).
		Body(`{"error":"invalid_token","error_description":"missing bearer token"}`).
		End()
}

func TestBearerSuccess(t *testing.T) {
	fake := &fakeAuthenticator{
		principal: &bearer.Principal{UserID: "42"},
		decision:  &ratelimit.Decision{Allowed: true, Limit: 5, Remaining: 4},
	}
	apitest.New().
		Handler(protected(fake, scope.Read)).
		Get("/oauth/userinfo").
		Header("Authorization", "Bearer abc").
		Header("User-Agent", "apitest").
		Expect(t).
		Status(http.StatusOK).
		Header("X-RateLimit-Limit", "5").
		Header("X-RateLimit-Remaining", "4").
		Body("42").
		End()
	assert.Equal(t, "abc", fake.got.Token)
	assert.Equal(t, scope.Set{scope.Read}, fake.got.Required)
	assert.Equal(t, "/oauth/userinfo", fake.got.Endpoint)
	assert.Equal(t, "apitest", fake.got.UserAgent)
}

func TestBearerUnlimitedApplication(t *testing.T) {
	fake := &fakeAuthenticator{
		principal: &bearer.Principal{UserID: "42"},
		decision:  &ratelimit.Decision{Allowed: true, Unlimited: true},
	}
	apitest.New().
		Handler(protected(fake)).
		Get("/oauth/userinfo").
		Header("Authorization", "Bearer abc").
		Expect(t).
		Status(http.StatusOK).
		Header("X-RateLimit-Limit", "unlimited").
		Header("X-RateLimit-Remaining", "unlimited").
		HeaderNotPresent("X-RateLimit-Reset").
		End()
}

func TestBearerRateLimited(t *testing.T) {
	fake := &fakeAuthenticator{
		decision: &ratelimit.Decision{Limit: 5, Remaining: 0, RetryAfter: 60},
		err:      oauth.RateLimited(60),
	}
	apitest.New().
		Handler(protected(fake)).
		Get("/oauth/userinfo").
		Header("Authorization", "Bearer abc").
		Expect(t).
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "60").
		Header("X-RateLimit-Remaining", "0").
		HeaderNotPresent("WWW-Authenticate").
		Body(`{"error":"rate_limited","error_description":"rate limit exceeded","retryAfter":60}`).
		End()
}

func TestBearerInsufficientScope(t *testing.T) {
	fake := &fakeAuthenticator{err: oauth.InsufficientScope([]string{"wallet:send"})}
	apitest.New().
		Handler(protected(fake, scope.WalletSend)).
		Get("/wallet").
		Header("Authorization", "Bearer abc").
		Expect(t).
		Status(http.StatusUnauthorized).
		Header("WWW-Authenticate",
			`Bearer realm="oauthd", error="insufficient_scope", error_description="missing scopes: wallet:send", scope="wallet:send"`).
		Body(`{"error":"insufficient_scope","error_description":"missing scopes: wallet:send","missing":["wallet:send"]}`).
		End()
}

func TestRequireSession(t *testing.T) {
	handler := RequireSession(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(UserIDFromContext(r.Context())))
	}))
	apitest.New().
		Handler(handler).
		Get("/oauth/grants").
		Expect(t).
		Status(http.StatusUnauthorized).
		Body(`{"error":"unauthenticated","error_description":"authentication required"}`).
		End()

	withUser := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), UserIDContextKey, "7")))
	})
	apitest.New().
		Handler(withUser).
		Get("/oauth/grants").
		Expect(t).
		Status(http.StatusOK).
		Body("7").
		End()
}
