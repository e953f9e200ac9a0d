package bearer

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"

	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/dbtest"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/instrumentation"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/ratelimit"
	"github.com/stackernews/oauthd/scope"
	"github.com/stackernews/oauthd/tokens"
	"github.com/stackernews/oauthd/usage"
)

type clock struct {
	at time.Time
}

func (c *clock) now() time.Time {
	return c.at
}

type AuthenticatorTestSuite struct {
	suite.Suite
	store  *db.DataStore
	app    *tables.ApplicationTable
	clock  *clock
	usage  *usage.Logger
	auth   *Authenticator
	closed bool
}

func (s *AuthenticatorTestSuite) SetupTest() {
	log := zaptest.NewLogger(s.T())
	s.store = dbtest.NewStore(s.T())
	s.app = dbtest.SeedApplication(s.T(), s.store, "client-a", func(a *tables.ApplicationTable) {
		a.Scopes = "read wallet_read"
	})
	s.clock = &clock{at: time.Now()}
	metrics := instrumentation.NewNoop()
	apps := application.NewApplicationSevice(log, s.store, events.NewDispatcher(log),
		application.BcryptHasher{Cost: bcrypt.MinCost}, nil)
	limiter := ratelimit.NewLimiter(log, s.store, metrics).WithClock(s.clock.now)
	s.usage = usage.NewLogger(log, s.store, metrics, nil)
	s.closed = false
	s.auth = NewAuthenticator(log, s.store, apps, limiter, s.usage, metrics).WithClock(s.clock.now)
}

func (s *AuthenticatorTestSuite) TearDownTest() {
	if !s.closed {
		s.Require().NoError(s.usage.Close(context.Background()))
	}
}

func (s *AuthenticatorTestSuite) mint(scopes scope.Set) string {
	issuer := tokens.NewIssuer(&tokens.Settings{})
	family := uuid.New()
	value, access := issuer.IssueAccessToken("user-1", s.app.ID, family, scopes, s.clock.at)
	_, refresh := issuer.IssueRefreshToken("user-1", s.app.ID, family, scopes, s.clock.at)
	_, _, err := s.store.InsertTokenPair(context.Background(), access, refresh)
	s.Require().NoError(err)
	return value
}

func (s *AuthenticatorTestSuite) call(token string, required ...scope.Scope) (*Principal, *ratelimit.Decision, error) {
	return s.auth.Authenticate(context.Background(), &Request{
		Token:     token,
		Required:  scope.Set(required),
		IP:        "10.0.0.1",
		UserAgent: "suite",
		Endpoint:  "/oauth/userinfo",
		Method:    "GET",
	})
}

func (s *AuthenticatorTestSuite) TestValidToken() {
	token := s.mint(scope.Set{scope.Read})
	p, d, err := s.call(token, scope.Read)
	s.Require().NoError(err)
	s.Equal("user-1", p.UserID)
	s.Equal("client-a", p.ClientID())
	s.Equal(scope.Set{scope.Read}, p.Scopes)
	s.True(d.Unlimited)

	s.Require().NoError(s.usage.Close(context.Background()))
	s.closed = true
	count, err := s.store.UsageCountSince(context.Background(), s.app.ID, s.clock.at.Add(-time.Minute))
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *AuthenticatorTestSuite) TestTouchesToken() {
	token := s.mint(scope.Set{scope.Read})
	p, _, err := s.call(token)
	s.Require().NoError(err)
	stored, err := s.store.AccessTokenByHash(context.Background(), generator.Hash(token))
	s.Require().NoError(err)
	s.Equal(p.AccessTokenID, stored.ID)
	s.Require().NotNil(stored.LastUsedAt)
	s.Require().NotNil(stored.LastUsedIP)
	s.Equal("10.0.0.1", *stored.LastUsedIP)
}

func (s *AuthenticatorTestSuite) TestInvalidTokens() {
	token := s.mint(scope.Set{scope.Read})

	_, _, err := s.call("")
	s.ErrorIs(err, oauth.ErrInvalidToken)
	_, _, err = s.call("not-a-token")
	s.ErrorIs(err, oauth.ErrInvalidToken)

	s.clock.at = s.clock.at.Add(3 * time.Hour)
	_, _, err = s.call(token)
	s.ErrorIs(err, oauth.ErrInvalidToken)
}

func (s *AuthenticatorTestSuite) TestRevokedToken() {
	token := s.mint(scope.Set{scope.Read})
	stored, err := s.store.AccessTokenByHash(context.Background(), generator.Hash(token))
	s.Require().NoError(err)
	s.Require().NoError(s.store.RevokeAccessToken(context.Background(), stored.ID))
	_, _, err = s.call(token)
	s.ErrorIs(err, oauth.ErrInvalidToken)
}

func (s *AuthenticatorTestSuite) TestSuspensionCascades() {
	token := s.mint(scope.Set{scope.Read})
	_, _, err := s.call(token)
	s.Require().NoError(err)

	_, err = s.store.SetApplicationSuspension(context.Background(), s.app.ID, true, nil)
	s.Require().NoError(err)
	_, _, err = s.call(token)
	s.ErrorIs(err, oauth.ErrInvalidToken)

	// unsuspending does not bring revoked tokens back
	_, err = s.store.SetApplicationSuspension(context.Background(), s.app.ID, false, nil)
	s.Require().NoError(err)
	_, _, err = s.call(token)
	s.ErrorIs(err, oauth.ErrInvalidToken)
}

func (s *AuthenticatorTestSuite) TestUnapprovedApplication() {
	token := s.mint(scope.Set{scope.Read})
	s.Require().NoError(s.store.SetApplicationApproval(context.Background(), s.app.ID, false))
	_, _, err := s.call(token)
	s.ErrorIs(err, oauth.ErrInvalidToken)
}

func (s *AuthenticatorTestSuite) TestInsufficientScope() {
	token := s.mint(scope.Set{scope.Read})
	_, _, err := s.call(token, scope.Read, scope.WalletRead)
	s.Require().ErrorIs(err, oauth.ErrInsufficientScope)
	e := oauth.As(err)
	s.Equal(401, e.Status())
	s.Equal([]string{"wallet:read"}, e.Missing)
}

func (s *AuthenticatorTestSuite) TestNarrowedApplicationScopes() {
	token := s.mint(scope.Set{scope.Read, scope.WalletRead})
	p, _, err := s.call(token, scope.WalletRead)
	s.Require().NoError(err)
	s.Equal(scope.Set{scope.Read, scope.WalletRead}, p.Scopes)

	s.app.Scopes = "read"
	s.Require().NoError(s.store.UpdateApplication(context.Background(), s.app))

	_, _, err = s.call(token, scope.WalletRead)
	s.Require().ErrorIs(err, oauth.ErrInsufficientScope)
	s.Equal([]string{"wallet:read"}, oauth.As(err).Missing)

	p, _, err = s.call(token, scope.Read)
	s.Require().NoError(err)
	s.Equal(scope.Set{scope.Read}, p.Scopes)
}

func (s *AuthenticatorTestSuite) TestRateLimit() {
	rpm := 5
	s.Require().NoError(s.store.SetApplicationRateLimits(context.Background(), s.app.ID, &rpm, nil))
	token := s.mint(scope.Set{scope.Read})

	for i := 0; i < 5; i++ {
		_, d, err := s.call(token)
		s.Require().NoError(err)
		s.False(d.Unlimited)
		s.Equal(5, d.Limit)
		s.Equal(4-i, d.Remaining)
	}
	_, d, err := s.call(token)
	s.Require().ErrorIs(err, oauth.ErrRateLimited)
	s.Equal(60, oauth.As(err).RetryAfter)
	s.Equal(0, d.Remaining)

	s.clock.at = s.clock.at.Add(2 * time.Minute)
	_, _, err = s.call(token)
	s.NoError(err)
}

func (s *AuthenticatorTestSuite) TestRateLimitIsCheckedBeforeScopes() {
	rpm := 1
	s.Require().NoError(s.store.SetApplicationRateLimits(context.Background(), s.app.ID, &rpm, nil))
	token := s.mint(scope.Set{scope.Read})

	_, d, err := s.call(token, scope.WalletSend)
	s.ErrorIs(err, oauth.ErrInsufficientScope)
	s.Require().NotNil(d)
	s.Equal(0, d.Remaining)

	_, _, err = s.call(token, scope.WalletSend)
	s.ErrorIs(err, oauth.ErrRateLimited)
}

func TestAuthenticatorSuite(t *testing.T) {
	suite.Run(t, new(AuthenticatorTestSuite))
}

func TestTokenFromHeader(t *testing.T) {
	tests := []struct {
		header string
		token  string
		ok     bool
	}{
		{"Bearer abc", "abc", true},
		{"bearer abc", "abc", true},
		{"Bearer  abc ", "abc", true},
		{"", "", false},
		{"Basic abc", "", false},
		{"Bearer", "", false},
		{"Bearer ", "", false},
		{"Bearer a b", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			token, err := TokenFromHeader(tt.header)
			if !tt.ok {
				assert.ErrorIs(t, err, oauth.ErrInvalidToken)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.token, token)
		})
	}
}
