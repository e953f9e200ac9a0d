package tokens

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/dbtest"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/instrumentation"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zaptest"
	"golang.org/x/crypto/bcrypt"
)

const (
	verifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	challenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
	secret    = "correct horse battery staple"
)

type EngineTestSuite struct {
	suite.Suite
	store  *db.DataStore
	engine *Engine
	app    *tables.ApplicationTable
	client ClientCredentials
}

func (s *EngineTestSuite) newEngine(rotate bool) *Engine {
	log := zaptest.NewLogger(s.T())
	dispatcher := events.NewDispatcher(log)
	dispatcher.Register(db.BootstrapListeners(s.store.Auditor(), log)...)
	hasher := application.BcryptHasher{Cost: bcrypt.MinCost}
	apps := application.NewApplicationSevice(log, s.store, dispatcher, hasher, nil)
	return NewEngine(log, s.store, apps, hasher, dispatcher, instrumentation.NewNoop(), &Settings{
		AccessTokenExpiry:   2 * time.Hour,
		RefreshTokenExpiry:  30 * 24 * time.Hour,
		RotateRefreshTokens: rotate,
	})
}

func (s *EngineTestSuite) SetupTest() {
	s.store = dbtest.NewStore(s.T())
	hash, err := application.BcryptHasher{Cost: bcrypt.MinCost}.Hash(secret)
	s.Require().NoError(err)
	s.app = dbtest.SeedApplication(s.T(), s.store, "client-a", func(a *tables.ApplicationTable) {
		a.ClientSecret = &hash
		a.Scopes = "read wallet_read"
	})
	s.client = ClientCredentials{ClientID: "client-a", ClientSecret: secret}
	s.engine = s.newEngine(true)
}

// seedCode stores a code as the authorization flow would
func (s *EngineTestSuite) seedCode(value string, mutate func(c *tables.AuthorizationCodeTable)) {
	c, m := challenge, "S256"
	code := &tables.AuthorizationCodeTable{
		CodeHash:            generator.Hash(value),
		UserID:              "user-1",
		ApplicationID:       s.app.ID,
		RedirectURI:         "https://a/cb",
		Scopes:              "read",
		CodeChallenge:       &c,
		CodeChallengeMethod: &m,
		ExpiresAt:           time.Now().Add(10 * time.Minute),
	}
	if mutate != nil {
		mutate(code)
	}
	_, err := s.store.InsertAuthorizationCode(context.Background(), code)
	s.Require().NoError(err)
}

func (s *EngineTestSuite) exchange(code string) (*Response, error) {
	return s.engine.Exchange(context.Background(), &Request{
		GrantType:    "authorization_code",
		Client:       s.client,
		Code:         code,
		RedirectURI:  "https://a/cb",
		CodeVerifier: verifier,
	})
}

func (s *EngineTestSuite) refresh(engine *Engine, token string) (*Response, error) {
	return engine.Exchange(context.Background(), &Request{
		GrantType:    "refresh_token",
		Client:       s.client,
		RefreshToken: token,
	})
}

func (s *EngineTestSuite) accessToken(value string) *tables.AccessTokenTable {
	t, err := s.store.AccessTokenByHash(context.Background(), generator.Hash(value))
	s.Require().NoError(err)
	return t
}

func (s *EngineTestSuite) TestExchangeIssuesBearerPair() {
	s.seedCode("code-1", nil)
	res, err := s.exchange("code-1")
	s.Require().NoError(err)
	s.Equal("Bearer", res.TokenType)
	s.Equal(7200, res.ExpiresIn)
	s.Equal("read", res.Scope)
	s.NotEmpty(res.AccessToken)
	s.NotEmpty(res.RefreshToken)

	access := s.accessToken(res.AccessToken)
	s.Equal("user-1", access.UserID)
	s.False(access.Revoked)
	s.WithinDuration(time.Now().Add(2*time.Hour), access.ExpiresAt, time.Minute)
}

func (s *EngineTestSuite) TestCodeIsSingleUseAndReplayRevokesFamily() {
	s.seedCode("code-1", nil)
	first, err := s.exchange("code-1")
	s.Require().NoError(err)

	_, err = s.exchange("code-1")
	s.ErrorIs(err, oauth.ErrInvalidGrant)
	s.True(s.accessToken(first.AccessToken).Revoked)
}

func (s *EngineTestSuite) TestConcurrentRedemptionHasExactlyOneWinner() {
	s.seedCode("code-race", nil)
	const attempts = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, losses := 0, 0
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.exchange("code-race")
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			if oauth.As(err).Kind == oauth.KindInvalidGrant {
				losses++
			}
		}()
	}
	wg.Wait()
	s.Equal(1, wins)
	s.Equal(attempts-1, losses)
}

func (s *EngineTestSuite) TestPKCE() {
	tests := []struct {
		name     string
		verifier string
	}{
		{"missing verifier", ""},
		{"wrong verifier", "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXX"},
		{"challenge used as verifier", challenge},
	}
	for i, tt := range tests {
		s.Run(tt.name, func() {
			value := "pkce-" + string(rune('a'+i))
			s.seedCode(value, nil)
			_, err := s.engine.ExchangeAuthorizationCode(context.Background(), &CodeExchange{
				Client:       s.client,
				Code:         value,
				RedirectURI:  "https://a/cb",
				CodeVerifier: tt.verifier,
			})
			s.ErrorIs(err, oauth.ErrInvalidGrant)
		})
	}
}

func (s *EngineTestSuite) TestPlainChallenge() {
	plain := "a-plain-verifier-that-is-long-enough-to-pass-the-check"
	s.seedCode("code-plain", func(c *tables.AuthorizationCodeTable) {
		m := "plain"
		c.CodeChallenge = &plain
		c.CodeChallengeMethod = &m
	})
	_, err := s.engine.ExchangeAuthorizationCode(context.Background(), &CodeExchange{
		Client:       s.client,
		Code:         "code-plain",
		RedirectURI:  "https://a/cb",
		CodeVerifier: plain,
	})
	s.NoError(err)
}

func (s *EngineTestSuite) TestRedirectMustMatchExactly() {
	s.seedCode("code-1", nil)
	_, err := s.engine.ExchangeAuthorizationCode(context.Background(), &CodeExchange{
		Client:       s.client,
		Code:         "code-1",
		RedirectURI:  "https://a/cb/",
		CodeVerifier: verifier,
	})
	s.ErrorIs(err, oauth.ErrInvalidGrant)
}

func (s *EngineTestSuite) TestExpiredCode() {
	s.seedCode("code-old", func(c *tables.AuthorizationCodeTable) {
		c.ExpiresAt = time.Now().Add(-time.Second)
	})
	_, err := s.exchange("code-old")
	s.ErrorIs(err, oauth.ErrInvalidGrant)
}

func (s *EngineTestSuite) TestCodeOfAnotherClient() {
	other := dbtest.SeedApplication(s.T(), s.store, "client-b", func(a *tables.ApplicationTable) {
		a.IsConfidential = false
	})
	s.seedCode("code-1", func(c *tables.AuthorizationCodeTable) {
		c.ApplicationID = other.ID
	})
	_, err := s.exchange("code-1")
	s.ErrorIs(err, oauth.ErrInvalidGrant)
}

func (s *EngineTestSuite) TestClientAuthentication() {
	s.seedCode("code-1", nil)
	s.client.ClientSecret = "wrong"
	_, err := s.exchange("code-1")
	s.ErrorIs(err, oauth.ErrInvalidClient)
	s.Equal(401, oauth.As(err).Status())

	s.client = ClientCredentials{ClientID: "unknown", ClientSecret: secret}
	_, err = s.exchange("code-1")
	s.ErrorIs(err, oauth.ErrInvalidClient)

	s.client = ClientCredentials{ClientID: "client-a", ClientSecret: secret}
	_, err = s.store.SetApplicationSuspension(context.Background(), s.app.ID, true, nil)
	s.Require().NoError(err)
	_, err = s.exchange("code-1")
	s.ErrorIs(err, oauth.ErrInvalidClient)
}

func (s *EngineTestSuite) TestUnsupportedGrantType() {
	_, err := s.engine.Exchange(context.Background(), &Request{GrantType: "password", Client: s.client})
	s.Equal("unsupported_grant_type", oauth.As(err).Code())
	_, err = s.engine.Exchange(context.Background(), &Request{Client: s.client})
	s.ErrorIs(err, oauth.ErrValidation)
}

func (s *EngineTestSuite) TestRotatingRefresh() {
	s.seedCode("code-1", nil)
	first, err := s.exchange("code-1")
	s.Require().NoError(err)

	second, err := s.refresh(s.engine, first.RefreshToken)
	s.Require().NoError(err)
	s.NotEqual(first.RefreshToken, second.RefreshToken)
	s.NotEqual(first.AccessToken, second.AccessToken)
	s.Equal("read", second.Scope)
	s.True(s.accessToken(first.AccessToken).Revoked)
	s.False(s.accessToken(second.AccessToken).Revoked)

	// presenting the consumed value again burns the whole family
	_, err = s.refresh(s.engine, first.RefreshToken)
	s.ErrorIs(err, oauth.ErrInvalidGrant)
	s.True(s.accessToken(second.AccessToken).Revoked)
	_, err = s.refresh(s.engine, second.RefreshToken)
	s.ErrorIs(err, oauth.ErrInvalidGrant)
}

func (s *EngineTestSuite) TestLegacyRefreshKeepsValue() {
	legacy := s.newEngine(false)
	s.seedCode("code-1", nil)
	first, err := s.exchange("code-1")
	s.Require().NoError(err)

	second, err := s.refresh(legacy, first.RefreshToken)
	s.Require().NoError(err)
	s.Equal(first.RefreshToken, second.RefreshToken)
	s.True(s.accessToken(first.AccessToken).Revoked)
	s.False(s.accessToken(second.AccessToken).Revoked)

	third, err := s.refresh(legacy, first.RefreshToken)
	s.Require().NoError(err)
	s.True(s.accessToken(second.AccessToken).Revoked)
	s.False(s.accessToken(third.AccessToken).Revoked)
}

func (s *EngineTestSuite) TestRefreshChecks() {
	_, err := s.refresh(s.engine, "nope")
	s.ErrorIs(err, oauth.ErrInvalidGrant)

	s.seedCode("code-1", nil)
	first, err := s.exchange("code-1")
	s.Require().NoError(err)
	s.engine.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }
	_, err = s.refresh(s.engine, first.RefreshToken)
	s.ErrorIs(err, oauth.ErrInvalidGrant)
}

func (s *EngineTestSuite) TestRefreshNarrowsToApplicationScopes() {
	s.seedCode("code-1", func(c *tables.AuthorizationCodeTable) {
		c.Scopes = "read wallet_read"
	})
	first, err := s.exchange("code-1")
	s.Require().NoError(err)
	s.Equal("read wallet:read", first.Scope)

	entry, err := s.store.ApplicationByID(context.Background(), s.app.ID)
	s.Require().NoError(err)
	entry.Scopes = "read"
	s.Require().NoError(s.store.UpdateApplication(context.Background(), entry))

	second, err := s.refresh(s.engine, first.RefreshToken)
	s.Require().NoError(err)
	s.Equal("read", second.Scope)
}

func (s *EngineTestSuite) TestRevoke() {
	ctx := context.Background()
	s.NoError(s.engine.Revoke(ctx, &RevokeRequest{Client: s.client, Token: "unknown"}))

	s.seedCode("code-1", nil)
	first, err := s.exchange("code-1")
	s.Require().NoError(err)
	s.Require().NoError(s.engine.Revoke(ctx, &RevokeRequest{
		Client:        s.client,
		Token:         first.RefreshToken,
		TokenTypeHint: "refresh_token",
	}))
	s.True(s.accessToken(first.AccessToken).Revoked)
	_, err = s.refresh(s.engine, first.RefreshToken)
	s.ErrorIs(err, oauth.ErrInvalidGrant)

	err = s.engine.Revoke(ctx, &RevokeRequest{Client: ClientCredentials{ClientID: "client-a"}, Token: "x"})
	s.ErrorIs(err, oauth.ErrInvalidClient)
}

func (s *EngineTestSuite) TestRevokeAccessToken() {
	ctx := context.Background()
	s.seedCode("code-1", nil)
	first, err := s.exchange("code-1")
	s.Require().NoError(err)
	s.Require().NoError(s.engine.Revoke(ctx, &RevokeRequest{Client: s.client, Token: first.AccessToken}))
	s.True(s.accessToken(first.AccessToken).Revoked)

	// the refresh token survives an access token revocation
	_, err = s.refresh(s.engine, first.RefreshToken)
	s.NoError(err)
}

func (s *EngineTestSuite) TestPurgeExpired() {
	s.seedCode("code-old", func(c *tables.AuthorizationCodeTable) {
		c.ExpiresAt = time.Now().Add(-time.Hour)
	})
	s.seedCode("code-new", nil)
	codes, _, err := s.engine.PurgeExpired(context.Background(), time.Now())
	s.Require().NoError(err)
	s.Equal(int64(1), codes)
	_, err = s.exchange("code-new")
	s.NoError(err)
}

func TestEngineSuite(t *testing.T) {
	suite.Run(t, new(EngineTestSuite))
}
