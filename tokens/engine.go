package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/events/event"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/scope"
	"go.uber.org/zap"
)

type grantHandler func(ctx context.Context, req *Request) (*Response, error)

// Engine serves the token endpoint
type Engine struct {
	log        *zap.Logger
	store      Store
	supplier   ApplicationSupplier
	hasher     application.SecretHasher
	dispatcher Dispatcher
	metrics    Metrics
	issuer     *TokenIssuer
	rotate     bool
	now        func() time.Time
	grants     map[GrantType]grantHandler
}

func NewEngine(log *zap.Logger,
	store Store,
	supplier ApplicationSupplier,
	hasher application.SecretHasher,
	dispatcher Dispatcher,
	metrics Metrics,
	settings *Settings) *Engine {
	e := &Engine{
		log:        log,
		store:      store,
		supplier:   supplier,
		hasher:     hasher,
		dispatcher: dispatcher,
		metrics:    metrics,
		issuer:     NewIssuer(settings),
		rotate:     settings.RotateRefreshTokens,
		now:        time.Now,
	}
	e.grants = map[GrantType]grantHandler{
		GrantAuthorizationCode: func(ctx context.Context, req *Request) (*Response, error) {
			return e.ExchangeAuthorizationCode(ctx, &CodeExchange{
				Client:       req.Client,
				Code:         req.Code,
				RedirectURI:  req.RedirectURI,
				CodeVerifier: req.CodeVerifier,
			})
		},
		GrantRefreshToken: func(ctx context.Context, req *Request) (*Response, error) {
			return e.RefreshAccessToken(ctx, &RefreshExchange{
				Client:       req.Client,
				RefreshToken: req.RefreshToken,
			})
		},
	}
	return e
}

// Exchange dispatches on grant_type
func (e *Engine) Exchange(ctx context.Context, req *Request) (*Response, error) {
	if req.GrantType == "" {
		return nil, oauth.InvalidRequest("grant_type is required")
	}
	handler, ok := e.grants[GrantType(req.GrantType)]
	if !ok {
		return nil, oauth.UnsupportedGrantType(req.GrantType)
	}
	return handler(ctx, req)
}

// ExpiresIn is the lifetime of issued access tokens in seconds
func (e *Engine) ExpiresIn() int {
	return e.issuer.ExpiresIn()
}

// authenticateClient resolves the calling application, confidential clients must prove their secret
func (e *Engine) authenticateClient(ctx context.Context, creds ClientCredentials) (*application.Application, error) {
	if creds.ClientID == "" {
		return nil, oauth.InvalidClient("client authentication failed")
	}
	app, err := e.supplier.ByClientID(ctx, creds.ClientID)
	if err != nil {
		if errors.Is(err, oauth.ErrNotFound) {
			return nil, oauth.InvalidClient("client authentication failed")
		}
		e.log.Error("unable to load application", zap.Error(err))
		return nil, oauth.As(err)
	}
	if !app.IsUsable() {
		return nil, oauth.InvalidClient("application is not available")
	}
	if app.IsConfidential() && !app.ValidateClientSecret(e.hasher, creds.ClientSecret) {
		e.log.Info("client secret mismatch", zap.String("client_id", app.ClientID()))
		return nil, oauth.InvalidClient("client authentication failed")
	}
	return app, nil
}

// revokeFamily is the answer to a replayed code or refresh token
func (e *Engine) revokeFamily(
	ctx context.Context,
	app *application.Application,
	userID string,
	familyID uuid.UUID,
	tokenType string,
) {
	affected, err := e.store.RevokeFamily(ctx, familyID)
	if err != nil {
		e.log.Error("unable to revoke token family", zap.String("family_id", familyID.String()), zap.Error(err))
		return
	}
	e.log.Warn("token reuse detected, family revoked",
		zap.String("client_id", app.ClientID()),
		zap.String("token_type", tokenType),
		zap.String("family_id", familyID.String()),
		zap.Int64("revoked_tokens", affected))
	e.dispatcher.Dispatch(ctx, &event.TokenReuseDetected{
		ApplicationID:  app.ID(),
		UserID:         userID,
		FamilyID:       familyID,
		TokenType:      tokenType,
		TokensAffected: affected,
	})
}

// effectiveScopes never lets a token outgrow what the application is registered for today
func effectiveScopes(stored string, app *application.Application) (scope.Set, error) {
	scopes := scope.FromStorage(stored).Intersect(app.Scopes())
	if len(scopes) == 0 {
		return nil, oauth.InvalidGrant("granted scopes are no longer available")
	}
	return scopes, nil
}

// ExchangeAuthorizationCode redeems a code exactly once
// https://datatracker.ietf.org/doc/html/rfc6749#section-4.1.3
func (e *Engine) ExchangeAuthorizationCode(ctx context.Context, req *CodeExchange) (*Response, error) {
	app, err := e.authenticateClient(ctx, req.Client)
	if err != nil {
		return nil, err
	}
	if req.Code == "" {
		return nil, oauth.InvalidRequest("code is required")
	}
	code, err := e.store.AuthorizationCodeByHash(ctx, generator.Hash(req.Code))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, oauth.InvalidGrant("invalid authorization code")
		}
		e.log.Error("unable to load authorization code", zap.Error(err))
		return nil, oauth.Internal(err)
	}
	if code.ApplicationID != app.ID() {
		return nil, oauth.InvalidGrant("invalid authorization code")
	}
	if code.Used {
		e.metrics.RecordCodeReuseDetected(ctx)
		if code.FamilyID != nil {
			e.revokeFamily(ctx, app, code.UserID, *code.FamilyID, TokenTypeCode)
		}
		return nil, oauth.InvalidGrant("authorization code already used")
	}
	now := e.now()
	if !now.Before(code.ExpiresAt) {
		return nil, oauth.InvalidGrant("authorization code expired")
	}
	if req.RedirectURI != code.RedirectURI {
		return nil, oauth.InvalidGrant("redirect_uri does not match the authorization request")
	}
	method := ""
	if code.CodeChallenge != nil {
		method = string(oauth.ChallengePlain)
		if code.CodeChallengeMethod != nil {
			method = *code.CodeChallengeMethod
		}
		if req.CodeVerifier == "" {
			e.metrics.RecordPKCEValidationFailed(ctx, method)
			return nil, oauth.InvalidGrant("code_verifier is required")
		}
		if !oauth.VerifyChallenge(oauth.ChallengeMethod(method), *code.CodeChallenge, req.CodeVerifier) {
			e.metrics.RecordPKCEValidationFailed(ctx, method)
			return nil, oauth.InvalidGrant("code_verifier does not match the code_challenge")
		}
	}
	scopes, err := effectiveScopes(code.Scopes, app)
	if err != nil {
		return nil, err
	}

	familyID := uuid.New()
	// commit point, exactly one request gets past this
	if err := e.store.RedeemAuthorizationCode(ctx, code.ID, familyID, now); err != nil {
		if errors.Is(err, db.ErrConflict) {
			e.metrics.RecordCodeReuseDetected(ctx)
			return nil, oauth.InvalidGrant("authorization code already used")
		}
		e.log.Error("unable to redeem authorization code", zap.Error(err))
		return nil, oauth.Internal(err)
	}

	accessValue, access := e.issuer.IssueAccessToken(code.UserID, app.ID(), familyID, scopes, now)
	refreshValue, refresh := e.issuer.IssueRefreshToken(code.UserID, app.ID(), familyID, scopes, now)
	if _, _, err := e.store.InsertTokenPair(ctx, access, refresh); err != nil {
		e.log.Error("unable to store issued tokens", zap.Error(err))
		return nil, oauth.Internal(err)
	}
	e.metrics.RecordCodeExchange(ctx, app.ClientID(), method)
	e.log.Info("authorization code exchanged",
		zap.String("client_id", app.ClientID()),
		zap.String("family_id", familyID.String()))
	return e.issuer.response(accessValue, refreshValue, scopes), nil
}
