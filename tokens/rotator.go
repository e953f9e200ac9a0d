package tokens

import (
	"context"
	"errors"

	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/oauth"
	"go.uber.org/zap"
)

// RefreshAccessToken mints a new access token for a refresh token,
// rotating the refresh value or repointing it depending on the policy
// https://datatracker.ietf.org/doc/html/rfc6749#section-6
func (e *Engine) RefreshAccessToken(ctx context.Context, req *RefreshExchange) (*Response, error) {
	app, err := e.authenticateClient(ctx, req.Client)
	if err != nil {
		return nil, err
	}
	if req.RefreshToken == "" {
		return nil, oauth.InvalidRequest("refresh_token is required")
	}
	old, err := e.store.RefreshTokenByHash(ctx, generator.Hash(req.RefreshToken))
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, oauth.InvalidGrant("invalid refresh token")
		}
		e.log.Error("unable to load refresh token", zap.Error(err))
		return nil, oauth.Internal(err)
	}
	if old.ApplicationID != app.ID() {
		return nil, oauth.InvalidGrant("invalid refresh token")
	}
	if old.Revoked {
		if e.rotate {
			e.metrics.RecordTokenReuseDetected(ctx)
			e.revokeFamily(ctx, app, old.UserID, old.FamilyID, TokenTypeRefresh)
		}
		return nil, oauth.InvalidGrant("refresh token has been revoked")
	}
	now := e.now()
	if !now.Before(old.ExpiresAt) {
		return nil, oauth.InvalidGrant("refresh token expired")
	}
	scopes, err := effectiveScopes(old.Scopes, app)
	if err != nil {
		return nil, err
	}

	accessValue, access := e.issuer.IssueAccessToken(old.UserID, app.ID(), old.FamilyID, scopes, now)
	if !e.rotate {
		if _, err := e.store.RepointRefreshToken(ctx, old, access); err != nil {
			if errors.Is(err, db.ErrConflict) {
				return nil, oauth.InvalidGrant("refresh token is already being used")
			}
			e.log.Error("unable to repoint refresh token", zap.Error(err))
			return nil, oauth.Internal(err)
		}
		e.metrics.RecordTokenRefresh(ctx, app.ClientID(), false)
		return e.issuer.response(accessValue, req.RefreshToken, scopes), nil
	}

	refreshValue, refresh := e.issuer.IssueRefreshToken(old.UserID, app.ID(), old.FamilyID, scopes, now)
	if _, _, err := e.store.RotateRefreshToken(ctx, old, access, refresh); err != nil {
		if errors.Is(err, db.ErrConflict) {
			// somebody else consumed it between our read and the update
			e.metrics.RecordTokenReuseDetected(ctx)
			e.revokeFamily(ctx, app, old.UserID, old.FamilyID, TokenTypeRefresh)
			return nil, oauth.InvalidGrant("refresh token has been revoked")
		}
		e.log.Error("unable to rotate refresh token", zap.Error(err))
		return nil, oauth.Internal(err)
	}
	e.metrics.RecordTokenRefresh(ctx, app.ClientID(), true)
	return e.issuer.response(accessValue, refreshValue, scopes), nil
}
