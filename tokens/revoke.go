package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/events/event"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/oauth"
	"go.uber.org/zap"
)

// Revoke invalidates a token of the calling client. Unknown tokens and tokens of
// other clients are answered with success as well.
// https://datatracker.ietf.org/doc/html/rfc7009#section-2.2
func (e *Engine) Revoke(ctx context.Context, req *RevokeRequest) error {
	app, err := e.authenticateClient(ctx, req.Client)
	if err != nil {
		return err
	}
	if req.Token == "" {
		return oauth.InvalidRequest("token is required")
	}
	hash := generator.Hash(req.Token)

	lookups := []func() (bool, error){
		func() (bool, error) {
			t, err := e.store.AccessTokenByHash(ctx, hash)
			if err != nil {
				return false, err
			}
			if t.ApplicationID != app.ID() {
				return true, nil
			}
			if err := e.store.RevokeAccessToken(ctx, t.ID); err != nil {
				return false, err
			}
			e.dispatcher.Dispatch(ctx, &event.TokenRevoked{
				ApplicationID: app.ID(),
				UserID:        t.UserID,
				TokenType:     TokenTypeAccess,
			})
			return true, nil
		},
		func() (bool, error) {
			t, err := e.store.RefreshTokenByHash(ctx, hash)
			if err != nil {
				return false, err
			}
			if t.ApplicationID != app.ID() {
				return true, nil
			}
			// a refresh token takes everything minted from the same code with it
			if _, err := e.store.RevokeFamily(ctx, t.FamilyID); err != nil {
				return false, err
			}
			e.dispatcher.Dispatch(ctx, &event.TokenRevoked{
				ApplicationID: app.ID(),
				UserID:        t.UserID,
				TokenType:     TokenTypeRefresh,
			})
			return true, nil
		},
	}
	if req.TokenTypeHint == TokenTypeRefresh {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, lookup := range lookups {
		done, err := lookup()
		if err != nil && !errors.Is(err, db.ErrNotFound) {
			e.log.Error("unable to revoke token", zap.Error(err))
			return oauth.Internal(err)
		}
		if done {
			e.metrics.RecordTokenRevocation(ctx, app.ClientID())
			return nil
		}
	}
	return nil
}

// PurgeExpired removes codes and tokens which expired before the given time
func (e *Engine) PurgeExpired(ctx context.Context, before time.Time) (int64, int64, error) {
	codes, err := e.store.DeleteExpiredCodes(ctx, before)
	if err != nil {
		return 0, 0, err
	}
	tokens, err := e.store.DeleteExpiredTokens(ctx, before)
	if err != nil {
		return codes, 0, err
	}
	e.log.Info("expired codes and tokens purged", zap.Int64("codes", codes), zap.Int64("tokens", tokens))
	e.dispatcher.Dispatch(ctx, &event.TokensPurged{Codes: codes, Tokens: tokens})
	return codes, tokens, nil
}
