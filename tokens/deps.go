package tokens

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
)

type ApplicationSupplier interface {
	ByClientID(ctx context.Context, clientID string) (*application.Application, error)
}

type CodeRedeemer interface {
	AuthorizationCodeByHash(ctx context.Context, codeHash string) (*tables.AuthorizationCodeTable, error)
	RedeemAuthorizationCode(ctx context.Context, id int, familyID uuid.UUID, now time.Time) error
	DeleteExpiredCodes(ctx context.Context, before time.Time) (int64, error)
}

type TokenStorage interface {
	InsertTokenPair(
		ctx context.Context,
		access *tables.AccessTokenTable,
		refresh *tables.RefreshTokenTable,
	) (int, int, error)
	AccessTokenByHash(ctx context.Context, tokenHash string) (*tables.AccessTokenTable, error)
	RefreshTokenByHash(ctx context.Context, tokenHash string) (*tables.RefreshTokenTable, error)
	RotateRefreshToken(
		ctx context.Context,
		old *tables.RefreshTokenTable,
		access *tables.AccessTokenTable,
		refresh *tables.RefreshTokenTable,
	) (int, int, error)
	RepointRefreshToken(
		ctx context.Context,
		old *tables.RefreshTokenTable,
		access *tables.AccessTokenTable,
	) (int, error)
	RevokeAccessToken(ctx context.Context, id int) error
	RevokeFamily(ctx context.Context, familyID uuid.UUID) (int64, error)
	DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error)
}

//go:generate mockery --name Store
type Store interface {
	CodeRedeemer
	TokenStorage
}

type Dispatcher interface {
	Dispatch(ctx context.Context, event events.Event)
}

// Metrics is the observability collaborator, implemented by instrumentation.Metrics
type Metrics interface {
	RecordCodeExchange(ctx context.Context, clientID, pkceMethod string)
	RecordTokenRefresh(ctx context.Context, clientID string, rotated bool)
	RecordTokenRevocation(ctx context.Context, clientID string)
	RecordPKCEValidationFailed(ctx context.Context, method string)
	RecordCodeReuseDetected(ctx context.Context)
	RecordTokenReuseDetected(ctx context.Context)
}
