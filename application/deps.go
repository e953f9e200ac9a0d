package application

import (
	"context"

	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
	"golang.org/x/crypto/bcrypt"
)

//go:generate mockery --name Store
type Store interface {
	CreateApplication(ctx context.Context, app *tables.ApplicationTable) (int, error)
	ApplicationByID(ctx context.Context, id int) (*tables.ApplicationTable, error)
	ApplicationByClientID(ctx context.Context, clientID string) (*tables.ApplicationTable, error)
	ApplicationsByOwner(
		ctx context.Context,
		ownerUserID string,
		opts db.ListOptions,
	) ([]*tables.ApplicationTable, int, error)
	UpdateApplication(ctx context.Context, app *tables.ApplicationTable) error
	SetApplicationSecret(ctx context.Context, id int, secretHash string) error
	DeleteApplication(ctx context.Context, id int) error
}

//go:generate mockery --name Dispatcher
type Dispatcher interface {
	Dispatch(ctx context.Context, event events.Event)
}

// SecretHasher is the black box used for client secrets
type SecretHasher interface {
	Hash(secret string) (string, error)
	Compare(hash string, secret string) bool
}

// BcryptHasher salts and hashes with bcrypt
type BcryptHasher struct {
	Cost int
}

func (b BcryptHasher) Hash(secret string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(secret), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

func (BcryptHasher) Compare(hash string, secret string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)) == nil
}
