package oauth

import (
	"context"

	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/authorization"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/tokens"
)

type ApplicationService interface {
	Register(ctx context.Context, ownerUserID string, req *application.RegisterRequest) (*application.Created, error)
	Get(ctx context.Context, id int, ownerUserID string) (*application.Application, error)
	List(ctx context.Context, ownerUserID string, opts db.ListOptions) ([]*application.Application, int, error)
	Update(ctx context.Context, id int, ownerUserID string, req *application.UpdateRequest) (*application.Created, error)
	Delete(ctx context.Context, id int, ownerUserID string) error
}

type AuthorizationService interface {
	Authorize(ctx context.Context, req *authorization.Request, userID string) *authorization.Outcome
	Decide(ctx context.Context, req *authorization.Request, userID string, approved bool) *authorization.Outcome
	Grants(ctx context.Context, userID string) ([]*authorization.Grant, error)
	RevokeGrant(ctx context.Context, userID string, applicationID int) error
}

type TokenEngine interface {
	Exchange(ctx context.Context, req *tokens.Request) (*tokens.Response, error)
	Revoke(ctx context.Context, req *tokens.RevokeRequest) error
}

// Throttle guards the client authenticating endpoints per remote address
type Throttle interface {
	Allow(ip string) (bool, int)
}
