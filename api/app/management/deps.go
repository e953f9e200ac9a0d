package management

import (
	"context"
	"time"

	"github.com/stackernews/oauthd/manage"
)

// ApplicationAdministration is the operator surface over every registered application
type ApplicationAdministration interface {
	List(ctx context.Context, page int, pageSize int, q string, sort string) (*manage.PaginationResponse, error)
	ByClientID(ctx context.Context, clientID string) (*manage.ApplicationDTO, error)
	Approve(ctx context.Context, clientID string) error
	Suspend(ctx context.Context, clientID string, reason string) error
	Unsuspend(ctx context.Context, clientID string) error
	SetRateLimits(ctx context.Context, clientID string, rpm *int, daily *int) error
	Delete(ctx context.Context, clientID string) error
	UsageSince(ctx context.Context, clientID string, since time.Time) (int64, error)
}
