package manage

import (
	"context"
	"errors"
	"time"

	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/events/event"
	"github.com/stackernews/oauthd/sanitize"
	"go.uber.org/zap"
)

var ErrApplicationNotFound = errors.New("application not found")
var ErrInvalidRateLimit = errors.New("rate limits must be positive or unlimited")

//go:generate mockery --name ApplicationStore
type ApplicationStore interface {
	Applications(ctx context.Context, opts db.ListOptions) ([]*tables.ApplicationTable, int, error)
	ApplicationByClientID(ctx context.Context, clientID string) (*tables.ApplicationTable, error)
	SetApplicationApproval(ctx context.Context, id int, approved bool) error
	SetApplicationSuspension(ctx context.Context, id int, suspended bool, reason *string) (int64, error)
	SetApplicationRateLimits(ctx context.Context, id int, rpm *int, daily *int) error
	DeleteApplication(ctx context.Context, id int) error
	UsageCountSince(ctx context.Context, applicationID int, since time.Time) (int64, error)
}

//go:generate mockery --name Dispatcher
type Dispatcher interface {
	Dispatch(ctx context.Context, event events.Event)
}

// ApplicationService is the operator surface over every registered application
type ApplicationService struct {
	store      ApplicationStore
	log        *zap.Logger
	dispatcher Dispatcher
}

func (a *ApplicationService) byClientID(ctx context.Context, clientID string) (*tables.ApplicationTable, error) {
	app, err := a.store.ApplicationByClientID(ctx, clientID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

func (a *ApplicationService) List(
	ctx context.Context,
	page int,
	pageSize int,
	q string,
	sort string,
) (*PaginationResponse, error) {
	apps, total, err := a.store.Applications(
		ctx,
		db.ListOptions{Page: page, PageSize: pageSize, Query: q, Sort: sort},
	)
	if err != nil {
		return nil, err
	}
	dtos := make([]*ApplicationDTO, 0)
	for _, v := range apps {
		dtos = append(dtos, applicationDTOfromDB(v))
	}
	return &PaginationResponse{
		Total:   total,
		Entries: dtos,
	}, nil
}

func (a *ApplicationService) ByClientID(
	ctx context.Context,
	clientID string,
) (*ApplicationDTO, error) {
	app, err := a.byClientID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return applicationDTOfromDB(app), nil
}

// Approve lets a pending application start the authorization flow
func (a *ApplicationService) Approve(ctx context.Context, clientID string) error {
	app, err := a.byClientID(ctx, clientID)
	if err != nil {
		return err
	}
	if app.Approved {
		return nil
	}
	if err := a.store.SetApplicationApproval(ctx, app.ID, true); err != nil {
		return err
	}
	a.log.Info("application approved", zap.String("client_id", clientID))
	a.dispatcher.Dispatch(ctx, &event.ApplicationApproved{
		ApplicationID: app.ID,
		ClientID:      clientID,
	})
	return nil
}

// Suspend blocks an application and revokes its live tokens at once
func (a *ApplicationService) Suspend(ctx context.Context, clientID string, reason string) error {
	app, err := a.byClientID(ctx, clientID)
	if err != nil {
		return err
	}
	var r *string
	if reason != "" {
		r = &reason
	}
	affected, err := a.store.SetApplicationSuspension(ctx, app.ID, true, r)
	if err != nil {
		return err
	}
	a.log.Info("application suspended",
		zap.String("client_id", clientID),
		sanitize.UserInputString("reason", reason),
		zap.Int64("revoked_tokens", affected))
	a.dispatcher.Dispatch(ctx, &event.ApplicationSuspended{
		ApplicationID:  app.ID,
		ClientID:       clientID,
		Reason:         reason,
		TokensAffected: affected,
	})
	return nil
}

func (a *ApplicationService) Unsuspend(ctx context.Context, clientID string) error {
	app, err := a.byClientID(ctx, clientID)
	if err != nil {
		return err
	}
	if !app.Suspended {
		return nil
	}
	if _, err := a.store.SetApplicationSuspension(ctx, app.ID, false, nil); err != nil {
		return err
	}
	a.dispatcher.Dispatch(ctx, &event.ApplicationUnsuspended{
		ApplicationID: app.ID,
		ClientID:      clientID,
	})
	return nil
}

// SetRateLimits sets the request budgets, nil removes a limit
func (a *ApplicationService) SetRateLimits(ctx context.Context, clientID string, rpm *int, daily *int) error {
	if (rpm != nil && *rpm < 1) || (daily != nil && *daily < 1) {
		return ErrInvalidRateLimit
	}
	app, err := a.byClientID(ctx, clientID)
	if err != nil {
		return err
	}
	if err := a.store.SetApplicationRateLimits(ctx, app.ID, rpm, daily); err != nil {
		return err
	}
	a.dispatcher.Dispatch(ctx, &event.ApplicationRateLimitsChanged{
		ApplicationID: app.ID,
		ClientID:      clientID,
		PerMinute:     rpm,
		PerDay:        daily,
	})
	return nil
}

// Delete removes an application regardless of its owner
func (a *ApplicationService) Delete(ctx context.Context, clientID string) error {
	app, err := a.byClientID(ctx, clientID)
	if err != nil {
		return err
	}
	if err := a.store.DeleteApplication(ctx, app.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return ErrApplicationNotFound
		}
		return err
	}
	a.dispatcher.Dispatch(ctx, &event.ApplicationDeleted{
		ApplicationID: app.ID,
		ClientID:      clientID,
		OwnerUserID:   app.OwnerUserID,
	})
	return nil
}

// UsageSince counts the authenticated resource calls of an application
func (a *ApplicationService) UsageSince(ctx context.Context, clientID string, since time.Time) (int64, error) {
	app, err := a.byClientID(ctx, clientID)
	if err != nil {
		return 0, err
	}
	return a.store.UsageCountSince(ctx, app.ID, since)
}

func NewApplicationSevice(store ApplicationStore,
	log *zap.Logger,
	dispatcher Dispatcher) *ApplicationService {

	return &ApplicationService{
		store:      store,
		log:        log,
		dispatcher: dispatcher,
	}
}
