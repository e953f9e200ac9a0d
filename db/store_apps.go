package db

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/db/tables"
)

var applicationColumns = []string{
	"id",
	"owner_user_id",
	"name",
	"description",
	"homepage_url",
	"logo_url",
	"client_id",
	"client_secret",
	"redirect_uris",
	"scopes",
	"is_confidential",
	"pkce_required",
	"approved",
	"suspended",
	"suspended_reason",
	"rate_limit_rpm",
	"rate_limit_daily",
	"created_at",
	"updated_at",
}

func (d *DataStore) listApplications(
	ctx context.Context,
	base sq.Sqlizer,
	opts ListOptions,
) ([]*tables.ApplicationTable, int, error) {
	if opts.Page <= 0 {
		opts.Page = 1
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 25
	}
	var c int
	count := d.sq.Select("COUNT(*)").From("applications")
	if base != nil {
		count = count.Where(base)
	}
	applyWhere, err := d.whereFromAdapater("applications", opts.Query)
	if err != nil {
		return nil, 0, err
	}
	count = applyWhere(count)
	err = count.RunWith(d.db).QueryRowContext(ctx).Scan(&c)
	if err != nil {
		return nil, 0, err
	}
	offset := (opts.Page - 1) * opts.PageSize
	if c <= offset {
		return []*tables.ApplicationTable{}, c, nil
	}

	entities := make([]*tables.ApplicationTable, 0)
	q := d.sq.Select(applicationColumns...).From("applications")
	if base != nil {
		q = q.Where(base)
	}
	q = applyWhere(q)
	q = d.orderByFromAdapater(q, "applications", "id DESC", opts)
	q = q.Offset(uint64(offset)).Limit(uint64(opts.PageSize))
	err = d.selectStatement(ctx, &entities, q, nil)
	if err != nil {
		return nil, 0, err
	}
	return entities, c, nil
}

// Applications lists all registered applications
func (d *DataStore) Applications(
	ctx context.Context,
	opts ListOptions,
) ([]*tables.ApplicationTable, int, error) {
	return d.listApplications(ctx, nil, opts)
}

// ApplicationsByOwner lists the applications registered by a user
func (d *DataStore) ApplicationsByOwner(
	ctx context.Context,
	ownerUserID string,
	opts ListOptions,
) ([]*tables.ApplicationTable, int, error) {
	return d.listApplications(ctx, sq.Eq{"owner_user_id": ownerUserID}, opts)
}

func (d *DataStore) applicationBy(ctx context.Context, pred sq.Eq) (*tables.ApplicationTable, error) {
	var entity tables.ApplicationTable
	q := d.sq.Select(applicationColumns...).From("applications").Where(pred)
	err := d.getStatement(ctx, &entity, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

func (d *DataStore) ApplicationByClientID(
	ctx context.Context,
	clientID string,
) (*tables.ApplicationTable, error) {
	return d.applicationBy(ctx, sq.Eq{"client_id": clientID})
}

func (d *DataStore) ApplicationByID(ctx context.Context, id int) (*tables.ApplicationTable, error) {
	return d.applicationBy(ctx, sq.Eq{"id": id})
}

// CreateApplication persists a new application and returns its id
func (d *DataStore) CreateApplication(ctx context.Context, app *tables.ApplicationTable) (int, error) {
	taken, err := d.exists(ctx, "applications", sq.Eq{"client_id": app.ClientID})
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrAlreadyExists
	}
	created := app.CreatedAt.UTC()
	if app.CreatedAt.IsZero() {
		created = d.now()
	}
	insert := d.sq.Insert("applications").SetMap(map[string]interface{}{
		"owner_user_id":    app.OwnerUserID,
		"name":             app.Name,
		"description":      app.Description,
		"homepage_url":     app.HomepageURL,
		"logo_url":         app.LogoURL,
		"client_id":        app.ClientID,
		"client_secret":    app.ClientSecret,
		"redirect_uris":    app.RedirectURIs,
		"scopes":           app.Scopes,
		"is_confidential":  app.IsConfidential,
		"pkce_required":    app.PKCERequired,
		"approved":         app.Approved,
		"suspended":        app.Suspended,
		"suspended_reason": app.SuspendedReason,
		"rate_limit_rpm":   app.RateLimitRPM,
		"rate_limit_daily": app.RateLimitDaily,
		"created_at":       created,
	})
	id, err := d.returningInsertStatement(ctx, insert, nil)
	if err != nil {
		d.log.Error("could not insert app", zap.Error(err))
		return 0, err
	}
	return id, nil
}

// UpdateApplication writes the owner editable fields of an application
func (d *DataStore) UpdateApplication(ctx context.Context, app *tables.ApplicationTable) error {
	update := d.sq.
		Update("applications").
		Set("name", app.Name).
		Set("description", app.Description).
		Set("homepage_url", app.HomepageURL).
		Set("logo_url", app.LogoURL).
		Set("redirect_uris", app.RedirectURIs).
		Set("scopes", app.Scopes).
		Set("pkce_required", app.PKCERequired).
		Set("updated_at", d.now()).
		Where(sq.Eq{"id": app.ID})
	err := d.conditionalUpdate(ctx, update, nil)
	if errors.Is(err, ErrConflict) {
		return ErrNotFound
	}
	return err
}

// SetApplicationSecret replaces the stored secret hash
func (d *DataStore) SetApplicationSecret(ctx context.Context, id int, secretHash string) error {
	update := d.sq.
		Update("applications").
		Set("client_secret", secretHash).
		Set("updated_at", d.now()).
		Where(sq.Eq{"id": id})
	err := d.conditionalUpdate(ctx, update, nil)
	if errors.Is(err, ErrConflict) {
		return ErrNotFound
	}
	return err
}

// SetApplicationApproval approves or unapproves an application
func (d *DataStore) SetApplicationApproval(ctx context.Context, id int, approved bool) error {
	update := d.sq.
		Update("applications").
		Set("approved", approved).
		Set("updated_at", d.now()).
		Where(sq.Eq{"id": id})
	err := d.conditionalUpdate(ctx, update, nil)
	if errors.Is(err, ErrConflict) {
		return ErrNotFound
	}
	return err
}

// SetApplicationSuspension suspends or unsuspends an application,
// suspending also revokes every live token of the application
func (d *DataStore) SetApplicationSuspension(
	ctx context.Context,
	id int,
	suspended bool,
	reason *string,
) (int64, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer d.rollBack(tx)
	ts := d.now()
	if !suspended {
		reason = nil
	}
	update := d.sq.
		Update("applications").
		Set("suspended", suspended).
		Set("suspended_reason", reason).
		Set("updated_at", ts).
		Where(sq.Eq{"id": id})
	err = d.conditionalUpdate(ctx, update, tx)
	if err != nil {
		if errors.Is(err, ErrConflict) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	var affected int64
	if suspended {
		affected, err = d.revokeTokensWhere(ctx, tx, sq.Eq{"application_id": id}, ts)
		if err != nil {
			return 0, err
		}
	}
	return affected, tx.Commit()
}

// SetApplicationRateLimits sets the per minute and per day budgets, nil means unlimited
func (d *DataStore) SetApplicationRateLimits(ctx context.Context, id int, rpm *int, daily *int) error {
	update := d.sq.
		Update("applications").
		Set("rate_limit_rpm", rpm).
		Set("rate_limit_daily", daily).
		Set("updated_at", d.now()).
		Where(sq.Eq{"id": id})
	err := d.conditionalUpdate(ctx, update, nil)
	if errors.Is(err, ErrConflict) {
		return ErrNotFound
	}
	return err
}

// DeleteApplication removes an application with all of its codes, grants, tokens and counters
func (d *DataStore) DeleteApplication(ctx context.Context, id int) error {
	tx, err := d.begin(ctx)
	if err != nil {
		return err
	}
	defer d.rollBack(tx)

	for _, table := range []string{
		"refresh_tokens",
		"access_tokens",
		"authorization_codes",
		"authorization_grants",
		"rate_limit_counters",
	} {
		_, err = d.deleteStatement(ctx, d.sq.Delete(table).Where(sq.Eq{"application_id": id}), tx)
		if err != nil {
			d.log.Error("could not delete dependent rows", zap.String("table", table), zap.Error(err))
			return err
		}
	}
	res, err := d.deleteStatement(ctx, d.sq.Delete("applications").Where(sq.Eq{"id": id}), tx)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}
