package db

import (
	"context"
	"database/sql"
	"errors"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/db/tables"
)

// GrantWithApplication is a grant joined with the display data of its application
type GrantWithApplication struct {
	tables.AuthorizationGrantTable
	ClientID        string  `db:"client_id"`
	ApplicationName string  `db:"application_name"`
	LogoURL         *string `db:"logo_url"`
}

// GrantByUserAndApplication returns the remembered consent of a user for an application
func (d *DataStore) GrantByUserAndApplication(
	ctx context.Context,
	userID string,
	applicationID int,
) (*tables.AuthorizationGrantTable, error) {
	var entity tables.AuthorizationGrantTable
	q := d.sq.
		Select("id", "user_id", "application_id", "scopes", "created_at", "updated_at").
		From("authorization_grants").
		Where(sq.Eq{"user_id": userID, "application_id": applicationID})
	err := d.getStatement(ctx, &entity, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// UpsertGrant stores the consented scopes, creating the grant if it does not exist yet
func (d *DataStore) UpsertGrant(
	ctx context.Context,
	userID string,
	applicationID int,
	scopes string,
) (uuid.UUID, error) {
	var id uuid.UUID
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		id, err = d.upsertGrant(ctx, userID, applicationID, scopes)
		if err == nil {
			return id, nil
		}
		d.log.Debug("grant upsert retry", zap.Int("attempt", attempt), zap.Error(err))
	}
	return id, err
}

func (d *DataStore) upsertGrant(
	ctx context.Context,
	userID string,
	applicationID int,
	scopes string,
) (uuid.UUID, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	defer d.rollBack(tx)
	ts := d.now()
	pred := sq.Eq{"user_id": userID, "application_id": applicationID}

	update := d.sq.
		Update("authorization_grants").
		Set("scopes", scopes).
		Set("updated_at", ts).
		Where(pred)
	err = d.conditionalUpdate(ctx, update, tx)
	if err == nil {
		var id uuid.UUID
		q := d.sq.Select("id").From("authorization_grants").Where(pred)
		if err := d.getStatement(ctx, &id, q, tx); err != nil {
			return uuid.Nil, err
		}
		return id, tx.Commit()
	}
	if !errors.Is(err, ErrConflict) {
		return uuid.Nil, err
	}

	id := uuid.New()
	insert := d.sq.Insert("authorization_grants").SetMap(map[string]interface{}{
		"id":             id,
		"user_id":        userID,
		"application_id": applicationID,
		"scopes":         scopes,
		"created_at":     ts,
	})
	_, err = d.insertStatement(ctx, insert, tx)
	if err != nil {
		return uuid.Nil, err
	}
	return id, tx.Commit()
}

// GrantsByUser lists every application a user has consented to
func (d *DataStore) GrantsByUser(ctx context.Context, userID string) ([]*GrantWithApplication, error) {
	q := d.sq.
		Select(
			"authorization_grants.id",
			"authorization_grants.user_id",
			"authorization_grants.application_id",
			"authorization_grants.scopes",
			"authorization_grants.created_at",
			"authorization_grants.updated_at",
			"applications.client_id",
			"applications.name AS application_name",
			"applications.logo_url",
		).
		From("authorization_grants").
		InnerJoin("applications ON applications.id = authorization_grants.application_id").
		Where(sq.Eq{"authorization_grants.user_id": userID}).
		OrderBy("authorization_grants.created_at DESC")
	entities := make([]*GrantWithApplication, 0)
	err := d.selectStatement(ctx, &entities, q, nil)
	if err != nil {
		return nil, err
	}
	return entities, nil
}

// RevokeGrant removes a consent and revokes every live token issued under it
func (d *DataStore) RevokeGrant(ctx context.Context, userID string, applicationID int) (int64, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer d.rollBack(tx)
	pred := sq.Eq{"user_id": userID, "application_id": applicationID}
	res, err := d.deleteStatement(ctx, d.sq.Delete("authorization_grants").Where(pred), tx)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, ErrNotFound
	}
	affected, err := d.revokeTokensWhere(ctx, tx, pred, d.now())
	if err != nil {
		return 0, err
	}
	return affected, tx.Commit()
}
