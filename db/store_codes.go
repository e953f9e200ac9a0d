package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/stackernews/oauthd/db/tables"
)

// InsertAuthorizationCode stores a freshly issued code, only its hash is persisted
func (d *DataStore) InsertAuthorizationCode(
	ctx context.Context,
	code *tables.AuthorizationCodeTable,
) (int, error) {
	insert := d.sq.Insert("authorization_codes").SetMap(map[string]interface{}{
		"code_hash":             code.CodeHash,
		"user_id":               code.UserID,
		"application_id":        code.ApplicationID,
		"redirect_uri":          code.RedirectURI,
		"scopes":                code.Scopes,
		"code_challenge":        code.CodeChallenge,
		"code_challenge_method": code.CodeChallengeMethod,
		"used":                  false,
		"expires_at":            code.ExpiresAt.UTC(),
		"created_at":            d.now(),
	})
	return d.returningInsertStatement(ctx, insert, nil)
}

// AuthorizationCodeByHash looks up a code regardless of its used or expired state
func (d *DataStore) AuthorizationCodeByHash(
	ctx context.Context,
	codeHash string,
) (*tables.AuthorizationCodeTable, error) {
	var entity tables.AuthorizationCodeTable
	q := d.sq.
		Select(
			"id",
			"code_hash",
			"user_id",
			"application_id",
			"redirect_uri",
			"scopes",
			"code_challenge",
			"code_challenge_method",
			"used",
			"used_at",
			"family_id",
			"expires_at",
			"created_at",
		).
		From("authorization_codes").
		Where(sq.Eq{"code_hash": codeHash})
	err := d.getStatement(ctx, &entity, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// RedeemAuthorizationCode marks a code used, exactly one caller can win this,
// everybody else gets ErrConflict
func (d *DataStore) RedeemAuthorizationCode(
	ctx context.Context,
	id int,
	familyID uuid.UUID,
	now time.Time,
) error {
	now = now.UTC()
	update := d.sq.
		Update("authorization_codes").
		Set("used", true).
		Set("used_at", now).
		Set("family_id", familyID).
		Where(sq.And{
			sq.Eq{"id": id},
			sq.Eq{"used": false},
			sq.Gt{"expires_at": now},
		})
	return d.conditionalUpdate(ctx, update, nil)
}

// DeleteExpiredCodes removes codes which expired before the given time
func (d *DataStore) DeleteExpiredCodes(ctx context.Context, before time.Time) (int64, error) {
	res, err := d.deleteStatement(ctx,
		d.sq.Delete("authorization_codes").Where(sq.Lt{"expires_at": before.UTC()}), nil)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
