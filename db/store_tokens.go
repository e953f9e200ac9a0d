package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/db/tables"
)

var accessTokenColumns = []string{
	"id",
	"token_hash",
	"user_id",
	"application_id",
	"family_id",
	"scopes",
	"expires_at",
	"revoked",
	"revoked_at",
	"last_used_at",
	"last_used_ip",
	"created_at",
}

var refreshTokenColumns = []string{
	"id",
	"token_hash",
	"user_id",
	"application_id",
	"access_token_id",
	"family_id",
	"scopes",
	"expires_at",
	"revoked",
	"revoked_at",
	"created_at",
	"updated_at",
}

func (d *DataStore) insertAccessToken(
	ctx context.Context,
	token *tables.AccessTokenTable,
	tx *sqlx.Tx,
) (int, error) {
	insert := d.sq.Insert("access_tokens").SetMap(map[string]interface{}{
		"token_hash":     token.TokenHash,
		"user_id":        token.UserID,
		"application_id": token.ApplicationID,
		"family_id":      token.FamilyID,
		"scopes":         token.Scopes,
		"expires_at":     token.ExpiresAt.UTC(),
		"revoked":        false,
		"created_at":     d.now(),
	})
	return d.returningInsertStatement(ctx, insert, tx)
}

func (d *DataStore) insertRefreshToken(
	ctx context.Context,
	token *tables.RefreshTokenTable,
	tx *sqlx.Tx,
) (int, error) {
	insert := d.sq.Insert("refresh_tokens").SetMap(map[string]interface{}{
		"token_hash":      token.TokenHash,
		"user_id":         token.UserID,
		"application_id":  token.ApplicationID,
		"access_token_id": token.AccessTokenID,
		"family_id":       token.FamilyID,
		"scopes":          token.Scopes,
		"expires_at":      token.ExpiresAt.UTC(),
		"revoked":         false,
		"created_at":      d.now(),
	})
	return d.returningInsertStatement(ctx, insert, tx)
}

// InsertTokenPair stores an access token and its refresh token in one transaction
func (d *DataStore) InsertTokenPair(
	ctx context.Context,
	access *tables.AccessTokenTable,
	refresh *tables.RefreshTokenTable,
) (int, int, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer d.rollBack(tx)
	accessID, err := d.insertAccessToken(ctx, access, tx)
	if err != nil {
		d.log.Error("could not insert access token", zap.Error(err))
		return 0, 0, err
	}
	refresh.AccessTokenID = accessID
	refreshID, err := d.insertRefreshToken(ctx, refresh, tx)
	if err != nil {
		d.log.Error("could not insert refresh token", zap.Error(err))
		return 0, 0, err
	}
	return accessID, refreshID, tx.Commit()
}

// AccessTokenByHash looks up an access token regardless of expiry or revocation
func (d *DataStore) AccessTokenByHash(ctx context.Context, tokenHash string) (*tables.AccessTokenTable, error) {
	var entity tables.AccessTokenTable
	q := d.sq.Select(accessTokenColumns...).From("access_tokens").Where(sq.Eq{"token_hash": tokenHash})
	err := d.getStatement(ctx, &entity, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// RefreshTokenByHash looks up a refresh token regardless of expiry or revocation
func (d *DataStore) RefreshTokenByHash(ctx context.Context, tokenHash string) (*tables.RefreshTokenTable, error) {
	var entity tables.RefreshTokenTable
	q := d.sq.Select(refreshTokenColumns...).From("refresh_tokens").Where(sq.Eq{"token_hash": tokenHash})
	err := d.getStatement(ctx, &entity, q, nil)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// RotateRefreshToken retires the presented refresh token and issues a successor
// in the same family. ErrConflict means the old token was already consumed.
func (d *DataStore) RotateRefreshToken(
	ctx context.Context,
	old *tables.RefreshTokenTable,
	access *tables.AccessTokenTable,
	refresh *tables.RefreshTokenTable,
) (int, int, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return 0, 0, err
	}
	defer d.rollBack(tx)
	ts := d.now()

	retire := d.sq.
		Update("refresh_tokens").
		Set("revoked", true).
		Set("revoked_at", ts).
		Set("updated_at", ts).
		Where(sq.Eq{"id": old.ID, "revoked": false})
	if err := d.conditionalUpdate(ctx, retire, tx); err != nil {
		return 0, 0, err
	}
	accessID, err := d.insertAccessToken(ctx, access, tx)
	if err != nil {
		return 0, 0, err
	}
	refresh.AccessTokenID = accessID
	refreshID, err := d.insertRefreshToken(ctx, refresh, tx)
	if err != nil {
		return 0, 0, err
	}
	_, err = d.updateStatement(ctx, d.sq.
		Update("access_tokens").
		Set("revoked", true).
		Set("revoked_at", ts).
		Where(sq.Eq{"id": old.AccessTokenID, "revoked": false}), tx)
	if err != nil {
		return 0, 0, err
	}
	return accessID, refreshID, tx.Commit()
}

// RepointRefreshToken keeps the refresh token and moves it onto a new access token.
// ErrConflict means a concurrent refresh already moved it.
func (d *DataStore) RepointRefreshToken(
	ctx context.Context,
	old *tables.RefreshTokenTable,
	access *tables.AccessTokenTable,
) (int, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer d.rollBack(tx)
	ts := d.now()

	accessID, err := d.insertAccessToken(ctx, access, tx)
	if err != nil {
		return 0, err
	}
	repoint := d.sq.
		Update("refresh_tokens").
		Set("access_token_id", accessID).
		Set("updated_at", ts).
		Where(sq.Eq{"id": old.ID, "access_token_id": old.AccessTokenID, "revoked": false})
	if err := d.conditionalUpdate(ctx, repoint, tx); err != nil {
		return 0, err
	}
	_, err = d.updateStatement(ctx, d.sq.
		Update("access_tokens").
		Set("revoked", true).
		Set("revoked_at", ts).
		Where(sq.Eq{"id": old.AccessTokenID, "revoked": false}), tx)
	if err != nil {
		return 0, err
	}
	return accessID, tx.Commit()
}

// RevokeAccessToken revokes a single access token
func (d *DataStore) RevokeAccessToken(ctx context.Context, id int) error {
	ts := d.now()
	_, err := d.updateStatement(ctx, d.sq.
		Update("access_tokens").
		Set("revoked", true).
		Set("revoked_at", ts).
		Where(sq.Eq{"id": id, "revoked": false}), nil)
	return err
}

// RevokeFamily revokes every access and refresh token descending from one code redemption
func (d *DataStore) RevokeFamily(ctx context.Context, familyID uuid.UUID) (int64, error) {
	tx, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer d.rollBack(tx)
	affected, err := d.revokeTokensWhere(ctx, tx, sq.Eq{"family_id": familyID}, d.now())
	if err != nil {
		return 0, err
	}
	return affected, tx.Commit()
}

func (d *DataStore) revokeTokensWhere(
	ctx context.Context,
	tx *sqlx.Tx,
	pred sq.Eq,
	ts time.Time,
) (int64, error) {
	live := sq.And{pred, sq.Eq{"revoked": false}}
	res, err := d.updateStatement(ctx, d.sq.
		Update("access_tokens").
		Set("revoked", true).
		Set("revoked_at", ts).
		Where(live), tx)
	if err != nil {
		return 0, err
	}
	accessCount, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	res, err = d.updateStatement(ctx, d.sq.
		Update("refresh_tokens").
		Set("revoked", true).
		Set("revoked_at", ts).
		Set("updated_at", ts).
		Where(live), tx)
	if err != nil {
		return 0, err
	}
	refreshCount, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return accessCount + refreshCount, nil
}

// TouchAccessToken records the last use of an access token
func (d *DataStore) TouchAccessToken(ctx context.Context, id int, ip string, at time.Time) error {
	_, err := d.updateStatement(ctx, d.sq.
		Update("access_tokens").
		Set("last_used_at", at.UTC()).
		Set("last_used_ip", ip).
		Where(sq.Eq{"id": id}), nil)
	return err
}

// DeleteExpiredTokens removes access and refresh tokens which expired before the given time
func (d *DataStore) DeleteExpiredTokens(ctx context.Context, before time.Time) (int64, error) {
	before = before.UTC()
	tx, err := d.begin(ctx)
	if err != nil {
		return 0, err
	}
	defer d.rollBack(tx)
	res, err := d.deleteStatement(ctx,
		d.sq.Delete("refresh_tokens").Where(sq.Lt{"expires_at": before}), tx)
	if err != nil {
		return 0, err
	}
	refreshCount, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	// access tokens still referenced by a live refresh token are kept
	res, err = d.deleteStatement(ctx,
		d.sq.Delete("access_tokens").Where(sq.And{
			sq.Lt{"expires_at": before},
			sq.Expr("NOT EXISTS (SELECT 1 FROM refresh_tokens r WHERE r.access_token_id = access_tokens.id)"),
		}), tx)
	if err != nil {
		return 0, err
	}
	accessCount, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return refreshCount + accessCount, tx.Commit()
}
