package tables

import (
	"time"

	"github.com/google/uuid"
)

// AuthorizationGrantTable represents the authorization_grants table,
// one row per user and application
type AuthorizationGrantTable struct {
	ID            uuid.UUID  `db:"id"`
	UserID        string     `db:"user_id"`
	ApplicationID int        `db:"application_id"`
	Scopes        string     `db:"scopes"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at"`
}

// AuthorizationCodeTable represents the authorization_codes table
type AuthorizationCodeTable struct {
	ID                  int        `db:"id,omitempty"`
	CodeHash            string     `db:"code_hash"`
	UserID              string     `db:"user_id"`
	ApplicationID       int        `db:"application_id"`
	RedirectURI         string     `db:"redirect_uri"`
	Scopes              string     `db:"scopes"`
	CodeChallenge       *string    `db:"code_challenge"`
	CodeChallengeMethod *string    `db:"code_challenge_method"`
	Used                bool       `db:"used"`
	UsedAt              *time.Time `db:"used_at"`
	FamilyID            *uuid.UUID `db:"family_id"`
	ExpiresAt           time.Time  `db:"expires_at"`
	CreatedAt           time.Time  `db:"created_at"`
}
