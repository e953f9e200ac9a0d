package tokens

import (
	"time"

	"github.com/google/uuid"
	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/generator"
	"github.com/stackernews/oauthd/scope"
)

// TokenIssuer mints opaque access and refresh values, only their hashes are persisted
type TokenIssuer struct {
	generator          *generator.RandomTokenGenerator
	accessTokenExpiry  time.Duration
	refreshTokenExpiry time.Duration
}

func NewIssuer(settings *Settings) *TokenIssuer {
	access := settings.AccessTokenExpiry
	if access <= 0 {
		access = 2 * time.Hour
	}
	refresh := settings.RefreshTokenExpiry
	if refresh <= 0 {
		refresh = 30 * 24 * time.Hour
	}
	return &TokenIssuer{
		generator:          generator.New(),
		accessTokenExpiry:  access,
		refreshTokenExpiry: refresh,
	}
}

// ExpiresIn is the expires_in value of every token response
func (t *TokenIssuer) ExpiresIn() int {
	return int(t.accessTokenExpiry.Seconds())
}

func (t *TokenIssuer) IssueAccessToken(
	userID string,
	applicationID int,
	familyID uuid.UUID,
	scopes scope.Set,
	now time.Time,
) (string, *tables.AccessTokenTable) {
	value := string(t.generator.CreateSecureToken())
	return value, &tables.AccessTokenTable{
		TokenHash:     generator.Hash(value),
		UserID:        userID,
		ApplicationID: applicationID,
		FamilyID:      familyID,
		Scopes:        scopes.ToStorage(),
		ExpiresAt:     now.Add(t.accessTokenExpiry),
	}
}

func (t *TokenIssuer) IssueRefreshToken(
	userID string,
	applicationID int,
	familyID uuid.UUID,
	scopes scope.Set,
	now time.Time,
) (string, *tables.RefreshTokenTable) {
	value := string(t.generator.CreateSecureToken())
	return value, &tables.RefreshTokenTable{
		TokenHash:     generator.Hash(value),
		UserID:        userID,
		ApplicationID: applicationID,
		FamilyID:      familyID,
		Scopes:        scopes.ToStorage(),
		ExpiresAt:     now.Add(t.refreshTokenExpiry),
	}
}

func (t *TokenIssuer) response(access string, refresh string, scopes scope.Set) *Response {
	return &Response{
		AccessToken:  access,
		TokenType:    "Bearer",
		ExpiresIn:    t.ExpiresIn(),
		RefreshToken: refresh,
		Scope:        scopes.String(),
	}
}
