package tables

import (
	"time"

	"github.com/google/uuid"
)

// AccessTokenTable represents the access_tokens table
type AccessTokenTable struct {
	ID            int        `db:"id,omitempty"`
	TokenHash     string     `db:"token_hash"`
	UserID        string     `db:"user_id"`
	ApplicationID int        `db:"application_id"`
	FamilyID      uuid.UUID  `db:"family_id"`
	Scopes        string     `db:"scopes"`
	ExpiresAt     time.Time  `db:"expires_at"`
	Revoked       bool       `db:"revoked"`
	RevokedAt     *time.Time `db:"revoked_at"`
	LastUsedAt    *time.Time `db:"last_used_at"`
	LastUsedIP    *string    `db:"last_used_ip"`
	CreatedAt     time.Time  `db:"created_at"`
}

// RefreshTokenTable represents the refresh_tokens table
type RefreshTokenTable struct {
	ID            int        `db:"id,omitempty"`
	TokenHash     string     `db:"token_hash"`
	UserID        string     `db:"user_id"`
	ApplicationID int        `db:"application_id"`
	AccessTokenID int        `db:"access_token_id"`
	FamilyID      uuid.UUID  `db:"family_id"`
	Scopes        string     `db:"scopes"`
	ExpiresAt     time.Time  `db:"expires_at"`
	Revoked       bool       `db:"revoked"`
	RevokedAt     *time.Time `db:"revoked_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     *time.Time `db:"updated_at"`
}

// APIUsageTable represents the append only api_usage table
type APIUsageTable struct {
	ID            int       `db:"id,omitempty"`
	ApplicationID int       `db:"application_id"`
	AccessTokenID int       `db:"access_token_id"`
	Endpoint      string    `db:"endpoint"`
	Method        string    `db:"method"`
	UserID        string    `db:"user_id"`
	IP            string    `db:"ip"`
	UserAgent     string    `db:"user_agent"`
	CreatedAt     time.Time `db:"created_at"`
}

// RateLimitCounterTable represents the rate_limit_counters table
type RateLimitCounterTable struct {
	ApplicationID int       `db:"application_id"`
	WindowName    string    `db:"window_name"`
	WindowStart   time.Time `db:"window_start"`
	Count         int64     `db:"count"`
	PreviousCount int64     `db:"previous_count"`
}
