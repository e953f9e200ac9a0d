package tables

import (
	"time"
)

// ApplicationTable represents the applications table
type ApplicationTable struct {
	ID              int        `db:"id,omitempty"     fiql:"id,db:id"`
	OwnerUserID     string     `db:"owner_user_id"    fiql:"owner_user_id,db:owner_user_id"`
	Name            string     `db:"name"             fiql:"name,db:name"`
	Description     *string    `db:"description"`
	HomepageURL     *string    `db:"homepage_url"`
	LogoURL         *string    `db:"logo_url"`
	ClientID        string     `db:"client_id"        fiql:"client_id,db:client_id"`
	ClientSecret    *string    `db:"client_secret"                                             json:"-"`
	RedirectURIs    StringList `db:"redirect_uris"`
	Scopes          string     `db:"scopes"`
	IsConfidential  bool       `db:"is_confidential"  fiql:"is_confidential,db:is_confidential"`
	PKCERequired    bool       `db:"pkce_required"    fiql:"pkce_required,db:pkce_required"`
	Approved        bool       `db:"approved"         fiql:"approved,db:approved"`
	Suspended       bool       `db:"suspended"        fiql:"suspended,db:suspended"`
	SuspendedReason *string    `db:"suspended_reason"`
	RateLimitRPM    *int       `db:"rate_limit_rpm"`
	RateLimitDaily  *int       `db:"rate_limit_daily"`
	CreatedAt       time.Time  `db:"created_at"       fiql:"created_at,db:created_at"`
	UpdatedAt       *time.Time `db:"updated_at"       fiql:"updated_at,db:updated_at"`
}
