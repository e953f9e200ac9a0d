package manage

import (
	"net/http"
	"time"

	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/scope"
)

type ApplicationDTO struct {
	ID              int        `json:"id"`
	OwnerUserID     string     `json:"owner_user_id"`
	ClientID        string     `json:"client_id"`
	Name            string     `json:"name"`
	Status          string     `json:"status"`
	Confidential    bool       `json:"confidential"`
	HasSecret       bool       `json:"has_secret"`
	PKCE            bool       `json:"pkce"`
	Scope           string     `json:"scope"`
	RedirectURIs    []string   `json:"redirect_uris"`
	SuspendedReason *string    `json:"suspended_reason,omitempty"`
	RateLimitRPM    *int       `json:"rate_limit_rpm"`
	RateLimitDaily  *int       `json:"rate_limit_daily"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at,omitempty"`
}

func (a *ApplicationDTO) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// status folds approval and suspension into one word for listings
func status(t *tables.ApplicationTable) string {
	switch {
	case t.Suspended:
		return "suspended"
	case !t.Approved:
		return "pending"
	default:
		return "active"
	}
}

func applicationDTOfromDB(t *tables.ApplicationTable) *ApplicationDTO {
	redirects := []string(t.RedirectURIs)
	if redirects == nil {
		redirects = []string{}
	}
	return &ApplicationDTO{
		ID:              t.ID,
		OwnerUserID:     t.OwnerUserID,
		ClientID:        t.ClientID,
		Name:            t.Name,
		Status:          status(t),
		Confidential:    t.IsConfidential,
		HasSecret:       t.ClientSecret != nil,
		PKCE:            t.PKCERequired,
		Scope:           scope.FromStorage(t.Scopes).String(),
		RedirectURIs:    redirects,
		SuspendedReason: t.SuspendedReason,
		RateLimitRPM:    t.RateLimitRPM,
		RateLimitDaily:  t.RateLimitDaily,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

type PaginationResponse struct {
	Total   int         `json:"total"`
	Entries interface{} `json:"entries"`
}

func (*PaginationResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}
