package application

import (
	"time"

	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/scope"
)

func ApplicationFromDbType(table *tables.ApplicationTable) *Application {
	return &Application{
		id:              table.ID,
		ownerUserID:     table.OwnerUserID,
		name:            table.Name,
		description:     table.Description,
		homepageURL:     table.HomepageURL,
		logoURL:         table.LogoURL,
		clientID:        table.ClientID,
		clientSecret:    table.ClientSecret,
		redirectURIs:    []string(table.RedirectURIs),
		scopes:          scope.FromStorage(table.Scopes),
		confidential:    table.IsConfidential,
		pkceRequired:    table.PKCERequired,
		approved:        table.Approved,
		suspended:       table.Suspended,
		suspendedReason: table.SuspendedReason,
		rateLimitRPM:    table.RateLimitRPM,
		rateLimitDaily:  table.RateLimitDaily,
		createdAt:       table.CreatedAt,
		updatedAt:       table.UpdatedAt,
	}
}

// Application is a registered client, it is always loaded fresh from the store
type Application struct {
	id              int
	ownerUserID     string
	name            string
	description     *string
	homepageURL     *string
	logoURL         *string
	clientID        string
	clientSecret    *string
	redirectURIs    []string
	scopes          scope.Set
	confidential    bool
	pkceRequired    bool
	approved        bool
	suspended       bool
	suspendedReason *string
	rateLimitRPM    *int
	rateLimitDaily  *int
	createdAt       time.Time
	updatedAt       *time.Time
}

func (a *Application) ID() int {
	return a.id
}

func (a *Application) OwnerUserID() string {
	return a.ownerUserID
}

func (a *Application) Name() string {
	return a.name
}

func (a *Application) ClientID() string {
	return a.clientID
}

func (a *Application) IsConfidential() bool {
	return a.confidential
}

func (a *Application) PKCERequired() bool {
	return a.pkceRequired
}

func (a *Application) IsApproved() bool {
	return a.approved
}

func (a *Application) IsSuspended() bool {
	return a.suspended
}

// IsUsable reports if the application may mint codes and tokens
func (a *Application) IsUsable() bool {
	return a.approved && !a.suspended
}

func (a *Application) Scopes() scope.Set {
	return a.scopes
}

func (a *Application) RedirectURIs() []string {
	out := make([]string, len(a.redirectURIs))
	copy(out, a.redirectURIs)
	return out
}

// IsAllowedRedirectURI compares byte by byte, no normalization
func (a *Application) IsAllowedRedirectURI(uri string) bool {
	for _, v := range a.redirectURIs {
		if v == uri {
			return true
		}
	}
	return false
}

func (a *Application) AreScopesCoveredByApplication(requested scope.Set) bool {
	return a.scopes.Covers(requested)
}

// RateLimits returns the per minute and per day budget, nil is unlimited
func (a *Application) RateLimits() (*int, *int) {
	return a.rateLimitRPM, a.rateLimitDaily
}

func (a *Application) HasSecret() bool {
	return a.clientSecret != nil
}

// ValidateClientSecret checks a presented secret, an application without a secret never validates
func (a *Application) ValidateClientSecret(hasher SecretHasher, input string) bool {
	if a.clientSecret == nil || input == "" {
		return false
	}
	return hasher.Compare(*a.clientSecret, input)
}

// DTO is the wire representation, it never carries the secret hash
type DTO struct {
	ID              int        `json:"id"`
	OwnerUserID     string     `json:"ownerUserId"`
	Name            string     `json:"name"`
	Description     *string    `json:"description,omitempty"`
	HomepageURL     *string    `json:"homepageUrl,omitempty"`
	LogoURL         *string    `json:"logoUrl,omitempty"`
	ClientID        string     `json:"clientId"`
	ClientSecret    string     `json:"clientSecret,omitempty"`
	RedirectURIs    []string   `json:"redirectUris"`
	Scopes          []string   `json:"scopes"`
	IsConfidential  bool       `json:"isConfidential"`
	PKCERequired    bool       `json:"pkceRequired"`
	Approved        bool       `json:"approved"`
	Suspended       bool       `json:"suspended"`
	SuspendedReason *string    `json:"suspendedReason,omitempty"`
	RateLimitRPM    *int       `json:"rateLimitRpm"`
	RateLimitDaily  *int       `json:"rateLimitDaily"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func (a *Application) DTO() *DTO {
	return &DTO{
		ID:              a.id,
		OwnerUserID:     a.ownerUserID,
		Name:            a.name,
		Description:     a.description,
		HomepageURL:     a.homepageURL,
		LogoURL:         a.logoURL,
		ClientID:        a.clientID,
		RedirectURIs:    a.RedirectURIs(),
		Scopes:          a.scopes.Strings(),
		IsConfidential:  a.confidential,
		PKCERequired:    a.pkceRequired,
		Approved:        a.approved,
		Suspended:       a.suspended,
		SuspendedReason: a.suspendedReason,
		RateLimitRPM:    a.rateLimitRPM,
		RateLimitDaily:  a.rateLimitDaily,
		CreatedAt:       a.createdAt,
		UpdatedAt:       a.updatedAt,
	}
}

// Created is returned by Register and by secret resets,
// ClientSecret holds the plaintext exactly this once
type Created struct {
	Application  *Application
	ClientSecret string
}

func (c *Created) DTO() *DTO {
	dto := c.Application.DTO()
	dto.ClientSecret = c.ClientSecret
	return dto
}
