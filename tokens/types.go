package tokens

import (
	"net/http"
	"time"

	"github.com/stackernews/oauthd/config"
)

// GrantType is the grant_type of a token request
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
)

const (
	TokenTypeAccess  = "access_token"
	TokenTypeRefresh = "refresh_token"
	TokenTypeCode    = "authorization_code"
)

// ClientCredentials are taken from the form or from HTTP Basic
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// Request is a token endpoint request, only the fields of its grant type are consulted
type Request struct {
	GrantType    string
	Client       ClientCredentials
	Code         string
	RedirectURI  string
	CodeVerifier string
	RefreshToken string
}

type CodeExchange struct {
	Client       ClientCredentials
	Code         string
	RedirectURI  string
	CodeVerifier string
}

type RefreshExchange struct {
	Client       ClientCredentials
	RefreshToken string
}

// RevokeRequest https://datatracker.ietf.org/doc/html/rfc7009#section-2.1
type RevokeRequest struct {
	Client        ClientCredentials
	Token         string
	TokenTypeHint string
}

// Response https://datatracker.ietf.org/doc/html/rfc6749#section-5.1
type Response struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
}

func (*Response) Render(w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	return nil
}

// Settings are the lifetimes and the refresh policy
type Settings struct {
	AccessTokenExpiry  time.Duration
	RefreshTokenExpiry time.Duration
	// RotateRefreshTokens issues a new refresh value on every use and revokes
	// the whole family when a consumed one comes back
	RotateRefreshTokens bool
}

func SettingsFromConfig(cfg *config.OAuthConfiguration) *Settings {
	return &Settings{
		AccessTokenExpiry:   cfg.AccessTokenExpiry,
		RefreshTokenExpiry:  cfg.RefreshTokenExpiry,
		RotateRefreshTokens: cfg.RotateRefreshTokens,
	}
}
