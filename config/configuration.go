package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// ServerConfiguration contains the server settings
type ServerConfiguration struct {
	Port    int
	Address string
	// PublicURL is the externally reachable base url, used for metadata and redirects
	PublicURL string `mapstructure:"public-url"`
	// CSRFToken is the 32 byte key protecting the consent form post
	CSRFToken     string `mapstructure:"csrf-token"     json:"-"`
	SecureCookies bool   `mapstructure:"secure-cookies"`
}

// DatabaseConfiguration contains the settings required to connect to a database
type DatabaseConfiguration struct {
	Type string
	DSN  string `json:"-"`
}

// OAuthConfiguration habours the lifetimes of codes and tokens
type OAuthConfiguration struct {
	CodeExpiry          time.Duration `mapstructure:"code-expiry"`
	AccessTokenExpiry   time.Duration `mapstructure:"access-token-expiry"`
	RefreshTokenExpiry  time.Duration `mapstructure:"refresh-token-expiry"`
	RotateRefreshTokens bool          `mapstructure:"rotate-refresh-tokens"`
}

// SessionConfiguration describes how the external login system is reached
type SessionConfiguration struct {
	// Resolver is either remote or header
	Resolver string
	// URL of the session endpoint queried by the remote resolver
	URL string
	// Header trusted by the header resolver (only behind a proxy that sets it)
	Header  string
	Timeout time.Duration
	// LoginURL is where unauthenticated users are sent
	LoginURL string `mapstructure:"login-url"`
	// ConsentURL renders the consent screen and posts back to /oauth/authorize
	ConsentURL    string `mapstructure:"consent-url"`
	CallbackParam string `mapstructure:"callback-param"`
}

// BehaviourConfiguration configures how the service will behave
type BehaviourConfiguration struct {
	Name                    string
	AutoApproveApplications bool `mapstructure:"auto-approve-applications"`
	DefaultRateLimitRPM     *int `mapstructure:"default-rate-limit-rpm"`
	DefaultRateLimitDaily   *int `mapstructure:"default-rate-limit-daily"`
}

// RateLimitConfiguration selects the counter backend and the token endpoint throttle
type RateLimitConfiguration struct {
	// Backend is either store or redis
	Backend            string
	RedisAddress       string  `mapstructure:"redis-address"`
	RedisPassword      string  `mapstructure:"redis-password"       json:"-"`
	RedisDB            int     `mapstructure:"redis-db"`
	TokenEndpointRPS   float64 `mapstructure:"token-endpoint-rps"`
	TokenEndpointBurst int     `mapstructure:"token-endpoint-burst"`
}

// UsageConfiguration sizes the asynchronous usage logger
type UsageConfiguration struct {
	QueueSize int `mapstructure:"queue-size"`
	Workers   int
}

// TelemetryConfiguration toggles the metric instruments
type TelemetryConfiguration struct {
	Enabled     bool
	ServiceName string `mapstructure:"service-name"`
}

// CORSConfiguration very basic cors configuration
type CORSConfiguration struct {
	AllowCredentials bool     `mapstructure:"allow-credentials"`
	AllowedMethods   []string `mapstructure:"allowed-methods"`
	AllowedOrigins   []string `mapstructure:"allowed-origins"`
}

// ManageEndpointConfirugation habours the manage endpoint configuration
type ManageEndpointConfirugation struct {
	Enable   bool
	AdminKey string `mapstructure:"admin-key" json:"-"`
	CORS     *CORSConfiguration
}

// Configuration habours the entire oauthd configuration
type Configuration struct {
	Server         *ServerConfiguration         `mapstructure:"server"`
	Database       *DatabaseConfiguration       `mapstructure:"database"`
	OAuth          *OAuthConfiguration          `mapstructure:"oauth"`
	Session        *SessionConfiguration        `mapstructure:"session"`
	Behaviour      *BehaviourConfiguration      `mapstructure:"behaviour"`
	RateLimit      *RateLimitConfiguration      `mapstructure:"rate-limit"`
	Usage          *UsageConfiguration          `mapstructure:"usage"`
	Telemetry      *TelemetryConfiguration      `mapstructure:"telemetry"`
	ManageEndpoint *ManageEndpointConfirugation `mapstructure:"manage-endpoint"`
}

// Validate does some basic validation of the config file and tries to be helpful on missconfiguration
func (c *Configuration) Validate() error {
	if c.Server == nil {
		return errors.New("no server configuration found")
	}
	if c.Database == nil {
		return errors.New("no database configuration found")
	}
	switch c.Database.Type {
	case "sqlite", "pg", "mysql":
	default:
		return fmt.Errorf("unknown database.type %q, use sqlite, pg or mysql", c.Database.Type)
	}
	if c.OAuth == nil {
		return errors.New("no oauth configuration found")
	}
	if c.OAuth.CodeExpiry <= 0 || c.OAuth.AccessTokenExpiry <= 0 || c.OAuth.RefreshTokenExpiry <= 0 {
		return errors.New("oauth expiries must be positive durations")
	}
	if c.Session == nil {
		return errors.New("no session configuration found")
	}
	switch c.Session.Resolver {
	case "remote":
		if c.Session.URL == "" {
			return errors.New("session.resolver remote requires session.url")
		}
	case "header":
		if c.Session.Header == "" {
			return errors.New("session.resolver header requires session.header")
		}
	default:
		return fmt.Errorf("unknown session.resolver %q, use remote or header", c.Session.Resolver)
	}
	if c.Session.LoginURL == "" || c.Session.ConsentURL == "" {
		return errors.New("session.login-url and session.consent-url are required")
	}
	if len(c.Server.CSRFToken) != 32 {
		return errors.New("server.csrf-token must be exactly 32 bytes long")
	}
	if c.Behaviour == nil {
		return errors.New("no behaviour configuration found")
	}
	if c.RateLimit == nil {
		return errors.New("no rate-limit configuration found")
	}
	switch c.RateLimit.Backend {
	case "store":
	case "redis":
		if c.RateLimit.RedisAddress == "" {
			return errors.New("rate-limit.backend redis requires rate-limit.redis-address")
		}
	default:
		return fmt.Errorf("unknown rate-limit.backend %q, use store or redis", c.RateLimit.Backend)
	}
	if c.Usage == nil {
		return errors.New("no usage configuration found")
	}
	if c.ManageEndpoint != nil && c.ManageEndpoint.Enable {
		if c.ManageEndpoint.CORS == nil {
			return errors.New("manage endpoint has no cors settings")
		}
		if len(c.ManageEndpoint.AdminKey) < 32 {
			return errors.New("manage-endpoint.admin-key needs at least 32 characters")
		}
	}
	return nil
}

// DebugMode returns true if the OAUTHD_DEBUG_MODE variable is set
func (*Configuration) DebugMode() bool {
	if r := os.Getenv("OAUTHD_DEBUG_MODE"); r == "true" {
		return true
	}
	return false
}
