package authorization

import (
	"net/url"
	"time"

	"github.com/stackernews/oauthd/application"
	"github.com/stackernews/oauthd/db"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/scope"
)

// Request holds the parameters of an authorization request
// https://datatracker.ietf.org/doc/html/rfc6749#section-4.1.1
type Request struct {
	ResponseType        string
	ClientID            string
	RedirectURI         string
	Scope               string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	ResponseMode        string
}

func RequestFromValues(v url.Values) *Request {
	return &Request{
		ResponseType:        v.Get("response_type"),
		ClientID:            v.Get("client_id"),
		RedirectURI:         v.Get("redirect_uri"),
		Scope:               v.Get("scope"),
		State:               v.Get("state"),
		CodeChallenge:       v.Get("code_challenge"),
		CodeChallengeMethod: v.Get("code_challenge_method"),
		ResponseMode:        v.Get("response_mode"),
	}
}

// Values returns the non empty parameters, used to carry the request to login and consent
func (r *Request) Values() url.Values {
	v := url.Values{}
	set := func(k, val string) {
		if val != "" {
			v.Set(k, val)
		}
	}
	set("response_type", r.ResponseType)
	set("client_id", r.ClientID)
	set("redirect_uri", r.RedirectURI)
	set("scope", r.Scope)
	set("state", r.State)
	set("code_challenge", r.CodeChallenge)
	set("code_challenge_method", r.CodeChallengeMethod)
	set("response_mode", r.ResponseMode)
	return v
}

// ResponseMode selects how parameters travel back to the client
type ResponseMode string

const (
	ResponseModeQuery    ResponseMode = "query"
	ResponseModeFragment ResponseMode = "fragment"
	ResponseModeFormPost ResponseMode = "form_post"
)

func parseResponseMode(v string) (ResponseMode, bool) {
	switch ResponseMode(v) {
	case "", ResponseModeQuery:
		return ResponseModeQuery, true
	case ResponseModeFragment:
		return ResponseModeFragment, true
	case ResponseModeFormPost:
		return ResponseModeFormPost, true
	}
	return ResponseModeQuery, false
}

// State is where an authorization attempt ended up
type State int

const (
	// StateDirectError has no trustworthy redirect, render Err as JSON
	StateDirectError State = iota
	// StateErrorRedirect delivers Err to the client redirect uri
	StateErrorRedirect
	// StateNeedsLogin sends the user agent to the login system
	StateNeedsLogin
	// StateNeedsConsent sends the user agent to the consent screen
	StateNeedsConsent
	// StateIssueCode delivers a fresh authorization code to the client
	StateIssueCode
)

func (s State) String() string {
	switch s {
	case StateDirectError:
		return "direct_error"
	case StateErrorRedirect:
		return "error_redirect"
	case StateNeedsLogin:
		return "needs_login"
	case StateNeedsConsent:
		return "needs_consent"
	case StateIssueCode:
		return "issue_code"
	}
	return "unknown"
}

// Outcome is rendered by the http layer, it never decides anything itself
type Outcome struct {
	State State
	Err   *oauth.Error
	// Target is the redirect uri, the login url or the consent url
	Target string
	Params url.Values
	Mode   ResponseMode

	Application *application.Application
	Scopes      scope.Set
}

// RedirectURL merges Params into Target according to Mode
func (o *Outcome) RedirectURL() string {
	u, err := url.Parse(o.Target)
	if err != nil {
		return o.Target
	}
	if o.Mode == ResponseModeFragment {
		u.Fragment = ""
		return u.String() + "#" + o.Params.Encode()
	}
	q := u.Query()
	for k, v := range o.Params {
		q[k] = v
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Grant is a remembered consent as shown on the settings page
type Grant struct {
	ApplicationID   int
	ClientID        string
	ApplicationName string
	LogoURL         *string
	Scopes          scope.Set
	CreatedAt       time.Time
	UpdatedAt       *time.Time
}

func grantFromDB(g *db.GrantWithApplication) *Grant {
	return &Grant{
		ApplicationID:   g.ApplicationID,
		ClientID:        g.ClientID,
		ApplicationName: g.ApplicationName,
		LogoURL:         g.LogoURL,
		Scopes:          scope.FromStorage(g.Scopes),
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}

type GrantDTO struct {
	ApplicationID   int        `json:"applicationId"`
	ClientID        string     `json:"clientId"`
	ApplicationName string     `json:"applicationName"`
	LogoURL         *string    `json:"logoUrl,omitempty"`
	Scope           string     `json:"scope"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       *time.Time `json:"updatedAt,omitempty"`
}

func (g *Grant) DTO() *GrantDTO {
	return &GrantDTO{
		ApplicationID:   g.ApplicationID,
		ClientID:        g.ClientID,
		ApplicationName: g.ApplicationName,
		LogoURL:         g.LogoURL,
		Scope:           g.Scopes.String(),
		CreatedAt:       g.CreatedAt,
		UpdatedAt:       g.UpdatedAt,
	}
}
