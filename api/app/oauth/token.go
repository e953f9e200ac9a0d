package oauth

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"
	"go.uber.org/zap"

	"github.com/stackernews/oauthd/api/auth"
	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/sanitize"
	"github.com/stackernews/oauthd/tokens"
)

// clientRequest throttles, parses the form and extracts the client credentials
func (o *OAuthRessource) clientRequest(w http.ResponseWriter, r *http.Request) (tokens.ClientCredentials, bool) {
	if ok, retryAfter := o.throttle.Allow(auth.ClientIP(r)); !ok {
		o.renderError(w, r, oauth.TooManyRequests(retryAfter))
		return tokens.ClientCredentials{}, false
	}
	if err := r.ParseForm(); err != nil {
		o.renderError(w, r, oauth.InvalidRequest("malformed form body"))
		return tokens.ClientCredentials{}, false
	}
	creds, err := auth.ClientCredentialsFromRequest(r)
	if err != nil {
		o.renderClientError(w, r, err)
		return tokens.ClientCredentials{}, false
	}
	return creds, true
}

// renderClientError adds the Basic challenge when a client tried to authenticate through the header
// https://datatracker.ietf.org/doc/html/rfc6749#section-5.2
func (o *OAuthRessource) renderClientError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, oauth.ErrInvalidClient) && r.Header.Get("Authorization") != "" {
		w.Header().Set("WWW-Authenticate", `Basic realm="oauthd"`)
	}
	o.renderError(w, r, err)
}

func (o *OAuthRessource) token(w http.ResponseWriter, r *http.Request) {
	creds, ok := o.clientRequest(w, r)
	if !ok {
		return
	}
	res, err := o.engine.Exchange(r.Context(), &tokens.Request{
		GrantType:    r.PostForm.Get("grant_type"),
		Client:       creds,
		Code:         r.PostForm.Get("code"),
		RedirectURI:  r.PostForm.Get("redirect_uri"),
		CodeVerifier: r.PostForm.Get("code_verifier"),
		RefreshToken: r.PostForm.Get("refresh_token"),
	})
	if err != nil {
		o.log.Debug("token request rejected",
			sanitize.UserInputString("client_id", creds.ClientID),
			sanitize.UserInputString("grant_type", r.PostForm.Get("grant_type")),
			zap.Error(err))
		o.renderClientError(w, r, err)
		return
	}
	if err := render.Render(w, r, res); err != nil {
		o.log.Error("unable to render response", zap.Error(err))
	}
}

func (o *OAuthRessource) revoke(w http.ResponseWriter, r *http.Request) {
	creds, ok := o.clientRequest(w, r)
	if !ok {
		return
	}
	err := o.engine.Revoke(r.Context(), &tokens.RevokeRequest{
		Client:        creds,
		Token:         r.PostForm.Get("token"),
		TokenTypeHint: r.PostForm.Get("token_type_hint"),
	})
	if err != nil {
		o.renderClientError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

type userinfoResponse struct {
	ID       string `json:"id"`
	ClientID string `json:"client_id"`
	Scope    string `json:"scope"`
}

func (o *OAuthRessource) userinfo(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		o.renderError(w, r, oauth.InvalidToken("missing bearer token"))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	render.JSON(w, r, &userinfoResponse{
		ID:       p.UserID,
		ClientID: p.ClientID(),
		Scope:    p.Scopes.String(),
	})
}
