package auth

import (
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/stackernews/oauthd/oauth"
	"github.com/stackernews/oauthd/tokens"
)

/*
 Client authentication at the token and revocation endpoints
 (https://www.rfc-editor.org/rfc/rfc6749#section-2.3.1).
 The credentials are taken either from the Basic authorization header
 or from the request body, never from both.
*/

func basicAuthorizationHeader(r *http.Request) (string, bool) {
	val := r.Header.Get("Authorization")
	if len(val) > 6 && strings.EqualFold(val[0:6], "basic ") {
		return val[6:], true
	}
	return "", false
}

// ClientCredentialsFromRequest reads the client credentials, the form must already be parsed
func ClientCredentialsFromRequest(r *http.Request) (tokens.ClientCredentials, error) {
	header, hasBasic := basicAuthorizationHeader(r)
	formID := r.PostForm.Get("client_id")
	formSecret := r.PostForm.Get("client_secret")
	if !hasBasic {
		return tokens.ClientCredentials{ClientID: formID, ClientSecret: formSecret}, nil
	}
	if formSecret != "" {
		return tokens.ClientCredentials{}, oauth.InvalidRequest("use only one client authentication method")
	}
	text, err := base64.StdEncoding.DecodeString(strings.TrimSpace(header))
	if err != nil {
		return tokens.ClientCredentials{}, oauth.InvalidClient("malformed basic authorization")
	}
	rawID, rawSecret, ok := strings.Cut(string(text), ":")
	if !ok {
		return tokens.ClientCredentials{}, oauth.InvalidClient("malformed basic authorization")
	}
	clientID, err := url.QueryUnescape(rawID)
	if err != nil {
		return tokens.ClientCredentials{}, oauth.InvalidClient("malformed basic authorization")
	}
	secret, err := url.QueryUnescape(rawSecret)
	if err != nil {
		return tokens.ClientCredentials{}, oauth.InvalidClient("malformed basic authorization")
	}
	if formID != "" && formID != clientID {
		return tokens.ClientCredentials{}, oauth.InvalidRequest("client_id does not match the authorization header")
	}
	return tokens.ClientCredentials{ClientID: clientID, ClientSecret: secret}, nil
}

// ClientIP is the remote address without port, RealIP has rewritten it already
func ClientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
