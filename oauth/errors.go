// Package oauth contains the protocol level error taxonomy shared by every
// component of the authorization server and the PKCE verification.
//
// see https://datatracker.ietf.org/doc/html/rfc6749#section-5.2
package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies an error, it decides the wire code and the http status
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindInvalidClient
	KindInvalidGrant
	KindUnsupportedGrantType
	KindUnsupportedResponseType
	KindInvalidScope
	KindInsufficientScope
	KindInvalidToken
	KindAccessDenied
	KindRateLimited
	KindTooManyRequests
	KindNotFound
	KindUnauthenticated
)

type descriptor struct {
	code   string
	status int
}

var descriptors = map[Kind]descriptor{
	KindInternal:                {"server_error", http.StatusInternalServerError},
	KindValidation:              {"invalid_request", http.StatusBadRequest},
	KindInvalidClient:           {"invalid_client", http.StatusUnauthorized},
	KindInvalidGrant:            {"invalid_grant", http.StatusBadRequest},
	KindUnsupportedGrantType:    {"unsupported_grant_type", http.StatusBadRequest},
	KindUnsupportedResponseType: {"unsupported_response_type", http.StatusBadRequest},
	KindInvalidScope:            {"invalid_scope", http.StatusBadRequest},
	KindInsufficientScope:       {"insufficient_scope", http.StatusUnauthorized},
	KindInvalidToken:            {"invalid_token", http.StatusUnauthorized},
	KindAccessDenied:            {"access_denied", http.StatusForbidden},
	KindRateLimited:             {"rate_limited", http.StatusTooManyRequests},
	KindTooManyRequests:         {"too_many_requests", http.StatusTooManyRequests},
	KindNotFound:                {"not_found", http.StatusNotFound},
	KindUnauthenticated:         {"unauthenticated", http.StatusUnauthorized},
}

// Error is the one error type crossing component boundaries
type Error struct {
	Kind        Kind
	Description string
	// Fields holds per field validation messages
	Fields map[string]string
	// Missing names the scopes a token lacked
	Missing []string
	// RetryAfter in seconds for rate limited calls
	RetryAfter int
	cause      error
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code()
	}
	return fmt.Sprintf("%s: %s", e.Code(), e.Description)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Code is the OAuth error code
func (e *Error) Code() string {
	return descriptors[e.Kind].code
}

// Status is the http status to answer with
func (e *Error) Status() int {
	return descriptors[e.Kind].status
}

// Is matches on kind so errors.Is(err, oauth.ErrInvalidGrant) works
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind && t.Description == "" && t.cause == nil
}

// Kind sentinels for errors.Is
var (
	ErrInternal          = &Error{Kind: KindInternal}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrInvalidClient     = &Error{Kind: KindInvalidClient}
	ErrInvalidGrant      = &Error{Kind: KindInvalidGrant}
	ErrInvalidScope      = &Error{Kind: KindInvalidScope}
	ErrInsufficientScope = &Error{Kind: KindInsufficientScope}
	ErrInvalidToken      = &Error{Kind: KindInvalidToken}
	ErrAccessDenied      = &Error{Kind: KindAccessDenied}
	ErrRateLimited       = &Error{Kind: KindRateLimited}
	ErrNotFound          = &Error{Kind: KindNotFound}
)

func newError(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Description: fmt.Sprintf(format, args...)}
}

func InvalidRequest(format string, args ...interface{}) *Error {
	return newError(KindValidation, format, args...)
}

// Validation carries every violated field at once
func Validation(fields map[string]string) *Error {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s %s", k, fields[k])
	}
	return &Error{
		Kind:        KindValidation,
		Description: strings.Join(parts, ", "),
		Fields:      fields,
	}
}

func InvalidClient(format string, args ...interface{}) *Error {
	return newError(KindInvalidClient, format, args...)
}

func InvalidGrant(format string, args ...interface{}) *Error {
	return newError(KindInvalidGrant, format, args...)
}

func UnsupportedGrantType(grantType string) *Error {
	return newError(KindUnsupportedGrantType, "grant_type %q is not supported", grantType)
}

func UnsupportedResponseType(responseType string) *Error {
	return newError(KindUnsupportedResponseType, "response_type %q is not supported", responseType)
}

func InvalidScope(format string, args ...interface{}) *Error {
	return newError(KindInvalidScope, format, args...)
}

// InsufficientScope names the scopes the caller lacked
func InsufficientScope(missing []string) *Error {
	return &Error{
		Kind:        KindInsufficientScope,
		Description: fmt.Sprintf("missing scopes: %s", strings.Join(missing, " ")),
		Missing:     missing,
	}
}

func InvalidToken(format string, args ...interface{}) *Error {
	return newError(KindInvalidToken, format, args...)
}

func AccessDenied(format string, args ...interface{}) *Error {
	return newError(KindAccessDenied, format, args...)
}

// RateLimited tells the caller how many seconds to back off
func RateLimited(retryAfter int) *Error {
	return &Error{
		Kind:        KindRateLimited,
		Description: "rate limit exceeded",
		RetryAfter:  retryAfter,
	}
}

// TooManyRequests is the throttle answer of the token endpoint
func TooManyRequests(retryAfter int) *Error {
	return &Error{
		Kind:        KindTooManyRequests,
		Description: "too many requests",
		RetryAfter:  retryAfter,
	}
}

func NotFound(format string, args ...interface{}) *Error {
	return newError(KindNotFound, format, args...)
}

func Unauthenticated() *Error {
	return newError(KindUnauthenticated, "authentication required")
}

// Internal wraps an unexpected failure, the cause never reaches the client
func Internal(cause error) *Error {
	return &Error{Kind: KindInternal, cause: cause}
}

// As converts any error into an *Error, unknown errors become internal ones
func As(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Internal(err)
}
