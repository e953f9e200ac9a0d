package oauth

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorCodesAndStatus(t *testing.T) {
	tests := []struct {
		err    *Error
		code   string
		status int
	}{
		{InvalidRequest("x"), "invalid_request", http.StatusBadRequest},
		{InvalidClient("x"), "invalid_client", http.StatusUnauthorized},
		{InvalidGrant("x"), "invalid_grant", http.StatusBadRequest},
		{UnsupportedGrantType("password"), "unsupported_grant_type", http.StatusBadRequest},
		{InvalidScope("x"), "invalid_scope", http.StatusBadRequest},
		{InsufficientScope([]string{"wallet:read"}), "insufficient_scope", http.StatusUnauthorized},
		{RateLimited(60), "rate_limited", http.StatusTooManyRequests},
		{TooManyRequests(1), "too_many_requests", http.StatusTooManyRequests},
		{NotFound("x"), "not_found", http.StatusNotFound},
		{Internal(errors.New("boom")), "server_error", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code())
			assert.Equal(t, tt.status, tt.err.Status())
		})
	}
}

func TestErrorsIsMatchesKind(t *testing.T) {
	assert := assert.New(t)
	err := fmt.Errorf("exchanging: %w", InvalidGrant("code expired"))
	assert.True(errors.Is(err, ErrInvalidGrant))
	assert.False(errors.Is(err, ErrInvalidClient))
}

func TestAsWrapsUnknownErrorsAsInternal(t *testing.T) {
	assert := assert.New(t)
	cause := errors.New("connection refused")
	e := As(cause)
	assert.Equal(KindInternal, e.Kind)
	assert.ErrorIs(e, cause)
	assert.NotContains(e.Error(), "connection refused")
	assert.Nil(As(nil))
}

func TestValidationListsFields(t *testing.T) {
	e := Validation(map[string]string{"name": "is too short", "scopes": "is required"})
	assert.Equal(t, "name is too short, scopes is required", e.Description)
	assert.Len(t, e.Fields, 2)
}

func TestInsufficientScopeNamesMissing(t *testing.T) {
	e := InsufficientScope([]string{"wallet:read"})
	assert.Equal(t, []string{"wallet:read"}, e.Missing)
	assert.Contains(t, e.Description, "wallet:read")
}
