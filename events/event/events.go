package event

import (
	"github.com/google/uuid"
	"github.com/stackernews/oauthd/events"
)

const (
	ApplicationCreatedEvent           events.EventName = "application_created"
	ApplicationUpdatedEvent           events.EventName = "application_updated"
	ApplicationDeletedEvent           events.EventName = "application_deleted"
	ApplicationApprovedEvent          events.EventName = "application_approved"
	ApplicationSuspendedEvent         events.EventName = "application_suspended"
	ApplicationUnsuspendedEvent       events.EventName = "application_unsuspended"
	ApplicationRateLimitsChangedEvent events.EventName = "application_rate_limits_changed"

	AuthorizationGrantedEvent events.EventName = "authorization_granted"
	AuthorizationDeniedEvent  events.EventName = "authorization_denied"
	AuthorizationRevokedEvent events.EventName = "authorization_revoked"

	TokenReuseDetectedEvent events.EventName = "token_reuse_detected"
	TokenRevokedEvent       events.EventName = "token_revoked"
	TokensPurgedEvent       events.EventName = "tokens_purged"
)

type ApplicationCreated struct {
	ApplicationID   int
	ClientID        string
	ApplicationName string
	OwnerUserID     string
	Approved        bool
}

func (*ApplicationCreated) Name() events.EventName { return ApplicationCreatedEvent }

type ApplicationUpdated struct {
	ApplicationID int
	ClientID      string
	OwnerUserID   string
}

func (*ApplicationUpdated) Name() events.EventName { return ApplicationUpdatedEvent }

type ApplicationDeleted struct {
	ApplicationID int
	ClientID      string
	OwnerUserID   string
}

func (*ApplicationDeleted) Name() events.EventName { return ApplicationDeletedEvent }

type ApplicationApproved struct {
	ApplicationID int
	ClientID      string
}

func (*ApplicationApproved) Name() events.EventName { return ApplicationApprovedEvent }

type ApplicationSuspended struct {
	ApplicationID  int
	ClientID       string
	Reason         string
	TokensAffected int64
}

func (*ApplicationSuspended) Name() events.EventName { return ApplicationSuspendedEvent }

type ApplicationUnsuspended struct {
	ApplicationID int
	ClientID      string
}

func (*ApplicationUnsuspended) Name() events.EventName { return ApplicationUnsuspendedEvent }

type ApplicationRateLimitsChanged struct {
	ApplicationID int
	ClientID      string
	PerMinute     *int
	PerDay        *int
}

func (*ApplicationRateLimitsChanged) Name() events.EventName {
	return ApplicationRateLimitsChangedEvent
}

type AuthorizationGranted struct {
	GrantID       uuid.UUID
	UserID        string
	ApplicationID int
	Scopes        []string
}

func (*AuthorizationGranted) Name() events.EventName { return AuthorizationGrantedEvent }

type AuthorizationDenied struct {
	UserID        string
	ApplicationID int
}

func (*AuthorizationDenied) Name() events.EventName { return AuthorizationDeniedEvent }

type AuthorizationRevoked struct {
	UserID         string
	ApplicationID  int
	TokensAffected int64
}

func (*AuthorizationRevoked) Name() events.EventName { return AuthorizationRevokedEvent }

// TokenReuseDetected signals a consumed code or refresh token was presented again
type TokenReuseDetected struct {
	ApplicationID  int
	UserID         string
	FamilyID       uuid.UUID
	TokenType      string
	TokensAffected int64
}

func (*TokenReuseDetected) Name() events.EventName { return TokenReuseDetectedEvent }

type TokenRevoked struct {
	ApplicationID int
	UserID        string
	TokenType     string
}

func (*TokenRevoked) Name() events.EventName { return TokenRevokedEvent }

type TokensPurged struct {
	Codes  int64
	Tokens int64
}

func (*TokensPurged) Name() events.EventName { return TokensPurgedEvent }
