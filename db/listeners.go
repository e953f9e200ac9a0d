package db

import (
	"context"
	"strconv"

	"github.com/stackernews/oauthd/db/tables"
	"github.com/stackernews/oauthd/events"
	"github.com/stackernews/oauthd/events/event"
	"go.uber.org/zap"
)

// Auditor is a way to write audit log events into a persistent store
type Auditor interface {
	addToAuditLog(ctx context.Context, event string, payload tables.MapStructure) error
}

// auditListener persists one event type into the audit log
type auditListener struct {
	store   Auditor
	log     *zap.Logger
	event   events.EventName
	payload func(ev events.Event) tables.MapStructure
}

func (l *auditListener) ForEvent() events.EventName {
	return l.event
}

func (l *auditListener) Handle(ctx context.Context, ev events.Event) error {
	err := l.store.addToAuditLog(ctx, string(l.event), l.payload(ev))
	if err != nil {
		l.log.Warn("Could not persist event to audit log", zap.String("event", string(l.event)), zap.Error(err))
	}
	return nil
}

func optionalInt(v *int) string {
	if v == nil {
		return "unlimited"
	}
	return strconv.Itoa(*v)
}

// BootstrapListeners registers all the event listeners from this package
func BootstrapListeners(store Auditor, log *zap.Logger) []events.EventListener {
	listener := func(name events.EventName, payload func(ev events.Event) tables.MapStructure) events.EventListener {
		return &auditListener{store: store, log: log, event: name, payload: payload}
	}
	return []events.EventListener{
		listener(event.ApplicationCreatedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.ApplicationCreated)
			return tables.MapStructure{
				"application_id": e.ApplicationID,
				"client_id":      e.ClientID,
				"name":           e.ApplicationName,
				"owner_user_id":  e.OwnerUserID,
				"approved":       e.Approved,
			}
		}),
		listener(event.ApplicationUpdatedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.ApplicationUpdated)
			return tables.MapStructure{
				"application_id": e.ApplicationID,
				"client_id":      e.ClientID,
				"owner_user_id":  e.OwnerUserID,
			}
		}),
		listener(event.ApplicationDeletedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.ApplicationDeleted)
			return tables.MapStructure{
				"application_id": e.ApplicationID,
				"client_id":      e.ClientID,
				"owner_user_id":  e.OwnerUserID,
			}
		}),
		listener(event.ApplicationApprovedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.ApplicationApproved)
			return tables.MapStructure{
				"application_id": e.ApplicationID,
				"client_id":      e.ClientID,
			}
		}),
		listener(event.ApplicationSuspendedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.ApplicationSuspended)
			return tables.MapStructure{
				"application_id":  e.ApplicationID,
				"client_id":       e.ClientID,
				"reason":          e.Reason,
				"affected_tokens": e.TokensAffected,
			}
		}),
		listener(event.ApplicationUnsuspendedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.ApplicationUnsuspended)
			return tables.MapStructure{
				"application_id": e.ApplicationID,
				"client_id":      e.ClientID,
			}
		}),
		listener(event.ApplicationRateLimitsChangedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.ApplicationRateLimitsChanged)
			return tables.MapStructure{
				"application_id": e.ApplicationID,
				"client_id":      e.ClientID,
				"per_minute":     optionalInt(e.PerMinute),
				"per_day":        optionalInt(e.PerDay),
			}
		}),
		listener(event.AuthorizationGrantedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.AuthorizationGranted)
			return tables.MapStructure{
				"grant_id":       e.GrantID.String(),
				"user_id":        e.UserID,
				"application_id": e.ApplicationID,
				"scopes":         e.Scopes,
			}
		}),
		listener(event.AuthorizationDeniedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.AuthorizationDenied)
			return tables.MapStructure{
				"user_id":        e.UserID,
				"application_id": e.ApplicationID,
			}
		}),
		listener(event.AuthorizationRevokedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.AuthorizationRevoked)
			return tables.MapStructure{
				"user_id":         e.UserID,
				"application_id":  e.ApplicationID,
				"affected_tokens": e.TokensAffected,
			}
		}),
		listener(event.TokenReuseDetectedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.TokenReuseDetected)
			return tables.MapStructure{
				"user_id":         e.UserID,
				"application_id":  e.ApplicationID,
				"family_id":       e.FamilyID.String(),
				"token_type":      e.TokenType,
				"affected_tokens": e.TokensAffected,
			}
		}),
		listener(event.TokenRevokedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.TokenRevoked)
			return tables.MapStructure{
				"user_id":        e.UserID,
				"application_id": e.ApplicationID,
				"token_type":     e.TokenType,
			}
		}),
		listener(event.TokensPurgedEvent, func(ev events.Event) tables.MapStructure {
			e := ev.(*event.TokensPurged)
			return tables.MapStructure{
				"codes":  e.Codes,
				"tokens": e.Tokens,
			}
		}),
	}
}
