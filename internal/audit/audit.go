// Package audit records session lifecycle and privileged-action events.
// Writes are best effort: a failed write is logged and counted, never
// returned to the caller.
package audit

import (
	"context"
	"time"

	auditDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/audit"
)

type EventType string

const (
	EventSessionLogin   EventType = "session.login"
	EventSessionLogout  EventType = "session.logout"
	EventSessionRefresh EventType = "session.refresh"
	EventUserCreated    EventType = "action.user_created"
	EventUserDeleted    EventType = "action.user_deleted"
	EventOrgCreated     EventType = "action.org_created"
	EventOrgDeleted     EventType = "action.org_deleted"
)

// Failure reasons. These are internal and never reach the login caller.
const (
	ReasonInvalidCredentials = "invalid_credentials"
	ReasonUserNotFound       = "user_not_found"
	ReasonInvalidPassword    = "invalid_password"
	ReasonInactive           = "inactive"
	ReasonNoProfile          = "no_profile"
	ReasonProviderError      = "provider_error"
	ReasonServiceUnavailable = "service_unavailable"
	ReasonSessionNotFound    = "session_not_found"
	ReasonNotPermitted       = "not_permitted"
	ReasonAlreadyExists      = "already_exists"
	ReasonNotFound           = "not_found"
	ReasonNotEmpty           = "not_empty"
)

// Event is one audit entry. Zero ids mean absent.
type Event struct {
	Type                 EventType
	ActorProfileID       int64
	TargetProfileID      int64
	TargetOrganizationID int64
	Success              bool
	FailureReason        string
	Client               ClientMetadata
}

// Recorder is the write side used by every component that audits.
type Recorder interface {
	Record(ctx context.Context, e Event)
}

// Sink persists records. It has no update or delete.
type Sink interface {
	Append(ctx context.Context, rec *auditDatamodel.Record) error
}

// Reader lists the newest records first.
type Reader interface {
	List(ctx context.Context, limit int) ([]auditDatamodel.Record, error)
}

// Discard drops events.
type Discard struct{}

func (Discard) Record(context.Context, Event) {}

const DefaultWriteTimeout = 3 * time.Second
