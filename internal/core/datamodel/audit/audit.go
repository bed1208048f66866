package audit

import "time"

// Record is one row of the append-only audit_log table.
type Record struct {
	ID                   string    `db:"id" json:"id" yaml:"id"`
	EventType            string    `db:"event_type" json:"event_type" yaml:"event_type"`
	ActorProfileID       *int64    `db:"actor_profile_id" json:"actor_profile_id,omitempty" yaml:"actor_profile_id,omitempty"`
	TargetProfileID      *int64    `db:"target_profile_id" json:"target_profile_id,omitempty" yaml:"target_profile_id,omitempty"`
	TargetOrganizationID *int64    `db:"target_organization_id" json:"target_organization_id,omitempty" yaml:"target_organization_id,omitempty"`
	Success              bool      `db:"success" json:"success" yaml:"success"`
	FailureReason        *string   `db:"failure_reason" json:"failure_reason,omitempty" yaml:"failure_reason,omitempty"`
	UserAgent            *string   `db:"user_agent" json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	RemoteAddr           *string   `db:"remote_addr" json:"remote_addr,omitempty" yaml:"remote_addr,omitempty"`
	TraceID              *string   `db:"trace_id" json:"trace_id,omitempty" yaml:"trace_id,omitempty"`
	OccurredAt           time.Time `db:"occurred_at" json:"occurred_at" yaml:"occurred_at"`
}
