package postgres

import (
	"context"
	"fmt"

	"github.com/frahmantamala/workforce-console/internal/audit"
	auditDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/audit"
	"github.com/jmoiron/sqlx"
)

const (
	MaxListLimit     = 1000
	DefaultListLimit = 50
)

const insertRecord = `insert into audit_log(id, event_type, actor_profile_id, target_profile_id, target_organization_id,
	success, failure_reason, user_agent, remote_addr, trace_id, occurred_at)
	values(:id, :event_type, :actor_profile_id, :target_profile_id, :target_organization_id,
	:success, :failure_reason, :user_agent, :remote_addr, :trace_id, :occurred_at)`

const selectRecords = `select id, event_type, actor_profile_id, target_profile_id, target_organization_id,
	success, failure_reason, user_agent, remote_addr, trace_id, occurred_at
	from audit_log order by occurred_at desc, id desc limit $1`

// Store is the append-only audit_log table.
type Store struct {
	db *sqlx.DB
}

var (
	_ audit.Sink   = (*Store)(nil)
	_ audit.Reader = (*Store)(nil)
)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, rec *auditDatamodel.Record) error {
	if _, err := s.db.NamedExecContext(ctx, insertRecord, rec); err != nil {
		return fmt.Errorf("appending audit record %s: %w", rec.ID, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context, limit int) ([]auditDatamodel.Record, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}

	records := []auditDatamodel.Record{}
	if err := s.db.SelectContext(ctx, &records, selectRecords, limit); err != nil {
		return nil, fmt.Errorf("listing audit records: %w", err)
	}
	return records, nil
}
