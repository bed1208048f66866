package audit

import (
	"context"
	"log/slog"
	"time"

	auditDatamodel "github.com/frahmantamala/workforce-console/internal/core/datamodel/audit"
	"github.com/frahmantamala/workforce-console/internal/ids"
	"github.com/frahmantamala/workforce-console/internal/metrics"
)

type Trail struct {
	sink    Sink
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
	now     func() time.Time
}

func NewTrail(sink Sink, logger *slog.Logger, m *metrics.Metrics) *Trail {
	if logger == nil {
		logger = slog.Default()
	}
	return &Trail{
		sink:    sink,
		logger:  logger,
		metrics: m,
		timeout: DefaultWriteTimeout,
		now:     time.Now,
	}
}

func (t *Trail) WithClock(now func() time.Time) *Trail {
	t.now = now
	return t
}

// Record writes e synchronously on a context detached from the caller's
// cancellation, so an abandoned request still leaves its audit entry.
func (t *Trail) Record(ctx context.Context, e Event) {
	if e.Client.empty() {
		e.Client = ClientMetadataFromContext(ctx)
	}

	rec := toRecord(e, t.now().UTC())

	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), t.timeout)
	defer cancel()

	if err := t.sink.Append(writeCtx, rec); err != nil {
		t.metrics.AuditWriteFailed()
		t.logger.ErrorContext(ctx, "audit write failed",
			"error", err,
			"audit_id", rec.ID,
			"event_type", rec.EventType,
			"success", rec.Success)
	}
}

func toRecord(e Event, at time.Time) *auditDatamodel.Record {
	return &auditDatamodel.Record{
		ID:                   ids.NewAt(at),
		EventType:            string(e.Type),
		ActorProfileID:       optionalID(e.ActorProfileID),
		TargetProfileID:      optionalID(e.TargetProfileID),
		TargetOrganizationID: optionalID(e.TargetOrganizationID),
		Success:              e.Success,
		FailureReason:        optionalString(e.FailureReason),
		UserAgent:            optionalString(e.Client.UserAgent),
		RemoteAddr:           optionalString(e.Client.RemoteAddr),
		TraceID:              optionalString(e.Client.TraceID),
		OccurredAt:           at,
	}
}

func optionalID(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
