package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/frahmantamala/workforce-console/internal/audit"
	"github.com/frahmantamala/workforce-console/internal/ids"
	"github.com/frahmantamala/workforce-console/internal/metrics"
)

type ManagerAPI interface {
	Create(ctx context.Context, profileID int64, kind Kind) (*Session, error)
	Validate(ctx context.Context, token string) (*Session, error)
	Refresh(ctx context.Context, token string) (*Session, error)
	Revoke(ctx context.Context, token string) error
}

type Manager struct {
	store   Store
	ttl     time.Duration
	trail   audit.Recorder
	metrics *metrics.Metrics
	logger  *slog.Logger
	now     func() time.Time
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) { m.metrics = mt }
}

func NewManager(store Store, ttl time.Duration, trail audit.Recorder, logger *slog.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if trail == nil {
		trail = audit.Discard{}
	}
	m := &Manager{
		store:  store,
		ttl:    ttl,
		trail:  trail,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) TTL() time.Duration {
	return m.ttl
}

func (m *Manager) Create(ctx context.Context, profileID int64, kind Kind) (*Session, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid session kind %q", kind)
	}

	token, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := m.now().UTC()
	rec := &Record{
		ID:        ids.NewAt(now),
		TokenHash: HashToken(token),
		ProfileID: profileID,
		Kind:      kind,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.ttl),
	}

	err = m.store.Insert(ctx, rec)
	m.metrics.SessionOperation("create", err)
	if err != nil {
		return nil, fmt.Errorf("inserting session: %w", err)
	}

	s := rec.toSession()
	s.Token = token
	return s, nil
}

// Validate never returns a session for an expired or revoked token.
func (m *Manager) Validate(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	rec, err := m.store.FindByTokenHash(ctx, HashToken(token))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}

	if rec.RevokedAt != nil {
		return nil, ErrSessionNotFound
	}
	if !m.now().Before(rec.ExpiresAt) {
		return nil, ErrSessionExpired
	}

	s := rec.toSession()
	s.Token = token
	return s, nil
}

// Refresh keeps the token and moves its expiry to now+ttl. Expired, revoked
// and unknown tokens all yield ErrSessionNotFound.
func (m *Manager) Refresh(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	now := m.now().UTC()
	rec, err := m.store.Extend(ctx, HashToken(token), now, now.Add(m.ttl))
	if errors.Is(err, ErrNotFound) {
		m.metrics.SessionOperation("refresh", ErrSessionNotFound)
		m.trail.Record(ctx, audit.Event{
			Type:          audit.EventSessionRefresh,
			Success:       false,
			FailureReason: audit.ReasonSessionNotFound,
		})
		return nil, ErrSessionNotFound
	}
	m.metrics.SessionOperation("refresh", err)
	if err != nil {
		return nil, fmt.Errorf("extending session: %w", err)
	}

	m.trail.Record(ctx, audit.Event{
		Type:            audit.EventSessionRefresh,
		ActorProfileID:  rec.ProfileID,
		TargetProfileID: rec.ProfileID,
		Success:         true,
	})

	s := rec.toSession()
	s.Token = token
	return s, nil
}

// Revoke is idempotent. A logout is audited only when a live session ends.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	hash := HashToken(token)
	rec, err := m.store.FindByTokenHash(ctx, hash)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		m.metrics.SessionOperation("revoke", err)
		return fmt.Errorf("finding session: %w", err)
	}

	revoked, err := m.store.Revoke(ctx, hash, m.now().UTC())
	m.metrics.SessionOperation("revoke", err)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	if revoked {
		m.trail.Record(ctx, audit.Event{
			Type:            audit.EventSessionLogout,
			ActorProfileID:  rec.ProfileID,
			TargetProfileID: rec.ProfileID,
			Success:         true,
		})
	}
	return nil
}

// Sweep removes rows that can no longer validate.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	n, err := m.store.DeleteExpired(ctx, m.now().UTC())
	m.metrics.SessionOperation("sweep", err)
	if err != nil {
		return 0, fmt.Errorf("sweeping sessions: %w", err)
	}
	if n > 0 {
		m.logger.Info("swept sessions", "count", n)
	}
	return n, nil
}

// RunSweeper sweeps every interval until ctx ends.
func (m *Manager) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := m.Sweep(ctx); err != nil {
				m.logger.Error("session sweep failed", "error", err)
			}
		}
	}
}
