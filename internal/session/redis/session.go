package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/workforce-console/internal/session"
	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// SessionStore keeps one key per token hash with the session's remaining
// lifetime as TTL. Revoke deletes the key, and refresh only rewrites a key
// that still exists, so a revoke always wins.
type SessionStore struct {
	client goredis.UniversalClient
}

func NewSessionStore(client goredis.UniversalClient) session.Store {
	return &SessionStore{client: client}
}

func sessionKey(tokenHash string) string {
	return keyPrefix + tokenHash
}

func (s *SessionStore) Insert(ctx context.Context, rec *session.Record) error {
	ttl := time.Until(rec.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session %s already expired", rec.ID)
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding session: %w", err)
	}

	ok, err := s.client.SetNX(ctx, sessionKey(rec.TokenHash), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("storing session: %w", err)
	}
	if !ok {
		return fmt.Errorf("session token collision for %s", rec.ID)
	}
	return nil
}

func (s *SessionStore) FindByTokenHash(ctx context.Context, tokenHash string) (*session.Record, error) {
	value, err := s.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, session.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}

	var rec session.Record
	if err := json.Unmarshal(value, &rec); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	return &rec, nil
}

func (s *SessionStore) Extend(ctx context.Context, tokenHash string, now, expiresAt time.Time) (*session.Record, error) {
	rec, err := s.FindByTokenHash(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if rec.RevokedAt != nil || !now.Before(rec.ExpiresAt) {
		return nil, session.ErrNotFound
	}

	rec.ExpiresAt = expiresAt
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("encoding session: %w", err)
	}

	ok, err := s.client.SetXX(ctx, sessionKey(tokenHash), data, expiresAt.Sub(now)).Result()
	if err != nil {
		return nil, fmt.Errorf("extending session: %w", err)
	}
	if !ok {
		return nil, session.ErrNotFound
	}
	return rec, nil
}

func (s *SessionStore) Revoke(ctx context.Context, tokenHash string, _ time.Time) (bool, error) {
	n, err := s.client.Del(ctx, sessionKey(tokenHash)).Result()
	if err != nil {
		return false, fmt.Errorf("revoking session: %w", err)
	}
	return n > 0, nil
}

// DeleteExpired is a no-op: key TTLs expire sessions on their own.
func (s *SessionStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
