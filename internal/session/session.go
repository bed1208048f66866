// Package session issues and tracks opaque session tokens. Federated and
// local sessions are stored and validated identically; only Kind differs.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

type Kind string

const (
	KindFederated Kind = "federated"
	KindLocal     Kind = "local"
)

func (k Kind) Valid() bool {
	return k == KindFederated || k == KindLocal
}

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	// ErrNotFound is returned by stores when no live row matches.
	ErrNotFound = errors.New("session record not found")
)

// Session is what callers see. Token is only populated on the value returned
// by Create; stores never hold it.
type Session struct {
	ID        string    `json:"id"`
	Token     string    `json:"-"`
	ProfileID int64     `json:"profile_id"`
	Kind      Kind      `json:"kind"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Record is the stored form of a session, keyed by token hash.
type Record struct {
	ID        string     `json:"id"`
	TokenHash string     `json:"token_hash"`
	ProfileID int64      `json:"profile_id"`
	Kind      Kind       `json:"kind"`
	IssuedAt  time.Time  `json:"issued_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

func (r *Record) toSession() *Session {
	return &Session{
		ID:        r.ID,
		ProfileID: r.ProfileID,
		Kind:      r.Kind,
		IssuedAt:  r.IssuedAt,
		ExpiresAt: r.ExpiresAt,
	}
}

// Store is the token table. Every method is atomic per token.
type Store interface {
	Insert(ctx context.Context, rec *Record) error
	FindByTokenHash(ctx context.Context, tokenHash string) (*Record, error)
	// Extend moves expires_at forward only while the row is unrevoked and
	// unexpired at now. It returns ErrNotFound otherwise.
	Extend(ctx context.Context, tokenHash string, now, expiresAt time.Time) (*Record, error)
	// Revoke tombstones the row. It reports whether a live row changed.
	Revoke(ctx context.Context, tokenHash string, at time.Time) (bool, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

const tokenBytes = 32

func generateToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashToken is the lookup key for a raw token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
