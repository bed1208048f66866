package internal

import (
	"context"
	"time"

	"github.com/frahmantamala/workforce-console/internal/core/profile"
)

type ctxKey string

const (
	ContextProfileKey      ctxKey = "profile"
	ContextSessionTokenKey ctxKey = "sessionToken"
)

// ProfileFromContext returns the principal attached by the session middleware.
func ProfileFromContext(ctx context.Context) (*profile.Profile, bool) {
	if ctx == nil {
		return nil, false
	}
	p, ok := ctx.Value(ContextProfileKey).(*profile.Profile)
	return p, ok && p != nil
}

func ContextWithProfile(ctx context.Context, p *profile.Profile) context.Context {
	return context.WithValue(ctx, ContextProfileKey, p)
}

// ProfileIDFromContext returns the authenticated profile id, or 0.
func ProfileIDFromContext(ctx context.Context) int64 {
	if p, ok := ProfileFromContext(ctx); ok {
		return p.ID
	}
	return 0
}

func SessionTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if token, ok := ctx.Value(ContextSessionTokenKey).(string); ok {
		return token
	}
	return ""
}

func ContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ContextSessionTokenKey, token)
}

// WithTimeout returns a context with timeout, defaulting to 5 seconds if duration is zero or negative.
func WithTimeout(ctx context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if duration <= 0 {
		duration = 5 * time.Second
	}
	return context.WithTimeout(ctx, duration)
}
