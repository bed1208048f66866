package middleware

import (
	"net/http"

	"github.com/frahmantamala/workforce-console/internal/audit"
)

const maxUserAgent = 512

// ClientMetadata attaches the caller's user agent, address and trace id to
// the context so audit records can carry them.
func ClientMetadata(trust *ProxyTrust) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ua := r.UserAgent()
			if len(ua) > maxUserAgent {
				ua = ua[:maxUserAgent]
			}

			ctx := audit.WithClientMetadata(r.Context(), audit.ClientMetadata{
				UserAgent:  ua,
				RemoteAddr: trust.ClientIP(r),
				TraceID:    TraceIDFromContext(r.Context()),
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
