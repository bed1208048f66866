package authz

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/core/events"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/metrics"
	"github.com/frahmantamala/workforce-console/internal/transport"
	"github.com/go-chi/chi"
)

// Checker is what services depend on to gate privileged operations.
type Checker interface {
	Check(ctx context.Context, p *profile.Profile, action Action, target ScopeTarget) error
}

// Guard wraps Authorize with logging, metrics and denial notifications.
type Guard struct {
	*transport.BaseHandler
	metrics   *metrics.Metrics
	publisher events.Publisher
}

func NewGuard(logger *slog.Logger, m *metrics.Metrics, publisher events.Publisher) *Guard {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &Guard{
		BaseHandler: transport.NewBaseHandler(logger),
		metrics:     m,
		publisher:   publisher,
	}
}

func (g *Guard) Decide(ctx context.Context, p *profile.Profile, action Action, target ScopeTarget) Decision {
	d := Authorize(p, action, target)
	if d.Allowed {
		g.metrics.AuthzDecision(string(action), "allow")
		return d
	}

	g.metrics.AuthzDecision(string(action), "deny")
	var profileID int64
	if p != nil {
		profileID = p.ID
	}
	g.Logger.WarnContext(ctx, "access denied",
		"profile_id", profileID,
		"action", action,
		"reason", d.Reason,
		"target_org", target.OrganizationID,
		"target_dept", target.DepartmentID,
		"target_profile", target.ProfileID)
	_ = g.publisher.Publish(ctx, events.NewAccessDeniedEvent(profileID, string(action), string(d.Reason)))
	return d
}

func (g *Guard) Check(ctx context.Context, p *profile.Profile, action Action, target ScopeTarget) error {
	return g.Decide(ctx, p, action, target).Err()
}

// TargetFunc derives the scope target of a request.
type TargetFunc func(r *http.Request, caller *profile.Profile) (ScopeTarget, error)

// Self targets the caller's own profile.
func Self(_ *http.Request, caller *profile.Profile) (ScopeTarget, error) {
	return ScopeTarget{
		OrganizationID: caller.OrgID(),
		DepartmentID:   caller.DeptID(),
		ProfileID:      caller.ID,
	}, nil
}

// CallerTenant targets the caller's organization and department.
func CallerTenant(_ *http.Request, caller *profile.Profile) (ScopeTarget, error) {
	return ScopeTarget{
		OrganizationID: caller.OrgID(),
		DepartmentID:   caller.DeptID(),
	}, nil
}

// OrganizationParam targets the organization named by a URL parameter.
func OrganizationParam(name string) TargetFunc {
	return func(r *http.Request, _ *profile.Profile) (ScopeTarget, error) {
		id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
		if err != nil || id <= 0 {
			return ScopeTarget{}, internal.NewValidationFieldError(name, "invalid organization id", internal.ErrCodeValidationFailed)
		}
		return ScopeTarget{OrganizationID: id}, nil
	}
}

// Require rejects requests whose principal may not perform action on the
// target derived by targetFn.
func (g *Guard) Require(action Action, targetFn TargetFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := internal.ProfileFromContext(r.Context())
			if !ok {
				g.Logger.WarnContext(r.Context(), "authorization check failed: no principal in context")
				g.WriteAppError(w, r, internal.ErrSessionNotFound)
				return
			}

			target, err := targetFn(r, caller)
			if err != nil {
				g.WriteAppError(w, r, err)
				return
			}

			if err := g.Check(r.Context(), caller, action, target); err != nil {
				g.WriteAppError(w, r, ToAppError(err))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ToAppError maps denials onto the HTTP error envelope. Inactive profiles get
// the same answer as any other denial.
func ToAppError(err error) error {
	if errors.Is(err, ErrNotPermitted) || errors.Is(err, ErrInactive) {
		return internal.ErrNotPermitted
	}
	return err
}
