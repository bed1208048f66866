package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/session"
	"github.com/frahmantamala/workforce-console/internal/transport"
	"github.com/frahmantamala/workforce-console/pkg/logger"
)

type LoginAPI interface {
	Login(ctx context.Context, credential, secret string) (*LoginResult, error)
}

type ProfileLookup interface {
	FindProfileByID(ctx context.Context, id int64) (*profile.Profile, error)
}

type Handler struct {
	*transport.BaseHandler
	Auth     LoginAPI
	Sessions session.ManagerAPI
	Profiles ProfileLookup
}

func NewHandler(authn LoginAPI, sessions session.ManagerAPI, profiles ProfileLookup, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Auth:        authn,
		Sessions:    sessions,
		Profiles:    profiles,
	}
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	res, err := h.Auth.Login(r.Context(), req.Credential, req.Secret)
	if err != nil {
		h.WriteAppError(w, r, loginError(err))
		return
	}

	h.WriteJSON(w, http.StatusOK, LoginResponse{
		Session: NewSessionResponse(res.Session),
		Profile: NewProfileResponse(res.Profile),
	})
}

func loginError(err error) error {
	switch {
	case errors.Is(err, ErrNoProfile):
		return internal.ErrNoProfile
	case errors.Is(err, ErrServiceUnavailable):
		return internal.ErrServiceUnavailable.WithCause(err)
	default:
		return internal.ErrInvalidCredentials
	}
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	token := h.ExtractTokenFromHeader(r)
	if err := h.Sessions.Revoke(r.Context(), token); err != nil {
		h.WriteAppError(w, r, internal.ErrServiceUnavailable.WithCause(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	s, err := h.Sessions.Refresh(r.Context(), h.ExtractTokenFromHeader(r))
	if err != nil {
		h.WriteAppError(w, r, sessionError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewSessionResponse(s))
}

// Me returns the caller with the grants its role carries.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}

	s, err := h.Sessions.Validate(r.Context(), internal.SessionTokenFromContext(r.Context()))
	if err != nil {
		h.WriteAppError(w, r, sessionError(err))
		return
	}
	s.Token = ""

	h.WriteJSON(w, http.StatusOK, MeResponse{
		Profile: NewProfileResponse(caller),
		Session: NewSessionResponse(s),
		Grants:  authz.GrantsOf(caller),
	})
}

func sessionError(err error) error {
	switch {
	case errors.Is(err, session.ErrSessionNotFound):
		return internal.ErrSessionNotFound
	case errors.Is(err, session.ErrSessionExpired):
		return internal.ErrSessionExpired
	default:
		return internal.ErrServiceUnavailable.WithCause(err)
	}
}

// AuthMiddleware resolves the bearer token to a profile. The profile is
// reloaded on every request so deactivation takes effect immediately in
// authorization.
func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := h.ExtractTokenFromHeader(r)
		if token == "" {
			h.WriteAppError(w, r, internal.ErrSessionNotFound)
			return
		}

		s, err := h.Sessions.Validate(r.Context(), token)
		if err != nil {
			h.WriteAppError(w, r, sessionError(err))
			return
		}

		p, err := h.Profiles.FindProfileByID(r.Context(), s.ProfileID)
		if errors.Is(err, ErrNotFound) {
			h.WriteAppError(w, r, internal.ErrSessionNotFound)
			return
		}
		if err != nil {
			h.WriteAppError(w, r, internal.ErrServiceUnavailable.WithCause(err))
			return
		}

		ctx := internal.ContextWithProfile(r.Context(), p)
		ctx = internal.ContextWithSessionToken(ctx, token)
		ctx = logger.With(ctx, "profile_id", p.ID, "session_kind", s.Kind)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
