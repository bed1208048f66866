package user

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/auth"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Create(ctx context.Context, caller *profile.Profile, req CreateUserRequest) (*profile.Profile, error)
	Get(ctx context.Context, caller *profile.Profile, id int64) (*profile.Profile, error)
	List(ctx context.Context, caller *profile.Profile, filter ListFilter) ([]*profile.Profile, error)
	SetActive(ctx context.Context, caller *profile.Profile, id int64, active bool) (*profile.Profile, error)
	Delete(ctx context.Context, caller *profile.Profile, id int64) error
	ChangePassword(ctx context.Context, caller *profile.Profile, id int64, req ChangePasswordRequest) error
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI, lg *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}

	var req CreateUserRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, err := h.Service.Create(r.Context(), caller, req)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusCreated, NewUserResponse(p))
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	p, err := h.Service.Get(r.Context(), caller, id)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewUserResponse(p))
}

func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}

	filter := ListFilter{Limit: defaultListLimit}
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if l, err := strconv.Atoi(v); err == nil && l > 0 {
			filter.Limit = l
		}
	}
	if v := q.Get("offset"); v != "" {
		if o, err := strconv.Atoi(v); err == nil && o >= 0 {
			filter.Offset = o
		}
	}
	if v := q.Get("organization_id"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			filter.OrganizationID = id
		}
	}

	users, err := h.Service.List(r.Context(), caller, filter)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}

	resp := ListResponse{Users: make([]UserResponse, 0, len(users)), Limit: filter.Limit, Offset: filter.Offset}
	for _, u := range users {
		resp.Users = append(resp.Users, NewUserResponse(u))
	}
	h.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) SetActive(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req SetActiveRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}
	if err := req.Validate(); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	p, err := h.Service.SetActive(r.Context(), caller, id, *req.Active)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, NewUserResponse(p))
}

func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	if err := h.Service.Delete(r.Context(), caller, id); err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	caller, id, ok := h.callerAndID(w, r)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	if err := h.Service.ChangePassword(r.Context(), caller, id, req); err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) callerAndID(w http.ResponseWriter, r *http.Request) (*profile.Profile, int64, bool) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return nil, 0, false
	}

	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.WriteAppError(w, r, internal.NewValidationFieldError("id", "invalid user id", internal.ErrCodeValidationFailed))
		return nil, 0, false
	}
	return caller, id, true
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return internal.NewNotFoundError("User not found", internal.ErrCodeNotFound)
	case errors.Is(err, ErrUsernameTaken):
		return internal.NewConflictError("Username already taken", internal.ErrCodeConflict)
	case errors.Is(err, ErrRoleEscalation):
		return internal.ErrNotPermitted
	case errors.Is(err, ErrSelfAction):
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	case errors.Is(err, ErrWrongPassword):
		return internal.NewValidationFieldError("current_password", err.Error(), internal.ErrCodeInvalidPassword)
	case errors.Is(err, ErrForeignDepartment):
		return internal.NewValidationFieldError("department_id", err.Error(), internal.ErrCodeValidationFailed)
	case errors.Is(err, auth.ErrPasswordTooLong):
		return internal.NewValidationFieldError("password", err.Error(), internal.ErrCodeValidationFailed)
	case errors.Is(err, ErrNoLocalLogin):
		return internal.NewValidationError(err.Error(), internal.ErrCodeValidationFailed)
	case errors.Is(err, authz.ErrNotPermitted), errors.Is(err, authz.ErrInactive):
		return authz.ToAppError(err)
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.ErrServiceUnavailable.WithCause(err)
}
