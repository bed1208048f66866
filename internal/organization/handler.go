package organization

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/transport"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateOrganization(ctx context.Context, caller *profile.Profile, req CreateOrganizationRequest) (*Organization, error)
	DeleteOrganization(ctx context.Context, caller *profile.Profile, id int64) error
	ListOrganizations(ctx context.Context, caller *profile.Profile) ([]*Organization, error)
	CreateDepartment(ctx context.Context, caller *profile.Profile, orgID int64, req CreateDepartmentRequest) (*Department, error)
	ListDepartments(ctx context.Context, caller *profile.Profile, orgID int64) ([]*Department, error)
	DeleteDepartment(ctx context.Context, caller *profile.Profile, orgID, deptID int64) error
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

func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}

	var req CreateOrganizationRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	org, err := h.Service.CreateOrganization(r.Context(), caller, req)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusCreated, org)
}

func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}

	orgs, err := h.Service.ListOrganizations(r.Context(), caller)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, orgs)
}

func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}
	orgID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.Service.DeleteOrganization(r.Context(), caller, orgID); err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}
	orgID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	var req CreateDepartmentRequest
	if err := h.DecodeJSON(r, &req); err != nil {
		h.WriteAppError(w, r, err)
		return
	}

	dept, err := h.Service.CreateDepartment(r.Context(), caller, orgID, req)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusCreated, dept)
}

func (h *Handler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}
	orgID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}

	depts, err := h.Service.ListDepartments(r.Context(), caller, orgID)
	if err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	h.WriteJSON(w, http.StatusOK, depts)
}

func (h *Handler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}
	orgID, ok := h.pathID(w, r, "id")
	if !ok {
		return
	}
	deptID, ok := h.pathID(w, r, "deptID")
	if !ok {
		return
	}

	if err := h.Service.DeleteDepartment(r.Context(), caller, orgID, deptID); err != nil {
		h.WriteAppError(w, r, toAppError(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		h.WriteAppError(w, r, internal.NewValidationFieldError(name, "invalid id", internal.ErrCodeValidationFailed))
		return 0, false
	}
	return id, true
}

func toAppError(err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return internal.NewNotFoundError("Organization or department not found", internal.ErrCodeNotFound)
	case errors.Is(err, ErrNameTaken):
		return internal.NewConflictError("Name already taken", internal.ErrCodeConflict)
	case errors.Is(err, ErrNotEmpty):
		return internal.NewConflictError("Still has members", internal.ErrCodeConflict)
	case errors.Is(err, authz.ErrNotPermitted), errors.Is(err, authz.ErrInactive):
		return authz.ToAppError(err)
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.ErrServiceUnavailable.WithCause(err)
}
