package authz

import (
	"net/http"
	"sort"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
)

type Handler struct {
	guard *Guard
}

func NewHandler(guard *Guard) *Handler {
	return &Handler{guard: guard}
}

type DecisionRequest struct {
	Action string      `json:"action"`
	Target ScopeTarget `json:"target"`
}

type DecisionResponse struct {
	Action   Action   `json:"action"`
	Decision Decision `json:"decision"`
}

type GrantResponse struct {
	Action Action `json:"action"`
	Scope  Scope  `json:"scope"`
}

// Decide lets a client ask whether the caller may perform an action instead
// of reimplementing role checks.
func (h *Handler) Decide(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.guard.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}

	var req DecisionRequest
	if err := h.guard.DecodeJSON(r, &req); err != nil {
		h.guard.WriteAppError(w, r, err)
		return
	}

	action, err := ParseAction(req.Action)
	if err != nil {
		h.guard.WriteAppError(w, r, internal.NewValidationFieldError("action", err.Error(), internal.ErrCodeValidationFailed))
		return
	}

	d := Authorize(caller, action, req.Target)
	h.guard.WriteJSON(w, http.StatusOK, DecisionResponse{Action: action, Decision: d})
}

// Grants lists the caller's role table row.
func (h *Handler) Grants(w http.ResponseWriter, r *http.Request) {
	caller, ok := internal.ProfileFromContext(r.Context())
	if !ok {
		h.guard.WriteAppError(w, r, internal.ErrSessionNotFound)
		return
	}

	h.guard.WriteJSON(w, http.StatusOK, GrantsOf(caller))
}

// GrantsOf returns the principal's grants, empty for inactive profiles.
func GrantsOf(p *profile.Profile) []GrantResponse {
	out := []GrantResponse{}
	if p == nil || !p.IsActive {
		return out
	}
	for a, s := range Permissions(p.Role) {
		out = append(out, GrantResponse{Action: a, Scope: s})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Action < out[j].Action })
	return out
}
