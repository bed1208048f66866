package auth

import (
	"strings"
	"time"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/authz"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
	"github.com/frahmantamala/workforce-console/internal/session"
)

// LoginRequest carries either an email and provider ID token, or a
// username and password. The shape of Credential decides which.
type LoginRequest struct {
	Credential string `json:"credential"`
	Secret     string `json:"secret"`
}

func (d LoginRequest) Validate() error {
	if strings.TrimSpace(d.Credential) == "" {
		return internal.NewValidationFieldError("credential", "credential is required", internal.ErrCodeValidationFailed)
	}
	if d.Secret == "" {
		return internal.NewValidationFieldError("secret", "secret is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type SessionResponse struct {
	Token     string       `json:"token,omitempty"`
	ID        string       `json:"id"`
	Kind      session.Kind `json:"kind"`
	IssuedAt  time.Time    `json:"issued_at"`
	ExpiresAt time.Time    `json:"expires_at"`
}

func NewSessionResponse(s *session.Session) SessionResponse {
	return SessionResponse{
		Token:     s.Token,
		ID:        s.ID,
		Kind:      s.Kind,
		IssuedAt:  s.IssuedAt,
		ExpiresAt: s.ExpiresAt,
	}
}

type ProfileResponse struct {
	ID             int64        `json:"id"`
	TrackingID     string       `json:"tracking_id"`
	Username       string       `json:"username"`
	DisplayName    string       `json:"display_name"`
	Email          string       `json:"email,omitempty"`
	Role           profile.Role `json:"role"`
	OrganizationID *int64       `json:"organization_id,omitempty"`
	DepartmentID   *int64       `json:"department_id,omitempty"`
	IsActive       bool         `json:"is_active"`
	LastLoginAt    *time.Time   `json:"last_login_at,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func NewProfileResponse(p *profile.Profile) ProfileResponse {
	return ProfileResponse{
		ID:             p.ID,
		TrackingID:     p.TrackingID,
		Username:       p.Username,
		DisplayName:    p.DisplayName,
		Email:          p.Email,
		Role:           p.Role,
		OrganizationID: p.OrganizationID,
		DepartmentID:   p.DepartmentID,
		IsActive:       p.IsActive,
		LastLoginAt:    p.LastLoginAt,
		CreatedAt:      p.CreatedAt,
	}
}

type LoginResponse struct {
	Session SessionResponse `json:"session"`
	Profile ProfileResponse `json:"profile"`
}

type MeResponse struct {
	Profile ProfileResponse       `json:"profile"`
	Session SessionResponse       `json:"session"`
	Grants  []authz.GrantResponse `json:"grants"`
}
