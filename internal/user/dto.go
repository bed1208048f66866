package user

import (
	"strings"

	"github.com/frahmantamala/workforce-console/internal"
	"github.com/frahmantamala/workforce-console/internal/core/common/validation"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
)

var assignableRoles = []string{
	string(profile.RoleOrgAdmin),
	string(profile.RoleManager),
	string(profile.RoleEmployee),
}

type CreateUserRequest struct {
	Username       string `json:"username"`
	DisplayName    string `json:"display_name"`
	Email          string `json:"email,omitempty"`
	Password       string `json:"password"`
	Role           string `json:"role"`
	OrganizationID int64  `json:"organization_id,omitempty"`
	DepartmentID   int64  `json:"department_id,omitempty"`
}

// Validate checks shape only. Whether the caller may create the user is
// decided by the service.
func (r *CreateUserRequest) Validate() error {
	r.Username = strings.TrimSpace(r.Username)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	if r.DisplayName == "" {
		r.DisplayName = r.Username
	}

	if err := validation.ValidateUsername(r.Username); err != nil {
		return err
	}
	if err := validation.ValidatePassword(r.Password); err != nil {
		return err
	}
	if err := validation.ValidateName("display_name", r.DisplayName); err != nil {
		return err
	}

	v := validation.NewValidator()
	v.Field("role", r.Role).Required().OneOf(assignableRoles, internal.ErrCodeInvalidRole)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type SetActiveRequest struct {
	Active *bool `json:"active"`
}

func (r SetActiveRequest) Validate() error {
	if r.Active == nil {
		return internal.NewValidationFieldError("active", "active is required", internal.ErrCodeValidationFailed)
	}
	return nil
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password,omitempty"`
	NewPassword     string `json:"new_password"`
}

func (r ChangePasswordRequest) Validate() error {
	if err := validation.ValidatePasswordField("new_password", r.NewPassword); err != nil {
		return err
	}
	return nil
}

type ListResponse struct {
	Users  []UserResponse `json:"users"`
	Limit  int            `json:"limit"`
	Offset int            `json:"offset"`
}

type UserResponse struct {
	ID             int64        `json:"id"`
	TrackingID     string       `json:"tracking_id"`
	Username       string       `json:"username"`
	DisplayName    string       `json:"display_name"`
	Email          string       `json:"email,omitempty"`
	Role           profile.Role `json:"role"`
	OrganizationID *int64       `json:"organization_id,omitempty"`
	DepartmentID   *int64       `json:"department_id,omitempty"`
	IsActive       bool         `json:"is_active"`
}

func NewUserResponse(p *profile.Profile) UserResponse {
	return UserResponse{
		ID:             p.ID,
		TrackingID:     p.TrackingID,
		Username:       p.Username,
		DisplayName:    p.DisplayName,
		Email:          p.Email,
		Role:           p.Role,
		OrganizationID: p.OrganizationID,
		DepartmentID:   p.DepartmentID,
		IsActive:       p.IsActive,
	}
}
