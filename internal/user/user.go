// Package user administers profiles and their local credentials. Every
// mutation is gated by authz and lands in the audit trail.
package user

import (
	"context"
	"errors"

	"github.com/frahmantamala/workforce-console/internal/auth"
	"github.com/frahmantamala/workforce-console/internal/core/profile"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrUsernameTaken  = errors.New("username already taken")
	ErrRoleEscalation = errors.New("cannot manage a profile with a higher role")
	ErrSelfAction     = errors.New("cannot perform this action on your own profile")
	ErrWrongPassword  = errors.New("current password is incorrect")
	ErrNoLocalLogin   = errors.New("profile has no local credential")

	// ErrForeignDepartment means the department is unknown or belongs to
	// another organization.
	ErrForeignDepartment = errors.New("department does not belong to the organization")
)

// ListFilter narrows a listing to a tenant. Zero fields are unconstrained.
type ListFilter struct {
	OrganizationID int64
	DepartmentID   int64
	Limit          int
	Offset         int
}

type Repository interface {
	// Create stores the profile and its local credential together.
	Create(ctx context.Context, p *profile.Profile, cred auth.LocalCredential) error
	GetByID(ctx context.Context, id int64) (*profile.Profile, error)
	DepartmentInOrganization(ctx context.Context, orgID, deptID int64) (bool, error)
	List(ctx context.Context, filter ListFilter) ([]*profile.Profile, error)
	SetActive(ctx context.Context, id int64, active bool) error
	// Delete removes the profile, its credentials and its sessions.
	Delete(ctx context.Context, id int64) error
}

// CredentialStore is the slice of the auth credential store that password
// changes need.
type CredentialStore interface {
	FindLocalCredentialByUsername(ctx context.Context, username string) (*auth.LocalCredential, error)
	ReplaceLocalCredentialHash(ctx context.Context, profileID int64, hash string, algorithm auth.Algorithm) error
}
