package profile

import (
	"fmt"
	"time"
)

// Role is a privilege tier. Tiers are ordered by scope breadth.
type Role string

const (
	RoleSuperAdmin Role = "super_admin"
	RoleOrgAdmin   Role = "org_admin"
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
)

var roleRank = map[Role]int{
	RoleEmployee:   1,
	RoleManager:    2,
	RoleOrgAdmin:   3,
	RoleSuperAdmin: 4,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// Outranks reports whether r is a strictly broader tier than other.
func (r Role) Outranks(other Role) bool {
	return roleRank[r] > roleRank[other]
}

func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Profile is the authoritative principal record. It does not know which
// credential kind authenticated it.
type Profile struct {
	ID             int64
	TrackingID     string
	Username       string
	DisplayName    string
	Email          string
	Role           Role
	OrganizationID *int64
	DepartmentID   *int64
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	LastLoginAt    *time.Time
}

// Validate checks the tenancy invariant: every role below super_admin
// belongs to an organization.
func (p *Profile) Validate() error {
	if !p.Role.Valid() {
		return fmt.Errorf("unknown role %q", p.Role)
	}
	if p.Username == "" {
		return fmt.Errorf("username is required")
	}
	if p.Role != RoleSuperAdmin && p.OrganizationID == nil {
		return fmt.Errorf("role %s requires an organization", p.Role)
	}
	return nil
}

func (p *Profile) OrgID() int64 {
	if p.OrganizationID == nil {
		return 0
	}
	return *p.OrganizationID
}

func (p *Profile) DeptID() int64 {
	if p.DepartmentID == nil {
		return 0
	}
	return *p.DepartmentID
}

// Int64Ptr returns a pointer to v, or nil when v is zero.
func Int64Ptr(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
