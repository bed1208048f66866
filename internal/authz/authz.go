// Package authz decides whether a profile may perform an action on a target.
//
// Decisions come from one static role table and a pure scope-matching rule.
// Call sites never inspect roles directly; they ask Authorize, or
// VisibleScope and MayManage for listing breadth and tier checks.
package authz

import (
	"errors"
	"fmt"
)

type Action string

const (
	ActionViewProfile           Action = "view_profile"
	ActionUpdateProfile         Action = "update_profile"
	ActionChangePassword        Action = "change_password"
	ActionViewUsers             Action = "view_users"
	ActionCreateUser            Action = "create_user"
	ActionUpdateUser            Action = "update_user"
	ActionDeactivateUser        Action = "deactivate_user"
	ActionDeleteUser            Action = "delete_user"
	ActionViewDepartments       Action = "view_departments"
	ActionCreateDepartment      Action = "create_department"
	ActionDeleteDepartment      Action = "delete_department"
	ActionViewOrganization      Action = "view_organization"
	ActionUpdateOrganization    Action = "update_organization"
	ActionCreateOrganization    Action = "create_organization"
	ActionDeleteOrganization    Action = "delete_organization"
	ActionViewSchedule          Action = "view_schedule"
	ActionManageSchedule        Action = "manage_schedule"
	ActionViewStorageDashboard  Action = "view_storage_dashboard"
	ActionViewSecurityDashboard Action = "view_security_dashboard"
	ActionViewAuditLog          Action = "view_audit_log"
)

// AllActions is the action catalogue in display order.
var AllActions = []Action{
	ActionViewProfile,
	ActionUpdateProfile,
	ActionChangePassword,
	ActionViewUsers,
	ActionCreateUser,
	ActionUpdateUser,
	ActionDeactivateUser,
	ActionDeleteUser,
	ActionViewDepartments,
	ActionCreateDepartment,
	ActionDeleteDepartment,
	ActionViewOrganization,
	ActionUpdateOrganization,
	ActionCreateOrganization,
	ActionDeleteOrganization,
	ActionViewSchedule,
	ActionManageSchedule,
	ActionViewStorageDashboard,
	ActionViewSecurityDashboard,
	ActionViewAuditLog,
}

func ParseAction(s string) (Action, error) {
	for _, a := range AllActions {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Scope is the breadth at which a role holds an action. Larger is broader.
type Scope int

const (
	ScopeOwnProfile Scope = iota + 1
	ScopeOwnDepartment
	ScopeOwnOrganization
	ScopeAllOrganizations
)

func (s Scope) String() string {
	switch s {
	case ScopeOwnProfile:
		return "own_profile"
	case ScopeOwnDepartment:
		return "own_department"
	case ScopeOwnOrganization:
		return "own_organization"
	case ScopeAllOrganizations:
		return "all_organizations"
	default:
		return "none"
	}
}

func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// ScopeTarget names what an action touches. Zero means the component is absent.
type ScopeTarget struct {
	OrganizationID int64 `json:"organization_id,omitempty"`
	DepartmentID   int64 `json:"department_id,omitempty"`
	ProfileID      int64 `json:"profile_id,omitempty"`
}

type Reason string

const (
	ReasonInactive     Reason = "inactive"
	ReasonNotPermitted Reason = "not_permitted"
)

var (
	ErrNotPermitted = errors.New("not permitted")
	ErrInactive     = errors.New("profile is inactive")
)

type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  Reason `json:"reason,omitempty"`
}

var Allow = Decision{Allowed: true}

func Deny(reason Reason) Decision {
	return Decision{Reason: reason}
}

func (d Decision) String() string {
	if d.Allowed {
		return "allow"
	}
	return "deny(" + string(d.Reason) + ")"
}

// Err converts a denial into its sentinel error, or nil when allowed.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonInactive {
		return ErrInactive
	}
	return ErrNotPermitted
}
