package authz

import "github.com/frahmantamala/workforce-console/internal/core/profile"

// Authorize is a pure function of its inputs.
func Authorize(p *profile.Profile, action Action, target ScopeTarget) Decision {
	if p == nil {
		return Deny(ReasonNotPermitted)
	}
	if !p.IsActive {
		return Deny(ReasonInactive)
	}

	scope, ok := ScopeFor(p.Role, action)
	if !ok {
		return Deny(ReasonNotPermitted)
	}

	if matches(p, scope, target) {
		return Allow
	}
	return Deny(ReasonNotPermitted)
}

// VisibleScope is the breadth at which p holds action, used to narrow a
// listing once Authorize allowed the request. Inactive profiles hold nothing.
func VisibleScope(p *profile.Profile, action Action) (Scope, bool) {
	if p == nil || !p.IsActive {
		return 0, false
	}
	return ScopeFor(p.Role, action)
}

// MayManage reports whether actor may grant or act on a profile holding role
// without escalating past its own tier.
func MayManage(actor *profile.Profile, role profile.Role) bool {
	return actor != nil && !role.Outranks(actor.Role)
}

func matches(p *profile.Profile, scope Scope, target ScopeTarget) bool {
	switch scope {
	case ScopeAllOrganizations:
		return true
	case ScopeOwnOrganization:
		if target.OrganizationID == 0 {
			return true
		}
		return p.OrgID() != 0 && p.OrgID() == target.OrganizationID
	case ScopeOwnDepartment:
		return p.OrgID() != 0 && p.DeptID() != 0 &&
			p.OrgID() == target.OrganizationID &&
			p.DeptID() == target.DepartmentID
	case ScopeOwnProfile:
		return target.ProfileID != 0 && target.ProfileID == p.ID
	default:
		return false
	}
}
