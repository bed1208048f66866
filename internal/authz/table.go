package authz

import "github.com/frahmantamala/workforce-console/internal/core/profile"

var profileActions = []Action{ActionViewProfile, ActionUpdateProfile, ActionChangePassword}

// table is built once and never mutated.
var table = buildTable()

func buildTable() map[profile.Role]map[Action]Scope {
	t := map[profile.Role]map[Action]Scope{
		profile.RoleSuperAdmin: {},
		profile.RoleOrgAdmin:   {},
		profile.RoleManager:    {},
		profile.RoleEmployee:   {},
	}

	for _, a := range AllActions {
		t[profile.RoleSuperAdmin][a] = ScopeAllOrganizations
	}

	for _, a := range AllActions {
		switch a {
		case ActionCreateOrganization, ActionDeleteOrganization:
			continue
		}
		t[profile.RoleOrgAdmin][a] = ScopeOwnOrganization
	}

	for _, a := range []Action{
		ActionViewUsers,
		ActionCreateUser,
		ActionUpdateUser,
		ActionDeactivateUser,
		ActionViewDepartments,
		ActionViewSchedule,
		ActionManageSchedule,
	} {
		t[profile.RoleManager][a] = ScopeOwnDepartment
	}
	t[profile.RoleManager][ActionViewOrganization] = ScopeOwnOrganization

	t[profile.RoleEmployee][ActionViewSchedule] = ScopeOwnDepartment
	t[profile.RoleEmployee][ActionViewDepartments] = ScopeOwnDepartment

	// Profile actions are self-service below super_admin.
	for _, r := range []profile.Role{profile.RoleOrgAdmin, profile.RoleManager, profile.RoleEmployee} {
		for _, a := range profileActions {
			t[r][a] = ScopeOwnProfile
		}
	}

	return t
}

// ScopeFor returns the scope at which role holds action.
func ScopeFor(role profile.Role, action Action) (Scope, bool) {
	s, ok := table[role][action]
	return s, ok
}

// Permissions returns a copy of the role's grants.
func Permissions(role profile.Role) map[Action]Scope {
	out := make(map[Action]Scope, len(table[role]))
	for a, s := range table[role] {
		out[a] = s
	}
	return out
}
