package model

// Role is the coarse account type. Permissions are derived from it.
type Role string

const (
	RoleManager    Role = "manager"
	RoleEmployee   Role = "employee"
	RoleInstructor Role = "instructor"
	RoleStudent    Role = "student"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := RolePermissions[r]
	return ok
}

// RolePermissions is the fixed capability set of every role.
var RolePermissions = map[Role][]Permission{
	RoleManager: {
		PermissionExamsRead,
		PermissionExamsWriteAll,
		PermissionResultsReadAll,
		PermissionResultsApproveAll,
	},
	RoleEmployee: {
		PermissionExamsRead,
		PermissionResultsReadAll,
	},
	RoleInstructor: {
		PermissionExamsWriteOwn,
		PermissionResultsReadOwn,
		PermissionResultsApproveOwn,
	},
	RoleStudent: {
		PermissionExamsTake,
	},
}

// PermissionsFor returns the permission codes granted to a role as strings,
// the form embedded into tokens.
func PermissionsFor(r Role) []string {
	perms := RolePermissions[r]
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = string(p)
	}
	return out
}
