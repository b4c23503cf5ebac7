package auth

// Permission represents a named capability.
type Permission string

// Permission constants.
const (
	PermDashboardRead Permission = "dashboard:read"
	PermDashboardAct  Permission = "dashboard:act"
	PermStateRead     Permission = "state:read"
	PermStateWrite    Permission = "state:write"
	PermLightRead     Permission = "light:read"
	PermLightOperate  Permission = "light:operate"
	PermLightScan     Permission = "light:scan"
	PermAuditRead     Permission = "audit:read"
)

// rolePermissions maps each role to its granted permissions.
// User-scoped permissions are further limited by CustomClaims.CanActFor.
var rolePermissions = map[Role][]Permission{
	RoleUser: {
		PermDashboardRead,
		PermDashboardAct,
		PermStateRead,
		PermStateWrite,
		PermLightRead,
		PermLightOperate,
	},
	RoleAdmin: {
		PermDashboardRead,
		PermDashboardAct,
		PermStateRead,
		PermStateWrite,
		PermLightRead,
		PermLightOperate,
		PermLightScan,
		PermAuditRead,
	},
}

// HasPermission returns true if the given role has the specified permission.
func HasPermission(role Role, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}

// PermissionsForRole returns all permissions granted to a role.
// Returns nil for unknown roles.
func PermissionsForRole(role Role) []Permission {
	perms := rolePermissions[role]
	if perms == nil {
		return nil
	}
	result := make([]Permission, len(perms))
	copy(result, perms)
	return result
}
