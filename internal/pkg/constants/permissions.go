package constants

const (
	ManageInvitations = "manage_invitations"
	ViewInvitations   = "view_invitations"
	ReviewSolicitudes = "review_solicitudes"
	ViewSolicitudes   = "view_solicitudes"
)

// PermissionRoles maps each permission to the roles allowed to perform it.
// It is the single authorization table; nothing else compares role strings.
var PermissionRoles = map[string][]string{
	ManageInvitations: {SuperAdmin, Admin},
	ViewInvitations:   {SuperAdmin, Admin, Profesor},
	ReviewSolicitudes: {SuperAdmin, Admin},
	ViewSolicitudes:   {SuperAdmin, Admin},
}

// AllowedRole returns true if role is in the list of allowed roles for the permission.
func AllowedRole(permission, role string) bool {
	roles, ok := PermissionRoles[permission]
	if !ok {
		return false
	}
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
