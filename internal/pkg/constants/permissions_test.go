package constants

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedRole(t *testing.T) {
	cases := []struct {
		permission string
		role       string
		want       bool
	}{
		{ReviewSolicitudes, Admin, true},
		{ReviewSolicitudes, SuperAdmin, true},
		{ReviewSolicitudes, Profesor, false},
		{ReviewSolicitudes, Acudiente, false},
		{ManageInvitations, Admin, true},
		{ManageInvitations, Profesor, false},
		{ViewInvitations, Profesor, true},
		{ViewInvitations, Estudiante, false},
		{ViewSolicitudes, Acudiente, false},
		{"unknown_permission", SuperAdmin, false},
		{ManageInvitations, "", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AllowedRole(tc.permission, tc.role), "%s/%s", tc.permission, tc.role)
	}
}

func TestEveryPermissionHasRoles(t *testing.T) {
	for perm, roles := range PermissionRoles {
		assert.NotEmpty(t, roles, perm)
		for _, r := range roles {
			assert.True(t, IsValidRole(r), "%s lists unknown role %s", perm, r)
		}
	}
}
