package principal_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/motrack/adminkit/principal"
)

func TestRoleUnmarshalObjectForm(t *testing.T) {
	payload := `{
		"name": "admin",
		"level": 50,
		"displayName": "Administrator",
		"permissions": {"canDelete": false, "canExportData": true}
	}`

	var role principal.Role
	require.NoError(t, json.Unmarshal([]byte(payload), &role))
	require.Equal(t, principal.RoleAdmin, role.Name)
	require.Equal(t, principal.LevelAdmin, role.Level)
	require.Equal(t, "Administrator", role.DisplayName)
	require.Equal(t, map[string]bool{"canDelete": false, "canExportData": true}, role.Permissions)
}

func TestRoleUnmarshalLegacyStringForm(t *testing.T) {
	var role principal.Role
	require.NoError(t, json.Unmarshal([]byte(`" moderator "`), &role))

	require.Equal(t, principal.RoleModerator, role.Name)
	require.Equal(t, principal.LevelViewer, role.Level)
	require.Nil(t, role.Permissions)
}

func TestRoleUnmarshalRejectsGarbage(t *testing.T) {
	var role principal.Role
	require.Error(t, json.Unmarshal([]byte(`42`), &role))
}

func TestPrincipalUnmarshalBothRoleForms(t *testing.T) {
	object := `{"id":"a1","email":"x@motrack.io","isActive":true,"role":{"name":"admin","level":50}}`
	legacy := `{"id":"a2","email":"y@motrack.io","isActive":true,"role":"viewer"}`

	var p1, p2 principal.Principal
	require.NoError(t, json.Unmarshal([]byte(object), &p1))
	require.NoError(t, json.Unmarshal([]byte(legacy), &p2))

	require.True(t, p1.HasRole())
	require.Equal(t, 50, p1.Role.Level)
	require.True(t, p2.HasRole())
	require.Equal(t, "viewer", p2.Role.Name)
	require.Equal(t, 0, p2.Role.Level)
}

func TestIsSuperAdminByNameAndLevel(t *testing.T) {
	byName := &principal.Principal{Role: &principal.Role{Name: principal.RoleSuperAdmin}}
	byLevel := &principal.Principal{Role: &principal.Role{Name: "owner", Level: 120}}
	neither := &principal.Principal{Role: &principal.Role{Name: principal.RoleAdmin, Level: 50}}

	require.True(t, byName.IsSuperAdmin())
	require.True(t, byLevel.IsSuperAdmin())
	require.False(t, neither.IsSuperAdmin())
	require.False(t, (&principal.Principal{}).IsSuperAdmin())
}

func TestFullName(t *testing.T) {
	p := &principal.Principal{FirstName: "Dana", LastName: "Rider"}
	require.Equal(t, "Dana Rider", p.FullName())
	require.Equal(t, "Dana", (&principal.Principal{FirstName: "Dana"}).FullName())
	require.Equal(t, "", (&principal.Principal{}).FullName())
}
