package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/certdash/auth"
	"github.com/warp/certdash/generic"
)

func TestParseRole(t *testing.T) {
	r, err := auth.ParseRole("admin")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleAdmin, r)

	r, err = auth.ParseRole("sop")
	require.NoError(t, err)
	assert.Equal(t, auth.RoleSOP, r)

	for _, bad := range []string{"", "Admin", "root", "viewer"} {
		_, err := auth.ParseRole(bad)
		assert.ErrorIs(t, err, generic.ErrUnknownRole, bad)
	}
}

func TestRole_JSON(t *testing.T) {
	u := auth.User{ID: "2", Name: "SOP User", Role: auth.RoleSOP, OrganizationID: "org-1"}

	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"role":"sop"`)

	var back auth.User
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, auth.RoleSOP, back.Role)

	err = json.Unmarshal([]byte(`{"id":"9","role":"superuser"}`), &back)
	assert.ErrorIs(t, err, generic.ErrUnknownRole)

	_, err = json.Marshal(auth.User{ID: "0"})
	assert.Error(t, err, "the zero Role is not a role")
}

func TestUser_LandingPathAndScope(t *testing.T) {
	admin := auth.User{Role: auth.RoleAdmin}
	sop := auth.User{Role: auth.RoleSOP, OrganizationID: "org-1"}

	assert.Equal(t, "/dashboard", admin.LandingPath())
	assert.Equal(t, "/sop-dashboard", sop.LandingPath())

	assert.True(t, admin.CanView("org-2"))
	assert.True(t, sop.CanView("org-1"))
	assert.False(t, sop.CanView("org-2"))
	assert.False(t, auth.User{Role: auth.RoleSOP}.CanView(""), "an SOP user without an organization sees nothing")
}

func TestUser_UnhandledRolePanics(t *testing.T) {
	assert.Panics(t, func() { _ = auth.User{}.LandingPath() })
}
