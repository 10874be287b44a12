// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Ordering(t *testing.T) {
	assert.Less(t, RoleStandard.Level(), RoleAdmin.Level())
	assert.Less(t, RoleAdmin.Level(), RoleOwner.Level())
	assert.Less(t, RoleOwner.Level(), RoleAdminOwner.Level())
	assert.Equal(t, 999, RoleAdminOwner.Level())
}

func TestParseRole(t *testing.T) {
	cases := map[string]Role{
		"standard":    RoleStandard,
		"Admin":       RoleAdmin,
		" OWNER ":     RoleOwner,
		"admin_owner": RoleAdminOwner,
		"admin+owner": RoleAdminOwner,
	}
	for name, want := range cases {
		got, err := ParseRole(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseRole("root")
	assert.Error(t, err)
}

func TestTable_StandardDeniedAdminIntent(t *testing.T) {
	table := NewTable(map[string]Role{"shutdown_computer": RoleAdmin}, false)

	assert.False(t, table.IsAuthorized(RoleStandard, "shutdown_computer"))
	assert.True(t, table.IsAuthorized(RoleAdmin, "shutdown_computer"))
}

func TestTable_OwnerBypassesEverything(t *testing.T) {
	table := NewTable(map[string]Role{"shutdown_computer": RoleAdmin}, true)

	assert.True(t, table.IsAuthorized(RoleOwner, "shutdown_computer"))
	assert.True(t, table.IsAuthorized(RoleOwner, "completely_unknown_intent"))
	assert.True(t, table.IsAuthorized(RoleAdminOwner, "completely_unknown_intent"))
}

func TestTable_UnlistedIntentFailOpen(t *testing.T) {
	table := NewTable(map[string]Role{}, false)

	role, listed := table.Required("new_intent")
	assert.False(t, listed)
	assert.Equal(t, RoleStandard, role)
	assert.True(t, table.IsAuthorized(RoleStandard, "new_intent"))
}

func TestTable_UnlistedIntentFailClosed(t *testing.T) {
	table := NewTable(map[string]Role{}, true)

	role, listed := table.Required("new_intent")
	assert.False(t, listed)
	assert.Equal(t, RoleAdmin, role)
	assert.False(t, table.IsAuthorized(RoleStandard, "new_intent"))
	assert.True(t, table.IsAuthorized(RoleAdmin, "new_intent"))
}

func TestTable_CopiesInputMap(t *testing.T) {
	src := map[string]Role{"get_time": RoleStandard}
	table := NewTable(src, false)

	src["get_time"] = RoleAdminOwner
	role, _ := table.Required("get_time")
	assert.Equal(t, RoleStandard, role, "table must not share the caller's map")
}

func TestDefaultRequirements(t *testing.T) {
	reqs := DefaultRequirements()

	assert.Equal(t, RoleAdmin, reqs["shutdown_computer"])
	assert.Equal(t, RoleStandard, reqs["get_time"])
	assert.Equal(t, RoleStandard, reqs["learning_correction"])
	assert.Equal(t, RoleAdmin, reqs["export_learned_data"])
}

func TestDefaultRequirements_ListInfoIntentsUnderFailClosed(t *testing.T) {
	// The info intents must stay listed under the names the skills dispatch,
	// or fail-closed mode silently raises them to admin.
	table := NewTable(DefaultRequirements(), true)

	assert.True(t, table.IsAuthorized(RoleStandard, "get_ip_config"))
	assert.True(t, table.IsAuthorized(RoleStandard, "system_status"))
}

func TestParseRequirements(t *testing.T) {
	out, err := ParseRequirements(map[string]string{
		"shutdown_computer": "admin",
		"get_time":          "standard",
	})
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, out["shutdown_computer"])
	assert.Equal(t, RoleStandard, out["get_time"])

	_, err = ParseRequirements(map[string]string{"x": "superuser"})
	assert.Error(t, err)
}
