// Copyright 2026 The majordomo Authors. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package permissions implements the role-based permission model for
// intent dispatch. An intent maps to a minimum required role; owner-grade
// roles bypass the table entirely.
package permissions

import (
	"fmt"
	"strings"
)

// Role is an authorization level assigned to the calling principal.
// Roles form a strict total order, with the hybrid AdminOwner role carrying
// absolute priority.
type Role int

const (
	// RoleStandard is the lowest privilege tier.
	RoleStandard Role = iota + 1
	// RoleAdmin can perform system-changing actions.
	RoleAdmin
	// RoleOwner bypasses all permission checks.
	RoleOwner
	// RoleAdminOwner is the hybrid role combining admin and owner privilege.
	RoleAdminOwner
)

// roleLevels orders roles for comparison. AdminOwner sits far above the
// rest so it always clears any required level.
var roleLevels = map[Role]int{
	RoleStandard:   1,
	RoleAdmin:      2,
	RoleOwner:      3,
	RoleAdminOwner: 999,
}

var roleNames = map[Role]string{
	RoleStandard:   "standard",
	RoleAdmin:      "admin",
	RoleOwner:      "owner",
	RoleAdminOwner: "admin_owner",
}

// Level returns the numeric level used for hierarchy comparison.
// Unknown roles map to 0, below every requirement.
func (r Role) Level() int {
	return roleLevels[r]
}

// String returns the lowercase role name.
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return fmt.Sprintf("role(%d)", int(r))
}

// ParseRole converts a role name to a Role. Matching is case-insensitive.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "standard":
		return RoleStandard, nil
	case "admin":
		return RoleAdmin, nil
	case "owner":
		return RoleOwner, nil
	case "admin_owner", "admin+owner":
		return RoleAdminOwner, nil
	default:
		return 0, fmt.Errorf("permissions: invalid role name %q", name)
	}
}

// Table maps intent names to the minimum required role. It is immutable
// after construction; configuration reload swaps the whole table.
type Table struct {
	required   map[string]Role
	failClosed bool
}

// NewTable builds a permission table from an intent -> role mapping.
//
// When failClosed is false (the default policy observed in deployments),
// intents absent from the mapping require only RoleStandard. Setting
// failClosed to true makes unlisted intents require RoleAdmin instead,
// for installations that prefer to lock down new intents until they are
// explicitly granted.
func NewTable(required map[string]Role, failClosed bool) *Table {
	copied := make(map[string]Role, len(required))
	for intent, role := range required {
		copied[intent] = role
	}
	return &Table{required: copied, failClosed: failClosed}
}

// Required returns the minimum role for an intent and whether the intent
// was explicitly listed.
func (t *Table) Required(intent string) (Role, bool) {
	if role, ok := t.required[intent]; ok {
		return role, true
	}
	if t.failClosed {
		return RoleAdmin, false
	}
	return RoleStandard, false
}

// IsAuthorized reports whether role may execute intent. Owner and the
// hybrid admin+owner role are always authorized, short-circuiting the
// table lookup.
func (t *Table) IsAuthorized(role Role, intent string) bool {
	if role == RoleOwner || role == RoleAdminOwner {
		return true
	}
	required, _ := t.Required(intent)
	return role.Level() >= required.Level()
}

// Len returns the number of explicitly listed intents.
func (t *Table) Len() int {
	return len(t.required)
}

// DefaultRequirements returns the built-in intent permission map covering
// the stock skills. Installations extend or override it from configuration.
func DefaultRequirements() map[string]Role {
	return map[string]Role{
		// System control
		"shutdown_computer": RoleAdmin,
		"restart_computer":  RoleAdmin,
		"sleep_computer":    RoleAdmin,
		"lock_computer":     RoleAdmin,

		// Application control
		"open_application":  RoleStandard,
		"close_application": RoleStandard,

		// Info queries
		"get_time":          RoleStandard,
		"get_date":          RoleStandard,
		"get_ip_config": RoleStandard,
		"system_status": RoleStandard,

		// Media
		"set_volume": RoleStandard,

		// Network
		"test_network_connectivity": RoleStandard,
		"connect_vpn":               RoleAdmin,
		"disconnect_vpn":            RoleAdmin,

		// Services
		"control_service":    RoleAdmin,
		"get_service_status": RoleStandard,
		"list_services":      RoleStandard,

		// Learning / NLU meta
		"learning_correction": RoleStandard,
		"get_context":         RoleStandard,
		"clear_context":       RoleStandard,
		"get_learning_stats":  RoleStandard,
		"export_learned_data": RoleAdmin,
		"import_learned_data": RoleAdmin,
	}
}

// ParseRequirements converts a string->string mapping (as read from YAML
// configuration) into an intent permission map.
func ParseRequirements(raw map[string]string) (map[string]Role, error) {
	out := make(map[string]Role, len(raw))
	for intent, roleName := range raw {
		role, err := ParseRole(roleName)
		if err != nil {
			return nil, fmt.Errorf("permissions: intent %q: %w", intent, err)
		}
		out[intent] = role
	}
	return out, nil
}
