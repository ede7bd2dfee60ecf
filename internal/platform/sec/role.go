// Copyright (c) 2026 Fixaroo. All rights reserved.
// Author: dev@fixaroo.app

package sec

// # User Roles

// UserRole represents the authorization level granted to an account.
type UserRole string

const (
	// Unrestricted system access
	RoleAdmin UserRole = "admin"

	// Can accept job requests, quote work, and manage their own schedule
	RoleTechnician UserRole = "technician"

	// Default role for registered users who post job requests
	RoleCustomer UserRole = "customer"
)

// # Role Hierarchy

// AtLeast checks if the current role meets or exceeds the required target role.
func (r UserRole) AtLeast(target UserRole) bool {
	return r.level() >= target.level()
}

// level maps a role to a numeric hierarchy level for comparison logic.
func (r UserRole) level() int {

	// Linear scale (10-40) allows for future intermediate roles
	switch r {
	case RoleAdmin:
		return 40
	case RoleTechnician:
		return 20
	case RoleCustomer:
		return 10
	default:
		return 0
	}
}

// IsValid reports whether the role is one of the known account roles.
func (r UserRole) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTechnician, RoleCustomer:
		return true
	}
	return false
}
