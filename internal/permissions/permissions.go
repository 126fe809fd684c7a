// Package permissions maps account roles to the capabilities they grant.
//
// The table is static configuration: it is built once at package init and
// never mutated. Every function here is pure.
package permissions

import (
	"errors"
	"fmt"

	"github.com/kitchenconnect/kitchen-service/internal/models"
)

// Permission is a single fine-grained capability
type Permission string

const (
	CanBanUsers           Permission = "canBanUsers"
	CanEditProfiles       Permission = "canEditProfiles"
	CanDeleteProfiles     Permission = "canDeleteProfiles"
	CanEditDishes         Permission = "canEditDishes"
	CanDeleteDishes       Permission = "canDeleteDishes"
	CanManageOrders       Permission = "canManageOrders"
	CanViewAnalytics      Permission = "canViewAnalytics"
	CanManageChefs        Permission = "canManageChefs"
	CanManageDrivers      Permission = "canManageDrivers"
	CanViewAllUsers       Permission = "canViewAllUsers"
	CanModerateContent    Permission = "canModerateContent"
	CanManageMessages     Permission = "canManageMessages"
	CanOverrideOrderStage Permission = "canOverrideOrderStage"
	CanEditOwnProfile     Permission = "canEditOwnProfile"
	CanDeleteOwnAccount   Permission = "canDeleteOwnAccount"
)

// ErrUnknownRole is reported for a role tag outside the static table.
// Such a role is kept but grants nothing.
var ErrUnknownRole = errors.New("unknown role")

// AllPermissions returns every defined permission in canonical order
func AllPermissions() []Permission {
	return []Permission{
		CanBanUsers,
		CanEditProfiles,
		CanDeleteProfiles,
		CanEditDishes,
		CanDeleteDishes,
		CanManageOrders,
		CanViewAnalytics,
		CanManageChefs,
		CanManageDrivers,
		CanViewAllUsers,
		CanModerateContent,
		CanManageMessages,
		CanOverrideOrderStage,
		CanEditOwnProfile,
		CanDeleteOwnAccount,
	}
}

var selfService = []Permission{CanEditOwnProfile, CanDeleteOwnAccount}

// rolePermissions is the authoritative role -> permission table
var rolePermissions = map[models.UserRole][]Permission{
	models.RoleAdmin: AllPermissions(),
	models.RoleModerator: append([]Permission{
		CanBanUsers,
		CanEditDishes,
		CanViewAnalytics,
		CanViewAllUsers,
		CanModerateContent,
		CanManageMessages,
	}, selfService...),
	models.RoleChef: append([]Permission{
		CanEditDishes,
		CanDeleteDishes,
		CanManageOrders,
	}, selfService...),
	models.RoleDriver: append([]Permission{
		CanManageOrders,
	}, selfService...),
	models.RoleCustomer: append([]Permission{}, selfService...),
}

// grants is rolePermissions indexed for O(1) lookup
var grants = func() map[models.UserRole]map[Permission]struct{} {
	m := make(map[models.UserRole]map[Permission]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[Permission]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		m[role] = set
	}
	return m
}()

// precedence ranks roles for GetUserPrimaryRole; lower wins
var precedence = func() map[models.UserRole]int {
	m := make(map[models.UserRole]int)
	for i, r := range models.AllRoles() {
		m[r] = i
	}
	return m
}()

// IsKnownRole reports whether role appears in the static table
func IsKnownRole(role models.UserRole) bool {
	_, ok := grants[role]
	return ok
}

// ParseRole converts a raw tag into a role. Unknown tags are still returned
// alongside ErrUnknownRole so callers can keep them with zero permissions.
func ParseRole(s string) (models.UserRole, error) {
	role := models.UserRole(s)
	if !IsKnownRole(role) {
		return role, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return role, nil
}

// PermissionsFor returns the fixed permission list of a single role
func PermissionsFor(role models.UserRole) []Permission {
	perms := rolePermissions[role]
	out := make([]Permission, len(perms))
	copy(out, perms)
	return out
}

// HasPermission reports whether any role in the set grants p
func HasPermission(roles RoleSet, p Permission) bool {
	for role := range roles {
		if _, ok := grants[role][p]; ok {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one of ps is granted
func HasAnyPermission(roles RoleSet, ps ...Permission) bool {
	for _, p := range ps {
		if HasPermission(roles, p) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every one of ps is granted
func HasAllPermissions(roles RoleSet, ps ...Permission) bool {
	for _, p := range ps {
		if !HasPermission(roles, p) {
			return false
		}
	}
	return true
}

// GetUserPrimaryRole returns the highest-precedence known role,
// defaulting to customer when none is present
func GetUserPrimaryRole(roles []models.UserRole) models.UserRole {
	primary := models.RoleCustomer
	best := precedence[models.RoleCustomer]
	for _, r := range roles {
		if rank, ok := precedence[r]; ok && rank < best {
			primary, best = r, rank
		}
	}
	return primary
}

// GetAllPermissions returns the union of the roles' permissions in canonical order
func GetAllPermissions(roles []models.UserRole) []Permission {
	set := NewRoleSet(roles...)
	var out []Permission
	for _, p := range AllPermissions() {
		if HasPermission(set, p) {
			out = append(out, p)
		}
	}
	return out
}
