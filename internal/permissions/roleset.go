package permissions

import (
	"github.com/kitchenconnect/kitchen-service/internal/models"
)

// RoleSet is a set of roles held by one caller
type RoleSet map[models.UserRole]struct{}

func NewRoleSet(roles ...models.UserRole) RoleSet {
	s := make(RoleSet, len(roles))
	for _, r := range roles {
		s[r] = struct{}{}
	}
	return s
}

// ParseRoles builds a set from raw tags. Unknown tags stay in the set and are
// returned separately so the caller can report them.
func ParseRoles(raw []string) (RoleSet, []string) {
	s := make(RoleSet, len(raw))
	var unknown []string
	for _, tag := range raw {
		role, err := ParseRole(tag)
		if err != nil {
			unknown = append(unknown, tag)
		}
		s[role] = struct{}{}
	}
	return s, unknown
}

func (s RoleSet) Has(role models.UserRole) bool {
	_, ok := s[role]
	return ok
}

// Intersects reports whether s shares at least one role with roles
func (s RoleSet) Intersects(roles []models.UserRole) bool {
	for _, r := range roles {
		if s.Has(r) {
			return true
		}
	}
	return false
}

// Slice returns the roles in precedence order, unknown roles last
func (s RoleSet) Slice() []models.UserRole {
	out := make([]models.UserRole, 0, len(s))
	for _, r := range models.AllRoles() {
		if s.Has(r) {
			out = append(out, r)
		}
	}
	for r := range s {
		if !IsKnownRole(r) {
			out = append(out, r)
		}
	}
	return out
}

// Primary is GetUserPrimaryRole over the set
func (s RoleSet) Primary() models.UserRole {
	return GetUserPrimaryRole(s.Slice())
}
