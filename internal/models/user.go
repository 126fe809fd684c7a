package models

import (
	"time"

	"github.com/google/uuid"
)

// UserRole is a named capability grouping assigned to an account
type UserRole string

const (
	RoleAdmin     UserRole = "admin"
	RoleModerator UserRole = "moderator"
	RoleChef      UserRole = "chef"
	RoleDriver    UserRole = "driver"
	RoleCustomer  UserRole = "customer"
)

// AllRoles lists every role known to the service, highest precedence first
func AllRoles() []UserRole {
	return []UserRole{RoleAdmin, RoleModerator, RoleChef, RoleDriver, RoleCustomer}
}

type User struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"` // Never expose in JSON
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Address      string     `db:"address" json:"address"`
	PhoneNumber  string     `db:"phone_number" json:"phone_number"`
	AvatarURL    *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	IsBanned     bool       `db:"is_banned" json:"is_banned"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
	Roles        []UserRole `db:"-" json:"roles"`
}

// FullName joins first and last name the way dashboards display it
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}

// SignupRequest is used for account creation
type SignupRequest struct {
	Email     string   `json:"email" validate:"required,email"`
	Password  string   `json:"password" validate:"required,min=6"`
	FirstName string   `json:"first_name" validate:"required,max=100"`
	LastName  string   `json:"last_name" validate:"max=100"`
	Address   string   `json:"address" validate:"max=255"`
	Phone     string   `json:"phone" validate:"max=32"`
	AvatarURL *string  `json:"avatar_url" validate:"omitempty,url"`
	Role      UserRole `json:"role" validate:"omitempty,oneof=chef driver customer"`
}

// LoginRequest carries credentials for a password login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileUpdateRequest is used for updating the caller's own profile
type ProfileUpdateRequest struct {
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"max=100"`
	Address   string  `json:"address" validate:"max=255"`
	Phone     string  `json:"phone" validate:"max=32"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url"`
}

// RoleChangeRequest grants or revokes a role on another account
type RoleChangeRequest struct {
	Role UserRole `json:"role" validate:"required,oneof=admin moderator chef driver customer"`
}
