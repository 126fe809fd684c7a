package service

import (
	"errors"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
)

var (
	ErrForbidden          = errors.New("permission denied")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrBanned             = errors.New("account is banned")
	ErrInvalidInput       = errors.New("invalid input")
	ErrNotInTransit       = errors.New("order is not in transit")
	ErrRelayNotConfigured = errors.New("whatsapp webhook url not configured")
	ErrNoRecipient        = errors.New("no whatsapp recipient for conversation")
	ErrRelayFailed        = errors.New("failed to forward message")
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	ID    uuid.UUID
	Roles permissions.RoleSet
}

func (a Actor) Can(p permissions.Permission) bool {
	return permissions.HasPermission(a.Roles, p)
}

func (a Actor) require(p permissions.Permission) error {
	if !a.Can(p) {
		return ErrForbidden
	}
	return nil
}
