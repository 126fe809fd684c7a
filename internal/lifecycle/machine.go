package lifecycle

import (
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
)

// Policy holds the configurable parts of the machine
type Policy struct {
	// AdminOverride lets callers holding CanOverrideOrderStage advance any
	// order regardless of the stage's responsible roles. Ordering is still
	// enforced.
	AdminOverride bool
}

// Request asks to move an order into Target
type Request struct {
	// Expected is the stage the caller last observed; empty skips the check
	Expected models.OrderStage
	Target   models.OrderStage
	Roles    permissions.RoleSet
	ActorID  uuid.UUID
}

// Event describes a committed transition
type Event struct {
	ID         uuid.UUID         `json:"event_id"`
	OrderID    uuid.UUID         `json:"order_id"`
	From       models.OrderStage `json:"from"`
	To         models.OrderStage `json:"to"`
	Label      string            `json:"label"`
	ActorID    uuid.UUID         `json:"actor_id"`
	Terminal   bool              `json:"terminal"`
	OccurredAt time.Time         `json:"occurred_at"`

	// Parties are kept out of published payloads
	CustomerID uuid.UUID  `json:"-"`
	ChefID     uuid.UUID  `json:"-"`
	DriverID   *uuid.UUID `json:"-"`
}

// Machine validates stage transitions. It holds no per-order state and is
// safe for concurrent use.
type Machine struct {
	policy Policy
	now    func() time.Time
}

func NewMachine(policy Policy) *Machine {
	return &Machine{policy: policy, now: time.Now}
}

// Policy returns the machine's policy
func (m *Machine) Policy() Policy {
	return m.policy
}

// NextAllowedStage returns the immediate successor of the order's stage;
// false when the order is terminal
func (m *Machine) NextAllowedStage(order models.Order) (models.OrderStage, bool) {
	return successor(order.Stage)
}

// CanAdvance reports whether the caller may move the order to its next stage
func (m *Machine) CanAdvance(order models.Order, roles permissions.RoleSet) bool {
	next, ok := successor(order.Stage)
	if !ok {
		return false
	}
	return m.authorized(next, roles)
}

// Overrides reports whether roles bypass the responsible-role check
func (m *Machine) Overrides(roles permissions.RoleSet) bool {
	return m.policy.AdminOverride && permissions.HasPermission(roles, permissions.CanOverrideOrderStage)
}

func (m *Machine) authorized(target models.OrderStage, roles permissions.RoleSet) bool {
	info, ok := Lookup(target)
	if !ok {
		return false
	}
	return roles.Intersects(info.Responsible) || m.Overrides(roles)
}

// Advance validates req against order and returns the advanced copy together
// with the event describing it. order itself is never modified. Rejections
// are *TransitionError values.
func (m *Machine) Advance(order models.Order, req Request) (models.Order, Event, error) {
	if req.Expected != "" && req.Expected != order.Stage {
		return order, Event{}, &TransitionError{
			Kind:     KindStaleState,
			OrderID:  order.ID.String(),
			Current:  order.Stage,
			Target:   req.Target,
			Expected: req.Expected,
		}
	}

	next, ok := successor(order.Stage)
	if !ok || req.Target != next {
		return order, Event{}, &TransitionError{
			Kind:    KindOutOfOrder,
			OrderID: order.ID.String(),
			Current: order.Stage,
			Target:  req.Target,
			Allowed: next,
		}
	}

	if !m.authorized(next, req.Roles) {
		return order, Event{}, &TransitionError{
			Kind:    KindUnauthorized,
			OrderID: order.ID.String(),
			Current: order.Stage,
			Target:  req.Target,
			Allowed: next,
		}
	}

	now := m.now()
	advanced := order
	advanced.Stage = next
	advanced.UpdatedAt = now
	if next == Terminal {
		delivered := now
		advanced.DeliveredAt = &delivered
	}

	evt := Event{
		ID:         uuid.New(),
		OrderID:    order.ID,
		From:       order.Stage,
		To:         next,
		Label:      Label(next),
		ActorID:    req.ActorID,
		Terminal:   IsTerminal(next),
		OccurredAt: now,
		CustomerID: order.CustomerID,
		ChefID:     order.ChefID,
		DriverID:   order.DriverID,
	}
	return advanced, evt, nil
}
