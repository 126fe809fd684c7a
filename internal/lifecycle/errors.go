package lifecycle

import (
	"errors"
	"fmt"

	"github.com/kitchenconnect/kitchen-service/internal/models"
)

// Kind classifies a rejected transition
type Kind string

const (
	KindOutOfOrder   Kind = "out_of_order"
	KindUnauthorized Kind = "unauthorized"
	KindStaleState   Kind = "stale_state"
)

var (
	ErrOutOfOrderTransition = errors.New("requested stage is not the immediate successor")
	ErrUnauthorized         = errors.New("caller may not move the order into this stage")
	ErrStaleState           = errors.New("order stage changed since it was read")
)

// TransitionError is returned for every rejected transition. It matches the
// sentinel of its kind with errors.Is.
type TransitionError struct {
	Kind    Kind
	OrderID string
	Current models.OrderStage
	Target  models.OrderStage
	// Expected is the stage the caller believed current (stale state only)
	Expected models.OrderStage
	// Allowed is the next allowed stage, empty when terminal
	Allowed models.OrderStage
}

func (e *TransitionError) Error() string {
	switch e.Kind {
	case KindStaleState:
		return fmt.Sprintf("order %s: expected stage %s but found %s", e.OrderID, e.Expected, e.Current)
	case KindUnauthorized:
		return fmt.Sprintf("order %s: %s -> %s is not allowed for the caller's roles", e.OrderID, e.Current, e.Target)
	default:
		next := string(e.Allowed)
		if next == "" {
			next = "none (terminal state)"
		}
		return fmt.Sprintf("order %s: invalid transition %s -> %s, next allowed: %s", e.OrderID, e.Current, e.Target, next)
	}
}

func (e *TransitionError) Unwrap() error {
	switch e.Kind {
	case KindStaleState:
		return ErrStaleState
	case KindUnauthorized:
		return ErrUnauthorized
	default:
		return ErrOutOfOrderTransition
	}
}

// KindOf returns the kind of a transition error, or "" for other errors
func KindOf(err error) Kind {
	var te *TransitionError
	if errors.As(err, &te) {
		return te.Kind
	}
	return ""
}
