package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/metrics"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/kitchenconnect/kitchen-service/internal/redisx"
	"github.com/rs/zerolog"
)

// OrderService handles order-related business logic
type OrderService struct {
	orders     OrderStore
	users      UserStore
	machine    *lifecycle.Machine
	cache      StageCache
	dispatcher EventDispatcher
	metrics    *metrics.Metrics
	log        zerolog.Logger
	now        func() time.Time
}

// NewOrderService creates a new order service. cache may be nil.
func NewOrderService(
	orders OrderStore,
	users UserStore,
	machine *lifecycle.Machine,
	cache StageCache,
	dispatcher EventDispatcher,
	m *metrics.Metrics,
	log zerolog.Logger,
) *OrderService {
	return &OrderService{
		orders:     orders,
		users:      users,
		machine:    machine,
		cache:      cache,
		dispatcher: dispatcher,
		metrics:    m,
		log:        log.With().Str("component", "orders").Logger(),
		now:        time.Now,
	}
}

// StageStatus is the tracking view of an order's stage
type StageStatus struct {
	OrderID    uuid.UUID          `json:"order_id"`
	Stage      models.OrderStage  `json:"stage"`
	Label      string             `json:"label"`
	Progress   int                `json:"progress"`
	NextStage  *models.OrderStage `json:"next_stage,omitempty"`
	CanAdvance bool               `json:"can_advance"`
	Terminal   bool               `json:"terminal"`
	UpdatedAt  time.Time          `json:"updated_at"`
	Cached     bool               `json:"cached"`
}

// CreateOrder places an order for the caller
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, req models.OrderRequest) (*models.Order, error) {
	customer, err := s.users.GetByID(ctx, actor.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load customer: %w", err)
	}

	now := s.now()
	order := models.Order{
		Stage:                 lifecycle.Initial,
		CustomerID:            actor.ID,
		ChefID:                req.ChefID,
		CustomerName:          customer.FullName(),
		ChefName:              req.ChefName,
		Address:               req.Address,
		EstimatedDeliveryTime: req.EstimatedDeliveryTime,
		Total:                 req.Total,
		DeliveryFee:           req.DeliveryFee,
		PlacedAt:              now,
	}

	created, err := s.orders.Create(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	s.log.Info().
		Str("order_id", created.ID.String()).
		Str("customer_id", actor.ID.String()).
		Str("chef_id", req.ChefID.String()).
		Msg("order placed")
	return created, nil
}

// seesAll reports whether the caller gets the unscoped order view
func seesAll(actor Actor) bool {
	return permissions.HasAllPermissions(actor.Roles, permissions.CanManageOrders, permissions.CanViewAllUsers)
}

// ListOrders returns the orders visible to the caller. The view follows the
// caller's primary role.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor, stage *models.OrderStage) ([]models.Order, error) {
	if stage != nil && !lifecycle.IsValid(*stage) {
		return nil, fmt.Errorf("%w: unknown stage %q", ErrInvalidInput, *stage)
	}

	filter := models.OrderFilter{Stage: stage}
	if !seesAll(actor) {
		id := actor.ID
		switch actor.Roles.Primary() {
		case models.RoleChef:
			filter.ChefID = &id
		case models.RoleDriver:
			filter.DriverID = &id
		default:
			filter.CustomerID = &id
		}
	}

	return s.orders.List(ctx, filter)
}

// canView reports whether the caller may read order
func canView(actor Actor, order *models.Order) bool {
	switch {
	case seesAll(actor):
		return true
	case order.CustomerID == actor.ID:
		return true
	case order.ChefID == actor.ID && actor.Roles.Has(models.RoleChef):
		return true
	case actor.Roles.Has(models.RoleDriver):
		if order.DriverID != nil {
			return *order.DriverID == actor.ID
		}
		return order.Stage == models.StageReady
	default:
		return false
	}
}

// GetOrder returns one order the caller may see
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canView(actor, order) {
		return nil, ErrForbidden
	}
	return order, nil
}

// ListAvailable returns ready orders no driver has claimed
func (s *OrderService) ListAvailable(ctx context.Context, actor Actor) ([]models.Order, error) {
	if !actor.Roles.Has(models.RoleDriver) && !s.machine.Overrides(actor.Roles) {
		return nil, ErrForbidden
	}
	return s.orders.ListAvailable(ctx)
}

// AdvanceOrder moves an order one stage forward. It either commits the
// stage change with its history row or leaves the order untouched.
func (s *OrderService) AdvanceOrder(ctx context.Context, actor Actor, id uuid.UUID, req models.AdvanceRequest) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	advanced, evt, err := s.machine.Advance(*order, lifecycle.Request{
		Expected: req.ExpectedStage,
		Target:   req.TargetStage,
		Roles:    actor.Roles,
		ActorID:  actor.ID,
	})
	if err != nil {
		return nil, s.reject(err)
	}

	update := repository.StageUpdate{
		OrderID:     order.ID,
		From:        order.Stage,
		To:          advanced.Stage,
		ChangedBy:   actor.ID,
		At:          advanced.UpdatedAt,
		DeliveredAt: advanced.DeliveredAt,
	}

	if err := s.checkAssignment(ctx, actor, order, advanced.Stage, &update); err != nil {
		return nil, s.reject(err)
	}

	updated, err := s.orders.UpdateStage(ctx, update)
	if err != nil {
		if errors.Is(err, repository.ErrStageConflict) {
			return nil, s.reject(s.staleError(ctx, order, req.TargetStage))
		}
		return nil, fmt.Errorf("failed to advance order: %w", err)
	}

	evt.DriverID = updated.DriverID

	s.metrics.IncTransition(string(updated.Stage))
	s.log.Info().
		Str("order_id", updated.ID.String()).
		Str("from", string(evt.From)).
		Str("to", string(evt.To)).
		Str("actor_id", actor.ID.String()).
		Msg("order advanced")

	s.dispatcher.Dispatch(evt)
	return updated, nil
}

// assignmentAllows reports whether the caller is the person the target stage
// is reserved to. Chef stages belong to the order's chef and later driver
// stages to the assigned driver; override lifts both. An unclaimed order can
// only be picked up by a driver, who claims it, so no order leaves the
// kitchen without a driver.
func assignmentAllows(actor Actor, order models.Order, target models.OrderStage, override bool) bool {
	switch target {
	case models.StageConfirmed, models.StagePreparing, models.StageReady:
		return override || order.ChefID == actor.ID
	case models.StagePickedUp:
		if order.DriverID != nil {
			return override || *order.DriverID == actor.ID
		}
		return actor.Roles.Has(models.RoleDriver)
	case models.StageInDelivery, models.StageDelivered:
		return override || (order.DriverID != nil && *order.DriverID == actor.ID)
	}
	return true
}

// checkAssignment applies assignmentAllows and records the driver claim on
// pickup
func (s *OrderService) checkAssignment(ctx context.Context, actor Actor, order *models.Order, target models.OrderStage, update *repository.StageUpdate) error {
	if !assignmentAllows(actor, *order, target, s.machine.Overrides(actor.Roles)) {
		return &lifecycle.TransitionError{
			Kind:    lifecycle.KindUnauthorized,
			OrderID: order.ID.String(),
			Current: order.Stage,
			Target:  target,
			Allowed: target,
		}
	}

	if target != models.StagePickedUp || order.DriverID != nil {
		return nil
	}

	driverID := actor.ID
	update.ClaimDriver = &driverID
	if driver, err := s.users.GetByID(ctx, actor.ID); err == nil {
		name := driver.FullName()
		update.DriverName = &name
	} else {
		s.log.Warn().Err(err).Str("driver_id", actor.ID.String()).Msg("failed to load driver name")
	}
	return nil
}

// staleError reports the stage another caller committed first
func (s *OrderService) staleError(ctx context.Context, order *models.Order, target models.OrderStage) error {
	current := order.Stage
	if latest, err := s.orders.GetByID(ctx, order.ID); err == nil {
		current = latest.Stage
	}
	return &lifecycle.TransitionError{
		Kind:     lifecycle.KindStaleState,
		OrderID:  order.ID.String(),
		Current:  current,
		Target:   target,
		Expected: order.Stage,
	}
}

func (s *OrderService) reject(err error) error {
	if kind := lifecycle.KindOf(err); kind != "" {
		s.metrics.IncRejection(string(kind))
		s.log.Debug().Err(err).Str("reason", string(kind)).Msg("transition rejected")
	}
	return err
}

// StageStatus returns the tracking view, from the cache when it holds the
// order. The database is read and the cache refilled on a miss.
func (s *OrderService) StageStatus(ctx context.Context, actor Actor, id uuid.UUID) (*StageStatus, error) {
	if s.cache != nil {
		entry, ok, err := s.cache.Get(ctx, id)
		if err != nil {
			s.log.Warn().Err(err).Str("order_id", id.String()).Msg("stage cache read failed")
		}
		// entries without parties predate them and are treated as misses
		if ok && entry.ChefID != uuid.Nil {
			order := models.Order{
				ID:         id,
				Stage:      entry.Stage,
				CustomerID: entry.CustomerID,
				ChefID:     entry.ChefID,
				DriverID:   entry.DriverID,
				UpdatedAt:  entry.UpdatedAt,
			}
			if !canView(actor, &order) {
				return nil, ErrForbidden
			}
			st := s.status(actor, order)
			st.Cached = true
			return st, nil
		}
	}

	order, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		entry := redisx.StageEntry{
			Stage:      order.Stage,
			Label:      lifecycle.Label(order.Stage),
			UpdatedAt:  order.UpdatedAt,
			CustomerID: order.CustomerID,
			ChefID:     order.ChefID,
			DriverID:   order.DriverID,
		}
		if err := s.cache.Set(ctx, id, entry); err != nil {
			s.log.Warn().Err(err).Str("order_id", id.String()).Msg("stage cache write failed")
		}
	}

	return s.status(actor, *order), nil
}

func (s *OrderService) status(actor Actor, order models.Order) *StageStatus {
	st := &StageStatus{
		OrderID:   order.ID,
		Stage:     order.Stage,
		Label:     lifecycle.Label(order.Stage),
		Progress:  lifecycle.Progress(order.Stage),
		Terminal:  lifecycle.IsTerminal(order.Stage),
		UpdatedAt: order.UpdatedAt,
	}
	if next, ok := s.machine.NextAllowedStage(order); ok {
		st.NextStage = &next
		st.CanAdvance = s.machine.CanAdvance(order, actor.Roles) &&
			assignmentAllows(actor, order, next, s.machine.Overrides(actor.Roles))
	}
	return st
}

// History returns the committed transitions of an order
func (s *OrderService) History(ctx context.Context, actor Actor, id uuid.UUID) ([]models.OrderStageChange, error) {
	if _, err := s.GetOrder(ctx, actor, id); err != nil {
		return nil, err
	}
	return s.orders.History(ctx, id)
}

// UpdateLocation records where the assigned driver currently is
func (s *OrderService) UpdateLocation(ctx context.Context, actor Actor, id uuid.UUID, location string) error {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if order.Stage != models.StagePickedUp && order.Stage != models.StageInDelivery {
		return ErrNotInTransit
	}
	assigned := order.DriverID != nil && *order.DriverID == actor.ID
	if !assigned && !s.machine.Overrides(actor.Roles) {
		return ErrForbidden
	}

	return s.orders.UpdateLocation(ctx, id, location)
}
