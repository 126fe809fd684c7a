package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/db/repository"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/permissions"
	"github.com/rs/zerolog"
)

// DishService handles the chef dish catalog
type DishService struct {
	dishes DishStore
	users  UserStore
	log    zerolog.Logger
}

// NewDishService creates a new dish service
func NewDishService(dishes DishStore, users UserStore, log zerolog.Logger) *DishService {
	return &DishService{
		dishes: dishes,
		users:  users,
		log:    log.With().Str("component", "dishes").Logger(),
	}
}

// ListDishes browses the catalog
func (s *DishService) ListDishes(ctx context.Context, filter models.DishFilter) ([]models.Dish, error) {
	filter.Category = strings.TrimSpace(filter.Category)
	filter.Search = strings.TrimSpace(filter.Search)
	return s.dishes.List(ctx, filter)
}

// GetDish retrieves a dish by ID
func (s *DishService) GetDish(ctx context.Context, id uuid.UUID) (*models.Dish, error) {
	return s.dishes.GetByID(ctx, id)
}

// CreateDish adds a dish to the caller's kitchen, or to req.ChefID's kitchen
// for callers that manage chefs
func (s *DishService) CreateDish(ctx context.Context, actor Actor, req models.DishRequest) (*models.Dish, error) {
	if err := actor.require(permissions.CanEditDishes); err != nil {
		return nil, err
	}

	chefID := actor.ID
	switch {
	case req.ChefID != nil && *req.ChefID != actor.ID:
		if !actor.Can(permissions.CanManageChefs) {
			return nil, ErrForbidden
		}
		chefID = *req.ChefID
	case !actor.Roles.Has(models.RoleChef):
		return nil, fmt.Errorf("%w: chef_id is required", ErrInvalidInput)
	}

	chef, err := s.users.GetByID(ctx, chefID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown chef", ErrInvalidInput)
		}
		return nil, fmt.Errorf("failed to load chef: %w", err)
	}
	if !permissions.NewRoleSet(chef.Roles...).Has(models.RoleChef) {
		return nil, fmt.Errorf("%w: user is not a chef", ErrInvalidInput)
	}

	dish := models.Dish{
		ChefID:   chefID,
		ChefName: chef.FullName(),
	}
	apply(&dish, req)

	created, err := s.dishes.Create(ctx, dish)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("dish_id", created.ID.String()).
		Str("chef_id", chefID.String()).
		Str("actor_id", actor.ID.String()).
		Msg("dish created")
	return created, nil
}

// UpdateDish rewrites a dish. Chefs edit their own; moderators edit any.
func (s *DishService) UpdateDish(ctx context.Context, actor Actor, id uuid.UUID, req models.DishRequest) (*models.Dish, error) {
	if err := actor.require(permissions.CanEditDishes); err != nil {
		return nil, err
	}

	dish, err := s.dishes.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dish.ChefID != actor.ID && !actor.Can(permissions.CanModerateContent) {
		return nil, ErrForbidden
	}

	apply(dish, req)
	return s.dishes.Update(ctx, *dish)
}

// DeleteDish removes a dish. Chefs delete their own; admins delete any.
func (s *DishService) DeleteDish(ctx context.Context, actor Actor, id uuid.UUID) error {
	if err := actor.require(permissions.CanDeleteDishes); err != nil {
		return err
	}

	dish, err := s.dishes.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if dish.ChefID != actor.ID && !actor.Can(permissions.CanModerateContent) {
		return ErrForbidden
	}

	if err := s.dishes.Delete(ctx, id); err != nil {
		return err
	}

	s.log.Info().
		Str("dish_id", id.String()).
		Str("actor_id", actor.ID.String()).
		Msg("dish deleted")
	return nil
}

func apply(dish *models.Dish, req models.DishRequest) {
	dish.Name = strings.TrimSpace(req.Name)
	dish.Description = req.Description
	dish.Category = strings.TrimSpace(req.Category)
	dish.Price = req.Price
	dish.PrepMinutes = req.PrepMinutes
	dish.ImageURL = req.ImageURL
	dish.Available = req.Available
}
