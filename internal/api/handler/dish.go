package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

// DishHandler handles dish catalog requests
type DishHandler struct {
	dishService *service.DishService
}

// NewDishHandler creates a new dish handler
func NewDishHandler(dishService *service.DishService) *DishHandler {
	return &DishHandler{dishService: dishService}
}

// List browses dishes with optional ?chef_id=, ?category=, ?q= and ?available=
func (h *DishHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.DishFilter{
		Category: q.Get("category"),
		Search:   q.Get("q"),
	}

	if raw := q.Get("chef_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			api.BadRequest(w, "invalid chef_id")
			return
		}
		filter.ChefID = &id
	}
	if raw := q.Get("available"); raw != "" {
		available, err := strconv.ParseBool(raw)
		if err != nil {
			api.BadRequest(w, "invalid available flag")
			return
		}
		filter.AvailableOnly = available
	}

	dishes, err := h.dishService.ListDishes(r.Context(), filter)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, dishes)
}

func (h *DishHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	dish, err := h.dishService.GetDish(r.Context(), id)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, dish)
}

// Create adds a dish to a kitchen
func (h *DishHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req models.DishRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	dish, err := h.dishService.CreateDish(r.Context(), a, req)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.RespondJSON(w, http.StatusCreated, dish)
}

// Update rewrites a dish
func (h *DishHandler) Update(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.DishRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	dish, err := h.dishService.UpdateDish(r.Context(), a, id, req)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, dish)
}

// Delete removes a dish
func (h *DishHandler) Delete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.dishService.DeleteDish(r.Context(), a, id); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
