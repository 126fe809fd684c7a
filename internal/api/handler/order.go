package handler

import (
	"net/http"

	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/lifecycle"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

// OrderHandler handles order-related requests
type OrderHandler struct {
	orderService   *service.OrderService
	archiveService *service.ArchiveService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService *service.OrderService, archiveService *service.ArchiveService) *OrderHandler {
	return &OrderHandler{
		orderService:   orderService,
		archiveService: archiveService,
	}
}

// Stages returns the stage progression with labels and responsible roles
func (h *OrderHandler) Stages(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, lifecycle.Stages())
}

// List lists the caller's orders, optionally filtered by ?stage=
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var stage *models.OrderStage
	if s := r.URL.Query().Get("stage"); s != "" {
		st := models.OrderStage(s)
		stage = &st
	}

	orders, err := h.orderService.ListOrders(r.Context(), a, stage)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, orders)
}

// Available lists ready orders waiting for a driver
func (h *OrderHandler) Available(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	orders, err := h.orderService.ListAvailable(r.Context(), a)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, orders)
}

// Create places a new order
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req models.OrderRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	order, err := h.orderService.CreateOrder(r.Context(), a, req)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	api.RespondJSON(w, http.StatusCreated, order)
}

// Get returns a single order
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	order, err := h.orderService.GetOrder(r.Context(), a, id)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, order)
}

// Advance moves an order to its next stage
func (h *OrderHandler) Advance(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.AdvanceRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	order, err := h.orderService.AdvanceOrder(r.Context(), a, id, req)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, order)
}

// Stage returns the tracking view of an order
func (h *OrderHandler) Stage(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	status, err := h.orderService.StageStatus(r.Context(), a, id)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, status)
}

// History returns the committed stage changes of an order
func (h *OrderHandler) History(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	history, err := h.orderService.History(r.Context(), a, id)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, history)
}

// Location updates where the assigned driver currently is
func (h *OrderHandler) Location(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req models.LocationRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	if err := h.orderService.UpdateLocation(r.Context(), a, id, req.Location); err != nil {
		api.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CompletedDeliveries lists the calling driver's archived deliveries
func (h *OrderHandler) CompletedDeliveries(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	deliveries, err := h.archiveService.CompletedDeliveries(r.Context(), a)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, deliveries)
}

// Earnings returns the calling driver's earnings summary
func (h *OrderHandler) Earnings(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	summary, err := h.archiveService.Earnings(r.Context(), a)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, summary)
}
