package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/middleware"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

func respondJSON(w http.ResponseWriter, v interface{}) {
	api.RespondJSON(w, http.StatusOK, v)
}

// actor returns the authenticated caller, writing 401 when absent
func actor(w http.ResponseWriter, r *http.Request) (service.Actor, bool) {
	a, ok := middleware.ActorFrom(r.Context())
	if !ok {
		api.Write(w, api.CodeUnauthenticated, "unauthenticated")
	}
	return a, ok
}

// pathID parses a uuid path parameter, writing 400 when malformed
func pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		api.BadRequest(w, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}
