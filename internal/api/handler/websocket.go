package handler

import (
	"net/http"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/middleware"
	"github.com/kitchenconnect/kitchen-service/internal/websockets"
)

type WebSocketHandler struct {
	hub      *websockets.Hub
	authn    middleware.Authenticator
	upgrader *websocket.Upgrader
}

func NewWebSocketHandler(hub *websockets.Hub, authn middleware.Authenticator, upgrader *websocket.Upgrader) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		authn:    authn,
		upgrader: upgrader,
	}
}

// ServeHTTP authenticates with ?token= (browsers cannot set headers on
// websocket requests) or a bearer header, then upgrades
func (h *WebSocketHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		token = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if token == "" {
		api.Write(w, api.CodeUnauthenticated, "token is required")
		return
	}

	a, err := middleware.ActorFromToken(r.Context(), h.authn, token)
	if err != nil {
		middleware.WriteAuthError(w, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already written the error response
		return
	}

	websockets.ServeWs(h.hub, conn, a.ID.String(), a.Roles)
}
