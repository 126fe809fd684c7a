package handler

import (
	"bytes"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"

	"github.com/kitchenconnect/kitchen-service/internal/api"
	"github.com/kitchenconnect/kitchen-service/internal/models"
	"github.com/kitchenconnect/kitchen-service/internal/service"
)

// WebhookSecretHeader carries the shared secret of inbound webhooks
const WebhookSecretHeader = "X-Webhook-Secret"

// MessagingHandler serves conversations, the outbound relay and the
// inbound WhatsApp webhook
type MessagingHandler struct {
	messaging     *service.MessagingService
	inboundSecret string
}

func NewMessagingHandler(messaging *service.MessagingService, inboundSecret string) *MessagingHandler {
	return &MessagingHandler{
		messaging:     messaging,
		inboundSecret: inboundSecret,
	}
}

func (h *MessagingHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	conversations, err := h.messaging.ListConversations(r.Context(), a)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, conversations)
}

func (h *MessagingHandler) Messages(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	messages, err := h.messaging.ListMessages(r.Context(), a, id)
	if err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, messages)
}

// Send relays a message to WhatsApp. A failed forward still returns the
// stored message inside the error details.
func (h *MessagingHandler) Send(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}

	var req models.SendMessageRequest
	if err := api.Decode(r, &req); err != nil {
		api.WriteError(w, err)
		return
	}

	msg, err := h.messaging.Send(r.Context(), a, req)
	if err != nil {
		code, text := api.Classify(err)
		api.RespondJSON(w, code.HTTPStatus(), api.ErrorResponse{Code: code, Message: text, Details: msg})
		return
	}

	api.RespondJSON(w, http.StatusCreated, msg)
}

// Inbound receives messages from the WhatsApp automation
func (h *MessagingHandler) Inbound(w http.ResponseWriter, r *http.Request) {
	if h.inboundSecret != "" {
		got := r.Header.Get(WebhookSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.inboundSecret)) != 1 {
			api.Write(w, api.CodeUnauthenticated, "invalid webhook secret")
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		api.BadRequest(w, "failed to read body")
		return
	}

	var payload models.InboundPayload
	var raw models.Metadata
	if err := json.Unmarshal(body, &payload); err != nil {
		api.BadRequest(w, "invalid JSON payload")
		return
	}
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&raw); err != nil {
		api.BadRequest(w, "payload must be a JSON object")
		return
	}

	if err := h.messaging.HandleInbound(r.Context(), payload, raw); err != nil {
		api.WriteError(w, err)
		return
	}

	respondJSON(w, map[string]bool{"success": true})
}
