package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/bhattabhuwan/backend-chat/internal/relay"
	"github.com/bhattabhuwan/backend-chat/internal/store"
)

// Handler contains shared dependencies for all HTTP handlers.
type Handler struct {
	store store.MessageStore
	relay *relay.Relay
}

// NewHandler creates a new Handler with the given store and relay.
func NewHandler(st store.MessageStore, rel *relay.Relay) *Handler {
	return &Handler{store: st, relay: rel}
}

// JSON sends a JSON response with the given status code.
func (h *Handler) JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Error sends a JSON error response with the given status code.
func (h *Handler) Error(w http.ResponseWriter, status int, message string) {
	h.JSON(w, status, map[string]string{"error": message})
}
