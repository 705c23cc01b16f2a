package handlers

import "net/http"

// StatsResponse represents the response from the stats endpoint.
type StatsResponse struct {
	TotalMessages   int64 `json:"total_messages"`
	ConnectedUsers  int   `json:"connected_users"`
	ActiveRooms     int   `json:"active_rooms"`
	OpenConnections int64 `json:"open_connections"`
}

// Stats returns live relay statistics.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	totalMessages, err := h.store.CountMessages(r.Context())
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to count messages")
		return
	}

	h.JSON(w, http.StatusOK, StatsResponse{
		TotalMessages:   totalMessages,
		ConnectedUsers:  h.relay.Presence().Count(),
		ActiveRooms:     h.relay.Rooms().ActiveRooms(),
		OpenConnections: h.relay.OpenConnections(),
	})
}
