package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

// HistoryEntry represents one message in the history response.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"` // RFC 3339 UTC
}

// GetHistory returns the full ordered conversation between two participants,
// in either direction, oldest first.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	user1, err := strconv.ParseInt(chi.URLParam(r, "user1"), 10, 64)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid participant ID format")
		return
	}
	user2, err := strconv.ParseInt(chi.URLParam(r, "user2"), 10, 64)
	if err != nil {
		h.Error(w, http.StatusBadRequest, "invalid participant ID format")
		return
	}

	msgs, err := h.store.History(r.Context(), user1, user2)
	if err != nil {
		h.Error(w, http.StatusInternalServerError, "failed to fetch messages")
		return
	}

	entries := make([]HistoryEntry, len(msgs))
	for i, m := range msgs {
		entries[i] = HistoryEntry{
			ID:         m.ID,
			SenderID:   m.SenderID,
			ReceiverID: m.ReceiverID,
			Message:    m.Body,
			Timestamp:  m.Timestamp.UTC().Format(time.RFC3339),
		}
	}

	h.JSON(w, http.StatusOK, entries)
}
