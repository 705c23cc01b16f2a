package chat

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWSURL(t *testing.T) {
	cases := []struct {
		base   string
		userID int64
		want   string
	}{
		{"http://localhost:8080", 7, "ws://localhost:8080/ws?userId=7"},
		{"https://chat.example.com", 7, "wss://chat.example.com/ws?userId=7"},
		{"http://localhost:8080", 0, "ws://localhost:8080/ws"},
	}
	for _, tc := range cases {
		got := NewClient(tc.base).wsURL(tc.userID)
		if got != tc.want {
			t.Errorf("wsURL(%q, %d) = %q, want %q", tc.base, tc.userID, got, tc.want)
		}
	}
}

func TestHistory(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages/1/2" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]HistoryEntry{
			{ID: 1, SenderID: 1, ReceiverID: 2, Message: "hi", Timestamp: "2026-01-02T03:04:05Z"},
		})
	}))
	defer srv.Close()

	entries, err := NewClient(srv.URL).History(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Message != "hi" || entries[0].ID != 1 {
		t.Fatalf("unexpected entries %v", entries)
	}
}

func TestErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid participant ID format"})
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).History(1, 2)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "invalid participant ID format") {
		t.Fatalf("error must carry status and server message, got %q", err)
	}
}

func TestStats(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(StatsResponse{TotalMessages: 42, ConnectedUsers: 3})
	}))
	defer srv.Close()

	stats, err := NewClient(srv.URL).Stats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalMessages != 42 || stats.ConnectedUsers != 3 {
		t.Fatalf("unexpected stats %+v", stats)
	}
}
