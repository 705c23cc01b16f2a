// Package chat provides a Go client for the chat relay: a websocket session
// for the event protocol and plain HTTP calls for the read API.
package chat

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Client is a chat relay API client.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient creates a new relay client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}

	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// doRequest performs an HTTP request against the read API.
func (c *Client) doRequest(method, path string) ([]byte, error) {
	req, err := http.NewRequest(method, c.BaseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		json.Unmarshal(respBody, &errResp)
		return nil, fmt.Errorf("chat relay error %d: %s", resp.StatusCode, errResp.Error)
	}

	return respBody, nil
}

// HistoryEntry represents one message in a conversation history.
type HistoryEntry struct {
	ID         int64  `json:"id"`
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
}

// History retrieves the full ordered conversation between two participants.
func (c *Client) History(user1, user2 int64) ([]HistoryEntry, error) {
	respBody, err := c.doRequest("GET", fmt.Sprintf("/messages/%d/%d", user1, user2))
	if err != nil {
		return nil, err
	}

	var entries []HistoryEntry
	if err := json.Unmarshal(respBody, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// HealthResponse is the response from the health endpoint.
type HealthResponse struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	Checks    map[string]interface{} `json:"checks"`
	Timestamp string                 `json:"timestamp"`
}

// Health checks server health.
func (c *Client) Health() (*HealthResponse, error) {
	respBody, err := c.doRequest("GET", "/health")
	if err != nil {
		return nil, err
	}

	var resp HealthResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StatsResponse is the response from the stats endpoint.
type StatsResponse struct {
	TotalMessages   int64 `json:"total_messages"`
	ConnectedUsers  int   `json:"connected_users"`
	ActiveRooms     int   `json:"active_rooms"`
	OpenConnections int64 `json:"open_connections"`
}

// Stats retrieves live relay statistics.
func (c *Client) Stats() (*StatsResponse, error) {
	respBody, err := c.doRequest("GET", "/stats")
	if err != nil {
		return nil, err
	}

	var resp StatsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// wsURL converts the client's base URL into the websocket endpoint URL.
func (c *Client) wsURL(userID int64) string {
	u := c.BaseURL
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	u += "/ws"
	if userID != 0 {
		u += fmt.Sprintf("?userId=%d", userID)
	}
	return u
}

// Connect opens a websocket session, registering presence for userID.
// Pass 0 to connect anonymously.
func (c *Client) Connect(userID int64) (*Session, error) {
	conn, _, err := websocket.DefaultDialer.Dial(c.wsURL(userID), nil)
	if err != nil {
		return nil, err
	}
	return &Session{conn: conn}, nil
}
