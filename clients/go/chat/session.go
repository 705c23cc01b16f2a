package chat

import (
	"encoding/json"

	"github.com/gorilla/websocket"
)

// Event names delivered by the relay.
const (
	EventConnected      = "connected"
	EventSystem         = "system"
	EventJoinedRoom     = "joined_room"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventError          = "error"
)

// Event is one server-to-client wire frame.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ReceivedMessage is the payload of a receive_message event.
type ReceivedMessage struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	MessageID  int64  `json:"message_id"`
}

// DeliveryAck is the payload of a message_sent event.
type DeliveryAck struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	MessageID int64  `json:"message_id"`
}

// Session is one live websocket connection to the relay.
type Session struct {
	conn *websocket.Conn
}

// Close closes the session.
func (s *Session) Close() error {
	return s.conn.Close()
}

// send writes one client event frame.
func (s *Session) send(event string, data any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return err
	}
	return s.conn.WriteJSON(Event{Event: event, Data: raw})
}

// Join requests membership of the room shared with receiverID.
func (s *Session) Join(senderID, receiverID int64, username string) error {
	return s.send("join", map[string]any{
		"sender_id":       senderID,
		"receiver_id":     receiverID,
		"sender_username": username,
	})
}

// Send submits a message to receiverID.
func (s *Session) Send(senderID, receiverID int64, message string) error {
	return s.send("send_message", map[string]any{
		"sender_id":   senderID,
		"receiver_id": receiverID,
		"message":     message,
	})
}

// Next blocks until the next server event arrives.
func (s *Session) Next() (*Event, error) {
	var ev Event
	if err := s.conn.ReadJSON(&ev); err != nil {
		return nil, err
	}
	return &ev, nil
}
