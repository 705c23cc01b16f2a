package relay

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Client-to-server event names.
const (
	EventJoin        = "join"
	EventSendMessage = "send_message"
)

// Server-to-client event names.
const (
	EventConnected      = "connected"
	EventSystem         = "system"
	EventJoinedRoom     = "joined_room"
	EventReceiveMessage = "receive_message"
	EventMessageSent    = "message_sent"
	EventError          = "error"
)

// ErrInvalidParticipantID reports a sender or receiver id that does not
// parse as a participant identifier.
var ErrInvalidParticipantID = errors.New("invalid participant id")

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// ParticipantID is an int64 that unmarshals from either a JSON number or a
// numeric string, matching what clients actually send.
type ParticipantID int64

func (p *ParticipantID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return ErrInvalidParticipantID
	}
	*p = ParticipantID(v)
	return nil
}

// JoinRequest is the payload of a client "join" event. Both ids are
// required; pointer fields distinguish an absent key from a zero id.
type JoinRequest struct {
	SenderID       *ParticipantID `json:"sender_id"`
	ReceiverID     *ParticipantID `json:"receiver_id"`
	SenderUsername string         `json:"sender_username"`
}

// SendMessageRequest is the payload of a client "send_message" event. Both
// ids are required.
type SendMessageRequest struct {
	SenderID   *ParticipantID `json:"sender_id"`
	ReceiverID *ParticipantID `json:"receiver_id"`
	Message    string         `json:"message"`
}

// ConnectedPayload acknowledges a successful connect to the initiating
// connection only.
type ConnectedPayload struct {
	Message string `json:"message"`
}

// SystemPayload is a room-wide notice, such as a join announcement.
type SystemPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// JoinedRoomPayload is the private join confirmation sent to the joiner.
type JoinedRoomPayload struct {
	Room      string `json:"room"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

// ReceiveMessagePayload is the room-wide delivery of a persisted message.
type ReceiveMessagePayload struct {
	SenderID   int64  `json:"sender_id"`
	ReceiverID int64  `json:"receiver_id"`
	Message    string `json:"message"`
	Timestamp  string `json:"timestamp"`
	MessageID  int64  `json:"message_id"`
}

// MessageSentPayload is the private delivery acknowledgement sent to the
// sender after the durable write.
type MessageSentPayload struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	MessageID int64  `json:"message_id"`
}

// ErrorPayload reports a validation or processing failure to the
// originating connection only.
type ErrorPayload struct {
	Message string `json:"message"`
}

// encodeEvent marshals an outbound event into its wire frame.
func encodeEvent(event string, data any) []byte {
	raw, err := json.Marshal(data)
	if err != nil {
		// Payload types above marshal unconditionally.
		panic(err)
	}
	frame, err := json.Marshal(Envelope{Event: event, Data: raw})
	if err != nil {
		panic(err)
	}
	return frame
}

// wireTime formats a server timestamp for the wire: RFC 3339 UTC, no
// offset ambiguity.
func wireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
