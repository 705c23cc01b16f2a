package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/bhattabhuwan/backend-chat/internal/metrics"
	"github.com/bhattabhuwan/backend-chat/internal/models"
	"github.com/bhattabhuwan/backend-chat/internal/store"
)

// Relay drives the per-connection event protocol: connect, join, send and
// disconnect. Every validation or processing failure is converted into a
// private error event to the originating connection; no event can take down
// another connection or the process.
type Relay struct {
	store    store.MessageStore
	presence *Presence
	rooms    *RoomManager
	logger   zerolog.Logger

	conns atomic.Int64
}

// New creates a relay backed by the given message store.
func New(st store.MessageStore, logger zerolog.Logger) *Relay {
	return &Relay{
		store:    st,
		presence: NewPresence(),
		rooms:    NewRoomManager(),
		logger:   logger,
	}
}

// Presence exposes the registry for status reporting.
func (r *Relay) Presence() *Presence { return r.presence }

// Rooms exposes the room manager for status reporting.
func (r *Relay) Rooms() *RoomManager { return r.rooms }

// OpenConnections returns the number of live connections, registered or not.
func (r *Relay) OpenConnections() int64 { return r.conns.Load() }

// Connect handles a new connection. rawUserID comes from the connection
// metadata (the userId query parameter). When it parses, presence is
// registered and a connected acknowledgement goes to this connection only.
// Otherwise the connection stays anonymous: it is left unregistered but can
// still receive events addressed to it.
func (r *Relay) Connect(c *Client, rawUserID string) {
	r.conns.Add(1)
	metrics.ConnectionsOpen.Inc()

	if rawUserID == "" {
		r.logger.Debug().Str("conn", c.ID).Msg("anonymous connection")
		return
	}

	userID, err := strconv.ParseInt(rawUserID, 10, 64)
	if err != nil {
		r.logger.Debug().Str("conn", c.ID).Str("user_id", rawUserID).Msg("unparseable user id, leaving connection anonymous")
		return
	}

	r.presence.Register(userID, c)
	r.rooms.SendTo(c, encodeEvent(EventConnected, ConnectedPayload{
		Message: "Connected to chat server",
	}))
	r.logger.Info().Str("conn", c.ID).Int64("user_id", userID).Msg("user connected")
}

// Disconnect handles the terminal transition for a connection: presence is
// unregistered, every room membership is dropped and the outgoing queue is
// closed. No event is broadcast to room peers.
func (r *Relay) Disconnect(c *Client) {
	r.presence.Unregister(c)
	r.rooms.LeaveAll(c)
	c.Close()
	r.conns.Add(-1)
	metrics.ConnectionsOpen.Dec()
	r.logger.Info().Str("conn", c.ID).Msg("connection closed")
}

// HandleEvent dispatches one inbound wire frame from the connection.
func (r *Relay) HandleEvent(ctx context.Context, c *Client, frame []byte) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		r.sendError(c, "Invalid event")
		return
	}

	switch env.Event {
	case EventJoin:
		r.handleJoin(c, env.Data)
	case EventSendMessage:
		r.handleSend(ctx, c, env.Data)
	default:
		r.sendError(c, "Unknown event")
	}
}

// handleJoin validates the join request, adds the connection to the
// canonical room for the pair, announces the join to the whole room and
// confirms privately to the joiner.
func (r *Relay) handleJoin(c *Client, data []byte) {
	var req JoinRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c, "Failed to join room")
		return
	}
	if req.SenderID == nil || req.ReceiverID == nil {
		r.sendError(c, "Failed to join room")
		return
	}
	if strings.TrimSpace(req.SenderUsername) == "" {
		r.sendError(c, "Failed to join room")
		return
	}

	roomID := RoomID(int64(*req.SenderID), int64(*req.ReceiverID))
	r.rooms.Join(c, roomID)

	now := time.Now().UTC()
	dropped := r.rooms.Broadcast(roomID, encodeEvent(EventSystem, SystemPayload{
		Message:   fmt.Sprintf("%s joined the chat", req.SenderUsername),
		Timestamp: wireTime(now),
	}))
	metrics.DeliveriesDropped.Add(float64(dropped))

	r.rooms.SendTo(c, encodeEvent(EventJoinedRoom, JoinedRoomPayload{
		Room:      roomID,
		Message:   fmt.Sprintf("You joined chat with user %d", int64(*req.ReceiverID)),
		Timestamp: wireTime(now),
	}))

	r.logger.Info().
		Str("conn", c.ID).
		Int64("sender_id", int64(*req.SenderID)).
		Str("room", roomID).
		Msg("joined room")
}

// handleSend validates the message, persists it with a server-assigned id
// and timestamp, fans it out to the room and acknowledges the sender. The
// acknowledgement is independent of the fan-out: a failed delivery to a
// room member never blocks it.
func (r *Relay) handleSend(ctx context.Context, c *Client, data []byte) {
	var req SendMessageRequest
	if err := json.Unmarshal(data, &req); err != nil {
		r.sendError(c, "Failed to send message")
		return
	}
	if req.SenderID == nil || req.ReceiverID == nil {
		r.sendError(c, "Failed to send message")
		return
	}

	body := strings.TrimSpace(req.Message)
	if body == "" {
		r.sendError(c, "Message cannot be empty")
		return
	}
	if utf8.RuneCountInString(body) > models.MaxMessageLength {
		r.sendError(c, "Message too long")
		return
	}

	// Durable append first: the broadcast below must never carry an id or
	// timestamp that could vanish on crash.
	msg, err := r.store.Append(ctx, int64(*req.SenderID), int64(*req.ReceiverID), body)
	if err != nil {
		r.logger.Error().Err(err).Str("conn", c.ID).Msg("message append failed")
		r.sendError(c, "Failed to send message")
		return
	}
	metrics.MessagesStored.Inc()

	roomID := RoomID(msg.SenderID, msg.ReceiverID)
	dropped := r.rooms.Broadcast(roomID, encodeEvent(EventReceiveMessage, ReceiveMessagePayload{
		SenderID:   msg.SenderID,
		ReceiverID: msg.ReceiverID,
		Message:    msg.Body,
		Timestamp:  wireTime(msg.Timestamp),
		MessageID:  msg.ID,
	}))
	metrics.DeliveriesDropped.Add(float64(dropped))

	r.rooms.SendTo(c, encodeEvent(EventMessageSent, MessageSentPayload{
		Message:   "Message delivered",
		Timestamp: wireTime(msg.Timestamp),
		MessageID: msg.ID,
	}))

	r.logger.Info().
		Int64("sender_id", msg.SenderID).
		Int64("receiver_id", msg.ReceiverID).
		Int64("message_id", msg.ID).
		Str("room", roomID).
		Msg("message relayed")
}

// sendError reports a failure to the originating connection only. The
// connection remains usable.
func (r *Relay) sendError(c *Client, message string) {
	r.rooms.SendTo(c, encodeEvent(EventError, ErrorPayload{Message: message}))
}
