package models

import "time"

// MaxMessageLength is the maximum message body length in characters,
// enforced both at the relay and as a schema constraint.
const MaxMessageLength = 500

// Message represents a persisted direct message. Messages are immutable:
// once appended they are never updated or deleted. ID and Timestamp are
// assigned by the store at the moment of the durable write; client-supplied
// timestamps are never trusted.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Body       string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
