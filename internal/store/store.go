package store

import (
	"context"

	"github.com/bhattabhuwan/backend-chat/internal/models"
)

// MessageStore defines the interface for the durable append-only message log.
// SQLiteStore, PostgresStore and MemoryStore implement this interface.
//
// Append must be durable before it returns: the relay broadcasts a message id
// and timestamp only after the store has committed them.
type MessageStore interface {
	// Append persists a new message, assigning the next id and the current
	// UTC server timestamp atomically with the write. Ids are strictly
	// increasing and unique, even under concurrent appends.
	Append(ctx context.Context, senderID, receiverID int64, body string) (*models.Message, error)

	// History returns every message exchanged between the two participants,
	// in either direction, ordered ascending by timestamp with ties broken
	// by id.
	History(ctx context.Context, userA, userB int64) ([]models.Message, error)

	// CountMessages returns the total number of stored messages.
	CountMessages(ctx context.Context) (int64, error)

	// Ping checks the store connection.
	Ping(ctx context.Context) error

	// Close releases the underlying resources.
	Close()
}
