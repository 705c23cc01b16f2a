package store

import (
	"context"
	"sync"
	"time"

	"github.com/bhattabhuwan/backend-chat/internal/models"
)

// MemoryStore is an in-process MessageStore used in development when no
// database is configured, and by tests. It honors the same contract as the
// durable stores: strictly increasing ids assigned atomically with the write.
type MemoryStore struct {
	mu       sync.Mutex
	nextID   int64
	messages []models.Message
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}

// Ping always succeeds.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Append stores a new message with the next id and the current UTC time.
func (s *MemoryStore) Append(ctx context.Context, senderID, receiverID int64, body string) (*models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	msg := models.Message{
		ID:         s.nextID,
		SenderID:   senderID,
		ReceiverID: receiverID,
		Body:       body,
		Timestamp:  time.Now().UTC(),
	}
	s.nextID++
	s.messages = append(s.messages, msg)

	out := msg
	return &out, nil
}

// History returns all messages between two participants, oldest first.
// Messages are appended in id order, which coincides with timestamp order
// (ties included), so no re-sort is needed.
func (s *MemoryStore) History(ctx context.Context, userA, userB int64) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var messages []models.Message
	for _, msg := range s.messages {
		if (msg.SenderID == userA && msg.ReceiverID == userB) ||
			(msg.SenderID == userB && msg.ReceiverID == userA) {
			messages = append(messages, msg)
		}
	}
	return messages, nil
}

// CountMessages returns the total number of stored messages.
func (s *MemoryStore) CountMessages(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.messages)), nil
}
