package relay

import (
	"sync"

	"github.com/google/uuid"
)

// sendQueueSize bounds the per-connection outgoing queue. A client that
// falls this far behind loses events rather than stalling the relay.
const sendQueueSize = 256

// Client is the server-side handle for one live connection. It is owned by
// the presence registry and room manager for its lifetime and never
// persisted. Events are delivered through a buffered queue drained by the
// transport's writer.
type Client struct {
	ID string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewClient creates a connection handle with a fresh id.
func NewClient() *Client {
	return &Client{
		ID:   uuid.NewString(),
		send: make(chan []byte, sendQueueSize),
	}
}

// Outgoing returns the channel the transport writer drains.
func (c *Client) Outgoing() <-chan []byte {
	return c.send
}

// Enqueue queues data for delivery without blocking. It reports false when
// the client is closed or its queue is full; the caller treats that as a
// failed delivery to this one client.
func (c *Client) Enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Close marks the client closed and closes the outgoing channel, releasing
// the transport writer. Safe to call more than once; concurrent Enqueue
// calls after Close report a failed delivery instead of panicking.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}
