package relay

import "sync"

// Presence is the process-wide mapping from participant id to their active
// connection. State is volatile: it is rebuilt implicitly as clients
// reconnect and is never persisted.
type Presence struct {
	mu     sync.RWMutex
	byUser map[int64]*Client
}

// NewPresence creates an empty presence registry.
func NewPresence() *Presence {
	return &Presence{byUser: make(map[int64]*Client)}
}

// Register records the connection for a participant. A new connection for
// the same participant unconditionally replaces the previous mapping; the
// displaced connection is neither closed nor notified.
func (p *Presence) Register(userID int64, c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.byUser[userID] = c
}

// Unregister removes any mapping pointing at the given connection. A
// connection that was never registered, or was already replaced by a newer
// one, is silently ignored.
func (p *Presence) Unregister(c *Client) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for userID, cur := range p.byUser {
		if cur == c {
			delete(p.byUser, userID)
		}
	}
}

// Lookup returns the active connection for a participant, if any.
func (p *Presence) Lookup(userID int64) (*Client, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.byUser[userID]
	return c, ok
}

// Count returns the number of registered participants.
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.byUser)
}
