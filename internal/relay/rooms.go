package relay

import "sync"

// RoomManager owns the runtime membership of every room. Rooms have no
// persisted record: membership is created lazily on the first join and the
// room is discarded once its last member leaves, so a room is always
// re-creatable from the two participant ids.
type RoomManager struct {
	mu     sync.Mutex
	rooms  map[string]map[*Client]struct{}
	byConn map[*Client]map[string]struct{}
}

// NewRoomManager creates an empty room manager.
func NewRoomManager() *RoomManager {
	return &RoomManager{
		rooms:  make(map[string]map[*Client]struct{}),
		byConn: make(map[*Client]map[string]struct{}),
	}
}

// Join adds the connection to the room, creating the room on first join.
// Joining twice has no additional effect.
func (m *RoomManager) Join(c *Client, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	members, ok := m.rooms[roomID]
	if !ok {
		members = make(map[*Client]struct{})
		m.rooms[roomID] = members
	}
	members[c] = struct{}{}

	joined, ok := m.byConn[c]
	if !ok {
		joined = make(map[string]struct{})
		m.byConn[c] = joined
	}
	joined[roomID] = struct{}{}
}

// Leave removes the connection from the room, discarding the room when it
// becomes empty.
func (m *RoomManager) Leave(c *Client, roomID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.leave(c, roomID)
}

// LeaveAll removes the connection from every room it is a member of.
// Invoked on disconnect.
func (m *RoomManager) LeaveAll(c *Client) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for roomID := range m.byConn[c] {
		m.leave(c, roomID)
	}
}

// leave must be called with m.mu held.
func (m *RoomManager) leave(c *Client, roomID string) {
	if members, ok := m.rooms[roomID]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(m.rooms, roomID)
		}
	}
	if joined, ok := m.byConn[c]; ok {
		delete(joined, roomID)
		if len(joined) == 0 {
			delete(m.byConn, c)
		}
	}
}

// Broadcast delivers data to every current member of the room, best-effort:
// a failed delivery to one member never prevents delivery to the others.
// It returns the number of deliveries that were dropped.
func (m *RoomManager) Broadcast(roomID string, data []byte) (dropped int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for c := range m.rooms[roomID] {
		if !c.Enqueue(data) {
			dropped++
		}
	}
	return dropped
}

// SendTo delivers data directly to one connection, independent of room
// membership. Used for private acknowledgements and errors.
func (m *RoomManager) SendTo(c *Client, data []byte) bool {
	return c.Enqueue(data)
}

// ActiveRooms returns the number of rooms with at least one member.
func (m *RoomManager) ActiveRooms() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms)
}

// MemberCount returns the current membership size of a room.
func (m *RoomManager) MemberCount(roomID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rooms[roomID])
}
