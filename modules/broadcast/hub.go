package broadcast

import (
	"sync"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/domain/realtime"
)

// Hub is the room registry. It tracks live connections, their room
// memberships, and fans encoded frames out to room members.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Connection            // connID -> Connection
	rooms  map[string]map[string]*Connection // room -> connID -> Connection
	logger types.Logger
}

// NewHub creates a new Hub.
func NewHub(logger types.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Connection),
		rooms:  make(map[string]map[string]*Connection),
		logger: logger,
	}
}

// Register adds a connection to the hub. It belongs to no room yet.
func (h *Hub) Register(c *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.conns[c.ID()] = c
	h.logger.Debug("Connection registered", "conn_id", c.ID(), "user_id", c.UserID())
}

// Unregister closes the connection and removes it from every room in one
// step. It returns the rooms the connection was in, or nil if it was not
// registered.
func (h *Hub) Unregister(c *Connection) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.ID()]; !ok {
		c.Close()
		return nil
	}
	delete(h.conns, c.ID())

	rooms := c.detach()
	for _, room := range rooms {
		h.removeMemberLocked(room, c.ID())
	}
	h.logger.Debug("Connection unregistered", "conn_id", c.ID(), "user_id", c.UserID(), "rooms", len(rooms))
	return rooms
}

// Join adds the connection to room. It reports whether membership changed;
// joining a room twice is a no-op.
func (h *Hub) Join(c *Connection, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.conns[c.ID()]; !ok {
		return false
	}
	if !c.addRoom(room) {
		return false
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*Connection)
		h.rooms[room] = members
	}
	members[c.ID()] = c
	return true
}

// Leave removes the connection from room. Leaving a room the connection is
// not in is a no-op.
func (h *Hub) Leave(c *Connection, room string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !c.removeRoom(room) {
		return false
	}
	h.removeMemberLocked(room, c.ID())
	return true
}

func (h *Hub) removeMemberLocked(room, connID string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Broadcast delivers event to every connection in room.
func (h *Hub) Broadcast(room, event string, payload any) int {
	return h.BroadcastExcept(room, "", event, payload)
}

// BroadcastExcept delivers event to every connection in room other than
// the one with id exceptConnID. It returns the number of connections the
// frame was queued for.
func (h *Hub) BroadcastExcept(room, exceptConnID, event string, payload any) int {
	frame, err := realtime.EncodeFrame(event, payload)
	if err != nil {
		h.logger.Error("Failed to encode frame", "event", event, "room", room, "error", err)
		return 0
	}

	h.mu.RLock()
	targets := make([]*Connection, 0, len(h.rooms[room]))
	for id, c := range h.rooms[room] {
		if id == exceptConnID {
			continue
		}
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, c := range targets {
		if h.deliver(c, frame) {
			delivered++
		}
	}
	return delivered
}

// Send delivers event to a single connection.
func (h *Hub) Send(c *Connection, event string, payload any) bool {
	frame, err := realtime.EncodeFrame(event, payload)
	if err != nil {
		h.logger.Error("Failed to encode frame", "event", event, "conn_id", c.ID(), "error", err)
		return false
	}
	return h.deliver(c, frame)
}

func (h *Hub) deliver(c *Connection, frame []byte) bool {
	ok, overflow := c.enqueue(frame)
	if overflow {
		h.logger.Warn("Send queue full, closing connection", "conn_id", c.ID(), "user_id", c.UserID())
		c.Close()
	}
	return ok
}

// Shutdown closes every connection and clears all rooms.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for _, c := range h.conns {
		c.detach()
	}
	h.conns = make(map[string]*Connection)
	h.rooms = make(map[string]map[string]*Connection)
}

// ConnectionCount returns the number of registered connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// RoomCount returns the number of non-empty rooms.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomSize returns the number of connections in room.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}
