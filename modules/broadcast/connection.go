package broadcast

import (
	"sort"
	"sync"

	"github.com/example/realtime-presence/domain/realtime"
)

// sendQueueSize bounds the frames waiting for a slow client.
const sendQueueSize = 256

// State is the lifecycle state of a connection.
type State int

const (
	StateUnauthenticated State = iota
	StateIdle
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnauthenticated:
		return "UNAUTHENTICATED"
	case StateIdle:
		return "AUTHENTICATED_IDLE"
	case StateSubscribed:
		return "AUTHENTICATED_SUBSCRIBED"
	case StateClosed:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Connection is one live transport session. Its owning user is fixed at
// construction. The set of rooms it belongs to is owned here and only
// mutated by the Hub, with the Hub lock held.
type Connection struct {
	id     string
	userID string
	send   chan []byte
	done   chan struct{}

	mu     sync.Mutex
	rooms  map[string]struct{}
	closed bool
}

// NewConnection creates a connection for an authenticated user.
func NewConnection(id, userID string) *Connection {
	return &Connection{
		id:     id,
		userID: userID,
		send:   make(chan []byte, sendQueueSize),
		done:   make(chan struct{}),
		rooms:  make(map[string]struct{}),
	}
}

// ID returns the connection id.
func (c *Connection) ID() string {
	return c.id
}

// UserID returns the owning user.
func (c *Connection) UserID() string {
	return c.userID
}

// Outbound returns the queue of encoded frames waiting to be written.
func (c *Connection) Outbound() <-chan []byte {
	return c.send
}

// Done is closed once the connection is closed.
func (c *Connection) Done() <-chan struct{} {
	return c.done
}

// Rooms returns the rooms the connection currently belongs to, sorted.
func (c *Connection) Rooms() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

// InRoom reports whether the connection is a member of room.
func (c *Connection) InRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.rooms[room]
	return ok
}

// State derives the lifecycle state from the connection's memberships.
// The personal and global rooms joined at handshake do not count as a
// subscription.
func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return StateClosed
	}
	personal := realtime.UserRoom(c.userID)
	for room := range c.rooms {
		if room != personal && room != realtime.GlobalRoom {
			return StateSubscribed
		}
	}
	return StateIdle
}

// Close marks the connection closed and releases its writer. Safe to call
// more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Connection) closeLocked() {
	if c.closed {
		return
	}
	c.closed = true
	close(c.done)
}

func (c *Connection) addRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}
	if _, ok := c.rooms[room]; ok {
		return false
	}
	c.rooms[room] = struct{}{}
	return true
}

func (c *Connection) removeRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rooms[room]; !ok {
		return false
	}
	delete(c.rooms, room)
	return true
}

// detach closes the connection and empties its room set, returning the rooms
// it was in.
func (c *Connection) detach() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	rooms := make([]string, 0, len(c.rooms))
	for room := range c.rooms {
		rooms = append(rooms, room)
	}
	c.rooms = make(map[string]struct{})
	c.closeLocked()
	return rooms
}

// enqueue queues an encoded frame. It reports false when the connection is
// closed or its queue is full.
func (c *Connection) enqueue(frame []byte) (ok bool, overflow bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false, false
	}
	select {
	case c.send <- frame:
		return true, false
	default:
		return false, true
	}
}
