package activity

import (
	"sync"
	"time"
)

// closedRetention is how long a closed connection id is remembered so that
// its open event, delivered late, is dropped.
const closedRetention = 10 * time.Minute

// UserActivity is what the tracker knows about one user.
type UserActivity struct {
	UserID      string    `json:"user_id"`
	Online      bool      `json:"online"`
	Connections int       `json:"connections"`
	LastSeen    time.Time `json:"last_seen"`
}

type userState struct {
	conns    map[string]struct{}
	lastSeen time.Time
}

// Tracker follows open connections per user and remembers when each user
// was last seen. Connections are tracked by id, so open and close events
// may arrive in any order.
type Tracker struct {
	mu     sync.RWMutex
	users  map[string]*userState
	closed map[string]time.Time // connID -> time the close was recorded
	now    func() time.Time
}

// NewTracker creates an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{
		users:  make(map[string]*userState),
		closed: make(map[string]time.Time),
		now:    time.Now,
	}
}

// Opened records connection connID of userID. An open for a connection
// already seen closing is ignored apart from its timestamp.
func (t *Tracker) Opened(connID, userID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	u := t.userLocked(userID)
	if _, gone := t.closed[connID]; !gone {
		u.conns[connID] = struct{}{}
	}
	if at.After(u.lastSeen) {
		u.lastSeen = at
	}
}

// Closed records that connection connID of userID went away.
func (t *Tracker) Closed(connID, userID string, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	t.pruneLocked(now)
	t.closed[connID] = now

	u := t.userLocked(userID)
	delete(u.conns, connID)
	if at.After(u.lastSeen) {
		u.lastSeen = at
	}
}

func (t *Tracker) pruneLocked(now time.Time) {
	for id, at := range t.closed {
		if now.Sub(at) > closedRetention {
			delete(t.closed, id)
		}
	}
}

func (t *Tracker) userLocked(userID string) *userState {
	u, ok := t.users[userID]
	if !ok {
		u = &userState{conns: make(map[string]struct{})}
		t.users[userID] = u
	}
	return u
}

// Get returns the user's activity.
func (t *Tracker) Get(userID string) (UserActivity, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	u, ok := t.users[userID]
	if !ok {
		return UserActivity{UserID: userID}, false
	}
	return UserActivity{
		UserID:      userID,
		Online:      len(u.conns) > 0,
		Connections: len(u.conns),
		LastSeen:    u.lastSeen,
	}, true
}

// OnlineCount returns the number of users with at least one connection.
func (t *Tracker) OnlineCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	n := 0
	for _, u := range t.users {
		if len(u.conns) > 0 {
			n++
		}
	}
	return n
}
