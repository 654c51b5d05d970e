// Package presence announces users coming online and going offline to the
// global room.
package presence

import (
	"time"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/domain/realtime"
)

// Broadcaster delivers frames to room members.
type Broadcaster interface {
	Broadcast(room, event string, payload any) int
	BroadcastExcept(room, exceptConnID, event string, payload any) int
}

// Announcer publishes presence changes. Announcements are per connection:
// a user with two devices produces two online and two offline events.
type Announcer struct {
	out    Broadcaster
	now    func() time.Time
	logger types.Logger
}

// NewAnnouncer creates an Announcer.
func NewAnnouncer(out Broadcaster, logger types.Logger) *Announcer {
	return &Announcer{
		out:    out,
		now:    time.Now,
		logger: logger,
	}
}

// Connected announces that userID came online on connID. The new connection
// itself is not told.
func (a *Announcer) Connected(connID, userID string) {
	a.online(connID, userID)
}

// Disconnected announces that userID went offline. The connection must
// already have left the global room.
func (a *Announcer) Disconnected(userID string) {
	a.offline(userID)
}

// Announce relays a client's manual presence signal as-is. The user id is
// whatever the client sent; it is not checked against connection state.
func (a *Announcer) Announce(connID, userID string, online bool) {
	if online {
		a.online(connID, userID)
		return
	}
	a.offline(userID)
}

func (a *Announcer) online(connID, userID string) {
	n := a.out.BroadcastExcept(realtime.GlobalRoom, connID, realtime.EventPresenceUserOnline, realtime.PresenceChange{
		UserID:    userID,
		Online:    true,
		Timestamp: realtime.Timestamp(a.now()),
	})
	a.logger.Debug("Presence online", "user_id", userID, "recipients", n)
}

func (a *Announcer) offline(userID string) {
	n := a.out.Broadcast(realtime.GlobalRoom, realtime.EventPresenceUserOffline, realtime.PresenceChange{
		UserID:    userID,
		Online:    false,
		Timestamp: realtime.Timestamp(a.now()),
	})
	a.logger.Debug("Presence offline", "user_id", userID, "recipients", n)
}
