package realtime

import "strings"

// RoomKind identifies what a room name was built from.
type RoomKind string

// Room kinds.
const (
	RoomKindUser   RoomKind = "user"
	RoomKindChat   RoomKind = "chat"
	RoomKindAgent  RoomKind = "agent"
	RoomKindGroup  RoomKind = "group"
	RoomKindGlobal RoomKind = "global"
)

// GlobalRoom is the room every authenticated connection joins for presence.
const GlobalRoom = string(RoomKindGlobal)

// Discriminators are escaped so that a ':' inside an id can never make two
// different (kind, ids) tuples produce the same name.
var discriminatorEscaper = strings.NewReplacer("%", "%25", ":", "%3A")

func roomName(kind RoomKind, parts ...string) string {
	var b strings.Builder
	b.WriteString(string(kind))
	for _, p := range parts {
		b.WriteByte(':')
		b.WriteString(discriminatorEscaper.Replace(p))
	}
	return b.String()
}

// UserRoom returns the personal room shared by all connections of one user.
func UserRoom(userID string) string {
	return roomName(RoomKindUser, userID)
}

// ChatRoom returns the pairwise room for a user talking to an agent.
func ChatRoom(agentID, userID string) string {
	return roomName(RoomKindChat, agentID, userID)
}

// AgentRoom returns the room of connections subscribed to an agent's updates.
func AgentRoom(agentID string) string {
	return roomName(RoomKindAgent, agentID)
}

// GroupRoom returns the room of a group chat.
func GroupRoom(groupID string) string {
	return roomName(RoomKindGroup, groupID)
}
