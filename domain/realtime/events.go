package realtime

import (
	"encoding/json"
	"time"
)

// Inbound event names (client -> server).
const (
	EventChatJoin         = "chat:join"
	EventChatLeave        = "chat:leave"
	EventChatTyping       = "chat:typing"
	EventGroupJoin        = "group:join"
	EventGroupLeave       = "group:leave"
	EventGroupTyping      = "group:typing"
	EventAgentSubscribe   = "agent:subscribe"
	EventAgentUnsubscribe = "agent:unsubscribe"
	EventPresenceOnline   = "presence:online"
	EventPresenceOffline  = "presence:offline"
)

// Outbound event names (server -> client). chat:typing and group:typing are
// shared with the inbound set.
const (
	EventSystemConnection    = "system:connection"
	EventSystemNotification  = "system:notification"
	EventChatError           = "chat:error"
	EventGroupMessage        = "group:message"
	EventGroupMemberJoined   = "group:member:joined"
	EventGroupMemberLeft     = "group:member:left"
	EventGroupAIResponding   = "group:ai:responding"
	EventGroupAIStopped      = "group:ai:stopped"
	EventAgentUpdated        = "agent:updated"
	EventAgentDeleted        = "agent:deleted"
	EventPresenceUserOnline  = "presence:user:online"
	EventPresenceUserOffline = "presence:user:offline"
)

// Error codes carried by chat:error.
const (
	CodeAgentNotFound  = "AGENT_NOT_FOUND"
	CodeJoinError      = "JOIN_ERROR"
	CodeSubscribeError = "SUBSCRIBE_ERROR"
	CodeInvalidCommand = "INVALID_COMMAND"
)

// Frame is the envelope of every message on the wire.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// EncodeFrame marshals an outbound event with its payload.
func EncodeFrame(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: event, Data: data})
}

// Timestamp converts t to the Unix-millisecond form used on the wire.
func Timestamp(t time.Time) int64 {
	return t.UnixMilli()
}

// ConnectionAck is sent once the handshake succeeds.
type ConnectionAck struct {
	Connected bool  `json:"connected"`
	Timestamp int64 `json:"timestamp"`
}

// ErrorPayload is the body of chat:error.
type ErrorPayload struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Timestamp int64  `json:"timestamp"`
}

// ChatTyping is the body of chat:typing.
type ChatTyping struct {
	AgentID   string `json:"agentId"`
	UserID    string `json:"userId"`
	IsTyping  bool   `json:"isTyping"`
	Timestamp int64  `json:"timestamp"`
}

// GroupTyping is the body of group:typing.
type GroupTyping struct {
	GroupID   string `json:"groupId"`
	UserID    string `json:"userId"`
	UserName  string `json:"userName,omitempty"`
	IsTyping  bool   `json:"isTyping"`
	Timestamp int64  `json:"timestamp"`
}

// PresenceChange is the body of presence:user:online and presence:user:offline.
type PresenceChange struct {
	UserID    string `json:"userId"`
	Online    bool   `json:"online"`
	Timestamp int64  `json:"timestamp"`
}

// GroupMemberLeft is the body of group:member:left.
type GroupMemberLeft struct {
	GroupID    string `json:"groupId"`
	MemberID   string `json:"memberId"`
	MemberType string `json:"memberType"`
}

// GroupAIResponding is the body of group:ai:responding.
type GroupAIResponding struct {
	GroupID   string `json:"groupId"`
	AgentID   string `json:"agentId"`
	AgentName string `json:"agentName"`
}

// GroupAIStopped is the body of group:ai:stopped.
type GroupAIStopped struct {
	GroupID string `json:"groupId"`
	AgentID string `json:"agentId"`
}

// AgentUpdated is the body of agent:updated.
type AgentUpdated struct {
	AgentID   string         `json:"agentId"`
	Updates   map[string]any `json:"updates"`
	Timestamp int64          `json:"timestamp"`
}

// AgentDeleted is the body of agent:deleted.
type AgentDeleted struct {
	AgentID string `json:"agentId"`
}

// NotificationAction is an optional call to action on a system notification.
type NotificationAction struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// SystemNotification is the body of system:notification.
type SystemNotification struct {
	Type      string              `json:"type"` // info, warning, error, success
	Title     string              `json:"title"`
	Message   string              `json:"message"`
	Action    *NotificationAction `json:"action,omitempty"`
	Timestamp int64               `json:"timestamp"`
}
