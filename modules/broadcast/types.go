package broadcast

import "encoding/json"

// Service names for request-reply services.
const (
	ServiceEmitToGroup            = "emit-to-group"
	ServiceEmitToAgentSubscribers = "emit-to-agent-subscribers"
	ServiceEmitToUser             = "emit-to-user"
)

// EmitToGroupRequest asks for an event to be delivered to a group room.
type EmitToGroupRequest struct {
	GroupID string          `json:"group_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EmitToAgentSubscribersRequest asks for an event to be delivered to an agent's subscribers.
type EmitToAgentSubscribersRequest struct {
	AgentID string          `json:"agent_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EmitToUserRequest asks for an event to be delivered to all of a user's connections.
type EmitToUserRequest struct {
	UserID  string          `json:"user_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// EmitResponse reports whether the event was handed to the hub. Accepted is
// false while the gateway is not running.
type EmitResponse struct {
	Accepted bool `json:"accepted"`
}
