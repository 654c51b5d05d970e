package gateway

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/realtime-presence/domain/realtime"
)

// ErrInvalidCommand is returned for frames that are not a well-formed command.
var ErrInvalidCommand = errors.New("invalid command")

// Command is one decoded inbound client command. The set of implementations
// is closed; the dispatcher switches over them exhaustively.
type Command interface {
	Event() string
}

// JoinChat asks to join the pairwise room with an agent.
type JoinChat struct {
	AgentID string `json:"agentId"`
}

// LeaveChat leaves the pairwise room with an agent.
type LeaveChat struct {
	AgentID string `json:"agentId"`
}

// SetChatTyping reports typing in a chat with an agent.
type SetChatTyping struct {
	AgentID  string `json:"agentId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// JoinGroup asks to join a group chat room.
type JoinGroup struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

// LeaveGroup leaves a group chat room.
type LeaveGroup struct {
	GroupID string `json:"groupId"`
	UserID  string `json:"userId"`
}

// SetGroupTyping reports typing in a group chat.
type SetGroupTyping struct {
	GroupID  string `json:"groupId"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
	IsTyping bool   `json:"isTyping"`
}

// SubscribeAgent asks for an agent's update stream.
type SubscribeAgent struct {
	AgentID string `json:"agentId"`
}

// UnsubscribeAgent stops an agent's update stream.
type UnsubscribeAgent struct {
	AgentID string `json:"agentId"`
}

// SetPresence is a manual presence signal.
type SetPresence struct {
	UserID string `json:"userId"`
	Online bool   `json:"-"`
}

func (JoinChat) Event() string         { return realtime.EventChatJoin }
func (LeaveChat) Event() string        { return realtime.EventChatLeave }
func (SetChatTyping) Event() string    { return realtime.EventChatTyping }
func (JoinGroup) Event() string        { return realtime.EventGroupJoin }
func (LeaveGroup) Event() string       { return realtime.EventGroupLeave }
func (SetGroupTyping) Event() string   { return realtime.EventGroupTyping }
func (SubscribeAgent) Event() string   { return realtime.EventAgentSubscribe }
func (UnsubscribeAgent) Event() string { return realtime.EventAgentUnsubscribe }

func (p SetPresence) Event() string {
	if p.Online {
		return realtime.EventPresenceOnline
	}
	return realtime.EventPresenceOffline
}

// typingFlag rejects typing commands that omit isTyping.
type typingFlag struct {
	IsTyping *bool `json:"isTyping"`
}

// DecodeCommand parses a raw frame into a Command. Every malformed frame,
// unknown event and missing required field is reported as ErrInvalidCommand.
func DecodeCommand(raw []byte) (Command, error) {
	var frame realtime.Frame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("%w: malformed frame", ErrInvalidCommand)
	}
	if frame.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrInvalidCommand)
	}

	data := frame.Data
	if len(data) == 0 || string(data) == "null" {
		data = []byte("{}")
	}

	switch frame.Event {
	case realtime.EventChatJoin:
		var cmd JoinChat
		if err := decodeData(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("agentId", cmd.AgentID))

	case realtime.EventChatLeave:
		var cmd LeaveChat
		if err := decodeData(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("agentId", cmd.AgentID))

	case realtime.EventChatTyping:
		var cmd SetChatTyping
		if err := decodeTyping(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("agentId", cmd.AgentID))

	case realtime.EventGroupJoin:
		var cmd JoinGroup
		if err := decodeData(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("groupId", cmd.GroupID))

	case realtime.EventGroupLeave:
		var cmd LeaveGroup
		if err := decodeData(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("groupId", cmd.GroupID))

	case realtime.EventGroupTyping:
		var cmd SetGroupTyping
		if err := decodeTyping(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("groupId", cmd.GroupID))

	case realtime.EventAgentSubscribe:
		var cmd SubscribeAgent
		if err := decodeData(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("agentId", cmd.AgentID))

	case realtime.EventAgentUnsubscribe:
		var cmd UnsubscribeAgent
		if err := decodeData(data, &cmd); err != nil {
			return nil, err
		}
		return validated(cmd, require("agentId", cmd.AgentID))

	case realtime.EventPresenceOnline, realtime.EventPresenceOffline:
		var cmd SetPresence
		if err := decodeData(data, &cmd); err != nil {
			return nil, err
		}
		cmd.Online = frame.Event == realtime.EventPresenceOnline
		return cmd, nil

	default:
		return nil, fmt.Errorf("%w: unknown event %q", ErrInvalidCommand, frame.Event)
	}
}

func decodeData(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: malformed data", ErrInvalidCommand)
	}
	return nil
}

func decodeTyping(data []byte, v any) error {
	var flag typingFlag
	if err := decodeData(data, &flag); err != nil {
		return err
	}
	if flag.IsTyping == nil {
		return fmt.Errorf("%w: isTyping is required", ErrInvalidCommand)
	}
	return decodeData(data, v)
}

func validated(cmd Command, err error) (Command, error) {
	if err != nil {
		return nil, err
	}
	return cmd, nil
}

func require(field, value string) error {
	if value == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidCommand, field)
	}
	return nil
}
