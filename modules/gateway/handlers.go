package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/domain/realtime"
	"github.com/example/realtime-presence/events"
	"github.com/example/realtime-presence/modules/broadcast"
	"github.com/example/realtime-presence/modules/identity"
	"github.com/example/realtime-presence/modules/presence"
	"github.com/example/realtime-presence/modules/typing"
)

// Session is one authenticated connection as the handlers see it.
type Session struct {
	Conn       *broadcast.Connection
	Plan       string
	RemoteAddr string
	OpenedAt   time.Time
}

// Handlers applies client commands to the hub. It is shared by every
// connection and holds no per-connection state of its own.
type Handlers struct {
	hub         *broadcast.Hub
	access      identity.AccessPort
	typing      *typing.Engine
	presence    *presence.Announcer
	eventBus    mono.EventBus
	callTimeout time.Duration
	now         func() time.Time
	logger      types.Logger
}

// NewHandlers creates Handlers. eventBus may be nil.
func NewHandlers(
	hub *broadcast.Hub,
	accessPort identity.AccessPort,
	engine *typing.Engine,
	announcer *presence.Announcer,
	eventBus mono.EventBus,
	callTimeout time.Duration,
	logger types.Logger,
) *Handlers {
	return &Handlers{
		hub:         hub,
		access:      accessPort,
		typing:      engine,
		presence:    announcer,
		eventBus:    eventBus,
		callTimeout: callTimeout,
		now:         time.Now,
		logger:      logger,
	}
}

// Open registers an authenticated connection, joins it to its personal and
// global rooms, acknowledges it and announces the user online.
func (h *Handlers) Open(s *Session) {
	c := s.Conn
	h.hub.Register(c)
	h.hub.Join(c, realtime.UserRoom(c.UserID()))
	h.hub.Join(c, realtime.GlobalRoom)

	h.hub.Send(c, realtime.EventSystemConnection, realtime.ConnectionAck{
		Connected: true,
		Timestamp: realtime.Timestamp(h.now()),
	})
	h.presence.Connected(c.ID(), c.UserID())

	h.logger.Info("Connection opened",
		"conn_id", c.ID(),
		"user_id", c.UserID(),
		"plan", s.Plan)

	if h.eventBus != nil {
		evt := events.ConnectionOpenedEvent{
			ConnectionID: c.ID(),
			UserID:       c.UserID(),
			Plan:         s.Plan,
			RemoteAddr:   s.RemoteAddr,
			Timestamp:    s.OpenedAt,
		}
		if err := events.ConnectionOpenedV1.Publish(h.eventBus, evt, nil); err != nil {
			h.logger.Warn("Failed to publish ConnectionOpened event", "conn_id", c.ID(), "error", err)
		}
	}
}

// Close removes the connection from every room and announces the user
// offline. Typing timers owned by the user keep running.
func (h *Handlers) Close(s *Session) {
	c := s.Conn
	rooms := h.hub.Unregister(c)
	if rooms == nil {
		return
	}
	h.presence.Disconnected(c.UserID())

	duration := h.now().Sub(s.OpenedAt)
	h.logger.Info("Connection closed",
		"conn_id", c.ID(),
		"user_id", c.UserID(),
		"rooms", len(rooms),
		"duration", duration)

	if h.eventBus != nil {
		evt := events.ConnectionClosedEvent{
			ConnectionID: c.ID(),
			UserID:       c.UserID(),
			Rooms:        rooms,
			Duration:     duration,
			Timestamp:    h.now(),
		}
		if err := events.ConnectionClosedV1.Publish(h.eventBus, evt, nil); err != nil {
			h.logger.Warn("Failed to publish ConnectionClosed event", "conn_id", c.ID(), "error", err)
		}
	}
}

// Handle decodes and applies one inbound frame. Commands from a single
// connection are handled in order because the read pump calls Handle
// synchronously.
func (h *Handlers) Handle(ctx context.Context, c *broadcast.Connection, raw []byte) {
	cmd, err := DecodeCommand(raw)
	if err != nil {
		h.logger.Debug("Rejected frame", "conn_id", c.ID(), "error", err)
		h.sendError(c, realtime.CodeInvalidCommand, err.Error())
		return
	}

	switch cmd := cmd.(type) {
	case JoinChat:
		h.joinChat(ctx, c, cmd)
	case LeaveChat:
		h.hub.Leave(c, realtime.ChatRoom(cmd.AgentID, c.UserID()))
	case SetChatTyping:
		h.typing.Set(typing.Signal{
			Scope:    typing.ChatScope(cmd.AgentID),
			UserID:   c.UserID(),
			IsTyping: cmd.IsTyping,
			ConnID:   c.ID(),
		})
	case JoinGroup:
		h.joinGroup(ctx, c, cmd)
	case LeaveGroup:
		h.hub.Leave(c, realtime.GroupRoom(cmd.GroupID))
	case SetGroupTyping:
		if !c.InRoom(realtime.GroupRoom(cmd.GroupID)) {
			h.logger.Warn("Group typing outside a joined group ignored", "conn_id", c.ID(), "group_id", cmd.GroupID)
			return
		}
		h.typing.Set(typing.Signal{
			Scope:    typing.GroupScope(cmd.GroupID),
			UserID:   c.UserID(),
			UserName: cmd.UserName,
			IsTyping: cmd.IsTyping,
			ConnID:   c.ID(),
		})
	case SubscribeAgent:
		h.subscribeAgent(ctx, c, cmd)
	case UnsubscribeAgent:
		h.hub.Leave(c, realtime.AgentRoom(cmd.AgentID))
	case SetPresence:
		userID := cmd.UserID
		if userID == "" {
			userID = c.UserID()
		}
		h.presence.Announce(c.ID(), userID, cmd.Online)
	}
}

func (h *Handlers) joinChat(ctx context.Context, c *broadcast.Connection, cmd JoinChat) {
	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	err := h.access.CheckAgentAccess(callCtx, cmd.AgentID, c.UserID())
	switch {
	case err == nil:
		h.hub.Join(c, realtime.ChatRoom(cmd.AgentID, c.UserID()))
		h.logger.Debug("Joined chat", "conn_id", c.ID(), "agent_id", cmd.AgentID)
	case errors.Is(err, identity.ErrAgentNotFound):
		h.sendError(c, realtime.CodeAgentNotFound, "Agent not found")
	default:
		h.logger.Error("Chat join failed", "conn_id", c.ID(), "agent_id", cmd.AgentID, "error", err)
		h.sendError(c, realtime.CodeJoinError, "Failed to join chat")
	}
}

// joinGroup never reports failure to the client.
func (h *Handlers) joinGroup(ctx context.Context, c *broadcast.Connection, cmd JoinGroup) {
	if cmd.UserID != "" && cmd.UserID != c.UserID() {
		h.logger.Warn("Group join for another user ignored",
			"conn_id", c.ID(),
			"group_id", cmd.GroupID,
			"claimed_user_id", cmd.UserID)
		return
	}

	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	if err := h.access.CheckGroupMembership(callCtx, cmd.GroupID, c.UserID()); err != nil {
		if errors.Is(err, identity.ErrNotGroupMember) {
			h.logger.Warn("User is not a member of group", "user_id", c.UserID(), "group_id", cmd.GroupID)
		} else {
			h.logger.Error("Group join failed", "conn_id", c.ID(), "group_id", cmd.GroupID, "error", err)
		}
		return
	}
	h.hub.Join(c, realtime.GroupRoom(cmd.GroupID))
	h.logger.Debug("Joined group", "conn_id", c.ID(), "group_id", cmd.GroupID)
}

func (h *Handlers) subscribeAgent(ctx context.Context, c *broadcast.Connection, cmd SubscribeAgent) {
	callCtx, cancel := context.WithTimeout(ctx, h.callTimeout)
	defer cancel()

	err := h.access.CheckAgentAccess(callCtx, cmd.AgentID, c.UserID())
	switch {
	case err == nil:
		h.hub.Join(c, realtime.AgentRoom(cmd.AgentID))
	case errors.Is(err, identity.ErrAgentNotFound):
		h.sendError(c, realtime.CodeAgentNotFound, "Agent not found")
	default:
		h.logger.Error("Agent subscribe failed", "conn_id", c.ID(), "agent_id", cmd.AgentID, "error", err)
		h.sendError(c, realtime.CodeSubscribeError, "Failed to subscribe to agent")
	}
}

func (h *Handlers) sendError(c *broadcast.Connection, code, message string) {
	h.hub.Send(c, realtime.EventChatError, realtime.ErrorPayload{
		Code:      code,
		Message:   message,
		Timestamp: realtime.Timestamp(h.now()),
	})
}
