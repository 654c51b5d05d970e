package broadcast

import (
	"sync/atomic"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/domain/realtime"
)

// Emitter lets the rest of the application push events to rooms without
// holding a reference to the gateway. Until a hub is attached every emit
// logs a warning and does nothing. A nil *Emitter is also safe to call.
type Emitter struct {
	hub    atomic.Pointer[Hub]
	logger types.Logger
	now    func() time.Time
}

// NewEmitter creates an Emitter with no hub attached.
func NewEmitter(logger types.Logger) *Emitter {
	return &Emitter{
		logger: logger,
		now:    time.Now,
	}
}

// Attach makes the emitter deliver through h.
func (e *Emitter) Attach(h *Hub) {
	e.hub.Store(h)
}

// Detach stops delivery. Subsequent emits are no-ops.
func (e *Emitter) Detach() {
	e.hub.Store(nil)
}

// Ready reports whether a hub is attached.
func (e *Emitter) Ready() bool {
	return e != nil && e.hub.Load() != nil
}

func (e *Emitter) emit(room, event string, payload any) bool {
	if e == nil {
		return false
	}
	h := e.hub.Load()
	if h == nil {
		if e.logger != nil {
			e.logger.Warn("Realtime gateway not initialized, dropping event", "event", event, "room", room)
		}
		return false
	}
	h.Broadcast(room, event, payload)
	return true
}

// EmitToGroup sends event to every connection in the group's room.
func (e *Emitter) EmitToGroup(groupID, event string, payload any) bool {
	return e.emit(realtime.GroupRoom(groupID), event, payload)
}

// EmitToAgentSubscribers sends event to every connection subscribed to the agent.
func (e *Emitter) EmitToAgentSubscribers(agentID, event string, payload any) bool {
	return e.emit(realtime.AgentRoom(agentID), event, payload)
}

// EmitToUser sends event to every connection of the user.
func (e *Emitter) EmitToUser(userID, event string, payload any) bool {
	return e.emit(realtime.UserRoom(userID), event, payload)
}

func (e *Emitter) timestamp() int64 {
	if e == nil || e.now == nil {
		return realtime.Timestamp(time.Now())
	}
	return realtime.Timestamp(e.now())
}

// EmitGroupMessage relays a persisted group message to the group room.
func (e *Emitter) EmitGroupMessage(groupID string, message any) bool {
	return e.EmitToGroup(groupID, realtime.EventGroupMessage, message)
}

// EmitGroupMemberJoined announces a new member to the group room.
func (e *Emitter) EmitGroupMemberJoined(groupID string, member any) bool {
	return e.EmitToGroup(groupID, realtime.EventGroupMemberJoined, member)
}

// EmitGroupMemberLeft announces a departed member to the group room.
func (e *Emitter) EmitGroupMemberLeft(groupID, memberID, memberType string) bool {
	return e.EmitToGroup(groupID, realtime.EventGroupMemberLeft, realtime.GroupMemberLeft{
		GroupID:    groupID,
		MemberID:   memberID,
		MemberType: memberType,
	})
}

// EmitGroupAIResponding tells the group an agent has started generating a reply.
func (e *Emitter) EmitGroupAIResponding(groupID, agentID, agentName string) bool {
	return e.EmitToGroup(groupID, realtime.EventGroupAIResponding, realtime.GroupAIResponding{
		GroupID:   groupID,
		AgentID:   agentID,
		AgentName: agentName,
	})
}

// EmitGroupAIStopped tells the group an agent has finished replying.
func (e *Emitter) EmitGroupAIStopped(groupID, agentID string) bool {
	return e.EmitToGroup(groupID, realtime.EventGroupAIStopped, realtime.GroupAIStopped{
		GroupID: groupID,
		AgentID: agentID,
	})
}

// EmitAgentUpdated notifies subscribers of changed agent fields.
func (e *Emitter) EmitAgentUpdated(agentID string, updates map[string]any) bool {
	return e.EmitToAgentSubscribers(agentID, realtime.EventAgentUpdated, realtime.AgentUpdated{
		AgentID:   agentID,
		Updates:   updates,
		Timestamp: e.timestamp(),
	})
}

// EmitAgentDeleted notifies subscribers that the agent is gone.
func (e *Emitter) EmitAgentDeleted(agentID string) bool {
	return e.EmitToAgentSubscribers(agentID, realtime.EventAgentDeleted, realtime.AgentDeleted{
		AgentID: agentID,
	})
}

// SendSystemNotification pushes a system notification to all of a user's connections.
func (e *Emitter) SendSystemNotification(userID string, n realtime.SystemNotification) bool {
	if n.Timestamp == 0 {
		n.Timestamp = e.timestamp()
	}
	return e.EmitToUser(userID, realtime.EventSystemNotification, n)
}
