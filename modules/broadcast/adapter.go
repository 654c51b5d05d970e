package broadcast

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// EmitPort defines the interface other modules use to push events to clients.
type EmitPort interface {
	EmitToGroup(ctx context.Context, groupID, event string, payload any) (bool, error)
	EmitToAgentSubscribers(ctx context.Context, agentID, event string, payload any) (bool, error)
	EmitToUser(ctx context.Context, userID, event string, payload any) (bool, error)
}

// EmitAdapter implements EmitPort using the service container.
type EmitAdapter struct {
	container mono.ServiceContainer
}

// NewEmitAdapter creates a new EmitAdapter.
func NewEmitAdapter(container mono.ServiceContainer) EmitPort {
	if container == nil {
		panic("broadcast: ServiceContainer is nil")
	}
	return &EmitAdapter{container: container}
}

// EmitToGroup sends event to a group room.
func (a *EmitAdapter) EmitToGroup(ctx context.Context, groupID, event string, payload any) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode payload: %w", err)
	}
	req := EmitToGroupRequest{GroupID: groupID, Event: event, Payload: raw}
	var resp EmitResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceEmitToGroup,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("failed to emit to group: %w", err)
	}
	return resp.Accepted, nil
}

// EmitToAgentSubscribers sends event to an agent's subscribers.
func (a *EmitAdapter) EmitToAgentSubscribers(ctx context.Context, agentID, event string, payload any) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode payload: %w", err)
	}
	req := EmitToAgentSubscribersRequest{AgentID: agentID, Event: event, Payload: raw}
	var resp EmitResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceEmitToAgentSubscribers,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("failed to emit to agent subscribers: %w", err)
	}
	return resp.Accepted, nil
}

// EmitToUser sends event to all of a user's connections.
func (a *EmitAdapter) EmitToUser(ctx context.Context, userID, event string, payload any) (bool, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return false, fmt.Errorf("failed to encode payload: %w", err)
	}
	req := EmitToUserRequest{UserID: userID, Event: event, Payload: raw}
	var resp EmitResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceEmitToUser,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return false, fmt.Errorf("failed to emit to user: %w", err)
	}
	return resp.Accepted, nil
}
