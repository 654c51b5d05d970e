package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"
)

// ErrEventRequired is returned when an emit request names no event.
var ErrEventRequired = errors.New("event name is required")

// BroadcastModule owns the room registry and exposes the emit services that
// let other modules push events to connected clients.
type BroadcastModule struct {
	hub     *Hub
	emitter *Emitter
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*BroadcastModule)(nil)
var _ mono.ServiceProviderModule = (*BroadcastModule)(nil)
var _ mono.HealthCheckableModule = (*BroadcastModule)(nil)

// NewModule creates a new BroadcastModule.
func NewModule(logger types.Logger) *BroadcastModule {
	return &BroadcastModule{
		hub:     NewHub(logger),
		emitter: NewEmitter(logger),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *BroadcastModule) Name() string {
	return "broadcast"
}

// Start starts the module. The emitter stays detached until the gateway
// starts accepting connections.
func (m *BroadcastModule) Start(_ context.Context) error {
	m.logger.Info("Module started")
	return nil
}

// Stop closes all remaining connections.
func (m *BroadcastModule) Stop(_ context.Context) error {
	count := m.hub.ConnectionCount()
	m.emitter.Detach()
	m.hub.Shutdown()
	m.logger.Info("Module stopped", "connections", count)
	return nil
}

// Health returns the health status.
func (m *BroadcastModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"connections":   m.hub.ConnectionCount(),
			"rooms":         m.hub.RoomCount(),
			"emitter_ready": m.emitter.Ready(),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *BroadcastModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceEmitToGroup,
		json.Unmarshal,
		json.Marshal,
		m.handleEmitToGroup,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceEmitToGroup, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceEmitToAgentSubscribers,
		json.Unmarshal,
		json.Marshal,
		m.handleEmitToAgentSubscribers,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceEmitToAgentSubscribers, err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container,
		ServiceEmitToUser,
		json.Unmarshal,
		json.Marshal,
		m.handleEmitToUser,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceEmitToUser, err)
	}

	m.logger.Info("Registered services",
		"services", []string{ServiceEmitToGroup, ServiceEmitToAgentSubscribers, ServiceEmitToUser})
	return nil
}

func (m *BroadcastModule) handleEmitToGroup(_ context.Context, req EmitToGroupRequest, _ *mono.Msg) (EmitResponse, error) {
	if req.Event == "" {
		return EmitResponse{}, ErrEventRequired
	}
	return EmitResponse{Accepted: m.emitter.EmitToGroup(req.GroupID, req.Event, req.Payload)}, nil
}

func (m *BroadcastModule) handleEmitToAgentSubscribers(_ context.Context, req EmitToAgentSubscribersRequest, _ *mono.Msg) (EmitResponse, error) {
	if req.Event == "" {
		return EmitResponse{}, ErrEventRequired
	}
	return EmitResponse{Accepted: m.emitter.EmitToAgentSubscribers(req.AgentID, req.Event, req.Payload)}, nil
}

func (m *BroadcastModule) handleEmitToUser(_ context.Context, req EmitToUserRequest, _ *mono.Msg) (EmitResponse, error) {
	if req.Event == "" {
		return EmitResponse{}, ErrEventRequired
	}
	return EmitResponse{Accepted: m.emitter.EmitToUser(req.UserID, req.Event, req.Payload)}, nil
}

// GetHub returns the room registry for the gateway to use.
func (m *BroadcastModule) GetHub() *Hub {
	return m.hub
}

// GetEmitter returns the emitter shared with in-process callers.
func (m *BroadcastModule) GetEmitter() *Emitter {
	return m.emitter
}
