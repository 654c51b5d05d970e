package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/events"
)

// ServiceUserActivity is the request-reply service answering activity lookups.
const ServiceUserActivity = "user-activity"

// ErrUserIDRequired is returned when a lookup names no user.
var ErrUserIDRequired = errors.New("user_id is required")

// UserActivityRequest asks for one user's activity.
type UserActivityRequest struct {
	UserID string `json:"user_id"`
}

// UserActivityResponse is the answer to a UserActivityRequest.
type UserActivityResponse struct {
	Activity UserActivity `json:"activity"`
	Known    bool         `json:"known"`
}

// ActivityModule follows connection events and tracks who is online.
type ActivityModule struct {
	tracker *Tracker
	logger  types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.ServiceProviderModule = (*ActivityModule)(nil)
var _ mono.HealthCheckableModule = (*ActivityModule)(nil)

// NewModule creates a new ActivityModule.
func NewModule(logger types.Logger) *ActivityModule {
	return &ActivityModule{
		tracker: NewTracker(),
		logger:  logger,
	}
}

// Name returns the module name.
func (m *ActivityModule) Name() string {
	return "activity"
}

// Start starts the module.
func (m *ActivityModule) Start(_ context.Context) error {
	m.logger.Info("Module started")
	return nil
}

// Stop stops the module.
func (m *ActivityModule) Stop(_ context.Context) error {
	m.logger.Info("Module stopped", "online_users", m.tracker.OnlineCount())
	return nil
}

// Health returns the health status.
func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"online_users": m.tracker.OnlineCount(),
		},
	}
}

// RegisterEventConsumers registers event handlers.
func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ConnectionOpenedV1, m.handleConnectionOpened, m,
	); err != nil {
		return fmt.Errorf("failed to register ConnectionOpened consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(
		registry, events.ConnectionClosedV1, m.handleConnectionClosed, m,
	); err != nil {
		return fmt.Errorf("failed to register ConnectionClosed consumer: %w", err)
	}
	return nil
}

// RegisterServices registers request-reply services in the service container.
func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceUserActivity, json.Unmarshal, json.Marshal, m.handleUserActivity,
	); err != nil {
		return fmt.Errorf("failed to register %s service: %w", ServiceUserActivity, err)
	}
	return nil
}

func (m *ActivityModule) handleConnectionOpened(_ context.Context, event events.ConnectionOpenedEvent, _ *mono.Msg) error {
	m.tracker.Opened(event.ConnectionID, event.UserID, event.Timestamp)
	return nil
}

func (m *ActivityModule) handleConnectionClosed(_ context.Context, event events.ConnectionClosedEvent, _ *mono.Msg) error {
	m.tracker.Closed(event.ConnectionID, event.UserID, event.Timestamp)
	m.logger.Debug("Connection closed",
		"user_id", event.UserID, "conn_id", event.ConnectionID, "duration", event.Duration.String())
	return nil
}

func (m *ActivityModule) handleUserActivity(_ context.Context, req UserActivityRequest, _ *mono.Msg) (UserActivityResponse, error) {
	if req.UserID == "" {
		return UserActivityResponse{}, ErrUserIDRequired
	}
	a, known := m.tracker.Get(req.UserID)
	return UserActivityResponse{Activity: a, Known: known}, nil
}
