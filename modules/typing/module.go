package typing

import (
	"context"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
)

// TypingModule owns the typing indicator engine for the process.
type TypingModule struct {
	engine *Engine
	logger types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*TypingModule)(nil)
var _ mono.HealthCheckableModule = (*TypingModule)(nil)

// NewModule creates a new TypingModule broadcasting through out.
func NewModule(out Broadcaster, timeout time.Duration, logger types.Logger) *TypingModule {
	return &TypingModule{
		engine: NewEngine(out, logger, WithTimeout(timeout)),
		logger: logger,
	}
}

// Name returns the module name.
func (m *TypingModule) Name() string {
	return "typing"
}

// Start starts the module.
func (m *TypingModule) Start(_ context.Context) error {
	m.logger.Info("Module started", "timeout", m.engine.timeout.String())
	return nil
}

// Stop cancels all pending typing timers.
func (m *TypingModule) Stop(_ context.Context) error {
	pending := m.engine.Pending()
	m.engine.Stop()
	m.logger.Info("Module stopped", "cancelled_timers", pending)
	return nil
}

// Health returns the health status.
func (m *TypingModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"pending_timers": m.engine.Pending(),
		},
	}
}

// GetEngine returns the engine for the gateway to feed signals into.
func (m *TypingModule) GetEngine() *Engine {
	return m.engine
}
