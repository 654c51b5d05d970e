// Package gateway accepts authenticated websocket connections and routes
// client commands to the room hub.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	nanoid "github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"

	"github.com/example/realtime-presence/config"
	"github.com/example/realtime-presence/events"
	"github.com/example/realtime-presence/modules/broadcast"
	"github.com/example/realtime-presence/modules/identity"
	"github.com/example/realtime-presence/modules/presence"
	"github.com/example/realtime-presence/modules/typing"
)

// callTimeout bounds every identity lookup made on behalf of a client.
const callTimeout = 5 * time.Second

// Options configures the gateway.
type Options struct {
	Addr          string
	Origins       []string
	Production    bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	Pump          PumpConfig
}

// OptionsFromConfig derives gateway options from the process config.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Addr:          cfg.ListenAddr(),
		Origins:       cfg.Origins(),
		Production:    cfg.IsProduction(),
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
		Pump:          DefaultPumpConfig(),
	}
}

// GatewayModule serves the websocket endpoint.
type GatewayModule struct {
	opts     Options
	hub      *broadcast.Hub
	emitter  *broadcast.Emitter
	engine   *typing.Engine
	access   identity.AccessPort
	eventBus mono.EventBus

	app      *fiber.App
	redis    *redis.Client
	limiter  *HandshakeLimiter
	handlers *Handlers
	newID    func() string
	ctx      context.Context
	cancel   context.CancelFunc
	logger   types.Logger
}

// Compile-time interface checks.
var _ mono.Module = (*GatewayModule)(nil)
var _ mono.DependentModule = (*GatewayModule)(nil)
var _ mono.EventEmitterModule = (*GatewayModule)(nil)
var _ mono.EventBusAwareModule = (*GatewayModule)(nil)
var _ mono.HealthCheckableModule = (*GatewayModule)(nil)

// NewModule creates a new GatewayModule. The emitter is attached to the hub
// once the server is listening.
func NewModule(
	opts Options,
	hub *broadcast.Hub,
	emitter *broadcast.Emitter,
	engine *typing.Engine,
	logger types.Logger,
) *GatewayModule {
	return &GatewayModule{
		opts:    opts,
		hub:     hub,
		emitter: emitter,
		engine:  engine,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *GatewayModule) Name() string {
	return "gateway"
}

// Dependencies returns the list of module dependencies.
func (m *GatewayModule) Dependencies() []string {
	return []string{"identity"}
}

// SetDependencyServiceContainer receives service containers from dependencies.
func (m *GatewayModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "identity":
		m.access = identity.NewAccessAdapter(container)
	}
}

// SetEventBus is called by the framework to inject the event bus.
func (m *GatewayModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

// EmitEvents declares the events this module publishes.
func (m *GatewayModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.ConnectionOpenedV1.ToBase(),
		events.ConnectionClosedV1.ToBase(),
	}
}

// Start connects to Redis when configured, then starts the HTTP server.
func (m *GatewayModule) Start(ctx context.Context) error {
	if m.access == nil {
		return fmt.Errorf("identity dependency not set")
	}

	newID, err := nanoid.Standard(21)
	if err != nil {
		return fmt.Errorf("failed to create id generator: %w", err)
	}
	m.newID = newID

	m.limiter = NewHandshakeLimiter(nil, "ratelimit:")
	if m.opts.RedisAddr != "" {
		m.redis = redis.NewClient(&redis.Options{
			Addr:         m.opts.RedisAddr,
			Password:     m.opts.RedisPassword,
			DB:           m.opts.RedisDB,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
			PoolSize:     10,
		})
		if err := m.redis.Ping(ctx).Err(); err != nil {
			m.logger.Warn("Redis unreachable, handshake limits fail open", "redis", m.opts.RedisAddr, "error", err)
		}
		m.limiter = NewHandshakeLimiter(m.redis, "ratelimit:")
	}

	m.ctx, m.cancel = context.WithCancel(context.Background())
	announcer := presence.NewAnnouncer(m.hub, m.logger)
	m.handlers = NewHandlers(m.hub, m.access, m.engine, announcer, m.eventBus, callTimeout, m.logger)

	m.app = fiber.New(fiber.Config{
		AppName:               "Realtime Presence Gateway",
		DisableStartupMessage: true,
		ErrorHandler:          m.errorHandler,
	})
	m.app.Use(recover.New())
	m.registerRoutes()

	errCh := make(chan error, 1)
	go func() {
		if err := m.app.Listen(m.opts.Addr); err != nil {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("gateway server failed to start: %w", err)
	case <-time.After(100 * time.Millisecond):
	}

	m.emitter.Attach(m.hub)
	m.logger.Info("Gateway started",
		"addr", m.opts.Addr,
		"origins", len(m.opts.Origins),
		"rate_limit", m.limiter.Enabled())
	return nil
}

// Stop detaches the emitter, closes every connection and shuts the server down.
func (m *GatewayModule) Stop(ctx context.Context) error {
	m.emitter.Detach()
	m.hub.Shutdown()
	if m.cancel != nil {
		m.cancel()
	}

	if m.app != nil {
		if err := m.app.ShutdownWithContext(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	if m.redis != nil {
		if err := m.redis.Close(); err != nil {
			m.logger.Error("Failed to close Redis connection", "error", err)
		}
	}
	m.logger.Info("Gateway stopped")
	return nil
}

// Health returns the health status of the module.
func (m *GatewayModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"addr":        m.opts.Addr,
			"connections": m.hub.ConnectionCount(),
			"rate_limit":  m.limiter.Enabled(),
		},
	}
}

func (m *GatewayModule) registerRoutes() {
	m.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":      "healthy",
			"module":      "gateway",
			"connections": m.hub.ConnectionCount(),
		})
	})

	resolver := newCredentialResolver(m.access, callTimeout)
	m.app.Use("/ws", OriginMiddleware(NewOriginPolicy(m.opts.Origins, m.opts.Production)))
	m.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	m.app.Use("/ws", AuthMiddleware(resolver, m.limiter, m.logger))
	m.app.Get("/ws", websocket.New(m.serve))
}

func (m *GatewayModule) serve(ws *websocket.Conn) {
	userID, _ := ws.Locals(LocalUserID).(string)
	plan, _ := ws.Locals(LocalPlan).(string)

	s := &Session{
		Conn:       broadcast.NewConnection(m.newID(), userID),
		Plan:       plan,
		RemoteAddr: ws.RemoteAddr().String(),
		OpenedAt:   time.Now(),
	}
	m.handlers.Serve(m.ctx, ws, s, m.opts.Pump)
}

// errorHandler handles errors globally.
func (m *GatewayModule) errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	if code >= fiber.StatusInternalServerError {
		m.logger.Error("HTTP error", "code", code, "message", message, "error", err)
	} else {
		m.logger.Debug("Handshake rejected", "code", code, "message", message, "path", c.Path())
	}

	return c.Status(code).JSON(fiber.Map{
		"error": message,
	})
}
