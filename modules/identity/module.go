package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/config"
)

// Options configures the identity module.
type Options struct {
	Driver      string
	SQLitePath  string
	DatabaseURL string
	SeedDemo    bool
	JWT         JWTConfig
}

// OptionsFromConfig builds Options from the process configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Driver:      cfg.DatabaseDriver,
		SQLitePath:  cfg.SQLitePath,
		DatabaseURL: cfg.DatabaseURL,
		SeedDemo:    cfg.SeedDemoData,
		JWT: JWTConfig{
			SecretKey: cfg.JWTSecretKey,
			Issuer:    cfg.JWTIssuer,
		},
	}
}

// IdentityModule resolves bearer credentials and authorizes room joins
// against the product database.
type IdentityModule struct {
	opts    Options
	store   Store
	service *Service
	logger  types.Logger
}

// Compile-time interface checks.
var (
	_ mono.Module                = (*IdentityModule)(nil)
	_ mono.ServiceProviderModule = (*IdentityModule)(nil)
	_ mono.HealthCheckableModule = (*IdentityModule)(nil)
)

// NewModule creates a new IdentityModule.
func NewModule(opts Options, logger types.Logger) *IdentityModule {
	return &IdentityModule{
		opts:   opts,
		logger: logger,
	}
}

// NewModuleWithService creates an IdentityModule around an existing service.
// Start does not open a database in that case.
func NewModuleWithService(service *Service, logger types.Logger) *IdentityModule {
	return &IdentityModule{
		service: service,
		logger:  logger,
	}
}

// Name returns the module name.
func (m *IdentityModule) Name() string {
	return "identity"
}

// Start opens the data store and builds the service.
func (m *IdentityModule) Start(ctx context.Context) error {
	if m.service != nil {
		m.logger.Info("Module started with injected service")
		return nil
	}

	store, err := m.openStore(ctx)
	if err != nil {
		return err
	}
	m.store = store

	jwtManager := NewJWTManager(m.opts.JWT)
	m.service = NewService(store, jwtManager, m.logger)

	if !jwtManager.Enabled() {
		m.logger.Warn("JWT_SECRET_KEY not set, only API keys are accepted")
	}
	m.logger.Info("Module started", "driver", m.opts.Driver)
	return nil
}

func (m *IdentityModule) openStore(ctx context.Context) (Store, error) {
	switch m.opts.Driver {
	case config.DriverPostgres:
		pool, err := OpenPostgres(ctx, m.opts.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPgStore(pool), nil

	case config.DriverSQLite, "":
		db, err := OpenSQLite(m.opts.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, err := NewGormStore(db)
		if err != nil {
			return nil, err
		}
		if m.opts.SeedDemo {
			data, err := SeedDemoData(ctx, db)
			if err != nil {
				_ = store.Close()
				return nil, fmt.Errorf("failed to seed demo data: %w", err)
			}
			m.logger.Info("Seeded demo data",
				"users", len(data.Users), "agent_id", data.AgentID, "group_id", data.GroupID)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, m.opts.Driver)
	}
}

// Stop closes the data store.
func (m *IdentityModule) Stop(_ context.Context) error {
	if m.store != nil {
		if err := m.store.Close(); err != nil {
			m.logger.Warn("Failed to close store", "error", err)
		}
	}
	m.logger.Info("Module stopped")
	return nil
}

// Health returns the health status of the module.
func (m *IdentityModule) Health(ctx context.Context) mono.HealthStatus {
	if m.service == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "service not initialized",
		}
	}
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: true,
			Message: "operational",
		}
	}

	if err := m.store.Ping(ctx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver":      m.opts.Driver,
			"jwt_enabled": m.service.jwt.Enabled(),
		},
	}
}

// RegisterServices registers request-reply services in the service container.
func (m *IdentityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceResolveCredential, json.Unmarshal, json.Marshal, m.handleResolveCredential,
	); err != nil {
		return fmt.Errorf("register %s: %w", ServiceResolveCredential, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCheckAgentAccess, json.Unmarshal, json.Marshal, m.handleCheckAgentAccess,
	); err != nil {
		return fmt.Errorf("register %s: %w", ServiceCheckAgentAccess, err)
	}
	if err := helper.RegisterTypedRequestReplyService(
		container, ServiceCheckGroupMembership, json.Unmarshal, json.Marshal, m.handleCheckGroupMembership,
	); err != nil {
		return fmt.Errorf("register %s: %w", ServiceCheckGroupMembership, err)
	}

	m.logger.Info("Registered services",
		"services", []string{ServiceResolveCredential, ServiceCheckAgentAccess, ServiceCheckGroupMembership})
	return nil
}

func (m *IdentityModule) handleResolveCredential(ctx context.Context, req ResolveCredentialRequest, _ *mono.Msg) (ResolveCredentialResponse, error) {
	id, err := m.service.ResolveCredential(ctx, req.Credential)
	if err != nil {
		if errors.Is(err, ErrInvalidCredential) {
			return ResolveCredentialResponse{Valid: false}, nil
		}
		return ResolveCredentialResponse{}, err
	}
	return ResolveCredentialResponse{Valid: true, UserID: id.UserID, Plan: id.Plan}, nil
}

func (m *IdentityModule) handleCheckAgentAccess(ctx context.Context, req CheckAgentAccessRequest, _ *mono.Msg) (CheckAccessResponse, error) {
	err := m.service.CheckAgentAccess(ctx, req.AgentID, req.UserID)
	if err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return CheckAccessResponse{Allowed: false}, nil
		}
		return CheckAccessResponse{}, err
	}
	return CheckAccessResponse{Allowed: true}, nil
}

func (m *IdentityModule) handleCheckGroupMembership(ctx context.Context, req CheckGroupMembershipRequest, _ *mono.Msg) (CheckAccessResponse, error) {
	err := m.service.CheckGroupMembership(ctx, req.GroupID, req.UserID)
	if err != nil {
		if errors.Is(err, ErrNotGroupMember) {
			return CheckAccessResponse{Allowed: false}, nil
		}
		return CheckAccessResponse{}, err
	}
	return CheckAccessResponse{Allowed: true}, nil
}
