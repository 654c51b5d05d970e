package main

import (
	"context"
	"log"
	"os"
	"strings"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"

	"github.com/example/realtime-presence/config"
	"github.com/example/realtime-presence/modules/activity"
	"github.com/example/realtime-presence/modules/broadcast"
	"github.com/example/realtime-presence/modules/gateway"
	"github.com/example/realtime-presence/modules/identity"
	"github.com/example/realtime-presence/modules/typing"
)

func main() {
	log.Println("=== Realtime Presence Gateway ===")

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	level := mono.LogLevelInfo
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = mono.LogLevelDebug
	case "warn":
		level = mono.LogLevelWarn
	case "error":
		level = mono.LogLevelError
	}
	format := mono.LogFormatText
	if strings.EqualFold(cfg.LogFormat, "json") {
		format = mono.LogFormatJSON
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(level),
		mono.WithLogFormat(format),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	logger := app.Logger()

	// - broadcast: room hub and the emitter other modules push through
	// - typing: typing indicators with expiry, delivered through the hub
	// - identity: credentials, agent ownership and group membership
	// - activity: per-user online tracking from connection events
	// - gateway: websocket endpoint, depends on identity
	broadcastModule := broadcast.NewModule(logger.WithModule("broadcast"))
	typingModule := typing.NewModule(broadcastModule.GetHub(), cfg.TypingTimeout, logger.WithModule("typing"))
	identityModule := identity.NewModule(identity.OptionsFromConfig(cfg), logger.WithModule("identity"))
	activityModule := activity.NewModule(logger.WithModule("activity"))
	gatewayModule := gateway.NewModule(
		gateway.OptionsFromConfig(cfg),
		broadcastModule.GetHub(),
		broadcastModule.GetEmitter(),
		typingModule.GetEngine(),
		logger.WithModule("gateway"),
	)

	app.Register(broadcastModule)
	app.Register(typingModule)
	app.Register(identityModule)
	app.Register(activityModule)
	app.Register(gatewayModule)

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	logger.Info("Gateway listening",
		"addr", cfg.ListenAddr(),
		"env", cfg.AppEnv,
		"database", cfg.DatabaseDriver,
		"endpoint", "/ws",
	)
	if cfg.SeedDemoData {
		logger.Info("Demo credentials seeded", "api_keys", []string{"demo-key-alice", "demo-key-bob"})
	}
	logger.Info("Press Ctrl+C to shutdown gracefully")

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	os.Exit(exitCode)
}
