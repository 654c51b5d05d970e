// Package config loads the gateway configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Environments accepted in APP_ENV.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers accepted in DATABASE_DRIVER.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var (
	// ErrUnknownEnvironment is returned for an APP_ENV outside the known set.
	ErrUnknownEnvironment = errors.New("unknown environment")
	// ErrUnknownDriver is returned for an unsupported DATABASE_DRIVER.
	ErrUnknownDriver = errors.New("unknown database driver")
	// ErrDatabaseURLRequired is returned when postgres is selected without a URL.
	ErrDatabaseURLRequired = errors.New("DATABASE_URL is required for the postgres driver")
)

// Config holds every setting the process reads at startup.
type Config struct {
	Port           string        `env:"PORT"            envDefault:"3001"`
	AppEnv         string        `env:"APP_ENV"         envDefault:"development"`
	AllowedOrigins []string      `env:"ALLOWED_ORIGINS" envDefault:"http://localhost:3000,http://localhost:3001,http://127.0.0.1:3000,http://127.0.0.1:3001" envSeparator:","`
	AppURL         string        `env:"APP_URL"`
	TypingTimeout  time.Duration `env:"TYPING_TIMEOUT"  envDefault:"5s"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseURL    string `env:"DATABASE_URL"`
	SQLitePath     string `env:"SQLITE_PATH"     envDefault:"realtime.db"`
	SeedDemoData   bool   `env:"SEED_DEMO_DATA"  envDefault:"false"`

	JWTSecretKey string `env:"JWT_SECRET_KEY"`
	JWTIssuer    string `env:"JWT_ISSUER"     envDefault:"realtime-presence"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB"       envDefault:"0"`

	LogLevel        string        `env:"LOG_LEVEL"        envDefault:"info"`
	LogFormat       string        `env:"LOG_FORMAT"       envDefault:"text"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values env tags cannot express.
func (c Config) Validate() error {
	switch c.AppEnv {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnvironment, c.AppEnv)
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrDatabaseURLRequired
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.DatabaseDriver)
	}
	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c Config) IsProduction() bool {
	return c.AppEnv == EnvProduction
}

// Origins returns the exact origin allow-list, including APP_URL when set.
func (c Config) Origins() []string {
	origins := make([]string, 0, len(c.AllowedOrigins)+1)
	for _, o := range c.AllowedOrigins {
		o = strings.TrimSpace(o)
		if o == "" || slices.Contains(origins, o) {
			continue
		}
		origins = append(origins, o)
	}
	if c.AppURL != "" && !slices.Contains(origins, c.AppURL) {
		origins = append(origins, c.AppURL)
	}
	return origins
}

// ListenAddr returns the address the HTTP server binds to.
func (c Config) ListenAddr() string {
	return ":" + c.Port
}
