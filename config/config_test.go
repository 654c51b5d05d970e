package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if cfg.Port != "3001" {
		t.Errorf("Port = %q, want %q", cfg.Port, "3001")
	}
	if cfg.TypingTimeout != 5*time.Second {
		t.Errorf("TypingTimeout = %v, want %v", cfg.TypingTimeout, 5*time.Second)
	}
	if cfg.DatabaseDriver != DriverSQLite {
		t.Errorf("DatabaseDriver = %q, want %q", cfg.DatabaseDriver, DriverSQLite)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true for default environment")
	}
	if len(cfg.AllowedOrigins) != 4 {
		t.Errorf("AllowedOrigins has %d entries, want 4", len(cfg.AllowedOrigins))
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("TYPING_TIMEOUT", "2s")
	t.Setenv("ALLOWED_ORIGINS", "https://app.example.com, https://admin.example.com")
	t.Setenv("REDIS_DB", "3")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if cfg.TypingTimeout != 2*time.Second {
		t.Errorf("TypingTimeout = %v, want %v", cfg.TypingTimeout, 2*time.Second)
	}
	if cfg.RedisDB != 3 {
		t.Errorf("RedisDB = %d, want 3", cfg.RedisDB)
	}
}

func TestLoadParseError(t *testing.T) {
	t.Setenv("TYPING_TIMEOUT", "soon")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "parse env:") {
		t.Fatalf("expected parse env prefix, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "sqlite",
			cfg:  Config{AppEnv: EnvDevelopment, DatabaseDriver: DriverSQLite},
		},
		{
			name: "postgres with url",
			cfg:  Config{AppEnv: EnvProduction, DatabaseDriver: DriverPostgres, DatabaseURL: "postgres://localhost/app"},
		},
		{
			name:    "postgres without url",
			cfg:     Config{AppEnv: EnvProduction, DatabaseDriver: DriverPostgres},
			wantErr: ErrDatabaseURLRequired,
		},
		{
			name:    "unknown driver",
			cfg:     Config{AppEnv: EnvDevelopment, DatabaseDriver: "mysql"},
			wantErr: ErrUnknownDriver,
		},
		{
			name:    "unknown environment",
			cfg:     Config{AppEnv: "staging", DatabaseDriver: DriverSQLite},
			wantErr: ErrUnknownEnvironment,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	cfg := Config{
		AllowedOrigins: []string{"http://localhost:3000", " http://localhost:3000", "", "https://app.example.com"},
		AppURL:         "https://www.example.com",
	}

	got := cfg.Origins()
	want := []string{"http://localhost:3000", "https://app.example.com", "https://www.example.com"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Origins() = %v, want %v", got, want)
	}
}
