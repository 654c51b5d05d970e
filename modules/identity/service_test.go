package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/go-monolith/mono/pkg/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/realtime-presence/domain/access"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("failed to get database connection: %v", err)
	}
	// Every pooled connection to :memory: would be a separate database.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	return db
}

type fixture struct {
	service *Service
	store   *GormStore
	jwt     *JWTManager
	demo    DemoData
}

func setupService(t *testing.T) fixture {
	t.Helper()
	db := setupTestDB(t)
	store, err := NewGormStore(db)
	if err != nil {
		t.Fatalf("NewGormStore() unexpected error: %v", err)
	}
	demo, err := SeedDemoData(context.Background(), db)
	if err != nil {
		t.Fatalf("SeedDemoData() unexpected error: %v", err)
	}
	jwtManager := newTestJWTManager()
	return fixture{
		service: NewService(store, jwtManager, &mockLogger{}),
		store:   store,
		jwt:     jwtManager,
		demo:    demo,
	}
}

func TestSeedDemoData_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	if _, err := NewGormStore(db); err != nil {
		t.Fatalf("NewGormStore() unexpected error: %v", err)
	}

	first, err := SeedDemoData(context.Background(), db)
	if err != nil {
		t.Fatalf("first SeedDemoData() unexpected error: %v", err)
	}
	second, err := SeedDemoData(context.Background(), db)
	if err != nil {
		t.Fatalf("second SeedDemoData() unexpected error: %v", err)
	}
	if first.AgentID != second.AgentID || first.GroupID != second.GroupID {
		t.Error("SeedDemoData() should produce stable ids")
	}

	var count int64
	db.Model(&access.User{}).Count(&count)
	if count != 2 {
		t.Errorf("users = %d, want 2", count)
	}
}

func TestService_ResolveCredential(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.demo.Users[0]

	token, err := f.jwt.GenerateAccessToken(alice.ID, alice.Plan)
	if err != nil {
		t.Fatalf("GenerateAccessToken() unexpected error: %v", err)
	}
	strangerToken, err := f.jwt.GenerateAccessToken("no-such-user", "free")
	if err != nil {
		t.Fatalf("GenerateAccessToken() unexpected error: %v", err)
	}

	tests := []struct {
		name       string
		credential string
		wantUser   string
		wantPlan   string
		wantErr    error
	}{
		{name: "api key", credential: *alice.APIKey, wantUser: alice.ID, wantPlan: access.PlanPlus},
		{name: "access token", credential: token, wantUser: alice.ID, wantPlan: access.PlanPlus},
		{name: "empty", credential: "", wantErr: ErrInvalidCredential},
		{name: "unknown api key", credential: "nope", wantErr: ErrInvalidCredential},
		{name: "tampered token", credential: token + "x", wantErr: ErrInvalidCredential},
		{name: "token for unknown user", credential: strangerToken, wantErr: ErrInvalidCredential},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := f.service.ResolveCredential(ctx, tt.credential)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("ResolveCredential() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveCredential() unexpected error: %v", err)
			}
			if id.UserID != tt.wantUser {
				t.Errorf("UserID = %q, want %q", id.UserID, tt.wantUser)
			}
			if id.Plan != tt.wantPlan {
				t.Errorf("Plan = %q, want %q", id.Plan, tt.wantPlan)
			}
		})
	}
}

func TestService_ResolveCredential_LookupFailure(t *testing.T) {
	f := setupService(t)
	if err := f.store.Close(); err != nil {
		t.Fatalf("Close() unexpected error: %v", err)
	}

	_, err := f.service.ResolveCredential(context.Background(), "demo-key-alice")
	if err == nil {
		t.Fatal("expected error from closed store")
	}
	if errors.Is(err, ErrInvalidCredential) {
		t.Error("a lookup failure must not be reported as an invalid credential")
	}
}

func TestService_CheckAgentAccess(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice, bob := f.demo.Users[0], f.demo.Users[1]

	if err := f.service.CheckAgentAccess(ctx, f.demo.AgentID, alice.ID); err != nil {
		t.Errorf("owner CheckAgentAccess() unexpected error: %v", err)
	}
	if err := f.service.CheckAgentAccess(ctx, f.demo.AgentID, bob.ID); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("non-owner CheckAgentAccess() error = %v, want %v", err, ErrAgentNotFound)
	}
	if err := f.service.CheckAgentAccess(ctx, "missing", alice.ID); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("missing agent CheckAgentAccess() error = %v, want %v", err, ErrAgentNotFound)
	}
	if err := f.service.CheckAgentAccess(ctx, "", alice.ID); !errors.Is(err, ErrAgentNotFound) {
		t.Errorf("empty agent CheckAgentAccess() error = %v, want %v", err, ErrAgentNotFound)
	}
}

func TestService_CheckGroupMembership(t *testing.T) {
	f := setupService(t)
	ctx := context.Background()
	alice := f.demo.Users[0]

	if err := f.service.CheckGroupMembership(ctx, f.demo.GroupID, alice.ID); err != nil {
		t.Errorf("member CheckGroupMembership() unexpected error: %v", err)
	}
	if err := f.service.CheckGroupMembership(ctx, f.demo.GroupID, "stranger"); !errors.Is(err, ErrNotGroupMember) {
		t.Errorf("stranger CheckGroupMembership() error = %v, want %v", err, ErrNotGroupMember)
	}

	// Deactivated memberships no longer count.
	result := f.store.DB().Model(&access.GroupMember{}).
		Where("group_id = ? AND user_id = ?", f.demo.GroupID, alice.ID).
		Update("is_active", false)
	if result.Error != nil {
		t.Fatalf("failed to deactivate member: %v", result.Error)
	}
	if err := f.service.CheckGroupMembership(ctx, f.demo.GroupID, alice.ID); !errors.Is(err, ErrNotGroupMember) {
		t.Errorf("inactive CheckGroupMembership() error = %v, want %v", err, ErrNotGroupMember)
	}
}

func TestNormalizePlan(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"free", access.PlanFree},
		{"plus", access.PlanPlus},
		{"ultra", access.PlanUltra},
		{"", access.PlanFree},
		{"enterprise", access.PlanFree},
	}
	for _, tt := range tests {
		if got := normalizePlan(tt.in); got != tt.want {
			t.Errorf("normalizePlan(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
