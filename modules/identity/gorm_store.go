package identity

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/example/realtime-presence/domain/access"
)

// GormStore implements Store using GORM.
type GormStore struct {
	db *gorm.DB
}

// Compile-time interface check.
var _ Store = (*GormStore)(nil)

// OpenSQLite opens a SQLite database with GORM logging silenced.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// NewGormStore creates a GormStore and migrates its schema.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&access.User{}, &access.Agent{}, &access.GroupMember{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &GormStore{db: db}, nil
}

// FindUserByAPIKey finds a user by API key.
func (s *GormStore) FindUserByAPIKey(ctx context.Context, apiKey string) (*access.User, error) {
	var user access.User
	result := s.db.WithContext(ctx).First(&user, "api_key = ?", apiKey)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// FindUserByID finds a user by ID.
func (s *GormStore) FindUserByID(ctx context.Context, id string) (*access.User, error) {
	var user access.User
	result := s.db.WithContext(ctx).First(&user, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, result.Error
	}
	return &user, nil
}

// FindOwnedAgent finds an agent by ID and owner.
func (s *GormStore) FindOwnedAgent(ctx context.Context, agentID, userID string) (*access.Agent, error) {
	var agent access.Agent
	result := s.db.WithContext(ctx).First(&agent, "id = ? AND user_id = ?", agentID, userID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrAgentNotFound
		}
		return nil, result.Error
	}
	return &agent, nil
}

// IsActiveGroupMember checks for an active user membership row.
func (s *GormStore) IsActiveGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&access.GroupMember{}).
		Where("group_id = ? AND user_id = ? AND member_type = ? AND is_active = ?",
			groupID, userID, access.MemberTypeUser, true).
		Count(&count)
	if result.Error != nil {
		return false, result.Error
	}
	return count > 0, nil
}

// Ping checks the database connection.
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the database connection.
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// DB returns the underlying GORM handle.
func (s *GormStore) DB() *gorm.DB {
	return s.db
}
