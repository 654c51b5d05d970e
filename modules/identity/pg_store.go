package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/example/realtime-presence/domain/access"
)

// The product database is managed by Prisma, which keeps model names as
// table names and camelCase field names as column names.
const (
	queryUserByAPIKey = `SELECT "id", "apiKey", "plan" FROM "User" WHERE "apiKey" = $1 LIMIT 1`
	queryUserByID     = `SELECT "id", "apiKey", "plan" FROM "User" WHERE "id" = $1 LIMIT 1`
	queryOwnedAgent   = `SELECT "id", "userId", "name" FROM "Agent" WHERE "id" = $1 AND "userId" = $2 LIMIT 1`
	queryActiveMember = `SELECT EXISTS (
		SELECT 1 FROM "GroupMember"
		WHERE "groupId" = $1 AND "userId" = $2 AND "memberType" = $3 AND "isActive" = true
	)`
)

// PgStore implements Store against the product's Postgres database.
type PgStore struct {
	pool *pgxpool.Pool
}

// Compile-time interface check.
var _ Store = (*PgStore)(nil)

// OpenPostgres creates a connection pool for dbURL and verifies it.
func OpenPostgres(ctx context.Context, dbURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Prisma's local Postgres does not cope with pgx's statement cache.
	config.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// NewPgStore creates a PgStore over pool.
func NewPgStore(pool *pgxpool.Pool) *PgStore {
	return &PgStore{pool: pool}
}

func (s *PgStore) scanUser(row pgx.Row) (*access.User, error) {
	var (
		user access.User
		plan *string
	)
	if err := row.Scan(&user.ID, &user.APIKey, &plan); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	user.Plan = access.PlanFree
	if plan != nil && *plan != "" {
		user.Plan = *plan
	}
	return &user, nil
}

// FindUserByAPIKey finds a user by API key.
func (s *PgStore) FindUserByAPIKey(ctx context.Context, apiKey string) (*access.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, queryUserByAPIKey, apiKey))
}

// FindUserByID finds a user by ID.
func (s *PgStore) FindUserByID(ctx context.Context, id string) (*access.User, error) {
	return s.scanUser(s.pool.QueryRow(ctx, queryUserByID, id))
}

// FindOwnedAgent finds an agent by ID and owner.
func (s *PgStore) FindOwnedAgent(ctx context.Context, agentID, userID string) (*access.Agent, error) {
	var (
		agent access.Agent
		name  *string
	)
	err := s.pool.QueryRow(ctx, queryOwnedAgent, agentID, userID).Scan(&agent.ID, &agent.UserID, &name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAgentNotFound
		}
		return nil, err
	}
	if name != nil {
		agent.Name = *name
	}
	return &agent, nil
}

// IsActiveGroupMember checks for an active user membership row.
func (s *PgStore) IsActiveGroupMember(ctx context.Context, groupID, userID string) (bool, error) {
	var ok bool
	if err := s.pool.QueryRow(ctx, queryActiveMember, groupID, userID, access.MemberTypeUser).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// Ping checks the database connection.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close closes the connection pool.
func (s *PgStore) Close() error {
	s.pool.Close()
	return nil
}
