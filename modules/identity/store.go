package identity

import (
	"context"
	"errors"

	"github.com/example/realtime-presence/domain/access"
)

var (
	// ErrUserNotFound is returned when no user matches a lookup.
	ErrUserNotFound = errors.New("user not found")
	// ErrAgentNotFound is returned when an agent does not exist or is not
	// owned by the caller. The lookup filters by owner, so the two cases
	// look the same.
	ErrAgentNotFound = errors.New("agent not found")
)

// Store is the read side of the product data the gateway authorizes against.
type Store interface {
	// FindUserByAPIKey returns the user holding apiKey.
	FindUserByAPIKey(ctx context.Context, apiKey string) (*access.User, error)
	// FindUserByID returns the user with id.
	FindUserByID(ctx context.Context, id string) (*access.User, error)
	// FindOwnedAgent returns the agent only if userID owns it.
	FindOwnedAgent(ctx context.Context, agentID, userID string) (*access.Agent, error)
	// IsActiveGroupMember reports whether userID is an active human member of groupID.
	IsActiveGroupMember(ctx context.Context, groupID, userID string) (bool, error)
	// Ping checks the connection to the backing database.
	Ping(ctx context.Context) error
	// Close releases the backing database.
	Close() error
}
