package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/domain/access"
)

var (
	// ErrInvalidCredential is returned when a bearer credential is missing,
	// malformed, expired or unknown.
	ErrInvalidCredential = errors.New("invalid credential")
	// ErrNotGroupMember is returned when the user is not an active member of the group.
	ErrNotGroupMember = errors.New("not an active group member")
)

// Service resolves credentials and answers authorization questions.
type Service struct {
	store  Store
	jwt    *JWTManager
	logger types.Logger
}

// NewService creates a new Service.
func NewService(store Store, jwtManager *JWTManager, logger types.Logger) *Service {
	return &Service{
		store:  store,
		jwt:    jwtManager,
		logger: logger,
	}
}

// ResolveCredential maps a bearer credential to the user it belongs to.
// Signed access tokens are verified locally; anything else is looked up as
// an API key. Errors other than ErrInvalidCredential are lookup failures.
func (s *Service) ResolveCredential(ctx context.Context, credential string) (access.Identity, error) {
	if credential == "" {
		return access.Identity{}, ErrInvalidCredential
	}

	var (
		user *access.User
		err  error
	)
	if s.jwt.Enabled() && looksLikeJWT(credential) {
		claims, verr := s.jwt.ValidateAccessToken(credential)
		if verr != nil {
			return access.Identity{}, fmt.Errorf("%w: %w", ErrInvalidCredential, verr)
		}
		user, err = s.store.FindUserByID(ctx, claims.UserID)
	} else {
		user, err = s.store.FindUserByAPIKey(ctx, credential)
	}

	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return access.Identity{}, ErrInvalidCredential
		}
		return access.Identity{}, fmt.Errorf("failed to resolve credential: %w", err)
	}

	return access.Identity{UserID: user.ID, Plan: normalizePlan(user.Plan)}, nil
}

// CheckAgentAccess returns nil if userID owns agentID.
func (s *Service) CheckAgentAccess(ctx context.Context, agentID, userID string) error {
	if agentID == "" || userID == "" {
		return ErrAgentNotFound
	}
	if _, err := s.store.FindOwnedAgent(ctx, agentID, userID); err != nil {
		if errors.Is(err, ErrAgentNotFound) {
			return ErrAgentNotFound
		}
		return fmt.Errorf("failed to check agent access: %w", err)
	}
	return nil
}

// CheckGroupMembership returns nil if userID is an active member of groupID.
func (s *Service) CheckGroupMembership(ctx context.Context, groupID, userID string) error {
	if groupID == "" || userID == "" {
		return ErrNotGroupMember
	}
	ok, err := s.store.IsActiveGroupMember(ctx, groupID, userID)
	if err != nil {
		return fmt.Errorf("failed to check group membership: %w", err)
	}
	if !ok {
		return ErrNotGroupMember
	}
	return nil
}

func normalizePlan(plan string) string {
	switch plan {
	case access.PlanPlus, access.PlanUltra:
		return plan
	default:
		return access.PlanFree
	}
}
