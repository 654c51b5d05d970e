package identity

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"

	"github.com/example/realtime-presence/domain/access"
)

// AccessPort defines the interface for authentication and authorization checks.
type AccessPort interface {
	// ResolveCredential returns ErrInvalidCredential for a rejected credential.
	ResolveCredential(ctx context.Context, credential string) (access.Identity, error)
	// CheckAgentAccess returns ErrAgentNotFound when the user may not use the agent.
	CheckAgentAccess(ctx context.Context, agentID, userID string) error
	// CheckGroupMembership returns ErrNotGroupMember when the user is not an active member.
	CheckGroupMembership(ctx context.Context, groupID, userID string) error
}

// AccessAdapter implements AccessPort using the service container.
type AccessAdapter struct {
	container mono.ServiceContainer
}

// NewAccessAdapter creates a new AccessAdapter.
func NewAccessAdapter(container mono.ServiceContainer) AccessPort {
	if container == nil {
		panic("identity: ServiceContainer is nil")
	}
	return &AccessAdapter{container: container}
}

// ResolveCredential resolves a bearer credential to a user.
func (a *AccessAdapter) ResolveCredential(ctx context.Context, credential string) (access.Identity, error) {
	req := ResolveCredentialRequest{Credential: credential}
	var resp ResolveCredentialResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceResolveCredential,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return access.Identity{}, fmt.Errorf("failed to resolve credential: %w", err)
	}
	if !resp.Valid {
		return access.Identity{}, ErrInvalidCredential
	}
	return access.Identity{UserID: resp.UserID, Plan: resp.Plan}, nil
}

// CheckAgentAccess checks that the user owns the agent.
func (a *AccessAdapter) CheckAgentAccess(ctx context.Context, agentID, userID string) error {
	req := CheckAgentAccessRequest{AgentID: agentID, UserID: userID}
	var resp CheckAccessResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceCheckAgentAccess,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("failed to check agent access: %w", err)
	}
	if !resp.Allowed {
		return ErrAgentNotFound
	}
	return nil
}

// CheckGroupMembership checks that the user is an active group member.
func (a *AccessAdapter) CheckGroupMembership(ctx context.Context, groupID, userID string) error {
	req := CheckGroupMembershipRequest{GroupID: groupID, UserID: userID}
	var resp CheckAccessResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		ServiceCheckGroupMembership,
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return fmt.Errorf("failed to check group membership: %w", err)
	}
	if !resp.Allowed {
		return ErrNotGroupMember
	}
	return nil
}
