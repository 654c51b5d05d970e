package identity

// Service names for request-reply services.
const (
	ServiceResolveCredential    = "resolve-credential"
	ServiceCheckAgentAccess     = "check-agent-access"
	ServiceCheckGroupMembership = "check-group-membership"
)

// ResolveCredentialRequest is the request for resolving a bearer credential.
type ResolveCredentialRequest struct {
	Credential string `json:"credential"`
}

// ResolveCredentialResponse is the response for resolving a bearer credential.
// Valid is false for a rejected credential; lookup failures are returned as
// service errors instead.
type ResolveCredentialResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"user_id,omitempty"`
	Plan   string `json:"plan,omitempty"`
}

// CheckAgentAccessRequest asks whether a user may use an agent.
type CheckAgentAccessRequest struct {
	AgentID string `json:"agent_id"`
	UserID  string `json:"user_id"`
}

// CheckGroupMembershipRequest asks whether a user is an active group member.
type CheckGroupMembershipRequest struct {
	GroupID string `json:"group_id"`
	UserID  string `json:"user_id"`
}

// CheckAccessResponse is the answer to an authorization check.
type CheckAccessResponse struct {
	Allowed bool `json:"allowed"`
}
