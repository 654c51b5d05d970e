package access

import "time"

// Plans a user can be on. They select the handshake rate limit.
const (
	PlanFree  = "free"
	PlanPlus  = "plus"
	PlanUltra = "ultra"
)

// MemberTypeUser marks a human group member (as opposed to an agent).
const MemberTypeUser = "user"

// User is the subset of the product's user record the gateway needs.
type User struct {
	ID        string  `gorm:"primaryKey;type:text"`
	APIKey    *string `gorm:"uniqueIndex;type:text"`
	Plan      string  `gorm:"not null;type:text;default:free"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for the User entity.
func (User) TableName() string {
	return "users"
}

// Agent is an AI agent owned by a user.
type Agent struct {
	ID        string `gorm:"primaryKey;type:text"`
	UserID    string `gorm:"index;not null;type:text"`
	Name      string `gorm:"type:text"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for the Agent entity.
func (Agent) TableName() string {
	return "agents"
}

// GroupMember links a user or agent to a group chat.
type GroupMember struct {
	ID         string `gorm:"primaryKey;type:text"`
	GroupID    string `gorm:"index:idx_group_member;not null;type:text"`
	UserID     string `gorm:"index:idx_group_member;type:text"`
	MemberType string `gorm:"not null;type:text;default:user"`
	IsActive   bool   `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the table name for the GroupMember entity.
func (GroupMember) TableName() string {
	return "group_members"
}

// Identity is what a resolved bearer credential says about its holder.
type Identity struct {
	UserID string `json:"user_id"`
	Plan   string `json:"plan"`
}
