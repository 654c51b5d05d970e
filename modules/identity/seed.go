package identity

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/realtime-presence/domain/access"
)

// demoNamespace derives stable ids so seeding twice is a no-op.
var demoNamespace = uuid.MustParse("6f1c3e0a-4f57-4a8e-9a51-2d1b7e3c9b10")

func demoID(name string) string {
	return uuid.NewSHA1(demoNamespace, []byte(name)).String()
}

// DemoData describes the records created by SeedDemoData.
type DemoData struct {
	Users   []access.User
	AgentID string
	GroupID string
}

// SeedDemoData inserts two users, an agent owned by the first and a group
// both belong to. Existing rows are left untouched.
func SeedDemoData(ctx context.Context, db *gorm.DB) (DemoData, error) {
	aliceKey := "demo-key-alice"
	bobKey := "demo-key-bob"

	data := DemoData{
		Users: []access.User{
			{ID: demoID("user:alice"), APIKey: &aliceKey, Plan: access.PlanPlus},
			{ID: demoID("user:bob"), APIKey: &bobKey, Plan: access.PlanFree},
		},
		AgentID: demoID("agent:alice"),
		GroupID: demoID("group:demo"),
	}

	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range data.Users {
			u := data.Users[i]
			if err := tx.Where(access.User{ID: u.ID}).FirstOrCreate(&u).Error; err != nil {
				return fmt.Errorf("seed user %s: %w", u.ID, err)
			}
		}

		agent := access.Agent{ID: data.AgentID, UserID: data.Users[0].ID, Name: "Demo Agent"}
		if err := tx.Where(access.Agent{ID: agent.ID}).FirstOrCreate(&agent).Error; err != nil {
			return fmt.Errorf("seed agent: %w", err)
		}

		for _, u := range data.Users {
			member := access.GroupMember{
				ID:         demoID("member:" + u.ID),
				GroupID:    data.GroupID,
				UserID:     u.ID,
				MemberType: access.MemberTypeUser,
				IsActive:   true,
			}
			if err := tx.Where(access.GroupMember{ID: member.ID}).FirstOrCreate(&member).Error; err != nil {
				return fmt.Errorf("seed group member: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return DemoData{}, err
	}
	return data, nil
}
