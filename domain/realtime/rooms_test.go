package realtime

import (
	"fmt"
	"math/rand"
	"testing"
)

func TestRoomNames(t *testing.T) {
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"user", UserRoom("u1"), "user:u1"},
		{"chat", ChatRoom("a1", "u1"), "chat:a1:u1"},
		{"agent", AgentRoom("a1"), "agent:a1"},
		{"group", GroupRoom("g1"), "group:g1"},
		{"escaped colon", ChatRoom("a:1", "u1"), "chat:a%3A1:u1"},
		{"escaped percent", GroupRoom("g%3A"), "group:g%253A"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("room name = %q, want %q", tt.got, tt.want)
			}
		})
	}
}

func TestRoomNames_Deterministic(t *testing.T) {
	if ChatRoom("a", "u") != ChatRoom("a", "u") {
		t.Error("ChatRoom should return the same name for the same inputs")
	}
	if UserRoom("u") != UserRoom("u") {
		t.Error("UserRoom should return the same name for the same inputs")
	}
}

func TestRoomNames_InjectiveAcrossKinds(t *testing.T) {
	// Alphabet biased toward the separator and escape characters.
	alphabet := []rune{'a', 'b', ':', '%', '3', 'A', 'g', 'u'}
	rng := rand.New(rand.NewSource(42))
	randomID := func() string {
		n := rng.Intn(5)
		out := make([]rune, n)
		for i := range out {
			out[i] = alphabet[rng.Intn(len(alphabet))]
		}
		return string(out)
	}

	seen := map[string]string{GlobalRoom: "global"}
	record := func(name, tuple string) {
		if prev, ok := seen[name]; ok && prev != tuple {
			t.Fatalf("collision on %q: %s vs %s", name, prev, tuple)
		}
		seen[name] = tuple
	}

	for i := 0; i < 20000; i++ {
		a, b := randomID(), randomID()
		record(UserRoom(a), fmt.Sprintf("user(%q)", a))
		record(AgentRoom(a), fmt.Sprintf("agent(%q)", a))
		record(GroupRoom(a), fmt.Sprintf("group(%q)", a))
		record(ChatRoom(a, b), fmt.Sprintf("chat(%q,%q)", a, b))
	}
}
