package broadcast

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/example/realtime-presence/domain/realtime"
)

func TestEmitter_NotAttachedIsNoop(t *testing.T) {
	logger := &mockLogger{}
	e := NewEmitter(logger)

	if e.Ready() {
		t.Error("Ready() = true before Attach")
	}
	if e.EmitToGroup("g1", realtime.EventGroupMessage, "hello") {
		t.Error("EmitToGroup() = true with no hub attached")
	}
	if e.EmitAgentDeleted("a1") {
		t.Error("EmitAgentDeleted() = true with no hub attached")
	}
	if got := logger.warnCount(); got != 2 {
		t.Errorf("warnings = %d, want 2", got)
	}
}

func TestEmitter_NilIsNoop(t *testing.T) {
	var e *Emitter
	if e.EmitToUser("u1", realtime.EventSystemNotification, nil) {
		t.Error("EmitToUser() on nil emitter = true")
	}
	if e.Ready() {
		t.Error("Ready() on nil emitter = true")
	}
}

func TestEmitter_EmitToUserReachesEveryConnectionOnce(t *testing.T) {
	h := NewHub(&mockLogger{})
	e := NewEmitter(&mockLogger{})
	e.Attach(h)

	first := newRegistered(h, "c1", "u1")
	second := newRegistered(h, "c2", "u1")
	stranger := newRegistered(h, "c3", "u2")
	h.Join(first, realtime.UserRoom("u1"))
	h.Join(second, realtime.UserRoom("u1"))
	h.Join(stranger, realtime.UserRoom("u2"))

	e.SendSystemNotification("u1", realtime.SystemNotification{Type: "info", Title: "Hi", Message: "Welcome"})

	for _, c := range []*Connection{first, second} {
		frames := drain(t, c)
		if len(frames) != 1 {
			t.Fatalf("connection %s received %d frames, want 1", c.ID(), len(frames))
		}
		if frames[0].Event != realtime.EventSystemNotification {
			t.Errorf("Event = %q, want %q", frames[0].Event, realtime.EventSystemNotification)
		}
		var n realtime.SystemNotification
		if err := json.Unmarshal(frames[0].Data, &n); err != nil {
			t.Fatalf("failed to decode payload: %v", err)
		}
		if n.Timestamp == 0 {
			t.Error("SendSystemNotification() should stamp the notification")
		}
	}
	if frames := drain(t, stranger); len(frames) != 0 {
		t.Errorf("other user received %d frames, want 0", len(frames))
	}
}

func TestEmitter_TypedHelpers(t *testing.T) {
	h := NewHub(&mockLogger{})
	e := NewEmitter(&mockLogger{})
	e.now = func() time.Time { return time.UnixMilli(1700000000000) }
	e.Attach(h)

	groupConn := newRegistered(h, "c1", "u1")
	agentConn := newRegistered(h, "c2", "u1")
	h.Join(groupConn, realtime.GroupRoom("g1"))
	h.Join(agentConn, realtime.AgentRoom("a1"))

	e.EmitGroupAIResponding("g1", "a1", "Ada")
	e.EmitGroupAIStopped("g1", "a1")
	e.EmitGroupMemberLeft("g1", "u9", "user")
	e.EmitAgentUpdated("a1", map[string]any{"name": "Ada 2"})

	groupFrames := drain(t, groupConn)
	wantGroup := []string{realtime.EventGroupAIResponding, realtime.EventGroupAIStopped, realtime.EventGroupMemberLeft}
	if len(groupFrames) != len(wantGroup) {
		t.Fatalf("group received %d frames, want %d", len(groupFrames), len(wantGroup))
	}
	for i, want := range wantGroup {
		if groupFrames[i].Event != want {
			t.Errorf("frame %d Event = %q, want %q", i, groupFrames[i].Event, want)
		}
	}

	agentFrames := drain(t, agentConn)
	if len(agentFrames) != 1 {
		t.Fatalf("agent subscribers received %d frames, want 1", len(agentFrames))
	}
	var updated realtime.AgentUpdated
	if err := json.Unmarshal(agentFrames[0].Data, &updated); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if updated.Timestamp != 1700000000000 {
		t.Errorf("Timestamp = %d, want %d", updated.Timestamp, int64(1700000000000))
	}
	if updated.Updates["name"] != "Ada 2" {
		t.Errorf("Updates[name] = %v, want %q", updated.Updates["name"], "Ada 2")
	}
}

func TestEmitter_Detach(t *testing.T) {
	h := NewHub(&mockLogger{})
	e := NewEmitter(&mockLogger{})
	e.Attach(h)
	c := newRegistered(h, "c1", "u1")
	h.Join(c, realtime.GroupRoom("g1"))

	e.Detach()
	if e.EmitToGroup("g1", realtime.EventGroupMessage, "late") {
		t.Error("EmitToGroup() = true after Detach")
	}
	if frames := drain(t, c); len(frames) != 0 {
		t.Errorf("received %d frames after Detach, want 0", len(frames))
	}
}
