package typing

import (
	"sync"
	"testing"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/realtime-presence/domain/realtime"
)

type mockLogger struct{}

func (m *mockLogger) Debug(_ string, _ ...any)         {}
func (m *mockLogger) Info(_ string, _ ...any)          {}
func (m *mockLogger) Warn(_ string, _ ...any)          {}
func (m *mockLogger) Error(_ string, _ ...any)         {}
func (m *mockLogger) With(_ ...any) types.Logger       { return m }
func (m *mockLogger) WithModule(_ string) types.Logger { return m }
func (m *mockLogger) WithError(_ error) types.Logger   { return m }

type broadcastCall struct {
	room    string
	except  string
	event   string
	payload any
}

type recordingBroadcaster struct {
	mu    sync.Mutex
	calls []broadcastCall
}

func (r *recordingBroadcaster) BroadcastExcept(room, exceptConnID, event string, payload any) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, broadcastCall{room: room, except: exceptConnID, event: event, payload: payload})
	return 1
}

func (r *recordingBroadcaster) snapshot() []broadcastCall {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcastCall(nil), r.calls...)
}

// typingStates extracts the isTyping flag of every recorded broadcast.
func (r *recordingBroadcaster) typingStates() []bool {
	var states []bool
	for _, c := range r.snapshot() {
		switch p := c.payload.(type) {
		case realtime.ChatTyping:
			states = append(states, p.IsTyping)
		case realtime.GroupTyping:
			states = append(states, p.IsTyping)
		}
	}
	return states
}

type fakeTimer struct {
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeTimers hands out timers that only fire when told to.
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) afterFunc(_ time.Duration, fn func()) Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{f: fn}
	f.timers = append(f.timers, t)
	return t
}

// fire runs the i-th timer's callback as the runtime would, even if it was
// stopped after being scheduled to fire.
func (f *fakeTimers) fire(i int) {
	f.mu.Lock()
	t := f.timers[i]
	t.fired = true
	f.mu.Unlock()
	t.f()
}

func (f *fakeTimers) active() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func newTestEngine() (*Engine, *recordingBroadcaster, *fakeTimers) {
	out := &recordingBroadcaster{}
	timers := &fakeTimers{}
	e := NewEngine(out, &mockLogger{},
		WithAfterFunc(timers.afterFunc),
		WithClock(func() time.Time { return time.UnixMilli(1000) }),
	)
	return e, out, timers
}

func TestEngine_RepeatedTrueHasNoIntermediateFalse(t *testing.T) {
	e, out, timers := newTestEngine()
	sig := Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: true, ConnID: "c1"}

	e.Set(sig)
	e.Set(sig)
	e.Set(sig)

	assert.Equal(t, []bool{true, true, true}, out.typingStates())
	assert.Equal(t, 1, e.Pending())
	assert.Equal(t, 1, timers.active(), "only the latest timer may be live")

	timers.fire(2)
	assert.Equal(t, []bool{true, true, true, false}, out.typingStates())
	assert.Equal(t, 0, e.Pending())
}

func TestEngine_TrueThenFalse(t *testing.T) {
	e, out, timers := newTestEngine()
	e.Set(Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: true, ConnID: "c1"})
	e.Set(Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: false, ConnID: "c1"})

	assert.Equal(t, []bool{true, false}, out.typingStates())
	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, 0, timers.active())
}

func TestEngine_ExpiryBroadcastsFalseOnce(t *testing.T) {
	e, out, timers := newTestEngine()
	e.Set(Signal{Scope: GroupScope("g1"), UserID: "u1", UserName: "Ann", IsTyping: true, ConnID: "c1"})

	timers.fire(0)

	calls := out.snapshot()
	require.Len(t, calls, 2)
	last := calls[1]
	assert.Equal(t, realtime.GroupRoom("g1"), last.room)
	assert.Equal(t, "c1", last.except, "expiry must still exclude the originating connection")
	assert.Equal(t, realtime.EventGroupTyping, last.event)
	assert.Equal(t, realtime.GroupTyping{GroupID: "g1", UserID: "u1", UserName: "Ann", IsTyping: false, Timestamp: 1000}, last.payload)
	assert.Equal(t, 0, e.Pending())
}

func TestEngine_StaleTimerIsIgnored(t *testing.T) {
	e, out, timers := newTestEngine()
	sig := Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: true, ConnID: "c1"}

	e.Set(sig)
	e.Set(sig)
	// The first timer was cancelled but its callback raced the cancel.
	timers.fire(0)

	assert.Equal(t, []bool{true, true}, out.typingStates())
	assert.Equal(t, 1, e.Pending())
}

func TestEngine_FalseWithoutTrue(t *testing.T) {
	e, out, _ := newTestEngine()
	e.Set(Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: false, ConnID: "c1"})

	assert.Equal(t, []bool{false}, out.typingStates())
	assert.Equal(t, 0, e.Pending())
}

func TestEngine_KeysAreIndependent(t *testing.T) {
	e, out, timers := newTestEngine()
	e.Set(Signal{Scope: GroupScope("g1"), UserID: "u1", IsTyping: true, ConnID: "c1"})
	e.Set(Signal{Scope: GroupScope("g1"), UserID: "u2", IsTyping: true, ConnID: "c2"})
	e.Set(Signal{Scope: ChatScope("g1"), UserID: "u1", IsTyping: true, ConnID: "c1"})

	assert.Equal(t, 3, e.Pending())
	assert.Equal(t, 3, timers.active())

	e.Set(Signal{Scope: GroupScope("g1"), UserID: "u1", IsTyping: false, ConnID: "c1"})
	assert.Equal(t, 2, e.Pending())

	calls := out.snapshot()
	assert.Equal(t, realtime.ChatRoom("g1", "u1"), calls[2].room)
}

func TestEngine_ExpiryExcludesOriginatingConnection(t *testing.T) {
	e, out, timers := newTestEngine()
	e.Set(Signal{Scope: GroupScope("g1"), UserID: "u1", IsTyping: true, ConnID: "phone"})

	assert.Equal(t, 1, e.Pending())
	timers.fire(0)

	calls := out.snapshot()
	require.Len(t, calls, 2)
	assert.Equal(t, "phone", calls[1].except)
}

func TestEngine_Stop(t *testing.T) {
	e, out, timers := newTestEngine()
	e.Set(Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: true, ConnID: "c1"})
	e.Stop()

	assert.Equal(t, 0, e.Pending())
	assert.Equal(t, 0, timers.active())

	e.Set(Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: true, ConnID: "c1"})
	assert.Len(t, out.snapshot(), 1, "signals after Stop are ignored")
}

func TestEngine_RealTimerExpires(t *testing.T) {
	out := &recordingBroadcaster{}
	e := NewEngine(out, &mockLogger{}, WithTimeout(20*time.Millisecond))
	defer e.Stop()

	e.Set(Signal{Scope: ChatScope("a1"), UserID: "u1", IsTyping: true, ConnID: "c1"})

	require.Eventually(t, func() bool {
		return e.Pending() == 0
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []bool{true, false}, out.typingStates())
}
