package typing

import (
	"sync"
	"time"

	"github.com/go-monolith/mono/pkg/types"

	"github.com/example/realtime-presence/domain/realtime"
)

// DefaultTimeout is how long a typing indicator stays on without a refresh.
const DefaultTimeout = 5 * time.Second

// Broadcaster delivers a frame to every member of a room but one connection.
type Broadcaster interface {
	BroadcastExcept(room, exceptConnID, event string, payload any) int
}

// Timer is the part of *time.Timer the engine needs.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Kind distinguishes pairwise agent chat from group chat.
type Kind int

const (
	KindChat Kind = iota
	KindGroup
)

// Scope is the entity a typing signal applies to.
type Scope struct {
	Kind Kind
	// ID is the agent id for chat scopes and the group id for group scopes.
	ID string
}

// ChatScope returns the scope of a user's chat with an agent.
func ChatScope(agentID string) Scope {
	return Scope{Kind: KindChat, ID: agentID}
}

// GroupScope returns the scope of a group chat.
func GroupScope(groupID string) Scope {
	return Scope{Kind: KindGroup, ID: groupID}
}

// Signal is one typing update from a client.
type Signal struct {
	Scope    Scope
	UserID   string
	UserName string
	IsTyping bool
	// ConnID is the originating connection. It never receives the broadcast.
	ConnID string
}

type key struct {
	scope  Scope
	userID string
}

type entry struct {
	timer    Timer
	gen      uint64
	connID   string
	userName string
}

// Engine turns typing signals into debounced, auto-expiring broadcasts.
// Each (scope, user) pair has at most one live timer.
type Engine struct {
	mu      sync.Mutex
	entries map[key]*entry
	gen     uint64
	stopped bool

	out       Broadcaster
	timeout   time.Duration
	afterFunc AfterFunc
	now       func() time.Time
	logger    types.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// WithAfterFunc replaces the timer source.
func WithAfterFunc(f AfterFunc) Option {
	return func(e *Engine) {
		e.afterFunc = f
	}
}

// WithClock replaces the clock used for payload timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine that broadcasts through out.
func NewEngine(out Broadcaster, logger types.Logger, opts ...Option) *Engine {
	e := &Engine{
		entries:   make(map[key]*entry),
		out:       out,
		timeout:   DefaultTimeout,
		afterFunc: realAfterFunc,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Set applies a typing signal.
//
// A true signal cancels any live timer for the key, broadcasts isTyping=true
// and schedules expiry. A false signal cancels the timer, broadcasts
// isTyping=false and forgets the key.
func (e *Engine) Set(s Signal) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.stopped {
		return
	}

	k := key{scope: s.Scope, userID: s.UserID}
	if prev, ok := e.entries[k]; ok {
		prev.timer.Stop()
		delete(e.entries, k)
	}

	e.broadcastLocked(k, s.ConnID, s.UserName, s.IsTyping)
	if !s.IsTyping {
		return
	}

	e.gen++
	gen := e.gen
	e.entries[k] = &entry{
		timer:    e.afterFunc(e.timeout, func() { e.expire(k, gen) }),
		gen:      gen,
		connID:   s.ConnID,
		userName: s.UserName,
	}
}

// expire runs when a timer fires. A timer that was cancelled after it had
// already started firing finds a newer generation (or no entry) and does
// nothing.
func (e *Engine) expire(k key, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	cur, ok := e.entries[k]
	if !ok || cur.gen != gen {
		return
	}
	delete(e.entries, k)
	e.broadcastLocked(k, cur.connID, cur.userName, false)
}

func (e *Engine) broadcastLocked(k key, connID, userName string, isTyping bool) {
	ts := realtime.Timestamp(e.now())
	switch k.scope.Kind {
	case KindChat:
		e.out.BroadcastExcept(realtime.ChatRoom(k.scope.ID, k.userID), connID, realtime.EventChatTyping, realtime.ChatTyping{
			AgentID:   k.scope.ID,
			UserID:    k.userID,
			IsTyping:  isTyping,
			Timestamp: ts,
		})
	case KindGroup:
		e.out.BroadcastExcept(realtime.GroupRoom(k.scope.ID), connID, realtime.EventGroupTyping, realtime.GroupTyping{
			GroupID:   k.scope.ID,
			UserID:    k.userID,
			UserName:  userName,
			IsTyping:  isTyping,
			Timestamp: ts,
		})
	default:
		e.logger.Warn("Unknown typing scope", "kind", int(k.scope.Kind), "id", k.scope.ID)
	}
}

// Pending returns the number of live expiry timers.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Stop cancels every live timer without broadcasting. Signals received
// afterwards are ignored.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for k, ent := range e.entries {
		ent.timer.Stop()
		delete(e.entries, k)
	}
	e.stopped = true
}
