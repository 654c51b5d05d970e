package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/realtime-presence/domain/access"
)

// HandshakeWindow is the sliding window for handshake limits.
const HandshakeWindow = time.Minute

// planLimits are the handshakes a user may open per window.
var planLimits = map[string]int{
	access.PlanFree:  30,
	access.PlanPlus:  60,
	access.PlanUltra: 120,
}

// PlanLimit returns the handshake limit for plan, falling back to free.
func PlanLimit(plan string) int {
	if n, ok := planLimits[plan]; ok {
		return n
	}
	return planLimits[access.PlanFree]
}

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
	Limit     int
}

// slidingWindow removes expired entries, then records the attempt if the
// window has room. Returns {allowed, remaining, reset_at_ms}.
var slidingWindow = redis.NewScript(`
	local key = KEYS[1]
	local now = tonumber(ARGV[1])
	local window_start = tonumber(ARGV[2])
	local limit = tonumber(ARGV[3])
	local window_ms = tonumber(ARGV[4])

	redis.call('ZREMRANGEBYSCORE', key, '-inf', window_start)

	local current = redis.call('ZCARD', key)

	if current < limit then
		local counter = redis.call('INCR', key .. ':counter')
		redis.call('ZADD', key, now, now .. ':' .. counter)
		local expire_seconds = math.ceil(window_ms / 1000)
		redis.call('EXPIRE', key, expire_seconds)
		redis.call('EXPIRE', key .. ':counter', expire_seconds)
		return {1, limit - current - 1, 0}
	else
		local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
		local reset_at = 0
		if oldest and #oldest >= 2 then
			reset_at = tonumber(oldest[2]) + window_ms
		end
		return {0, 0, reset_at}
	end
`)

// HandshakeLimiter caps how often a user may open connections, using a
// Redis sorted set per user. A limiter without a client allows everything.
type HandshakeLimiter struct {
	client    redis.Scripter
	keyPrefix string
	now       func() time.Time
}

// NewHandshakeLimiter creates a limiter. client may be nil to disable limiting.
func NewHandshakeLimiter(client redis.Scripter, keyPrefix string) *HandshakeLimiter {
	return &HandshakeLimiter{
		client:    client,
		keyPrefix: keyPrefix,
		now:       time.Now,
	}
}

// Enabled reports whether a Redis backend is configured.
func (l *HandshakeLimiter) Enabled() bool {
	return l != nil && l.client != nil
}

// Allow records a handshake attempt by userID and reports whether it fits
// the plan's window.
func (l *HandshakeLimiter) Allow(ctx context.Context, userID, plan string) (*RateLimitResult, error) {
	limit := PlanLimit(plan)
	now := l.now()
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true, Remaining: limit, ResetAt: now.Add(HandshakeWindow), Limit: limit}, nil
	}

	key := l.keyPrefix + "socket:" + userID
	result, err := slidingWindow.Run(ctx, l.client, []string{key},
		now.UnixMilli(), now.Add(-HandshakeWindow).UnixMilli(), limit, HandshakeWindow.Milliseconds(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis script error: %w", err)
	}
	if len(result) != 3 {
		return nil, fmt.Errorf("unexpected Redis response length: %d", len(result))
	}

	resetAt := now.Add(HandshakeWindow)
	if result[2] > 0 {
		resetAt = time.UnixMilli(result[2])
	}
	return &RateLimitResult{
		Allowed:   result[0] == 1,
		Remaining: int(result[1]),
		ResetAt:   resetAt,
		Limit:     limit,
	}, nil
}
