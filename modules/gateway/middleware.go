package gateway

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-monolith/mono/pkg/types"
	"github.com/gofiber/fiber/v2"

	"github.com/example/realtime-presence/modules/identity"
)

// Keys under which the handshake stores the caller in fiber.Ctx locals.
const (
	LocalUserID = "user_id"
	LocalPlan   = "plan"
)

// Handshake rejections, rendered as {"error": message} by the error handler.
var (
	ErrOriginNotAllowed  = fiber.NewError(fiber.StatusForbidden, "Origin not allowed")
	ErrMissingCredential = fiber.NewError(fiber.StatusUnauthorized, "Authentication token required")
	ErrInvalidCredential = fiber.NewError(fiber.StatusUnauthorized, "Invalid authentication token")
	ErrAuthUnavailable   = fiber.NewError(fiber.StatusServiceUnavailable, "Authentication temporarily unavailable")
	ErrTooManyHandshakes = fiber.NewError(fiber.StatusTooManyRequests, "Too many connection attempts")
)

// OriginMiddleware rejects handshakes from origins the policy does not allow.
func OriginMiddleware(policy *OriginPolicy) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !policy.Allowed(c.Get(fiber.HeaderOrigin)) {
			return ErrOriginNotAllowed
		}
		return c.Next()
	}
}

// credentialFrom reads the bearer credential from the Authorization header,
// falling back to the token query parameter browsers must use.
func credentialFrom(c *fiber.Ctx) string {
	if authHeader := c.Get(fiber.HeaderAuthorization); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	return strings.TrimSpace(c.Query("token"))
}

// AuthMiddleware resolves the handshake's credential to a user and applies
// the per-plan handshake limit. The limiter fails open.
func AuthMiddleware(resolver *credentialResolver, limiter *HandshakeLimiter, logger types.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		credential := credentialFrom(c)
		if credential == "" {
			return ErrMissingCredential
		}

		id, err := resolver.Resolve(c.UserContext(), credential)
		if err != nil {
			if errors.Is(err, identity.ErrInvalidCredential) {
				return ErrInvalidCredential
			}
			logger.Error("Credential lookup failed", "remote_addr", c.IP(), "error", err)
			return ErrAuthUnavailable
		}

		result, err := limiter.Allow(c.UserContext(), id.UserID, id.Plan)
		if err != nil {
			logger.Warn("Handshake rate limit check failed", "user_id", id.UserID, "error", err)
		} else if !result.Allowed {
			retryAfter := int(time.Until(result.ResetAt).Seconds()) + 1
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))
			logger.Warn("Handshake rate limit exceeded",
				"user_id", id.UserID,
				"plan", id.Plan,
				"limit", result.Limit,
				"reset_at", result.ResetAt)
			return ErrTooManyHandshakes
		}

		c.Locals(LocalUserID, id.UserID)
		c.Locals(LocalPlan, id.Plan)
		return c.Next()
	}
}
