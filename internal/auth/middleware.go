package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/botforge-app/botforge/internal/web/session"
)

// LocalsUserIDKey is the fiber.Locals key holding the authenticated user's ID.
const LocalsUserIDKey = "userID"

// CurrentUserID returns the authenticated user's ID from the request context.
// Returns 0 when the request carries no valid session.
func CurrentUserID(c *fiber.Ctx) uint64 {
	if id, ok := c.Locals(LocalsUserIDKey).(uint64); ok {
		return id
	}

	return 0
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": fiber.Map{"kind": "unauthorized"},
	})
}

func forbidden(c *fiber.Ctx, reason DenyReason) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"error": fiber.Map{"kind": string(reason)},
	})
}

// sessionUserID resolves the session cookie into a user ID, or 0.
func sessionUserID(c *fiber.Ctx) uint64 {
	sessionID := c.Cookies(session.CookieName)
	if sessionID == "" {
		return 0
	}

	sessionData := new(session.Data)
	if err := sessionData.Read(sessionID); err != nil {
		return 0
	}

	return sessionData.UserID
}

// RequirePermission creates Fiber middleware that requires the caller to hold
// any grant for (action, resource). This is a capability check only: it is
// satisfied by a grant at either scope, because a self-scoped caller is
// allowed to reach the handler, where ownership of the concrete resource is
// then enforced via Service.Authorize.
func RequirePermission(authService *Service, action, resource string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := CurrentUserID(c)
		if userID == 0 {
			userID = sessionUserID(c)
		}

		if userID == 0 {
			return unauthorized(c)
		}

		hasPermission, err := authService.HasPermission(userID, action, resource)
		if err != nil {
			log.Error().Err(err).Uint64("user_id", userID).
				Str("action", action).Str("resource", resource).
				Msg("Failed to check permission")

			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": fiber.Map{"kind": "internal"},
			})
		}

		if !hasPermission {
			log.Warn().Uint64("user_id", userID).
				Str("action", action).Str("resource", resource).
				Msg("User lacks required permission")

			return forbidden(c, DenyInsufficientPermission)
		}

		c.Locals(LocalsUserIDKey, userID)

		return c.Next()
	}
}

// RequireAuthenticated creates Fiber middleware that only requires a valid session.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := CurrentUserID(c)
		if userID == 0 {
			userID = sessionUserID(c)
		}

		if userID == 0 {
			return unauthorized(c)
		}

		c.Locals(LocalsUserIDKey, userID)

		return c.Next()
	}
}
