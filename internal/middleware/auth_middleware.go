package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"pharmacy-pos/internal/service"
	"pharmacy-pos/internal/session"
	"pharmacy-pos/pkg/jwt"
)

// SessionKey is the fiber.Locals key holding the *session.Session of the caller.
const SessionKey = "session"

// TokenValidator resolves a bearer token to a session. service.AuthService implements it.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) (*session.Session, error)
}

// RequireAuth validates the bearer token and stores the caller's session in Locals.
// Role and privileges are loaded from the store on every request.
func RequireAuth(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		// Extract token from "Bearer <token>"
		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			return c.Status(401).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		sess, err := auth.ValidateToken(c.UserContext(), parts[1])
		if err != nil {
			return rejectToken(c, err)
		}

		c.Locals(SessionKey, sess)
		return c.Next()
	}
}

// RequireWebSocket admits websocket upgrades that carry a valid token, either in
// the token query parameter (browsers cannot set headers on upgrades) or as a
// bearer Authorization header. The session is stored in Locals for the socket handler.
func RequireWebSocket(auth TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return c.SendStatus(fiber.StatusUpgradeRequired)
		}

		token := c.Query("token")
		if token == "" {
			parts := strings.Split(c.Get("Authorization"), " ")
			if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
				token = parts[1]
			}
		}
		if token == "" {
			return c.Status(401).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		sess, err := auth.ValidateToken(c.UserContext(), token)
		if err != nil {
			return rejectToken(c, err)
		}

		c.Locals(SessionKey, sess)
		return c.Next()
	}
}

func rejectToken(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, jwt.ErrInvalidToken), errors.Is(err, jwt.ErrMissingToken):
		return c.Status(401).JSON(fiber.Map{"error": "Invalid or expired token"})
	case errors.Is(err, service.ErrSessionExpired):
		return c.Status(401).JSON(fiber.Map{"error": "Session expired, please sign in again"})
	case errors.Is(err, service.ErrUserInactive):
		return c.Status(401).JSON(fiber.Map{"error": "User account is inactive"})
	default:
		return c.Status(500).JSON(fiber.Map{"error": "Internal Server Error"})
	}
}

// Session returns the session stored by RequireAuth, or nil.
func Session(c *fiber.Ctx) *session.Session {
	sess, _ := c.Locals(SessionKey).(*session.Session)
	return sess
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := Session(c)
		if sess == nil {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}
		if sess.Has(requiredPrivilege) {
			return c.Next()
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires '" + requiredPrivilege + "' privilege",
		})
	}
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := Session(c)
		if sess == nil {
			return c.Status(403).JSON(fiber.Map{"error": "No privileges found"})
		}
		for _, p := range requiredPrivileges {
			if sess.Has(p) {
				return c.Next()
			}
		}
		return c.Status(403).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}

// RequireRole restricts a route to the given roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := Session(c)
		if sess != nil {
			for _, r := range roles {
				if sess.Role == r {
					return c.Next()
				}
			}
		}
		return c.Status(403).JSON(fiber.Map{"error": "Forbidden"})
	}
}
