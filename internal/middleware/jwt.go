package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ecolearn/ecolearn-api/internal/auth"
	"github.com/ecolearn/ecolearn-api/internal/utils"
)

// JWTProtected returns a middleware that validates JWT bearer access tokens
// and exposes user_id, user_role and student_id as request locals.
func JWTProtected(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return utils.SendError(c, fiber.StatusUnauthorized, "authorization header missing")
		}
		if tokenString == "" {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		claims, err := auth.Parse(tokenString, secret, auth.TokenTypeAccess)
		if err != nil {
			if errors.Is(err, auth.ErrWrongTokenType) {
				return utils.SendError(c, fiber.StatusUnauthorized, "access token required")
			}
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		c.Locals("user_id", claims.UserID)
		if claims.Role != "" {
			c.Locals("user_role", claims.Role)
		}
		if claims.StudentID != nil {
			c.Locals("student_id", *claims.StudentID)
		}

		return c.Next()
	}
}

// bearerToken reads the token from the Authorization header. Browsers cannot
// set headers on EventSource or WebSocket handshakes, so the access_token
// query parameter is accepted as a fallback.
func bearerToken(c *fiber.Ctx) (string, bool) {
	authorization := c.Get("Authorization")
	if authorization == "" {
		if query := strings.TrimSpace(c.Query("access_token")); query != "" {
			return query, true
		}
		return "", false
	}

	const bearer = "Bearer "
	if len(authorization) < len(bearer) || !strings.EqualFold(authorization[:len(bearer)], bearer) {
		return "", true
	}

	return strings.TrimSpace(authorization[len(bearer):]), true
}
