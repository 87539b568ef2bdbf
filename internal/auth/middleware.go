package auth

import (
	"strings"

	"identityapi/internal/response"
	"identityapi/internal/user"
	"identityapi/internal/utils"

	"github.com/gofiber/fiber/v2"
)

// JWTProtected authenticates the request and stores the user id in locals for
// downstream handlers.
func JWTProtected() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return response.Error(c, fiber.StatusUnauthorized, "UNAUTHORIZED", "Missing authorization token", nil)
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			return response.Error(c, fiber.StatusUnauthorized, "INVALID_TOKEN_FORMAT", "Invalid token format", nil)
		}

		userID, err := utils.ParseJWT(tokenParts[1])
		if err != nil {
			return response.Error(c, fiber.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token", nil)
		}

		c.Locals("user_id", userID)
		return c.Next()
	}
}

// AdminProtected rechecks the role against the database rather than trusting
// the claim, so a demoted admin loses access as soon as the row changes.
func AdminProtected(users *user.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(uint)

		u, err := users.FindByIDWithSensitiveColumns(userID)
		if err != nil {
			return response.Unauthorized(c, "User not found")
		}

		if !u.IsAdmin() {
			return response.Forbidden(c, "You don't have permission to access this resource")
		}

		return c.Next()
	}
}
