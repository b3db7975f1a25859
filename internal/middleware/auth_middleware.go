package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sefazor/coaching-backend/internal/models"
	jwtPkg "github.com/sefazor/coaching-backend/pkg/jwt"
)

// Locals keys set by the auth middlewares.
const (
	LocalUserID    = "userID"
	LocalUserEmail = "userEmail"
	LocalRole      = "role"
)

func unauthorized(c *fiber.Ctx, message string) error {
	return c.Status(fiber.StatusUnauthorized).JSON(models.ErrorResponse(fiber.StatusUnauthorized, message))
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	return token, token != ""
}

func setClaims(c *fiber.Ctx, claims *jwtPkg.Claims) {
	c.Locals(LocalUserID, claims.UserID)
	c.Locals(LocalUserEmail, claims.Email)
	c.Locals(LocalRole, models.Role(claims.Role))
}

// AuthMiddleware requires a valid access token.
func AuthMiddleware(tokens *jwtPkg.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) == "" {
			return unauthorized(c, "Authorization header is required")
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			return unauthorized(c, "Invalid authorization header format")
		}

		claims, err := tokens.ValidateToken(tokenString, jwtPkg.PurposeAccess)
		if err != nil {
			return unauthorized(c, "Invalid token")
		}

		setClaims(c, claims)
		return c.Next()
	}
}

// OptionalAuth sets the caller when a valid token is present and lets
// anonymous requests through otherwise.
func OptionalAuth(tokens *jwtPkg.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tokenString, ok := bearerToken(c); ok {
			if claims, err := tokens.ValidateToken(tokenString, jwtPkg.PurposeAccess); err == nil {
				setClaims(c, claims)
			}
		}
		return c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		role, _ := c.Locals(LocalRole).(models.Role)
		for _, allowed := range roles {
			if role == allowed {
				return c.Next()
			}
		}
		return c.Status(fiber.StatusForbidden).JSON(models.ErrorResponse(fiber.StatusForbidden, "You do not have permission to access this resource"))
	}
}
