package middleware

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/kobo-pay/kobo_pay/internal/auth"
)

// UserIDKey is the fiber.Ctx locals key under which the authenticated caller's
// user id (uuid.UUID) is stored.
const UserIDKey = "user_id"

// JWTAuth validates bearer access tokens and stores the caller identity in
// the request locals. Everything behind it can assume the caller is resolved.
func JWTAuth(svc *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authz := c.Get(fiber.HeaderAuthorization)
		if !strings.HasPrefix(strings.ToLower(authz), "bearer ") {
			return fiber.NewError(http.StatusUnauthorized, "missing bearer token")
		}
		token := strings.TrimSpace(authz[len("Bearer "):])

		userID, err := svc.VerifyAccess(token)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "invalid token")
		}

		c.Locals(UserIDKey, userID)
		return c.Next()
	}
}
