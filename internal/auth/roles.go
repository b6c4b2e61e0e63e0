package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-desk/internal/domain"
	apperrors "github.com/spec-kit/support-desk/pkg/util/errorutil"
)

// Require ensures the principal's role is granted action in domain.Permissions.
func Require(action domain.Action) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("Authentication required")
		}
		if !principal.Can(action) {
			return apperrors.NewForbidden("Access denied. Insufficient permissions.")
		}
		return c.Next()
	}
}
