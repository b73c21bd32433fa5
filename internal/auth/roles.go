package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/ticketing-system/internal/domain"
	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

// Permission decides whether a role may perform an action. Role methods such
// as domain.Role.CanAssign satisfy it directly.
type Permission func(domain.Role) bool

// AnyOf permits exactly the listed roles.
func AnyOf(roles ...domain.Role) Permission {
	return func(role domain.Role) bool {
		for _, allowed := range roles {
			if role == allowed {
				return true
			}
		}
		return false
	}
}

// Require rejects callers whose profile role fails permit. It must run after
// the authentication middleware.
func Require(message string, permit Permission) fiber.Handler {
	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok || principal.Profile == nil {
			return apperrors.NewUnauthorized("authentication required")
		}
		if !permit(principal.Profile.Role) {
			return apperrors.NewForbidden(message)
		}
		return c.Next()
	}
}

// RequireRole is Require with AnyOf.
func RequireRole(message string, allowed ...domain.Role) fiber.Handler {
	return Require(message, AnyOf(allowed...))
}
