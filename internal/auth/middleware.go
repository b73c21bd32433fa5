package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	User    *domain.User
	Profile *domain.Profile
	Session *Claims
}

// AuthMiddleware validates session tokens and loads principals.
type AuthMiddleware struct {
	tokens     *TokenManager
	sessions   SessionStore
	users      repository.UserRepository
	profiles   repository.ProfileRepository
	cookieName string
	logger     *zap.Logger
}

// NewAuthMiddleware constructs middleware.
func NewAuthMiddleware(
	tokens *TokenManager,
	sessions SessionStore,
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	cookieName string,
	logger *zap.Logger,
) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:     tokens,
		sessions:   sessions,
		users:      users,
		profiles:   profiles,
		cookieName: cookieName,
		logger:     logger,
	}
}

// Handle enforces authentication for protected routes. The session cookie
// takes precedence over the Authorization header.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	raw, err := m.sessionToken(c)
	if err != nil {
		return err
	}

	claims, err := m.tokens.ParseToken(raw, PurposeSession)
	if err != nil {
		return apperrors.NewUnauthorized("invalid session")
	}

	revoked, err := m.sessions.IsRevoked(c.UserContext(), claims.ID)
	if err != nil {
		m.logger.Error("session revocation lookup failed", zap.Error(err))
		return apperrors.NewInternalError(err)
	}
	if revoked {
		return apperrors.NewUnauthorized("session has ended")
	}

	user, err := m.users.GetByID(c.UserContext(), claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}
	if !user.IsActive {
		return apperrors.NewUnauthorized("user account is disabled")
	}

	profile, err := m.profiles.GetByUserID(c.UserContext(), user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperrors.NewForbidden("profile not found")
		}
		return apperrors.MapError(err)
	}

	c.Locals(principalKey, &Principal{User: user, Profile: profile, Session: claims})
	return c.Next()
}

func (m *AuthMiddleware) sessionToken(c *fiber.Ctx) (string, error) {
	if cookie := c.Cookies(m.cookieName); cookie != "" {
		return cookie, nil
	}

	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return "", apperrors.NewUnauthorized("authentication required")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", apperrors.NewUnauthorized("invalid authorization header")
	}
	return parts[1], nil
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
