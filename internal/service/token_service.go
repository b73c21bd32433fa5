package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-system/internal/auth"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

var (
	// ErrInvalidToken covers bad signatures, expiry, wrong purpose and stale tokens alike.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrUserNotFound is returned when a valid token references a missing user.
	ErrUserNotFound = errors.New("user account not found")
)

// TokenService issues signed user tokens and resolves them back to users.
type TokenService struct {
	tokens  *auth.TokenManager
	users   repository.UserRepository
	baseURL string
	logger  *zap.Logger
}

// NewTokenService builds the service. baseURL prefixes generated links.
func NewTokenService(tokens *auth.TokenManager, users repository.UserRepository, baseURL string, logger *zap.Logger) *TokenService {
	return &TokenService{
		tokens:  tokens,
		users:   users,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger,
	}
}

// Generate signs a token for user that expires after expiry.
func (s *TokenService) Generate(user *domain.User, purpose auth.Purpose, expiry time.Duration) (string, error) {
	token, _, err := s.tokens.GenerateToken(user.ID, purpose, expiry)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// GenerateURL embeds a fresh token as the last path segment of destination.
func (s *TokenService) GenerateURL(user *domain.User, purpose auth.Purpose, expiry time.Duration, destination string) (string, error) {
	token, err := s.Generate(user, purpose, expiry)
	if err != nil {
		return "", err
	}
	return s.baseURL + "/" + strings.Trim(destination, "/") + "/" + url.PathEscape(token), nil
}

// Validate checks the signature and embedded expiry, then requires the token
// to be no older than maxAge. Every token failure yields ErrInvalidToken; a
// missing user yields ErrUserNotFound.
func (s *TokenService) Validate(ctx context.Context, token string, purpose auth.Purpose, maxAge time.Duration) (*domain.User, error) {
	claims, err := s.tokens.ParseToken(token, purpose)
	if err != nil {
		s.logger.Debug("token rejected", zap.Error(err))
		return nil, ErrInvalidToken
	}

	if age := s.tokens.Now().Sub(claims.IssuedAt.Time); age > maxAge {
		s.logger.Debug("token exceeded max age", zap.Duration("age", age), zap.Duration("max_age", maxAge))
		return nil, ErrInvalidToken
	}

	user, err := s.users.GetByID(ctx, claims.UserID())
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}
