package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-system/internal/auth"
	"github.com/spec-kit/ticketing-system/internal/config"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/repository"
	apperrors "github.com/spec-kit/ticketing-system/pkg/util/errorutil"
)

// User-facing messages.
const (
	MsgVerified          = "Account verified successfully!"
	MsgAlreadyVerified   = "Your account has already been verified."
	MsgInvalidToken      = "Invalid or expired token."
	MsgUserNotFound      = "User account not found"
	MsgProfileExists     = "Profile already exists"
	MsgEmailTaken        = "A user with that email already exists."
	MsgUsernameTaken     = "A user with that username already exists."
	MsgRegistrationEmail = "We could not send the verification email. Please try again later."
)

// RegisterInput describes a self-service registration.
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

// VerificationResult is the outcome of an email verification attempt.
type VerificationResult struct {
	Status  domain.VerificationStatus `json:"status"`
	Message string                    `json:"message"`
}

// Session is an issued login session.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *domain.User
	Profile   *domain.Profile
}

// AuthService coordinates registration, verification and login flows.
type AuthService struct {
	users              repository.UserRepository
	profiles           repository.ProfileRepository
	tx                 repository.Transactor
	emails             *EmailService
	tokens             *TokenService
	tokenMgr           *auth.TokenManager
	sessions           auth.SessionStore
	bcryptCost         int
	sessionTTL         time.Duration
	verificationMaxAge time.Duration
	logger             *zap.Logger
}

// AuthDependencies encapsulates collaborators for the auth service.
type AuthDependencies struct {
	UserRepo     repository.UserRepository
	ProfileRepo  repository.ProfileRepository
	Transactor   repository.Transactor
	EmailService *EmailService
	TokenService *TokenService
	TokenManager *auth.TokenManager
	Sessions     auth.SessionStore
	Logger       *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		users:              deps.UserRepo,
		profiles:           deps.ProfileRepo,
		tx:                 deps.Transactor,
		emails:             deps.EmailService,
		tokens:             deps.TokenService,
		tokenMgr:           deps.TokenManager,
		sessions:           deps.Sessions,
		bcryptCost:         cfg.Auth.BcryptCost,
		sessionTTL:         cfg.Auth.SessionTTL(),
		verificationMaxAge: cfg.Auth.VerificationMaxAge(),
		logger:             deps.Logger,
	}
}

// Register creates an unverified user with a customer profile and sends the
// verification email. The three writes commit together or not at all.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if err := requireFields(map[string]string{"email": email, "username": username, "password": input.Password}); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.createUser(ctx, user); err != nil {
			return err
		}
		if err := s.profiles.Create(ctx, &domain.Profile{UserID: user.ID, Role: domain.RoleCustomer}); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperrors.NewValidationError(MsgProfileExists, nil)
			}
			return err
		}
		_, err := s.emails.SendRegistrationEmail(ctx, user)
		return err
	})
	if err != nil {
		var delivery *EmailDeliveryError
		if errors.As(err, &delivery) {
			if recErr := s.emails.RecordFailure(ctx, delivery.Email); recErr != nil {
				s.logger.Error("record failed email", zap.Error(recErr))
			}
			return nil, &apperrors.DomainError{
				Code:       apperrors.CodeInternal,
				Message:    MsgRegistrationEmail,
				HTTPStatus: http.StatusInternalServerError,
				Err:        err,
			}
		}
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("user registered", zap.String("user_id", user.ID))
	return user, nil
}

func (s *AuthService) createUser(ctx context.Context, user *domain.User) error {
	err := s.users.Create(ctx, user)
	switch {
	case err == nil:
		return nil
	case repository.IsDuplicate(err, repository.ConstraintUserEmail):
		return apperrors.NewFieldError("email", MsgEmailTaken)
	case repository.IsDuplicate(err, repository.ConstraintUserUsername):
		return apperrors.NewFieldError("username", MsgUsernameTaken)
	}
	return err
}

// VerifyEmail flips the verification flag for the token's user. Verifying an
// already verified account reports already_verified without writing.
func (s *AuthService) VerifyEmail(ctx context.Context, token string) (VerificationResult, error) {
	user, err := s.tokens.Validate(ctx, token, auth.PurposeVerification, s.verificationMaxAge)
	switch {
	case errors.Is(err, ErrInvalidToken):
		return VerificationResult{Status: domain.VerificationError, Message: MsgInvalidToken}, nil
	case errors.Is(err, ErrUserNotFound):
		return VerificationResult{Status: domain.VerificationError, Message: MsgUserNotFound}, nil
	case err != nil:
		return VerificationResult{}, apperrors.MapError(err)
	}

	if user.IsVerified {
		return VerificationResult{Status: domain.VerificationAlreadyVerified, Message: MsgAlreadyVerified}, nil
	}

	user.IsVerified = true
	if err := s.users.Update(ctx, user); err != nil {
		return VerificationResult{}, apperrors.MapError(err)
	}
	s.logger.Info("user verified", zap.String("user_id", user.ID))
	return VerificationResult{Status: domain.VerificationSuccess, Message: MsgVerified}, nil
}

// Login authenticates by email and password and issues a session. Unverified
// accounts get a dedicated error; every other failure is reported as invalid
// credentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*Session, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			auth.BurnCompare(password)
			return nil, apperrors.NewInvalidCredentials()
		}
		return nil, apperrors.MapError(err)
	}
	if err := auth.ComparePassword(user.PasswordHash, password); err != nil {
		return nil, apperrors.NewInvalidCredentials()
	}
	if !user.IsActive {
		return nil, apperrors.NewInvalidCredentials()
	}
	if !user.IsVerified {
		return nil, apperrors.NewEmailNotVerified()
	}

	profile, err := s.profiles.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewForbidden("profile not found")
		}
		return nil, apperrors.MapError(err)
	}

	token, claims, err := s.tokenMgr.GenerateToken(user.ID, auth.PurposeSession, s.sessionTTL)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.logger.Info("user logged in", zap.String("user_id", user.ID))
	return &Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user, Profile: profile}, nil
}

// Logout revokes the session until it would have expired.
func (s *AuthService) Logout(ctx context.Context, session *auth.Claims) error {
	if session == nil {
		return nil
	}
	if err := s.sessions.Revoke(ctx, session.ID, session.ExpiresAt.Time); err != nil {
		return apperrors.NewInternalError(err)
	}
	s.logger.Info("user logged out", zap.String("user_id", session.UserID()))
	return nil
}

// CreateSuperuser creates a verified staff superuser holding the admin role.
func (s *AuthService) CreateSuperuser(ctx context.Context, input RegisterInput) (*domain.User, error) {
	email := domain.NormalizeEmail(input.Email)
	username := strings.TrimSpace(input.Username)
	if err := requireFields(map[string]string{"email": email, "username": username, "password": input.Password}); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Email:        email,
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		IsStaff:      true,
		IsVerified:   true,
		IsSuperuser:  true,
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		if err := s.createUser(ctx, user); err != nil {
			return err
		}
		return s.profiles.Create(ctx, &domain.Profile{UserID: user.ID, Role: domain.RoleAdmin})
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	s.logger.Info("superuser created", zap.String("user_id", user.ID))
	return user, nil
}

// SetRole changes the role of the profile owned by email.
func (s *AuthService) SetRole(ctx context.Context, email, rawRole string) (*domain.Profile, error) {
	role, err := domain.ParseRole(strings.ToLower(strings.TrimSpace(rawRole)))
	if err != nil {
		return nil, apperrors.NewFieldError("role", err.Error())
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("user", map[string]any{"email": domain.NormalizeEmail(email)})
		}
		return nil, apperrors.MapError(err)
	}

	profile, err := s.profiles.GetByUserID(ctx, user.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperrors.NewNotFound("profile", nil)
		}
		return nil, apperrors.MapError(err)
	}

	old := profile.Role
	profile.Role = role
	if err := s.profiles.UpdateRole(ctx, profile); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("role changed",
		zap.String("profile_id", profile.ID),
		zap.String("old_role", string(old)),
		zap.String("new_role", string(role)))
	return profile, nil
}

func requireFields(fields map[string]string) error {
	details := map[string]any{}
	for name, value := range fields {
		if value == "" {
			details[name] = fmt.Sprintf("%s is required", name)
		}
	}
	if len(details) > 0 {
		return apperrors.NewValidationError("invalid input", details)
	}
	return nil
}
