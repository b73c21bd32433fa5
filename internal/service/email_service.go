package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticketing-system/internal/auth"
	"github.com/spec-kit/ticketing-system/internal/config"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/mail"
	"github.com/spec-kit/ticketing-system/internal/repository"
)

// VerificationPath is the route that consumes verification tokens.
const VerificationPath = "/verify-email"

// EmailDeliveryError reports a transport failure. Email holds the record as
// it stood after being marked failed.
type EmailDeliveryError struct {
	Email *domain.Email
	Err   error
}

func (e *EmailDeliveryError) Error() string {
	return fmt.Sprintf("failed to send email: %v", e.Err)
}

func (e *EmailDeliveryError) Unwrap() error {
	return e.Err
}

// EmailService composes, records and delivers outbound email.
type EmailService struct {
	emails          repository.EmailRepository
	tx              repository.Transactor
	sender          mail.Sender
	tokens          *TokenService
	cfg             config.EmailConfig
	verificationTTL time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

// EmailDependencies bundles collaborators for the email service.
type EmailDependencies struct {
	EmailRepo    repository.EmailRepository
	Transactor   repository.Transactor
	Sender       mail.Sender
	TokenService *TokenService
	Logger       *zap.Logger
}

// NewEmailService builds the service.
func NewEmailService(cfg config.Config, deps EmailDependencies) *EmailService {
	return &EmailService{
		emails:          deps.EmailRepo,
		tx:              deps.Transactor,
		sender:          deps.Sender,
		tokens:          deps.TokenService,
		cfg:             cfg.Email,
		verificationTTL: cfg.Auth.VerificationTokenTTL(),
		logger:          deps.Logger,
		now:             time.Now,
	}
}

// Create records a new email in the READY state.
func (s *EmailService) Create(ctx context.Context, from, to, subject, message, html string) (*domain.Email, error) {
	email := &domain.Email{
		Status:  domain.EmailStatusReady,
		From:    from,
		To:      to,
		Subject: subject,
		Message: message,
		HTML:    html,
	}
	if err := s.emails.Create(ctx, email); err != nil {
		return nil, fmt.Errorf("create email: %w", err)
	}
	return email, nil
}

// MarkSending moves a READY email to SENDING.
func (s *EmailService) MarkSending(ctx context.Context, email *domain.Email) error {
	if err := email.MarkSending(); err != nil {
		return err
	}
	return s.emails.Update(ctx, email)
}

// Send delivers a SENDING email. On success it becomes SENT with sent_at set;
// on transport failure it becomes FAILED and an *EmailDeliveryError is returned.
func (s *EmailService) Send(ctx context.Context, email *domain.Email) error {
	if email.Status != domain.EmailStatusSending {
		return &domain.EmailTransitionError{Action: "send non-sending", Status: email.Status}
	}

	err := s.sender.Send(ctx, mail.Message{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Text:    email.Message,
		HTML:    email.HTML,
	})
	if err != nil {
		s.logger.Error("email delivery failed", zap.String("email_id", email.ID), zap.Error(err))
		if failErr := s.fail(ctx, email); failErr != nil {
			return fmt.Errorf("mark email failed: %w", failErr)
		}
		return &EmailDeliveryError{Email: email, Err: err}
	}

	if err := email.MarkSent(s.now()); err != nil {
		return err
	}
	if err := s.emails.Update(ctx, email); err != nil {
		return fmt.Errorf("update email: %w", err)
	}
	s.logger.Info("email sent", zap.String("email_id", email.ID), zap.String("subject", email.Subject))
	return nil
}

func (s *EmailService) fail(ctx context.Context, email *domain.Email) error {
	if err := email.MarkFailed(); err != nil {
		return err
	}
	return s.emails.Update(ctx, email)
}

// RecordFailure stores a copy of a failed email outside any rolled back unit
// of work so the delivery attempt stays auditable.
func (s *EmailService) RecordFailure(ctx context.Context, failed *domain.Email) error {
	record := *failed
	record.ID = ""
	record.Status = domain.EmailStatusFailed
	record.SentAt = nil
	return s.emails.Create(ctx, &record)
}

// SendRegistrationEmail composes and delivers the verification email for user
// as one unit of work. On delivery failure the unit is rolled back and the
// returned *EmailDeliveryError carries the failed record for RecordFailure.
func (s *EmailService) SendRegistrationEmail(ctx context.Context, user *domain.User) (*domain.Email, error) {
	verificationURL, err := s.tokens.GenerateURL(user, auth.PurposeVerification, s.verificationTTL, VerificationPath)
	if err != nil {
		return nil, err
	}

	text, html, err := renderRegistrationEmail(registrationEmailData{
		Username:        user.Username,
		VerificationURL: verificationURL,
	})
	if err != nil {
		return nil, fmt.Errorf("render registration email: %w", err)
	}

	var email *domain.Email
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		var err error
		email, err = s.Create(ctx, s.cfg.From, user.Email, s.cfg.RegistrationSubject, text, html)
		if err != nil {
			return err
		}
		if err := s.MarkSending(ctx, email); err != nil {
			return err
		}
		return s.Send(ctx, email)
	})
	if err != nil {
		return email, err
	}

	s.logger.Info("registration email sent", zap.String("user_id", user.ID), zap.String("email_id", email.ID))
	return email, nil
}
