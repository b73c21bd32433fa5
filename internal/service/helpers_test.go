package service

import (
	"context"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticketing-system/internal/auth"
	"github.com/spec-kit/ticketing-system/internal/config"
	"github.com/spec-kit/ticketing-system/internal/domain"
	"github.com/spec-kit/ticketing-system/internal/events"
	"github.com/spec-kit/ticketing-system/internal/mail"
	"github.com/spec-kit/ticketing-system/internal/repository/memory"
)

type mockSender struct {
	mock.Mock
	mu   sync.Mutex
	sent []mail.Message
}

func (m *mockSender) Send(ctx context.Context, msg mail.Message) error {
	args := m.Called(ctx, msg)
	if err := args.Error(0); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

func (m *mockSender) messages() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

type harness struct {
	cfg        config.Config
	store      *memory.Store
	sender     *mockSender
	clock      time.Time
	tokenMgr   *auth.TokenManager
	sessions   *auth.MemorySessionStore
	dispatcher events.Dispatcher
	published  []events.Event

	tokens   *TokenService
	emails   *EmailService
	auth     *AuthService
	tickets  *TicketService
	profiles *ProfileService
}

func testConfig() config.Config {
	return config.Config{
		App: config.AppConfig{Domain: "http://tickets.test"},
		Auth: config.AuthConfig{
			JWTSecret:                   "test-secret",
			SessionTTLMinutes:           60,
			SessionCookie:               "session",
			VerificationTokenTTLMinutes: 60,
			VerificationMaxAgeMinutes:   30,
			BcryptCost:                  bcrypt.MinCost,
		},
		Email: config.EmailConfig{
			Backend:             "console",
			From:                "noreply@tickets.test",
			RegistrationSubject: "Welcome to Our Service!",
		},
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := zap.NewNop()

	h := &harness{
		cfg:      testConfig(),
		store:    memory.NewStore(),
		sender:   &mockSender{},
		clock:    time.Now().UTC().Truncate(time.Second),
		sessions: auth.NewMemorySessionStore(),
	}
	h.tokenMgr = auth.NewTokenManager(h.cfg.Auth.JWTSecret).WithClock(func() time.Time { return h.clock })
	h.dispatcher = events.NewInMemoryDispatcher(logger)
	for _, et := range events.TicketEventTypes {
		h.dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			h.published = append(h.published, e)
			return nil
		})
	}

	h.tokens = NewTokenService(h.tokenMgr, h.store.Users(), h.cfg.App.Domain, logger)
	h.emails = NewEmailService(h.cfg, EmailDependencies{
		EmailRepo:    h.store.Emails(),
		Transactor:   h.store.Transactor(),
		Sender:       h.sender,
		TokenService: h.tokens,
		Logger:       logger,
	})
	h.emails.now = func() time.Time { return h.clock }
	h.auth = NewAuthService(h.cfg, AuthDependencies{
		UserRepo:     h.store.Users(),
		ProfileRepo:  h.store.Profiles(),
		Transactor:   h.store.Transactor(),
		EmailService: h.emails,
		TokenService: h.tokens,
		TokenManager: h.tokenMgr,
		Sessions:     h.sessions,
		Logger:       logger,
	})
	h.tickets = NewTicketService(TicketDependencies{
		TicketRepo:  h.store.Tickets(),
		ProfileRepo: h.store.Profiles(),
		HistoryRepo: h.store.TicketHistory(),
		Transactor:  h.store.Transactor(),
		Dispatcher:  h.dispatcher,
		Logger:      logger,
	})
	h.profiles = NewProfileService(h.store.Profiles(), h.store.Tickets())
	return h
}

func (h *harness) acceptMail() {
	h.sender.On("Send", mock.Anything, mock.AnythingOfType("mail.Message")).Return(nil)
}

// seedProfile creates a verified, active user with the given role.
func (h *harness) seedProfile(t *testing.T, username string, role domain.Role) *domain.Profile {
	t.Helper()
	ctx := context.Background()
	hash, err := auth.HashPassword("password", bcrypt.MinCost)
	require.NoError(t, err)

	user := &domain.User{
		Email:        username + "@tickets.test",
		Username:     username,
		PasswordHash: hash,
		IsActive:     true,
		IsVerified:   true,
	}
	require.NoError(t, h.store.Users().Create(ctx, user))
	profile := &domain.Profile{UserID: user.ID, Role: role}
	require.NoError(t, h.store.Profiles().Create(ctx, profile))
	profile.User = user
	return profile
}

func (h *harness) createTicket(t *testing.T, creator *domain.Profile, subject string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.CreateTicket(context.Background(), creator, TicketCreateInput{Subject: subject, Description: subject + " details"})
	require.NoError(t, err)
	return ticket
}

var verificationLink = regexp.MustCompile(`http://tickets\.test/verify-email/([A-Za-z0-9_\-.]+)`)

func tokenFromMessage(t *testing.T, msg mail.Message) string {
	t.Helper()
	m := verificationLink.FindStringSubmatch(msg.Text)
	require.Len(t, m, 2, "no verification link in %q", msg.Text)
	return m[1]
}
