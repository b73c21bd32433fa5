// Package app assembles the service from configuration. Both binaries and
// the HTTP tests build through it.
package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/ticketing-system/internal/api/http"
	"github.com/spec-kit/ticketing-system/internal/api/http/handlers"
	"github.com/spec-kit/ticketing-system/internal/auth"
	"github.com/spec-kit/ticketing-system/internal/config"
	"github.com/spec-kit/ticketing-system/internal/events"
	"github.com/spec-kit/ticketing-system/internal/mail"
	"github.com/spec-kit/ticketing-system/internal/observability"
	"github.com/spec-kit/ticketing-system/internal/persistence"
	"github.com/spec-kit/ticketing-system/internal/repository"
	"github.com/spec-kit/ticketing-system/internal/repository/memory"
	"github.com/spec-kit/ticketing-system/internal/service"
	"github.com/spec-kit/ticketing-system/internal/storage"
	"github.com/spec-kit/ticketing-system/internal/worker"
	"github.com/spec-kit/ticketing-system/migrations"
)

const minBodyLimit = 4 * 1024 * 1024

// Repositories groups the storage backends used by services.
type Repositories struct {
	Users      repository.UserRepository
	Profiles   repository.ProfileRepository
	Tickets    repository.TicketRepository
	Emails     repository.EmailRepository
	History    repository.TicketHistoryRepository
	Transactor repository.Transactor
}

// Container holds every long-lived component of the service.
type Container struct {
	Config     config.Config
	Logger     *zap.Logger
	Metrics    *observability.Metrics
	Postgres   *persistence.Postgres
	Redis      *persistence.Redis
	Repos      Repositories
	Tokens     *auth.TokenManager
	Sessions   auth.SessionStore
	Dispatcher events.Dispatcher
	Emails     *service.EmailService
	Auth       *service.AuthService
	Tickets    *service.TicketService
	Profiles   *service.ProfileService
}

type options struct {
	sender mail.Sender
	store  *memory.Store
}

// Option customizes container construction.
type Option func(*options)

// WithSender replaces the configured mail transport.
func WithSender(sender mail.Sender) Option {
	return func(o *options) { o.sender = sender }
}

// WithMemoryStore forces the in-memory backend and shares store with the caller.
func WithMemoryStore(store *memory.Store) Option {
	return func(o *options) { o.store = store }
}

// New connects backends and builds services. Postgres is used when a DSN is
// configured, otherwise everything lives in memory.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*Container, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}

	if o.store == nil {
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		c.Postgres = pg
	} else {
		c.Postgres = &persistence.Postgres{}
	}

	if c.Postgres.Configured() {
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, c.Postgres.PoolHandle(), migrations.FS, logger); err != nil {
				c.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		c.Repos = postgresRepositories(c.Postgres)
	} else {
		store := o.store
		if store == nil {
			store = memory.NewStore()
		}
		c.Repos = memoryRepositories(store)
	}

	c.Redis = persistence.NewRedis(ctx, cfg.Redis, logger)
	if c.Redis.Configured() {
		c.Sessions = auth.NewRedisSessionStore(c.Redis.Client)
	} else {
		c.Sessions = auth.NewMemorySessionStore()
	}

	sender := o.sender
	if sender == nil {
		var err error
		if sender, err = mail.NewSender(cfg.Email, logger); err != nil {
			c.Close()
			return nil, fmt.Errorf("build mail sender: %w", err)
		}
	}

	c.Tokens = auth.NewTokenManager(cfg.Auth.JWTSecret)
	c.Dispatcher = events.NewInMemoryDispatcher(logger, events.WithFailureHook(worker.FailureCounter(c.Metrics)))
	worker.NewNotificationWorker(service.NewNotificationService(logger, c.Metrics), logger).Start(c.Dispatcher)

	tokenService := service.NewTokenService(c.Tokens, c.Repos.Users, cfg.App.Domain, logger)
	c.Emails = service.NewEmailService(cfg, service.EmailDependencies{
		EmailRepo:    c.Repos.Emails,
		Transactor:   c.Repos.Transactor,
		Sender:       sender,
		TokenService: tokenService,
		Logger:       logger,
	})
	c.Auth = service.NewAuthService(cfg, service.AuthDependencies{
		UserRepo:     c.Repos.Users,
		ProfileRepo:  c.Repos.Profiles,
		Transactor:   c.Repos.Transactor,
		EmailService: c.Emails,
		TokenService: tokenService,
		TokenManager: c.Tokens,
		Sessions:     c.Sessions,
		Logger:       logger,
	})
	c.Tickets = service.NewTicketService(service.TicketDependencies{
		TicketRepo:  c.Repos.Tickets,
		ProfileRepo: c.Repos.Profiles,
		HistoryRepo: c.Repos.History,
		Transactor:  c.Repos.Transactor,
		Files:       storage.NewFileStore(cfg.Storage.MediaRoot, int64(cfg.Storage.MaxUploadBytes)),
		Dispatcher:  c.Dispatcher,
		Logger:      logger,
	})
	c.Profiles = service.NewProfileService(c.Repos.Profiles, c.Repos.Tickets)
	return c, nil
}

func postgresRepositories(pg *persistence.Postgres) Repositories {
	pool := pg.PoolHandle()
	return Repositories{
		Users:      repository.NewUserRepository(pool),
		Profiles:   repository.NewProfileRepository(pool),
		Tickets:    repository.NewTicketRepository(pool),
		Emails:     repository.NewEmailRepository(pool),
		History:    repository.NewTicketHistoryRepository(pool),
		Transactor: repository.NewTransactor(pool),
	}
}

func memoryRepositories(store *memory.Store) Repositories {
	return Repositories{
		Users:      store.Users(),
		Profiles:   store.Profiles(),
		Tickets:    store.Tickets(),
		Emails:     store.Emails(),
		History:    store.TicketHistory(),
		Transactor: store.Transactor(),
	}
}

// HTTPApp builds the fiber application with middleware and routes.
func (c *Container) HTTPApp() *fiber.App {
	bodyLimit := c.Config.Storage.MaxUploadBytes + 1024*1024
	if bodyLimit < minBodyLimit {
		bodyLimit = minBodyLimit
	}

	app := fiber.New(fiber.Config{
		AppName:   c.Config.App.Name,
		BodyLimit: bodyLimit,
	})
	httptransport.RegisterMiddlewares(app, c.Logger, c.Metrics, c.Config.App.RequestTimeout())

	secureCookie := strings.HasPrefix(c.Config.App.Domain, "https://")
	backends := map[string]handlers.Backend{"postgres": c.Postgres, "redis": c.Redis}
	authMiddleware := auth.NewAuthMiddleware(c.Tokens, c.Sessions, c.Repos.Users, c.Repos.Profiles, c.Config.Auth.SessionCookie, c.Logger)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(c.Config.App.Name, c.Config.App.Version, backends, c.Metrics),
		Auth:           handlers.NewAuthHandler(c.Auth, c.Config.Auth.SessionCookie, secureCookie),
		Tickets:        handlers.NewTicketsHandler(c.Tickets),
		Profiles:       handlers.NewProfileHandler(c.Profiles),
		AuthMiddleware: authMiddleware,
	})
	return app
}

// Close releases backend connections.
func (c *Container) Close() {
	if c.Redis != nil {
		c.Redis.Close()
	}
	if c.Postgres != nil {
		c.Postgres.Close()
	}
}
