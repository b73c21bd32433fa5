package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Email    EmailConfig
	Storage  StorageConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	Domain                string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory store.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr keeps sessions in memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is "json" or "console".
	Format string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                   string
	SessionTTLMinutes           int
	SessionCookie               string
	VerificationTokenTTLMinutes int
	VerificationMaxAgeMinutes   int
	BcryptCost                  int
}

// EmailConfig configures outbound email.
type EmailConfig struct {
	Backend             string
	From                string
	RegistrationSubject string
	SMTPHost            string
	SMTPPort            int
	SMTPUsername        string
	SMTPPassword        string
}

// StorageConfig configures attachment storage.
type StorageConfig struct {
	MediaRoot      string
	MaxUploadBytes int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticketing-system"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			Domain:                strings.TrimRight(getEnv("APP_DOMAIN", "http://localhost:8080"), "/"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Auth: AuthConfig{
			JWTSecret:                   getEnv("AUTH_JWT_SECRET", "dev-secret"),
			SessionTTLMinutes:           getEnvAsInt("AUTH_SESSION_TTL_MINUTES", 24*60),
			SessionCookie:               getEnv("AUTH_SESSION_COOKIE", "session"),
			VerificationTokenTTLMinutes: getEnvAsInt("AUTH_VERIFICATION_TOKEN_TTL_MINUTES", 30),
			VerificationMaxAgeMinutes:   getEnvAsInt("AUTH_VERIFICATION_MAX_AGE_MINUTES", 30),
			BcryptCost:                  getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Email: EmailConfig{
			Backend:             getEnv("EMAIL_BACKEND", "console"),
			From:                getEnv("EMAIL_FROM", "noreply@example.com"),
			RegistrationSubject: getEnv("EMAIL_REGISTRATION_SUBJECT", "Welcome to Our Service!"),
			SMTPHost:            os.Getenv("EMAIL_SMTP_HOST"),
			SMTPPort:            getEnvAsInt("EMAIL_SMTP_PORT", 587),
			SMTPUsername:        os.Getenv("EMAIL_SMTP_USER"),
			SMTPPassword:        os.Getenv("EMAIL_SMTP_PASSWORD"),
		},
		Storage: StorageConfig{
			MediaRoot:      getEnv("MEDIA_ROOT", "./media"),
			MaxUploadBytes: getEnvAsInt("MEDIA_MAX_UPLOAD_BYTES", 10*1024*1024),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("AUTH_JWT_SECRET must not be empty")
	}
	if c.App.Env == "production" && c.Auth.JWTSecret == "dev-secret" {
		return fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}
	switch c.Email.Backend {
	case "console":
	case "smtp":
		if c.Email.SMTPHost == "" {
			return fmt.Errorf("EMAIL_SMTP_HOST is required for the smtp backend")
		}
	default:
		return fmt.Errorf("unknown EMAIL_BACKEND %q", c.Email.Backend)
	}
	return nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// SessionTTL returns the lifetime of login sessions.
func (a AuthConfig) SessionTTL() time.Duration {
	return minutes(a.SessionTTLMinutes, 24*60)
}

// VerificationTokenTTL returns the expiry embedded in verification tokens.
func (a AuthConfig) VerificationTokenTTL() time.Duration {
	return minutes(a.VerificationTokenTTLMinutes, 30)
}

// VerificationMaxAge returns the freshness window enforced when verifying.
func (a AuthConfig) VerificationMaxAge() time.Duration {
	return minutes(a.VerificationMaxAgeMinutes, 30)
}

func minutes(val, fallback int) time.Duration {
	if val <= 0 {
		val = fallback
	}
	return time.Duration(val) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
