package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the API and the taskctl client.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	Client       ClientConfig
	Session      SessionConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string `env:"APP_NAME" envDefault:"task-manager-api"`
	Env                   string `env:"APP_ENV" envDefault:"development"`
	Host                  string `env:"APP_HOST" envDefault:"0.0.0.0"`
	Port                  string `env:"APP_PORT" envDefault:"8080"`
	Version               string `env:"APP_VERSION" envDefault:"dev"`
	RequestTimeoutSeconds int    `env:"HTTP_REQUEST_TIMEOUT_SECONDS" envDefault:"30"`
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string `env:"POSTGRES_DSN"`
	MaxConns       int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	MinConns       int32  `env:"POSTGRES_MIN_CONNS" envDefault:"2"`
	RunMigrations  bool   `env:"POSTGRES_RUN_MIGRATIONS" envDefault:"true"`
	ConnMaxIdleSec int32  `env:"POSTGRES_CONN_MAX_IDLE_SECONDS" envDefault:"30"`
	ConnMaxLifeSec int32  `env:"POSTGRES_CONN_MAX_LIFE_SECONDS" envDefault:"300"`
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR" envDefault:"127.0.0.1:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level  string `env:"LOG_LEVEL" envDefault:"info"`
	Output string `env:"LOG_OUTPUT" envDefault:"stdout"`
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret                   string `env:"AUTH_JWT_SECRET" envDefault:"dev-secret"`
	AccessTokenTTLMinutes       int    `env:"AUTH_ACCESS_TOKEN_TTL_MINUTES" envDefault:"60"`
	PasswordResetTTLMinutes     int    `env:"AUTH_PASSWORD_RESET_TTL_MINUTES" envDefault:"30"`
	EmailVerificationTTLMinutes int    `env:"AUTH_EMAIL_VERIFICATION_TTL_MINUTES" envDefault:"1440"`
	BcryptCost                  int    `env:"AUTH_BCRYPT_COST" envDefault:"12"`
	PhoneRegion                 string `env:"AUTH_PHONE_REGION" envDefault:"US"`
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string `env:"NOTIFY_EMAIL_FROM" envDefault:"noreply@example.com"`
	WebhookURL string `env:"NOTIFY_WEBHOOK_URL"`
}

// RateLimitConfig bounds credential endpoint traffic per client IP.
type RateLimitConfig struct {
	RequestsPerSecond int `env:"RATE_LIMIT_RPS" envDefault:"5"`
	Burst             int `env:"RATE_LIMIT_BURST" envDefault:"10"`
}

// ClientConfig configures the taskctl connection to the API.
type ClientConfig struct {
	BaseURL              string        `env:"TASKCTL_API_URL" envDefault:"http://localhost:8080"`
	Timeout              time.Duration `env:"TASKCTL_TIMEOUT" envDefault:"15s"`
	BreakerFailureRatio  float64       `env:"TASKCTL_BREAKER_FAILURE_RATIO" envDefault:"0.5"`
	BreakerMinRequests   uint32        `env:"TASKCTL_BREAKER_MIN_REQUESTS" envDefault:"5"`
	BreakerOpenTimeout   time.Duration `env:"TASKCTL_BREAKER_OPEN_TIMEOUT" envDefault:"30s"`
	BreakerCountInterval time.Duration `env:"TASKCTL_BREAKER_INTERVAL" envDefault:"60s"`
}

// Credential store backends.
const (
	StoreFile   = "file"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// Startup policies for a persisted session.
const (
	StartupTrustCache = "trust-cache"
	StartupRevalidate = "revalidate"
)

// SessionConfig selects where the client session is persisted.
type SessionConfig struct {
	Store         string        `env:"TASKCTL_SESSION_STORE" envDefault:"file"`
	Path          string        `env:"TASKCTL_SESSION_PATH"`
	RedisPrefix   string        `env:"TASKCTL_SESSION_REDIS_PREFIX" envDefault:"taskctl:session"`
	RedisTTL      time.Duration `env:"TASKCTL_SESSION_REDIS_TTL" envDefault:"0s"`
	StartupPolicy string        `env:"TASKCTL_SESSION_STARTUP" envDefault:"trust-cache"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Session.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
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

// AccessTokenTTL returns the bearer token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return minutes(a.AccessTokenTTLMinutes, 60)
}

// PasswordResetTTL returns the password reset token lifetime.
func (a AuthConfig) PasswordResetTTL() time.Duration {
	return minutes(a.PasswordResetTTLMinutes, 30)
}

// EmailVerificationTTL returns the email verification token lifetime.
func (a AuthConfig) EmailVerificationTTL() time.Duration {
	return minutes(a.EmailVerificationTTLMinutes, 24*60)
}

// FilePath returns the credential file location, defaulting under the user config dir.
func (s SessionConfig) FilePath() (string, error) {
	if s.Path != "" {
		return s.Path, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(dir, "taskctl", "session.json"), nil
}

func (s SessionConfig) validate() error {
	switch s.Store {
	case StoreFile, StoreRedis, StoreMemory:
	default:
		return fmt.Errorf("invalid TASKCTL_SESSION_STORE %q", s.Store)
	}
	switch s.StartupPolicy {
	case StartupTrustCache, StartupRevalidate:
	default:
		return fmt.Errorf("invalid TASKCTL_SESSION_STARTUP %q", s.StartupPolicy)
	}
	return nil
}

func minutes(val, fallback int) time.Duration {
	if val <= 0 {
		val = fallback
	}
	return time.Duration(val) * time.Minute
}
