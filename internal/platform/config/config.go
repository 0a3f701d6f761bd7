package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const devJWTSecret = "dev-secret-key-change-in-production"

// Config captures process level configuration loaded from the environment.
type Config struct {
	Addr        string `env:"PORTAL_ADDR" envDefault:":8080"`
	Environment string `env:"PORTAL_ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	Session     SessionConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Kafka       KafkaConfig
	S3          S3Config
	Application ApplicationConfig
	RateLimit   RateLimitConfig

	// TrustedProxies lists CIDRs whose X-Forwarded-For is believed.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`

	OTELEndpoint   string        `env:"OTEL_ENDPOINT"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// SessionConfig configures session token issuance.
type SessionConfig struct {
	JWTSecret string        `env:"JWT_SECRET"`
	TTL       time.Duration `env:"SESSION_TTL" envDefault:"168h"`
	Issuer    string        `env:"SESSION_ISSUER" envDefault:"govportal"`
}

// DatabaseConfig selects Postgres. An empty URL selects the in-memory stores.
type DatabaseConfig struct {
	URL          string        `env:"DATABASE_URL"`
	Driver       string        `env:"DATABASE_DRIVER" envDefault:"postgres"`
	MaxOpenConns int           `env:"DATABASE_MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int           `env:"DATABASE_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLife  time.Duration `env:"DATABASE_CONN_MAX_LIFETIME" envDefault:"30m"`
	TxTimeout    time.Duration `env:"DATABASE_TX_TIMEOUT" envDefault:"5s"`
}

// RedisConfig configures the shared Redis client used by the limiter and revocation list.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE" envDefault:"10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT" envDefault:"5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT" envDefault:"3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT" envDefault:"3s"`
}

// KafkaConfig configures the audit outbox publisher. No brokers disables publishing.
type KafkaConfig struct {
	Brokers        []string      `env:"KAFKA_BROKERS" envSeparator:","`
	AuditTopic     string        `env:"KAFKA_AUDIT_TOPIC" envDefault:"portal.audit"`
	PollInterval   time.Duration `env:"OUTBOX_POLL_INTERVAL" envDefault:"2s"`
	OutboxBatch    int           `env:"OUTBOX_BATCH_SIZE" envDefault:"100"`
	TopicPartition int32         `env:"KAFKA_AUDIT_PARTITIONS" envDefault:"3"`
}

// S3Config configures presigned document uploads. No bucket disables the upload intake.
type S3Config struct {
	Bucket    string        `env:"S3_BUCKET"`
	Region    string        `env:"S3_REGION" envDefault:"us-east-1"`
	Endpoint  string        `env:"S3_ENDPOINT"`
	AccessKey string        `env:"S3_ACCESS_KEY"`
	SecretKey string        `env:"S3_SECRET_KEY"`
	URLExpiry time.Duration `env:"S3_URL_EXPIRY" envDefault:"15m"`
}

// ApplicationConfig bounds the license application form.
type ApplicationConfig struct {
	MaxSteps int `env:"APPLICATION_MAX_STEPS" envDefault:"4"`
}

// RateLimitConfig bounds login attempts per email and client IP.
type RateLimitConfig struct {
	LoginLimit      int           `env:"LOGIN_RATE_LIMIT" envDefault:"10"`
	LoginEmailLimit int           `env:"LOGIN_EMAIL_RATE_LIMIT" envDefault:"50"`
	LoginWindow     time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"15m"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// FromEnv builds the Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// IsProduction reports whether the portal runs in production mode.
func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// Validate fills development defaults and rejects unusable settings.
func (c *Config) Validate() error {
	if c.Session.JWTSecret == "" {
		if c.IsProduction() {
			return errors.New("JWT_SECRET is required in production")
		}
		c.Session.JWTSecret = devJWTSecret
	}
	if c.Session.TTL <= 0 {
		return errors.New("SESSION_TTL must be positive")
	}
	if c.Application.MaxSteps <= 0 {
		return errors.New("APPLICATION_MAX_STEPS must be positive")
	}
	if c.RateLimit.LoginLimit <= 0 || c.RateLimit.LoginWindow <= 0 {
		return errors.New("LOGIN_RATE_LIMIT and LOGIN_RATE_WINDOW must be positive")
	}
	if c.RateLimit.LoginEmailLimit < 0 {
		return errors.New("LOGIN_EMAIL_RATE_LIMIT must not be negative")
	}
	switch c.Database.Driver {
	case "postgres", "pgx":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", c.Database.Driver)
	}
	return nil
}
