package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const defaultJWTSecret = "change-me-jwt-secret"

type Config struct {
	AppEnv   string `envconfig:"APP_ENV" default:"dev"`
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`

	DatabaseURL string `envconfig:"DATABASE_URL" default:"teesheet.db"`

	JWTSecret string        `envconfig:"JWT_SECRET" default:"change-me-jwt-secret"`
	JWTTTL    time.Duration `envconfig:"JWT_TTL" default:"12h"`

	// Empty addresses fall back to in-process implementations.
	RedisAddr    string `envconfig:"REDIS_ADDR"`
	AMQPURL      string `envconfig:"AMQP_URL"`
	AMQPExchange string `envconfig:"AMQP_EXCHANGE" default:"teesheet"`

	OmisePublicKey  string        `envconfig:"OMISE_PUBLIC_KEY"`
	OmiseSecretKey  string        `envconfig:"OMISE_SECRET_KEY"`
	PaymentCurrency string        `envconfig:"PAYMENT_CURRENCY" default:"thb"`
	PaymentTimeout  time.Duration `envconfig:"PAYMENT_TIMEOUT" default:"20s"`

	DraftLeaseTTL     time.Duration `envconfig:"DRAFT_LEASE_TTL" default:"2m"`
	SettlementHoldTTL time.Duration `envconfig:"SETTLEMENT_HOLD_TTL" default:"60s"`
	NoShowGrace       time.Duration `envconfig:"NO_SHOW_GRACE" default:"15m"`

	OTelEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTelEndpoint string `envconfig:"OTEL_ENDPOINT" default:"otel-collector:4317"`

	CORSAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS"`
}

// Load reads .env (if present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.AppEnv = strings.ToLower(strings.TrimSpace(cfg.AppEnv))
	cfg.PaymentCurrency = strings.ToLower(strings.TrimSpace(cfg.PaymentCurrency))

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	log.Printf("config loaded: env=%s addr=%s redis=%t amqp=%t omise=%t otel=%t",
		cfg.AppEnv, cfg.HTTPAddr, cfg.RedisAddr != "", cfg.AMQPURL != "", cfg.OmiseSecretKey != "", cfg.OTelEnabled)

	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.PaymentTimeout <= 0 {
		return fmt.Errorf("PAYMENT_TIMEOUT must be > 0")
	}
	if cfg.DraftLeaseTTL <= 0 {
		return fmt.Errorf("DRAFT_LEASE_TTL must be > 0")
	}
	if cfg.SettlementHoldTTL <= cfg.PaymentTimeout {
		return fmt.Errorf("SETTLEMENT_HOLD_TTL must exceed PAYMENT_TIMEOUT")
	}
	if cfg.NoShowGrace < 0 {
		return fmt.Errorf("NO_SHOW_GRACE must be >= 0")
	}
	if cfg.PaymentCurrency == "" {
		return fmt.Errorf("PAYMENT_CURRENCY must not be empty")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if strings.TrimSpace(cfg.OmisePublicKey) == "" || strings.TrimSpace(cfg.OmiseSecretKey) == "" {
			return fmt.Errorf("in prod/release OMISE_PUBLIC_KEY and OMISE_SECRET_KEY must be set")
		}
		if strings.TrimSpace(cfg.RedisAddr) == "" {
			return fmt.Errorf("in prod/release REDIS_ADDR must be set")
		}
	}

	return nil
}

func (c *Config) ProdLike() bool { return isProdLike(c.AppEnv) }

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}
