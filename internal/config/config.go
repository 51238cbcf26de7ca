package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName        = "KoboPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultCurrency       = "NGN"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 7 * 24 * time.Hour
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName           string
	Env               string
	Port              string
	LogLevel          string
	Currency          string
	DatabaseURL       string
	RedisURL          string
	JWTSecret         string
	RefreshSecret     string
	AccessTokenTTL    time.Duration
	RefreshTokenTTL   time.Duration
	PaystackSecretKey string
	PaystackBaseURL   string
	AppURL            string
	ShutdownPeriod    time.Duration
	IdempotencyTTL    time.Duration
}

// Load reads configuration from the environment (and an optional .env file)
// and populates a Config instance.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		Env:               strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		Currency:          getEnv("WALLET_CURRENCY", defaultCurrency),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		RefreshSecret:     os.Getenv("REFRESH_SECRET"),
		PaystackSecretKey: os.Getenv("PAYSTACK_SECRET_KEY"),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		AppURL:            getEnv("APP_URL", "http://localhost:8080"),
		AccessTokenTTL:    defaultAccessTTL,
		RefreshTokenTTL:   defaultRefreshTTL,
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}

	if cfg.RefreshSecret == "" {
		cfg.RefreshSecret = cfg.JWTSecret
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.JWTSecret == "" {
			return Config{}, fmt.Errorf("JWT_SECRET must be set")
		}
		if cfg.PaystackSecretKey == "" {
			return Config{}, fmt.Errorf("PAYSTACK_SECRET_KEY must be set")
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a local/development environment.
func (c Config) IsDev() bool {
	switch c.Env {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

// durationEnv reads a duration either as NAME (Go duration syntax) or
// NAME_SECONDS (integer seconds), preferring the seconds form when both are set.
func durationEnv(name string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(name + "_SECONDS"); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s_SECONDS: %w", name, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(name); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", name, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
