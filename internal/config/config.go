package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

var ErrMissing = errors.New("required setting is not set")

// Config holds environment-driven configuration.
type Config struct {
	Addr            string
	DatabaseURL     string
	JWTSecret       string
	TokenTTL        time.Duration
	LogLevel        string
	MediaDir        string
	AllowOrigins    string
	SessionCookie   string
	SessionTTL      time.Duration
	JanitorInterval time.Duration
}

// Load reads configuration from environment variables. DATABASE_URL and
// JWT_SECRET are mandatory, everything else falls back to a default.
func Load() (Config, error) {
	cfg := Config{
		Addr:          getenv("MARKETPLACE_ADDR", ":8080"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		LogLevel:      getenv("LOG_LEVEL", "info"),
		MediaDir:      getenv("MEDIA_DIR", "./media"),
		AllowOrigins:  getenv("CORS_ALLOW_ORIGINS", "*"),
		SessionCookie: getenv("SESSION_COOKIE", "sessionid"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("DATABASE_URL: %w", ErrMissing)
	}
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET: %w", ErrMissing)
	}

	var err error
	if cfg.TokenTTL, err = duration("TOKEN_TTL", 72*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.SessionTTL, err = duration("SESSION_TTL", 14*24*time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.JanitorInterval, err = duration("BASKET_JANITOR_INTERVAL", time.Hour); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func duration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
