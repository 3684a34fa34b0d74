package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the reference server's runtime settings, loaded from the
// environment with an optional .env file.
type Config struct {
	HTTPAddr      string
	DatabaseURL   string
	RedisURL      string
	JWTSecret     string
	JWTIssuer     string
	TokenValidity time.Duration
}

// Load reads configuration from environment variables. A missing .env file is
// not an error; missing required variables are.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8080"),
		DatabaseURL:   strings.TrimSpace(os.Getenv("DB_URL")),
		RedisURL:      strings.TrimSpace(os.Getenv("REDIS_URL")),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		JWTIssuer:     getenv("JWT_ISSUER", "go-parley"),
		TokenValidity: 24 * time.Hour,
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DB_URL environment variable is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET environment variable is not set")
	}
	if v := strings.TrimSpace(os.Getenv("TOKEN_VALIDITY")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.New("config: TOKEN_VALIDITY is not a duration")
		}
		cfg.TokenValidity = d
	}
	return cfg, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
