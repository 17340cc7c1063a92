package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"

	"github.com/dmitrymomot/permalink/internal/jobs"
	"github.com/dmitrymomot/permalink/pkg/db"
	"github.com/dmitrymomot/permalink/pkg/logger"
	"github.com/dmitrymomot/permalink/pkg/storage"
)

// Config is the full application configuration, assembled from the
// environment.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" envDefault:":8080"`

	// Shared secret for verifying identity-service tokens.
	AuthJWTSecret string `env:"AUTH_JWT_SECRET,required"`

	// Optional. When unset, redirect caching falls back to in-process
	// memory, suitable for single-instance deployments only.
	RedisURL string `env:"REDIS_URL"`

	Database db.Config
	Storage  storage.Config
	Logger   logger.Config
	Jobs     jobs.Config
}

// Load parses the configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	return cfg, nil
}
