// Package cli provides common CLI initialization utilities shared by
// cmd/animaldash and cmd/oauth-init.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"animaldash/internal/config"
	applog "animaldash/internal/log"
)

// SetupLogger initializes structured logging from LOG_LEVEL and LOG_FORMAT
// and installs it as the default logger.
func SetupLogger(level, format string) *applog.Logger {
	lvl, err := applog.ParseLevel(level)
	cfg := applog.DefaultConfig()
	cfg.Level = lvl
	cfg.Format = format

	logger := applog.New(cfg)
	applog.SetDefault(logger)
	if err != nil {
		logger.Warn("Falling back to info level", "error", err)
	}
	return logger
}

// LoadEnvFile loads .env files for local development. A missing file is
// not an error; a malformed one is.
func LoadEnvFile(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	var existing []string
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			existing = append(existing, p)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// LoadAndValidateConfig loads configuration and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
