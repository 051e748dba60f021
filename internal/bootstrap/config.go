package bootstrap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/agentqa/qa-dashboard/config"
)

// InitLogger installs a JSON slog handler on stdout as the process default.
func InitLogger() *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)
	return logger
}

// LoadConfig reads .env (when present) and the process environment into an AppConfig,
// then sanitizes and validates it.
func LoadConfig() (config.AppConfig, error) {
	var cfg config.AppConfig

	if err := godotenv.Load(); err != nil {
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
			return cfg, fmt.Errorf("load .env: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse env: %w", err)
	}
	cfg.Sanitize()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// GetEnabledServices returns the enabled service modes as strings for logging.
func GetEnabledServices(cfg *config.AppConfig) []string {
	enabled, err := cfg.GetEnabledServices()
	if err != nil {
		return nil
	}
	out := make([]string, 0, len(enabled))
	for _, mode := range config.ValidServiceModes() {
		if enabled[mode] {
			out = append(out, string(mode))
		}
	}
	return out
}
