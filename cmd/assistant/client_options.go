package main

import (
	"strings"

	assistant "github.com/Bilal-khan980/semantic-search-assistant"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/config"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/log"
)

// clientOptions returns the assistant.Option slice derived from AppConfig:
// backend connection, tracking behavior, and journal storage. Callers
// append entrypoint-specific options (relay config, extra reporters)
// before passing the full slice to assistant.New.
func clientOptions(cfg config.AppConfig, logger *log.Logger) []assistant.Option {
	opts := []assistant.Option{
		assistant.WithBackendConfig(cfg.Backend()),
		assistant.WithLogger(logger.Slog()),
	}

	tr := cfg.Tracking()
	opts = append(opts,
		assistant.WithPollInterval(tr.PollInterval()),
		assistant.WithMaxPollAttempts(tr.MaxPollAttempts()),
	)
	if !tr.PreferStreaming() {
		opts = append(opts, assistant.WithPollingOnly())
	}

	opts = append(opts, storageOptions(cfg)...)
	return opts
}

// storageOptions returns the assistant.Option for the configured journal
// database.
func storageOptions(cfg config.AppConfig) []assistant.Option {
	dbURL := cfg.DBURL()
	if dbURL == "" {
		return nil
	}
	if isSQLite(dbURL) {
		path := strings.TrimPrefix(dbURL, "sqlite:///")
		if path == dbURL {
			path = strings.TrimPrefix(dbURL, "sqlite:")
		}
		return []assistant.Option{assistant.WithSQLite(path)}
	}
	return []assistant.Option{assistant.WithPostgres(dbURL)}
}

func isSQLite(dbURL string) bool {
	return strings.HasPrefix(dbURL, "sqlite:")
}
