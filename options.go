package assistant

import (
	"io"
	"log/slog"
	"time"

	"github.com/Bilal-khan980/semantic-search-assistant/infrastructure/tracking"
	"github.com/Bilal-khan980/semantic-search-assistant/internal/config"
)

// clientConfig holds configuration for Client construction.
// Use newClientConfig() to create with defaults from internal/config.
type clientConfig struct {
	backend  config.BackendConfig
	tracking config.TrackingConfig
	relay    config.RelayConfig
	dbURL    string

	logger    *slog.Logger
	reporters []tracking.Reporter
	closers   []io.Closer
}

// newClientConfig creates a clientConfig with defaults from internal/config.
func newClientConfig() *clientConfig {
	return &clientConfig{
		backend:  config.NewBackendConfig(),
		tracking: config.NewTrackingConfig(),
		relay:    config.NewRelayConfig(),
	}
}

// Option configures the Client.
type Option func(*clientConfig)

// WithBackendURL sets the base URL of the backend process.
func WithBackendURL(url string) Option {
	return func(c *clientConfig) {
		c.backend = config.NewBackendConfigWithOptions(
			config.WithBaseURL(url),
			config.WithTimeout(c.backend.Timeout()),
			config.WithMaxRetries(c.backend.MaxRetries()),
			config.WithInitialDelay(c.backend.InitialDelay()),
			config.WithBackoffFactor(c.backend.BackoffFactor()),
		)
	}
}

// WithBackendConfig replaces the whole backend configuration.
func WithBackendConfig(cfg config.BackendConfig) Option {
	return func(c *clientConfig) {
		c.backend = cfg
	}
}

// WithSQLite stores the task journal in a SQLite file at the given path.
func WithSQLite(path string) Option {
	return func(c *clientConfig) {
		c.dbURL = "sqlite:///" + path
	}
}

// WithPostgres stores the task journal in PostgreSQL.
func WithPostgres(dsn string) Option {
	return func(c *clientConfig) {
		c.dbURL = dsn
	}
}

// WithLogger sets the logger used by all components.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) {
		c.logger = logger
	}
}

// WithPollInterval sets the pause between polling attempts.
func WithPollInterval(interval time.Duration) Option {
	return func(c *clientConfig) {
		c.tracking = c.tracking.WithPollInterval(interval)
	}
}

// WithMaxPollAttempts sets the polling attempt budget per task.
func WithMaxPollAttempts(attempts int) Option {
	return func(c *clientConfig) {
		c.tracking = c.tracking.WithMaxPollAttempts(attempts)
	}
}

// WithPollingOnly disables the streaming transport; all tracking polls.
func WithPollingOnly() Option {
	return func(c *clientConfig) {
		c.tracking = c.tracking.WithPreferStreaming(false)
	}
}

// WithRelay enables the local progress relay server.
func WithRelay(cfg config.RelayConfig) Option {
	return func(c *clientConfig) {
		c.relay = cfg.WithEnabled(true)
	}
}

// WithReporter registers an extra reporter for tracked updates.
func WithReporter(reporter tracking.Reporter) Option {
	return func(c *clientConfig) {
		if reporter != nil {
			c.reporters = append(c.reporters, reporter)
		}
	}
}

// WithCloser registers a resource to close when the Client closes.
func WithCloser(closer io.Closer) Option {
	return func(c *clientConfig) {
		if closer != nil {
			c.closers = append(c.closers, closer)
		}
	}
}
