// Package config provides application configuration.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvConfig holds all environment-based configuration.
// Nested structs use underscore delimiter (e.g., BACKEND_BASE_URL).
type EnvConfig struct {
	// DataDir is the data directory path.
	// Env: DATA_DIR
	// Default: ~/.semantic-search-assistant
	DataDir string `envconfig:"DATA_DIR"`

	// DBURL is the journal database connection URL.
	// Env: DB_URL
	// Default: sqlite:///{data_dir}/assistant.db
	DBURL string `envconfig:"DB_URL"`

	// LogLevel is the log verbosity level.
	// Env: LOG_LEVEL (default: INFO)
	LogLevel string `envconfig:"LOG_LEVEL" default:"INFO"`

	// LogFormat is the log output format (pretty or json).
	// Env: LOG_FORMAT (default: pretty)
	LogFormat string `envconfig:"LOG_FORMAT" default:"pretty"`

	// Backend configures the backend process connection.
	Backend BackendEnv `envconfig:"BACKEND"`

	// Tracking configures the progress tracker transports.
	Tracking TrackingEnv `envconfig:"TRACKING"`

	// Relay configures the local progress relay server.
	Relay RelayEnv `envconfig:"RELAY"`
}

// BackendEnv holds environment configuration for the backend connection.
type BackendEnv struct {
	// BaseURL is the backend base URL.
	// Env: BACKEND_BASE_URL (default: http://127.0.0.1:8000)
	BaseURL string `envconfig:"BASE_URL" default:"http://127.0.0.1:8000"`

	// Timeout is the request timeout in seconds.
	// Env: BACKEND_TIMEOUT (default: 30)
	Timeout float64 `envconfig:"TIMEOUT" default:"30"`

	// MaxRetries is the maximum retry count for request/response calls.
	// Env: BACKEND_MAX_RETRIES (default: 3)
	MaxRetries int `envconfig:"MAX_RETRIES" default:"3"`

	// InitialDelay is the initial retry delay in seconds.
	// Env: BACKEND_INITIAL_DELAY (default: 2.0)
	InitialDelay float64 `envconfig:"INITIAL_DELAY" default:"2.0"`

	// BackoffFactor is the retry backoff multiplier.
	// Env: BACKEND_BACKOFF_FACTOR (default: 2.0)
	BackoffFactor float64 `envconfig:"BACKOFF_FACTOR" default:"2.0"`
}

// TrackingEnv holds environment configuration for progress tracking.
type TrackingEnv struct {
	// PollIntervalSeconds is the spacing between polling attempts.
	// Env: TRACKING_POLL_INTERVAL_SECONDS (default: 5)
	PollIntervalSeconds float64 `envconfig:"POLL_INTERVAL_SECONDS" default:"5"`

	// MaxPollAttempts is the hard ceiling on polling attempts.
	// Env: TRACKING_MAX_POLL_ATTEMPTS (default: 120)
	MaxPollAttempts int `envconfig:"MAX_POLL_ATTEMPTS" default:"120"`

	// PreferStreaming controls whether the streaming transport is tried first.
	// Env: TRACKING_PREFER_STREAMING (default: true)
	PreferStreaming bool `envconfig:"PREFER_STREAMING" default:"true"`
}

// RelayEnv holds environment configuration for the progress relay.
type RelayEnv struct {
	// Enabled controls whether the relay server is started.
	// Env: RELAY_ENABLED (default: false)
	Enabled bool `envconfig:"ENABLED" default:"false"`

	// Host is the relay host to bind to.
	// Env: RELAY_HOST (default: 127.0.0.1)
	Host string `envconfig:"HOST" default:"127.0.0.1"`

	// Port is the relay port to listen on.
	// Env: RELAY_PORT (default: 8765)
	Port int `envconfig:"PORT" default:"8765"`

	// Origins is a comma-separated list of allowed CORS origins.
	// Env: RELAY_ORIGINS
	Origins string `envconfig:"ORIGINS"`
}

// LoadFromEnv loads configuration from environment variables.
func LoadFromEnv() (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// LoadFromEnvWithPrefix loads configuration with a custom prefix.
// For example, prefix "ASSISTANT" would require ASSISTANT_DATA_DIR
// instead of DATA_DIR.
func LoadFromEnvWithPrefix(prefix string) (EnvConfig, error) {
	var cfg EnvConfig
	if err := envconfig.Process(prefix, &cfg); err != nil {
		return EnvConfig{}, err
	}
	return cfg, nil
}

// ToAppConfig converts EnvConfig to AppConfig.
func (e EnvConfig) ToAppConfig() AppConfig {
	cfg := NewAppConfig()

	if e.DataDir != "" {
		cfg = cfg.Apply(WithDataDir(e.DataDir))
	}
	if e.DBURL != "" {
		cfg = cfg.Apply(WithDBURL(e.DBURL))
	}
	if e.LogLevel != "" {
		cfg = cfg.Apply(WithLogLevel(e.LogLevel))
	}
	if e.LogFormat != "" {
		cfg = cfg.Apply(WithLogFormat(parseLogFormat(e.LogFormat)))
	}

	cfg = cfg.Apply(
		WithBackendConfig(e.Backend.ToBackendConfig()),
		WithTrackingConfig(e.Tracking.ToTrackingConfig()),
		WithRelayConfig(e.Relay.ToRelayConfig()),
	)

	return cfg
}

// ToBackendConfig converts BackendEnv to BackendConfig.
func (b BackendEnv) ToBackendConfig() BackendConfig {
	opts := []BackendOption{
		WithTimeout(time.Duration(b.Timeout * float64(time.Second))),
		WithMaxRetries(b.MaxRetries),
		WithInitialDelay(time.Duration(b.InitialDelay * float64(time.Second))),
		WithBackoffFactor(b.BackoffFactor),
	}
	if b.BaseURL != "" {
		opts = append(opts, WithBaseURL(b.BaseURL))
	}
	return NewBackendConfigWithOptions(opts...)
}

// ToTrackingConfig converts TrackingEnv to TrackingConfig.
func (t TrackingEnv) ToTrackingConfig() TrackingConfig {
	return NewTrackingConfig().
		WithPollInterval(time.Duration(t.PollIntervalSeconds * float64(time.Second))).
		WithMaxPollAttempts(t.MaxPollAttempts).
		WithPreferStreaming(t.PreferStreaming)
}

// ToRelayConfig converts RelayEnv to RelayConfig.
func (r RelayEnv) ToRelayConfig() RelayConfig {
	cfg := NewRelayConfig().
		WithEnabled(r.Enabled).
		WithHost(r.Host).
		WithPort(r.Port)
	if r.Origins != "" {
		cfg = cfg.WithOrigins(ParseOrigins(r.Origins))
	}
	return cfg
}

// parseLogFormat parses a log format string.
func parseLogFormat(s string) LogFormat {
	if s == "json" || s == "JSON" {
		return LogFormatJSON
	}
	return LogFormatPretty
}
