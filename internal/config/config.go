// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Default configuration values.
const (
	DefaultBackendURL      = "http://127.0.0.1:8000"
	DefaultRequestTimeout  = 30 * time.Second
	DefaultMaxRetries      = 3
	DefaultInitialDelay    = 2 * time.Second
	DefaultBackoffFactor   = 2.0
	DefaultPollInterval    = 5 * time.Second
	DefaultMaxPollAttempts = 120
	DefaultRelayHost       = "127.0.0.1"
	DefaultRelayPort       = 8765
	DefaultLogLevel        = "INFO"
)

// BackendConfig configures the connection to the backend process.
type BackendConfig struct {
	baseURL       string
	timeout       time.Duration
	maxRetries    int
	initialDelay  time.Duration
	backoffFactor float64
}

// NewBackendConfig creates a BackendConfig with defaults.
func NewBackendConfig() BackendConfig {
	return BackendConfig{
		baseURL:       DefaultBackendURL,
		timeout:       DefaultRequestTimeout,
		maxRetries:    DefaultMaxRetries,
		initialDelay:  DefaultInitialDelay,
		backoffFactor: DefaultBackoffFactor,
	}
}

// BaseURL returns the backend base URL.
func (b BackendConfig) BaseURL() string { return b.baseURL }

// Timeout returns the request timeout.
func (b BackendConfig) Timeout() time.Duration { return b.timeout }

// MaxRetries returns the maximum retry count for request/response calls.
func (b BackendConfig) MaxRetries() int { return b.maxRetries }

// InitialDelay returns the initial retry delay.
func (b BackendConfig) InitialDelay() time.Duration { return b.initialDelay }

// BackoffFactor returns the retry backoff multiplier.
func (b BackendConfig) BackoffFactor() float64 { return b.backoffFactor }

// BackendOption is a functional option for BackendConfig.
type BackendOption func(*BackendConfig)

// WithBaseURL sets the backend base URL.
func WithBaseURL(url string) BackendOption {
	return func(b *BackendConfig) { b.baseURL = strings.TrimRight(url, "/") }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) BackendOption {
	return func(b *BackendConfig) { b.timeout = d }
}

// WithMaxRetries sets the maximum retry count.
func WithMaxRetries(n int) BackendOption {
	return func(b *BackendConfig) { b.maxRetries = n }
}

// WithInitialDelay sets the initial retry delay.
func WithInitialDelay(d time.Duration) BackendOption {
	return func(b *BackendConfig) { b.initialDelay = d }
}

// WithBackoffFactor sets the retry backoff multiplier.
func WithBackoffFactor(f float64) BackendOption {
	return func(b *BackendConfig) { b.backoffFactor = f }
}

// NewBackendConfigWithOptions creates a BackendConfig with functional options.
func NewBackendConfigWithOptions(opts ...BackendOption) BackendConfig {
	b := NewBackendConfig()
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// TrackingConfig configures the progress tracker transports.
type TrackingConfig struct {
	pollInterval    time.Duration
	maxPollAttempts int
	preferStreaming bool
}

// NewTrackingConfig creates a TrackingConfig with defaults.
func NewTrackingConfig() TrackingConfig {
	return TrackingConfig{
		pollInterval:    DefaultPollInterval,
		maxPollAttempts: DefaultMaxPollAttempts,
		preferStreaming: true,
	}
}

// PollInterval returns the spacing between polling attempts.
func (t TrackingConfig) PollInterval() time.Duration { return t.pollInterval }

// MaxPollAttempts returns the hard attempt ceiling for the polling fallback.
func (t TrackingConfig) MaxPollAttempts() int { return t.maxPollAttempts }

// PreferStreaming returns whether the streaming transport is tried first.
func (t TrackingConfig) PreferStreaming() bool { return t.preferStreaming }

// WithPollInterval returns a new config with the specified interval.
func (t TrackingConfig) WithPollInterval(d time.Duration) TrackingConfig {
	if d > 0 {
		t.pollInterval = d
	}
	return t
}

// WithMaxPollAttempts returns a new config with the specified attempt ceiling.
func (t TrackingConfig) WithMaxPollAttempts(n int) TrackingConfig {
	if n > 0 {
		t.maxPollAttempts = n
	}
	return t
}

// WithPreferStreaming returns a new config with the specified transport preference.
func (t TrackingConfig) WithPreferStreaming(prefer bool) TrackingConfig {
	t.preferStreaming = prefer
	return t
}

// RelayConfig configures the local progress relay server.
type RelayConfig struct {
	enabled bool
	host    string
	port    int
	origins []string
}

// NewRelayConfig creates a RelayConfig with defaults.
func NewRelayConfig() RelayConfig {
	return RelayConfig{
		host: DefaultRelayHost,
		port: DefaultRelayPort,
	}
}

// Enabled returns whether the relay server is enabled.
func (r RelayConfig) Enabled() bool { return r.enabled }

// Host returns the relay host to bind to.
func (r RelayConfig) Host() string { return r.host }

// Port returns the relay port to listen on.
func (r RelayConfig) Port() int { return r.port }

// Addr returns the combined host:port address.
func (r RelayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.host, r.port)
}

// Origins returns the allowed CORS origins for UI consumers.
func (r RelayConfig) Origins() []string {
	origins := make([]string, len(r.origins))
	copy(origins, r.origins)
	return origins
}

// WithEnabled returns a new config with the specified enabled state.
func (r RelayConfig) WithEnabled(enabled bool) RelayConfig {
	r.enabled = enabled
	return r
}

// WithHost returns a new config with the specified host.
func (r RelayConfig) WithHost(host string) RelayConfig {
	if host != "" {
		r.host = host
	}
	return r
}

// WithPort returns a new config with the specified port.
func (r RelayConfig) WithPort(port int) RelayConfig {
	if port > 0 {
		r.port = port
	}
	return r
}

// WithOrigins returns a new config with the specified CORS origins.
func (r RelayConfig) WithOrigins(origins []string) RelayConfig {
	r.origins = make([]string, len(origins))
	copy(r.origins, origins)
	return r
}

// AppConfig holds the main application configuration.
type AppConfig struct {
	dataDir   string
	dbURL     string
	logLevel  string
	logFormat LogFormat
	backend   BackendConfig
	tracking  TrackingConfig
	relay     RelayConfig
}

// LogFormat represents the log output format.
type LogFormat string

// LogFormat values.
const (
	LogFormatPretty LogFormat = "pretty"
	LogFormatJSON   LogFormat = "json"
)

// DefaultDataDir returns the default data directory.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".semantic-search-assistant"
	}
	return filepath.Join(home, ".semantic-search-assistant")
}

// NewAppConfig creates a new AppConfig with defaults.
func NewAppConfig() AppConfig {
	dataDir := DefaultDataDir()
	return AppConfig{
		dataDir:   dataDir,
		dbURL:     "sqlite:///" + filepath.Join(dataDir, "assistant.db"),
		logLevel:  DefaultLogLevel,
		logFormat: LogFormatPretty,
		backend:   NewBackendConfig(),
		tracking:  NewTrackingConfig(),
		relay:     NewRelayConfig(),
	}
}

// DataDir returns the data directory path.
func (c AppConfig) DataDir() string { return c.dataDir }

// DBURL returns the journal database connection URL.
func (c AppConfig) DBURL() string { return c.dbURL }

// LogLevel returns the log level.
func (c AppConfig) LogLevel() string { return c.logLevel }

// LogFormat returns the log format.
func (c AppConfig) LogFormat() LogFormat { return c.logFormat }

// Backend returns the backend connection config.
func (c AppConfig) Backend() BackendConfig { return c.backend }

// Tracking returns the progress tracking config.
func (c AppConfig) Tracking() TrackingConfig { return c.tracking }

// Relay returns the progress relay config.
func (c AppConfig) Relay() RelayConfig { return c.relay }

// EnsureDataDir creates the data directory if it doesn't exist.
func (c AppConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	return nil
}

// AppConfigOption is a functional option for AppConfig.
type AppConfigOption func(*AppConfig)

// WithDataDir sets the data directory.
func WithDataDir(dir string) AppConfigOption {
	return func(c *AppConfig) {
		c.dataDir = dir
		// Update default DB URL when data dir changes
		if c.dbURL == "" || strings.Contains(c.dbURL, "assistant.db") {
			c.dbURL = "sqlite:///" + filepath.Join(dir, "assistant.db")
		}
	}
}

// WithDBURL sets the journal database URL.
func WithDBURL(url string) AppConfigOption {
	return func(c *AppConfig) { c.dbURL = url }
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) AppConfigOption {
	return func(c *AppConfig) { c.logLevel = level }
}

// WithLogFormat sets the log format.
func WithLogFormat(format LogFormat) AppConfigOption {
	return func(c *AppConfig) { c.logFormat = format }
}

// WithBackendConfig sets the backend connection config.
func WithBackendConfig(b BackendConfig) AppConfigOption {
	return func(c *AppConfig) { c.backend = b }
}

// WithTrackingConfig sets the progress tracking config.
func WithTrackingConfig(t TrackingConfig) AppConfigOption {
	return func(c *AppConfig) { c.tracking = t }
}

// WithRelayConfig sets the progress relay config.
func WithRelayConfig(r RelayConfig) AppConfigOption {
	return func(c *AppConfig) { c.relay = r }
}

// NewAppConfigWithOptions creates an AppConfig with functional options.
func NewAppConfigWithOptions(opts ...AppConfigOption) AppConfig {
	c := NewAppConfig()
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// Apply returns a new AppConfig with the given options applied.
func (c AppConfig) Apply(opts ...AppConfigOption) AppConfig {
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// LogAttrs returns slog attributes for logging the configuration.
func (c AppConfig) LogAttrs() []slog.Attr {
	return []slog.Attr{
		slog.String("data_dir", c.dataDir),
		slog.String("db_url", c.maskedDBURL()),
		slog.String("log_level", c.logLevel),
		slog.String("backend_url", c.backend.BaseURL()),
		slog.Duration("poll_interval", c.tracking.PollInterval()),
		slog.Int("max_poll_attempts", c.tracking.MaxPollAttempts()),
		slog.Bool("prefer_streaming", c.tracking.PreferStreaming()),
		slog.Bool("relay_enabled", c.relay.Enabled()),
		slog.String("relay_addr", c.relay.Addr()),
	}
}

func (c AppConfig) maskedDBURL() string {
	if c.dbURL == "" {
		return "(default)"
	}
	if strings.HasPrefix(c.dbURL, "sqlite:") {
		return c.dbURL
	}
	return "postgres://***@***"
}

// ParseOrigins parses a comma-separated string of CORS origins.
func ParseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
