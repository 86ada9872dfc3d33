package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewAppConfigDefaults(t *testing.T) {
	cfg := NewAppConfig()

	require.NotEmpty(t, cfg.DataDir())
	require.True(t, strings.HasPrefix(cfg.DBURL(), "sqlite:///"))
	require.Equal(t, "INFO", cfg.LogLevel())
	require.Equal(t, LogFormatPretty, cfg.LogFormat())

	backend := cfg.Backend()
	require.Equal(t, DefaultBackendURL, backend.BaseURL())
	require.Equal(t, DefaultRequestTimeout, backend.Timeout())
	require.Equal(t, DefaultMaxRetries, backend.MaxRetries())

	tracking := cfg.Tracking()
	require.Equal(t, DefaultPollInterval, tracking.PollInterval())
	require.Equal(t, DefaultMaxPollAttempts, tracking.MaxPollAttempts())
	require.True(t, tracking.PreferStreaming())

	relay := cfg.Relay()
	require.False(t, relay.Enabled())
	require.Equal(t, "127.0.0.1:8765", relay.Addr())
}

func TestWithDataDirMovesDefaultDB(t *testing.T) {
	cfg := NewAppConfigWithOptions(WithDataDir("/tmp/assistant-data"))
	require.Equal(t, "/tmp/assistant-data", cfg.DataDir())
	require.Contains(t, cfg.DBURL(), "/tmp/assistant-data/")
}

func TestWithDataDirKeepsExplicitDB(t *testing.T) {
	cfg := NewAppConfigWithOptions(
		WithDBURL("postgres://u:p@localhost/journal"),
		WithDataDir("/tmp/assistant-data"),
	)
	require.Equal(t, "postgres://u:p@localhost/journal", cfg.DBURL())
}

func TestBackendConfigOptions(t *testing.T) {
	cfg := NewBackendConfigWithOptions(
		WithBaseURL("http://localhost:9999"),
		WithTimeout(10*time.Second),
		WithMaxRetries(7),
		WithInitialDelay(time.Second),
		WithBackoffFactor(1.5),
	)

	require.Equal(t, "http://localhost:9999", cfg.BaseURL())
	require.Equal(t, 10*time.Second, cfg.Timeout())
	require.Equal(t, 7, cfg.MaxRetries())
	require.Equal(t, time.Second, cfg.InitialDelay())
	require.Equal(t, 1.5, cfg.BackoffFactor())
}

func TestTrackingConfigChaining(t *testing.T) {
	cfg := NewTrackingConfig().
		WithPollInterval(time.Second).
		WithMaxPollAttempts(10).
		WithPreferStreaming(false)

	require.Equal(t, time.Second, cfg.PollInterval())
	require.Equal(t, 10, cfg.MaxPollAttempts())
	require.False(t, cfg.PreferStreaming())
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DATA_DIR", "/tmp/assistant-env")
	t.Setenv("DB_URL", "sqlite:///tmp/assistant-env/j.db")
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("BACKEND_BASE_URL", "http://localhost:8123")
	t.Setenv("BACKEND_TIMEOUT", "12.5")
	t.Setenv("TRACKING_POLL_INTERVAL_SECONDS", "2")
	t.Setenv("TRACKING_MAX_POLL_ATTEMPTS", "30")
	t.Setenv("TRACKING_PREFER_STREAMING", "false")
	t.Setenv("RELAY_ENABLED", "true")
	t.Setenv("RELAY_PORT", "9001")
	t.Setenv("RELAY_ORIGINS", "http://localhost:5173, app://renderer")

	envCfg, err := LoadFromEnv()
	require.NoError(t, err)
	cfg := envCfg.ToAppConfig()

	require.Equal(t, "/tmp/assistant-env", cfg.DataDir())
	require.Equal(t, "sqlite:///tmp/assistant-env/j.db", cfg.DBURL())
	require.Equal(t, LogFormatJSON, cfg.LogFormat())
	require.Equal(t, "http://localhost:8123", cfg.Backend().BaseURL())
	require.Equal(t, 12500*time.Millisecond, cfg.Backend().Timeout())
	require.Equal(t, 2*time.Second, cfg.Tracking().PollInterval())
	require.Equal(t, 30, cfg.Tracking().MaxPollAttempts())
	require.False(t, cfg.Tracking().PreferStreaming())
	require.True(t, cfg.Relay().Enabled())
	require.Equal(t, 9001, cfg.Relay().Port())
	require.Equal(t, []string{"http://localhost:5173", "app://renderer"}, cfg.Relay().Origins())
}

func TestLoadFromEnvDefaults(t *testing.T) {
	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	require.Equal(t, 5.0, cfg.Tracking.PollIntervalSeconds)
	require.Equal(t, 120, cfg.Tracking.MaxPollAttempts)
	require.True(t, cfg.Tracking.PreferStreaming)
	require.Equal(t, "http://127.0.0.1:8000", cfg.Backend.BaseURL)
}

func TestLoadDotEnvMissingFileIsNotAnError(t *testing.T) {
	require.NoError(t, LoadDotEnv("/nonexistent/path/.env"))
}

func TestParseOrigins(t *testing.T) {
	require.Nil(t, ParseOrigins(""))
	require.Equal(t, []string{"a", "b"}, ParseOrigins("a, b,"))
}
