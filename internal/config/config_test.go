package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 50, cfg.Escalation.MaxNotifications)
	assert.False(t, cfg.Paging.Enabled)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	path := writeFile(t, `
server:
  port: "8181"
log:
  level: debug
escalation:
  id_strategy: uuid
feed:
  interval: 30s
paging:
  enabled: true
  base_url: https://opsdesk.example.com
  teams:
    - team: priority incident response team
      mattermost:
        - https://mm.example.com/hooks/abc
      telegram:
        - "-100123"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "8181", cfg.Server.Port)
	assert.Equal(t, "9090", cfg.Server.MetricsPort, "unset keys keep defaults")
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "uuid", cfg.Escalation.IDStrategy)
	assert.Equal(t, 30*time.Second, cfg.Feed.Interval)
	assert.True(t, cfg.Paging.Enabled)
	assert.Equal(t, 5, cfg.Paging.Retry.MaxAttempts)
	require.Len(t, cfg.Paging.Teams, 1)
	assert.Equal(t, "priority incident response team", cfg.Paging.Teams[0].Team)
	assert.Equal(t, []string{"-100123"}, cfg.Paging.Teams[0].Telegram)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := writeFile(t, "server:\n  port: \"8181\"\n")

	t.Setenv("OPSDESK_SERVER__PORT", "9999")
	t.Setenv("OPSDESK_SERVER__METRICS_PORT", "9191")
	t.Setenv("OPSDESK_FEED__ENABLED", "false")
	t.Setenv("OPSDESK_CORS__ALLOWED_ORIGINS", "https://a.example.com,https://b.example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, "9191", cfg.Server.MetricsPort)
	assert.False(t, cfg.Feed.Enabled)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.CORS.AllowedOrigins)
}

func TestLoad_DotEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("OPSDESK_LOG__FORMAT=text\n"), 0o600))
	t.Cleanup(func() { _ = os.Unsetenv("OPSDESK_LOG__FORMAT") })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestLoad_MissingFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "load config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.Log.Level = "trace" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad id strategy", func(c *Config) { c.Escalation.IDStrategy = "random" }, "id_strategy"},
		{"negative retention", func(c *Config) { c.Escalation.MaxNotifications = -1 }, "max_notifications"},
		{"zero feed interval", func(c *Config) { c.Feed.Interval = 0 }, "feed.interval"},
		{"zero feed interval when disabled", func(c *Config) { c.Feed.Enabled = false; c.Feed.Interval = 0 }, ""},
		{"paging poll interval", func(c *Config) { c.Paging.Enabled = true; c.Paging.Worker.PollInterval = 0 }, "poll_interval"},
		{"paging backoff", func(c *Config) { c.Paging.Enabled = true; c.Paging.Retry.MaxBackoff = time.Millisecond }, "backoff"},
		{"telegram without token", func(c *Config) { c.Paging.Enabled = true; c.Paging.Telegram.Enabled = true }, "bot_token"},
		{"team without name", func(c *Config) {
			c.Paging.Enabled = true
			c.Paging.Teams = []TeamChannels{{Telegram: []string{"1"}}}
		}, "team name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
