package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const minimalYAML = `
telegram:
  token: "123:abc"
airtable:
  api_key: "key"
  base_id: "appBase"
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, BackendMemory, cfg.Sessions.Backend)
	assert.Equal(t, "Projects", cfg.Airtable.ProjectsTable)
	assert.Equal(t, "Updates", cfg.Airtable.UpdatesTable)
	assert.Equal(t, 7, cfg.Digest.Days)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("AIRTABLE_BASE_ID", "appFromEnv")
	cfg, err := Load(writeConfig(t, minimalYAML))
	require.NoError(t, err)
	assert.Equal(t, "appFromEnv", cfg.Airtable.BaseID)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestNormalizeRequiredFields(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"missing token", func(c *Config) { c.Telegram.Token = "" }, "telegram token"},
		{"missing airtable key", func(c *Config) { c.Airtable.APIKey = "" }, "airtable.api_key"},
		{"missing base id", func(c *Config) { c.Airtable.BaseID = "" }, "airtable.base_id"},
		{"bad run mode", func(c *Config) { c.Telegram.RunMode = "carrier-pigeon" }, "run_mode"},
		{"webhook without url", func(c *Config) { c.Telegram.RunMode = RunModeWebhook }, "webhook.url"},
		{"redis without addr", func(c *Config) { c.Sessions.Backend = BackendRedis }, "sessions.redis.addr"},
		{"postgres without host", func(c *Config) { c.Sessions.Backend = BackendPostgres }, "sessions.database"},
		{"bad rate limit exclusion", func(c *Config) { c.RateLimit.ExcludeUpdates = []string{"gif"} }, "exclude_updates"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			tc.mutate(cfg)
			err := Normalize(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errSub)
		})
	}
}

func TestNormalizeWebhookMode(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "Webhook"
	cfg.Webhook.URL = "https://bot.example.com/webhook"
	cfg.Webhook.Listen = "0.0.0.0"
	cfg.Webhook.Port = 8080
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeWebhook, cfg.Telegram.RunMode)
}

func TestNormalizeAcceptsPollingAlias(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "polling"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Sessions.Backend = BackendPostgres
	cfg.Sessions.Database = DatabaseConfig{Host: "db", Name: "trackbot", User: "bot"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "disable", cfg.Sessions.Database.SSLMode)
	assert.Equal(t, 4, cfg.Sessions.Database.MaxConnections)
}

func TestNormalizeLowercasesExclusions(t *testing.T) {
	cfg := validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback ", "message"}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{"callback", "message"}, cfg.RateLimit.ExcludeUpdates)
}

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
		Airtable: AirtableConfig{APIKey: "key", BaseID: "appBase"},
	}
}
