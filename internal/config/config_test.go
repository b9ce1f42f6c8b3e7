package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		SourceURL:       "https://www.digitalfoundry.net",
		Domain:          "www.digitalfoundry.net",
		OutputDir:       "./downloads",
		LedgerFile:      "./cache",
		CookieFile:      "./cookies.txt",
		CheckInterval:   time.Hour,
		TriggerSettle:   2 * time.Second,
		RetryLimit:      5,
		ChunkSize:       32768,
		PageTimeout:     30 * time.Second,
		DownloadTimeout: 2 * time.Hour,
		HTTPPort:        8080,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing source url", mutate: func(c *Config) { c.SourceURL = "" }, wantErr: true},
		{name: "malformed source url", mutate: func(c *Config) { c.SourceURL = "not-a-url" }, wantErr: true},
		{name: "missing domain", mutate: func(c *Config) { c.Domain = "" }, wantErr: true},
		{name: "zero check interval", mutate: func(c *Config) { c.CheckInterval = 0 }, wantErr: true},
		{name: "negative settle", mutate: func(c *Config) { c.TriggerSettle = -time.Second }, wantErr: true},
		{name: "zero retry limit", mutate: func(c *Config) { c.RetryLimit = 0 }, wantErr: true},
		{name: "tiny chunk size", mutate: func(c *Config) { c.ChunkSize = 512 }, wantErr: true},
		{name: "port out of range", mutate: func(c *Config) { c.HTTPPort = 70000 }, wantErr: true},
		{name: "bad webhook url", mutate: func(c *Config) { c.WebhookURL = "::" }, wantErr: true},
		{name: "webhook optional", mutate: func(c *Config) { c.WebhookURL = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoad_DefaultsAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DF_OUTPUT_DIR", filepath.Join(dir, "videos"))
	t.Setenv("DF_LEDGER_FILE", filepath.Join(dir, "state", "cache"))
	t.Setenv("DF_COOKIE_FILE", filepath.Join(dir, "cookies.txt"))
	t.Setenv("DF_CHECK_INTERVAL", "15m")
	t.Setenv("DF_COLLECTION", "retro")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://www.digitalfoundry.net", cfg.SourceURL)
	assert.Equal(t, "www.digitalfoundry.net", cfg.Domain)
	assert.Equal(t, "retro", cfg.Collection)
	assert.Equal(t, 15*time.Minute, cfg.CheckInterval)
	assert.Equal(t, 5, cfg.RetryLimit)
	assert.Equal(t, 2*time.Second, cfg.TriggerSettle)

	// Output and ledger directories are created eagerly.
	assert.DirExists(t, filepath.Join(dir, "videos"))
	assert.DirExists(t, filepath.Join(dir, "state"))
}

func TestLoad_RejectsInvalidEnvironment(t *testing.T) {
	t.Setenv("DF_SOURCE_URL", "not a url")

	_, err := Load()
	assert.Error(t, err)
}
