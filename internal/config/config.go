package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds all application configuration settings. Values are bound
// from DF_-prefixed environment variables.
type Config struct {
	Environment string `envconfig:"ENV" default:"development"`

	SourceURL  string `envconfig:"SOURCE_URL" default:"https://www.digitalfoundry.net" validate:"required,url"`
	Domain     string `envconfig:"DOMAIN" default:"www.digitalfoundry.net" validate:"required,hostname"`
	Collection string `envconfig:"COLLECTION"`

	OutputDir  string `envconfig:"OUTPUT_DIR" default:"./downloads" validate:"required"`
	LedgerFile string `envconfig:"LEDGER_FILE" default:"./cache" validate:"required"`
	CookieFile string `envconfig:"COOKIE_FILE" default:"./cookies.txt" validate:"required"`

	CheckInterval time.Duration `envconfig:"CHECK_INTERVAL" default:"60m"`
	TriggerSettle time.Duration `envconfig:"TRIGGER_SETTLE" default:"2s"`

	RetryLimit      int           `envconfig:"RETRY_LIMIT" default:"5" validate:"min=1"`
	ChunkSize       int           `envconfig:"CHUNK_SIZE" default:"32768" validate:"min=1024"`
	PageTimeout     time.Duration `envconfig:"PAGE_TIMEOUT" default:"30s"`
	DownloadTimeout time.Duration `envconfig:"DOWNLOAD_TIMEOUT" default:"2h"`

	HTTPPort        int           `envconfig:"HTTP_PORT" default:"8080" validate:"min=1,max=65535"`
	HTTPTimeout     time.Duration `envconfig:"HTTP_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	WebhookURL string `envconfig:"WEBHOOK_URL" validate:"omitempty,url"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`
}

// Validate checks the configuration for invalid or missing values.
// Returns an error describing the first invalid setting found.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if c.CheckInterval <= 0 {
		return fmt.Errorf("check interval must be positive: %s", c.CheckInterval)
	}
	if c.TriggerSettle < 0 {
		return fmt.Errorf("trigger settle delay must not be negative: %s", c.TriggerSettle)
	}

	return nil
}
