package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Config holds runtime settings for the FieldSync CLI.
//
// Fields:
//   - ServerURL: base URL of the sync server, e.g. http://127.0.0.1:8080.
//   - DatabaseDSN: path of the local SQLite replica.
//   - AccessToken: bearer token sent with every request; empty sends none.
//   - MaxSyncAttempts: pull/push rounds tried before a conflicting sync gives up.
//   - RequestTimeout: per-request HTTP timeout.
//   - LogLevel: debug, info, warn or error.
type Config struct {
	ServerURL       string        `validate:"required,url"`
	DatabaseDSN     string        `validate:"required"`
	AccessToken     string
	MaxSyncAttempts int           `validate:"gte=1"`
	RequestTimeout  time.Duration `validate:"gt=0"`
	LogLevel        string        `validate:"oneof=debug info warn error"`
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.DatabaseDSN = "fieldsync.db"
	c.AccessToken = ""
	c.MaxSyncAttempts = 3
	c.RequestTimeout = 30 * time.Second
	c.LogLevel = "warn"
}

// Validate checks the final configuration.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present). Command-line flags are bound on top by the CLI with
// BindFlags, so later sources take precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	return cfg
}
