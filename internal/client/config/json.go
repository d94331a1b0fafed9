package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/flagx"
	"github.com/dmitrijs2005/fieldsync/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the timeout either as a
// string like "30s" or as integer nanoseconds. Absent fields leave the
// current Config value untouched.
type JsonConfig struct {
	ServerURL       string          `json:"server_url"`
	DatabaseDSN     string          `json:"database_dsn"`
	AccessToken     string          `json:"access_token"`
	MaxSyncAttempts *int            `json:"max_sync_attempts"`
	RequestTimeout  *timex.Duration `json:"request_timeout"`
	LogLevel        string          `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file whose path
// comes from -c/-config/--config or FIELDSYNC_CONFIG. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	setString(&cfg.ServerURL, jc.ServerURL)
	setString(&cfg.DatabaseDSN, jc.DatabaseDSN)
	setString(&cfg.AccessToken, jc.AccessToken)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.MaxSyncAttempts != nil {
		cfg.MaxSyncAttempts = *jc.MaxSyncAttempts
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
