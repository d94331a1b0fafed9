package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindFlags(t *testing.T) {
	tests := []struct {
		expected  *Config
		name      string
		args      []string
		expectErr bool
	}{
		{
			name: "overrides",
			args: []string{"-s", "http://sync:9090", "--db", "/tmp/r.db", "-t", "tok", "-m", "5", "--timeout", "5s", "-l", "debug", "-c", "ignored.json"},
			expected: &Config{ServerURL: "http://sync:9090", DatabaseDSN: "/tmp/r.db", AccessToken: "tok",
				MaxSyncAttempts: 5, RequestTimeout: 5 * time.Second, LogLevel: "debug"},
		},
		{
			name: "no flags keep current values",
			args: nil,
			expected: &Config{ServerURL: "http://127.0.0.1:8080", DatabaseDSN: "fieldsync.db",
				MaxSyncAttempts: 3, RequestTimeout: 30 * time.Second, LogLevel: "warn"},
		},
		{name: "bad attempts", args: []string{"-m", "abc"}, expectErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			cfg.LoadDefaults()

			fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
			BindFlags(fs, cfg)
			err := fs.Parse(tt.args)

			if tt.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}
