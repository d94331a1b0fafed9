package config

import "github.com/spf13/pflag"

// BindFlags registers the CLI's global flags on fs, using the current values
// of cfg as defaults so flags override JSON and JSON overrides defaults.
//
//	-s, --server     sync server base URL
//	-d, --db         local replica path
//	-t, --token      bearer access token
//	-m, --attempts   max sync attempts on conflict
//	-r, --timeout    per-request timeout
//	-l, --log-level  log level
//	-c, --config     JSON config file (read before flags are parsed)
func BindFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.ServerURL, "server", "s", cfg.ServerURL, "sync server base URL")
	fs.StringVarP(&cfg.DatabaseDSN, "db", "d", cfg.DatabaseDSN, "local replica database path")
	fs.StringVarP(&cfg.AccessToken, "token", "t", cfg.AccessToken, "bearer access token")
	fs.IntVarP(&cfg.MaxSyncAttempts, "attempts", "m", cfg.MaxSyncAttempts, "max sync attempts on conflict")
	fs.DurationVarP(&cfg.RequestTimeout, "timeout", "r", cfg.RequestTimeout, "per-request timeout")
	fs.StringVarP(&cfg.LogLevel, "log-level", "l", cfg.LogLevel, "log level (debug, info, warn, error)")
	fs.StringP("config", "c", "", "path to JSON config file")
}
