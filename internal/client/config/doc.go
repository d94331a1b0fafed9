// Package config loads runtime configuration for the FieldSync CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via -c/-config/--config or
//     the FIELDSYNC_CONFIG environment variable.
//  3. Command-line flags bound by BindFlags, which override earlier values.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so it can be either a
// string like "30s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://sync.example.com",
//	  "database_dsn": "/var/lib/fieldsync/replica.db",
//	  "access_token": "eyJ...",
//	  "max_sync_attempts": 3,
//	  "request_timeout": "30s",
//	  "log_level": "warn"
//	}
package config
