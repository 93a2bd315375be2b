// Package config loads runtime configuration for the MindNote CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the MindNote backend
//	-d string   path of the local SQLite store
//	-l string   message language ("es" or "en")
//	-t int      backend request timeout (seconds)
//	-v string   log level (debug, info, warn, error)
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "5m" or
// integer nanoseconds:
//
//	{
//	  "backend_url": "http://localhost:9000",
//	  "db_path": "mindnote.db",
//	  "language": "es",
//	  "log_level": "warn",
//	  "request_timeout": "10s",
//	  "max_login_attempts": 3,
//	  "lock_duration": "5m",
//	  "pre_alert_lead": "5m",
//	  "overdue_grace": "1m"
//	}
//
// Fields missing from the JSON file keep their default values.
package config
