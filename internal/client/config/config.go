package config

import "time"

// Config holds runtime settings for the MindNote CLI.
type Config struct {
	// BackendURL is the base URL of the login/registration backend.
	BackendURL string
	// DBPath is the SQLite file that plays the role of local storage.
	DBPath   string
	Language string
	LogLevel string

	RequestTimeout time.Duration

	// MaxLoginAttempts consecutive failures lock the login for LockDuration.
	MaxLoginAttempts int
	LockDuration     time.Duration

	// PreAlertLead is how long before a note's time the advisory alert fires.
	PreAlertLead time.Duration
	// OverdueGrace is how long after a note's time it is reported as overdue.
	OverdueGrace time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.BackendURL = "http://localhost:9000"
	c.DBPath = "mindnote.db"
	c.Language = "es"
	c.LogLevel = "warn"
	c.RequestTimeout = 10 * time.Second
	c.MaxLoginAttempts = 3
	c.LockDuration = 5 * time.Minute
	c.PreAlertLead = 5 * time.Minute
	c.OverdueGrace = time.Minute
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
