package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/mindnote/internal/flagx"
	"github.com/dmitrijs2005/mindnote/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Zero values
// mean "not set" and keep the defaults.
type JsonConfig struct {
	BackendURL       string         `json:"backend_url"`
	DBPath           string         `json:"db_path"`
	Language         string         `json:"language"`
	LogLevel         string         `json:"log_level"`
	RequestTimeout   timex.Duration `json:"request_timeout"`
	MaxLoginAttempts int            `json:"max_login_attempts"`
	LockDuration     timex.Duration `json:"lock_duration"`
	PreAlertLead     timex.Duration `json:"pre_alert_lead"`
	OverdueGrace     timex.Duration `json:"overdue_grace"`
}

// parseJson overlays cfg with values loaded from the JSON file named by
// -c/-config. It does nothing when no file is given and panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	if jc.BackendURL != "" {
		cfg.BackendURL = jc.BackendURL
	}
	if jc.DBPath != "" {
		cfg.DBPath = jc.DBPath
	}
	if jc.Language != "" {
		cfg.Language = jc.Language
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.MaxLoginAttempts > 0 {
		cfg.MaxLoginAttempts = jc.MaxLoginAttempts
	}
	if jc.LockDuration.Duration > 0 {
		cfg.LockDuration = jc.LockDuration.Duration
	}
	if jc.PreAlertLead.Duration > 0 {
		cfg.PreAlertLead = jc.PreAlertLead.Duration
	}
	if jc.OverdueGrace.Duration > 0 {
		cfg.OverdueGrace = jc.OverdueGrace.Duration
	}
}
