package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	full := writeTempJSON(t, dir, "full.json", map[string]any{
		"backend_url":        "http://notes.example:9000",
		"db_path":            "/var/lib/mindnote.db",
		"language":           "en",
		"log_level":          "info",
		"request_timeout":    "4s",
		"max_login_attempts": 5,
		"lock_duration":      "10m",
		"pre_alert_lead":     "15m",
		"overdue_grace":      "2m",
	})
	partial := writeTempJSON(t, dir, "partial.json", map[string]any{
		"language": "en",
	})

	t.Run("loads every field", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", full}

		cfg := &Config{}
		parseJson(cfg)

		assert.Equal(t, "http://notes.example:9000", cfg.BackendURL)
		assert.Equal(t, "/var/lib/mindnote.db", cfg.DBPath)
		assert.Equal(t, "en", cfg.Language)
		assert.Equal(t, "info", cfg.LogLevel)
		assert.Equal(t, 4*time.Second, cfg.RequestTimeout)
		assert.Equal(t, 5, cfg.MaxLoginAttempts)
		assert.Equal(t, 10*time.Minute, cfg.LockDuration)
		assert.Equal(t, 15*time.Minute, cfg.PreAlertLead)
		assert.Equal(t, 2*time.Minute, cfg.OverdueGrace)
	})

	t.Run("missing fields keep defaults", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", partial}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "en", cfg.Language)
		assert.Equal(t, "http://localhost:9000", cfg.BackendURL)
		assert.Equal(t, 3, cfg.MaxLoginAttempts)
		assert.Equal(t, 5*time.Minute, cfg.LockDuration)
	})

	t.Run("no config flag → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{BackendURL: "http://defaults:1234", LockDuration: 42 * time.Second}
		parseJson(cfg)

		assert.Equal(t, "http://defaults:1234", cfg.BackendURL)
		assert.Equal(t, 42*time.Second, cfg.LockDuration)
	})

	t.Run("invalid JSON → panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`{ this is not valid json`), 0o600))

		os.Args = []string{"testbin", "-config", bad}

		require.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("missing file → panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "absent.json")}

		require.Panics(t, func() { parseJson(&Config{}) })
	})
}
