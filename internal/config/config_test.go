package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("u1")
	cfg.Import.DefaultBank = "monobank"
	cfg.Currency.FallbackRates = map[string]float64{"UAH": 0.024, "EUR": 1.08}
	cfg.Import.SessionTTL = 30 * time.Minute

	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "u1", got.UserID)
	assert.Equal(t, cfg.BaseCurrency, got.BaseCurrency)
	assert.Equal(t, cfg.Store, got.Store)
	assert.Equal(t, "monobank", got.Import.DefaultBank)
	assert.Equal(t, 30*time.Minute, got.Import.SessionTTL)
	assert.Equal(t, 10*time.Second, got.Currency.Timeout)
	assert.InDelta(t, 0.024, got.Currency.FallbackRates["UAH"], 0.0001)
	assert.Equal(t, cfg.Archive, got.Archive)
	assert.Equal(t, cfg.Git, got.Git)
}

func TestDefaults(t *testing.T) {
	cfg := Default("u1")

	assert.Equal(t, DriverFile, cfg.Store.Driver)
	assert.Equal(t, "data", cfg.Store.Dir)
	assert.Equal(t, "inbox", cfg.Import.InboxDir)
	assert.Equal(t, time.Hour, cfg.Import.SessionTTL)
	assert.Equal(t, ArchiveDir, cfg.Archive.Driver)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.True(t, cfg.Git.AutoCommit)
	assert.NoError(t, cfg.Validate())
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte("user_id: alice\nimport:\n  session_ttl: 15m\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.UserID)
	assert.Equal(t, 15*time.Minute, cfg.Import.SessionTTL)
	assert.Equal(t, "inbox", cfg.Import.InboxDir)
	assert.Equal(t, DriverFile, cfg.Store.Driver)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown store driver", "store:\n  driver: mysql\n"},
		{"postgres without dsn", "store:\n  driver: postgres\n"},
		{"gcs without bucket", "archive:\n  driver: gcs\n"},
		{"bad base currency", "base_currency: hryvnia\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), FileName)
			require.NoError(t, os.WriteFile(path, []byte(tt.yaml), 0o644))
			_, err := Load(path)
			assert.Error(t, err)
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"FINTRACK_DSN":        "postgres://localhost/fintrack",
		"FINTRACK_LOG_LEVEL":  "DEBUG",
		"FINTRACK_USER":       "bob",
		"FINTRACK_GCS_BUCKET": "statements",
	}
	cfg := Default("u1")
	cfg.ApplyEnv(func(k string) string { return env[k] })

	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/fintrack", cfg.Store.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "bob", cfg.UserID)
	assert.Equal(t, ArchiveGCS, cfg.Archive.Driver)
	assert.Equal(t, "statements", cfg.Archive.Bucket)
	assert.NoError(t, cfg.Validate())

	untouched := Default("u1")
	untouched.ApplyEnv(func(string) string { return "" })
	assert.Equal(t, Default("u1"), untouched)
}

func TestYAMLFormat(t *testing.T) {
	cfg := Default("u1")
	path := filepath.Join(t.TempDir(), FileName)
	err := Save(path, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "user_id: u1")
	assert.Contains(t, contents, "driver: file")
	assert.Contains(t, contents, "session_ttl: 1h0m0s")
	assert.Contains(t, contents, "auto_commit: true")
}

func TestResolve(t *testing.T) {
	assert.Equal(t, filepath.Join("root", "data"), Resolve("root", "data"))
	assert.Equal(t, "/abs/data", Resolve("root", "/abs/data"))
	assert.Empty(t, Resolve("root", ""))
}
