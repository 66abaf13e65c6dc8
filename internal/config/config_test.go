package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, "previewtrail.db", cfg.Database)
	assert.Equal(t, 24, cfg.HistoryLimit)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_FullConfig(t *testing.T) {
	path := writeConfig(t, `
database: /var/lib/previewtrail/history.db
history_limit: 48
log_level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/previewtrail/history.db", cfg.Database)
	assert.Equal(t, 48, cfg.HistoryLimit)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_PartialConfigBackfillsDefaults(t *testing.T) {
	path := writeConfig(t, `history_limit: 5`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.HistoryLimit)
	assert.Equal(t, "previewtrail.db", cfg.Database)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_EmptyFileIsDefaults(t *testing.T) {
	path := writeConfig(t, "")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_NonPositiveLimitFallsBack(t *testing.T) {
	path := writeConfig(t, `history_limit: -3`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.HistoryLimit)
}

func TestLoad_UnknownFieldRejected(t *testing.T) {
	path := writeConfig(t, `history_limt: 10`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config file")
}
