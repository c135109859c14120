package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-ledger/internal/errors"
)

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(body), 0644))
}

func TestLoadWritesTemplate(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Load(dir)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "config.toml"))
	assert.NoError(t, err, "template should be written")

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "ledger.db"), cfg.Storage.DBPath)
	assert.Equal(t, filepath.Join(dir, "audit"), cfg.Audit.Dir)
	assert.Equal(t, []string{"BE", "breakeven"}, cfg.Analytics.NeutralExits)
	assert.Equal(t, "currency", cfg.Analytics.DisplayMode)
	assert.Equal(t, "1D", cfg.Import.LongTimeframe)
	require.Len(t, cfg.Import.TimeframeThresholds, 4)
	assert.Equal(t, TimeframeThreshold{MaxSeconds: 300, Timeframe: "5min"}, cfg.Import.TimeframeThresholds[0])

	// The written template loads back to the same values.
	again, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)
}

func TestLoadCustomFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[storage]
db_path = "/data/ledger.db"

[analytics]
neutral_exits = ["scratch"]
display_mode = "percent"

[import]
long_timeframe = "W"

[[import.timeframe_thresholds]]
max_seconds = 60
timeframe = "1m"
`)
	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "/data/ledger.db", cfg.Storage.DBPath)
	assert.Equal(t, []string{"scratch"}, cfg.Analytics.NeutralExits)
	assert.Equal(t, "percent", cfg.Analytics.DisplayMode)
	assert.Equal(t, []TimeframeThreshold{{MaxSeconds: 60, Timeframe: "1m"}}, cfg.Import.TimeframeThresholds)
	assert.Equal(t, "W", cfg.Import.LongTimeframe)
}

func TestLoadEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("TRADELOG_LOG_LEVEL", "debug")
	t.Setenv("TRADELOG_DB_PATH", filepath.Join(dir, "other.db"))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, filepath.Join(dir, "other.db"), cfg.Storage.DBPath)
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"log level":    "[log]\nlevel = \"verbose\"\n",
		"display mode": "[analytics]\ndisplay_mode = \"pips\"\n",
		"thresholds":   "[[import.timeframe_thresholds]]\nmax_seconds = 600\ntimeframe = \"10m\"\n\n[[import.timeframe_thresholds]]\nmax_seconds = 60\ntimeframe = \"1m\"\n",
		"rotation":     "[log]\nmax_age = -1\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, body)
			_, err := Load(dir)
			assert.ErrorIs(t, err, errors.ErrConfig)
		})
	}
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "[log\nlevel = ")
	_, err := Load(dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, errors.ErrConfig)
}

func TestDefault(t *testing.T) {
	cfg := Default("/cfg")
	assert.Equal(t, "/cfg/ledger.db", cfg.Storage.DBPath)
	assert.True(t, cfg.Audit.Enabled)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "/cfg/logs/tradelog.log", cfg.LogFilePath())
}
