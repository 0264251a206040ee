package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BALLAST_DATA_DIR", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8090, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "sim", cfg.OracleURL)
	assert.False(t, cfg.DevMode)
	assert.Equal(t, uint64(50_000_000), cfg.GasMinReserve)
	assert.Equal(t, uint64(100_000_000), cfg.GasWarnReserve)
	assert.Equal(t, uint64(100), cfg.MaxSlippageBps)
	assert.Equal(t, int64(300), cfg.SwapDeadlineSecs)
	assert.InDelta(t, 80.0, cfg.VolatilityAlertPct, 0.001)
}

func TestLoadOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BALLAST_DATA_DIR", dir)
	t.Setenv("BALLAST_PORT", "9100")
	t.Setenv("BALLAST_LOG_LEVEL", "debug")
	t.Setenv("BALLAST_DEV_MODE", "true")
	t.Setenv("BALLAST_ORACLE_URL", "ws://feed.example:7777/prices")
	t.Setenv("BALLAST_GAS_MIN_RESERVE", "123")
	t.Setenv("BALLAST_MAX_SLIPPAGE_BPS", "250")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.DevMode)
	assert.Equal(t, "ws://feed.example:7777/prices", cfg.OracleURL)
	assert.Equal(t, uint64(123), cfg.GasMinReserve)
	assert.Equal(t, uint64(250), cfg.MaxSlippageBps)
}

func TestLoadDatabasePaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("BALLAST_DATA_DIR", dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "state.db"), cfg.StateDBPath())
	assert.Equal(t, filepath.Join(dir, "journal.db"), cfg.JournalDBPath())
	assert.Equal(t, filepath.Join(dir, "history.db"), cfg.HistoryDBPath())
	assert.Equal(t, filepath.Join(dir, "genesis.yaml"), cfg.GenesisPath)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Setenv("BALLAST_DATA_DIR", t.TempDir())
	t.Setenv("BALLAST_PORT", "not-a-number")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsExcessiveSlippage(t *testing.T) {
	t.Setenv("BALLAST_DATA_DIR", t.TempDir())
	t.Setenv("BALLAST_MAX_SLIPPAGE_BPS", "10000")

	_, err := Load()
	assert.Error(t, err)
}
