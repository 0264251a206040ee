package vaultcfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/domain"
)

func writeGenesis(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadGenesis(t *testing.T) {
	path := writeGenesis(t, `
owner: "addr:owner"
router: "sim:router"
assets: ["tkn:base", "tkn:alpha", "tkn:beta"]
targets_bps: [4000, 3000, 3000]
max_drift_bps: 500
epoch_seconds: 3600
min_deposit: 100
min_slice_value: 10
`)

	cfg, err := LoadGenesis(path)
	require.NoError(t, err)

	assert.Equal(t, domain.Address("addr:owner"), cfg.Owner)
	assert.Equal(t, domain.AssetID("tkn:base"), cfg.BaseAsset())
	assert.Equal(t, [domain.NumAssets]uint64{4000, 3000, 3000}, cfg.Targets)
	assert.Equal(t, uint64(500), cfg.MaxDriftBps)
	assert.Equal(t, uint64(3600), cfg.EpochSeconds)
}

func TestLoadGenesisWrongAssetCount(t *testing.T) {
	path := writeGenesis(t, `
owner: "addr:owner"
router: "sim:router"
assets: ["tkn:base", "tkn:alpha"]
targets_bps: [5000, 5000]
max_drift_bps: 500
epoch_seconds: 3600
min_deposit: 100
min_slice_value: 10
`)

	_, err := LoadGenesis(path)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestLoadGenesisInvalidTargets(t *testing.T) {
	path := writeGenesis(t, `
owner: "addr:owner"
router: "sim:router"
assets: ["tkn:base", "tkn:alpha", "tkn:beta"]
targets_bps: [4000, 3000, 2000]
max_drift_bps: 500
epoch_seconds: 3600
min_deposit: 100
min_slice_value: 10
`)

	_, err := LoadGenesis(path)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestLoadGenesisMissingFile(t *testing.T) {
	_, err := LoadGenesis(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
