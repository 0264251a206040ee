package swap

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/modules/drift"
	"github.com/ballastfi/ballast/internal/modules/vaultcfg"
)

func plannerConfig() vaultcfg.VaultConfig {
	return vaultcfg.VaultConfig{
		Targets:       [domain.NumAssets]uint64{4000, 3000, 3000},
		MaxDriftBps:   500,
		EpochSeconds:  3600,
		MinDeposit:    100,
		MinSliceValue: 10,
		Owner:         "addr:owner",
		Assets:        [domain.NumAssets]domain.AssetID{"tkn:base", "tkn:alpha", "tkn:beta"},
		Router:        "sim:router",
	}
}

func mustReport(t *testing.T, balances domain.Balances, prices domain.Prices, cfg vaultcfg.VaultConfig) drift.Report {
	t.Helper()
	report, err := drift.Compute(balances, prices, cfg.Targets)
	require.NoError(t, err)
	return report
}

func TestPlanAllInBase(t *testing.T) {
	cfg := plannerConfig()
	balances := domain.Balances{1000, 0, 0}
	prices := domain.Prices{1, 1, 1}
	report := mustReport(t, balances, prices, cfg)

	legs, err := NewPlanner(zerolog.Nop()).Plan(report, cfg, balances, prices)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	assert.Equal(t, domain.AssetID("tkn:base"), legs[0].From)
	assert.Equal(t, domain.AssetID("tkn:alpha"), legs[0].To)
	assert.Equal(t, uint64(300), legs[0].AmountIn)

	assert.Equal(t, domain.AssetID("tkn:beta"), legs[1].To)
	assert.Equal(t, uint64(300), legs[1].AmountIn)
}

func TestPlanLegsCappedAtHalfRemainingBase(t *testing.T) {
	cfg := plannerConfig()
	// Base is scarce relative to the deficits: both legs want far more
	// than half the base balance.
	balances := domain.Balances{100, 0, 0}
	prices := domain.Prices{1, 1, 1}
	cfg.Targets = [domain.NumAssets]uint64{0, 5000, 5000}
	report := mustReport(t, balances, prices, cfg)

	legs, err := NewPlanner(zerolog.Nop()).Plan(report, cfg, balances, prices)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	// First leg takes half of 100, second half of the remaining 50.
	assert.Equal(t, uint64(50), legs[0].AmountIn)
	assert.Equal(t, uint64(25), legs[1].AmountIn)
}

func TestPlanSkipsSlicesBelowMinimum(t *testing.T) {
	cfg := plannerConfig()
	cfg.MinSliceValue = 500
	balances := domain.Balances{1000, 0, 0}
	prices := domain.Prices{1, 1, 1}
	report := mustReport(t, balances, prices, cfg)

	// Each deficit is worth 300, below the 500 floor.
	legs, err := NewPlanner(zerolog.Nop()).Plan(report, cfg, balances, prices)
	require.NoError(t, err)
	assert.Empty(t, legs)
}

func TestPlanRespectsUnderAllocationBuffer(t *testing.T) {
	cfg := plannerConfig()
	// Alpha sits just inside the dead band (2950 vs target 3000).
	balances := domain.Balances{405, 295, 300}
	prices := domain.Prices{1, 1, 1}
	report := mustReport(t, balances, prices, cfg)

	legs, err := NewPlanner(zerolog.Nop()).Plan(report, cfg, balances, prices)
	require.NoError(t, err)
	assert.Empty(t, legs)
}

func TestPlanEmptyReport(t *testing.T) {
	cfg := plannerConfig()
	balances := domain.Balances{}
	prices := domain.Prices{1, 1, 1}
	report := mustReport(t, balances, prices, cfg)
	require.True(t, report.Empty)

	legs, err := NewPlanner(zerolog.Nop()).Plan(report, cfg, balances, prices)
	require.NoError(t, err)
	assert.Nil(t, legs)
}

func TestPlanZeroBasePriceRejected(t *testing.T) {
	cfg := plannerConfig()
	balances := domain.Balances{1000, 0, 0}
	prices := domain.Prices{1, 1, 1}
	report := mustReport(t, balances, prices, cfg)

	prices[domain.BaseAssetIndex] = 0
	_, err := NewPlanner(zerolog.Nop()).Plan(report, cfg, balances, prices)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
}

func TestPlanPriceWeightedAmounts(t *testing.T) {
	cfg := plannerConfig()
	// Base trades at 2 value units: amounts halve in base terms.
	balances := domain.Balances{500, 0, 0}
	prices := domain.Prices{2, 1, 1}
	report := mustReport(t, balances, prices, cfg)

	legs, err := NewPlanner(zerolog.Nop()).Plan(report, cfg, balances, prices)
	require.NoError(t, err)
	require.Len(t, legs, 2)

	// Deficit value 300 at base price 2 is 150 base units.
	assert.Equal(t, uint64(150), legs[0].AmountIn)
	assert.Equal(t, uint64(150), legs[1].AmountIn)
}
