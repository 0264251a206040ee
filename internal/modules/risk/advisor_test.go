package risk

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/database"
	"github.com/ballastfi/ballast/internal/domain"
)

var testAssets = [domain.NumAssets]domain.AssetID{"tkn:base", "tkn:alpha", "tkn:beta"}

func newHistory(t *testing.T) *HistoryRepository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), "history.db"),
		Profile: database.ProfileCache,
		Name:    "history",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, InitSchema(db.Conn()))
	return NewHistoryRepository(db.Conn(), zerolog.Nop())
}

func TestAssessWithoutHistory(t *testing.T) {
	history := newHistory(t)
	advisor := NewAdvisor(history, testAssets, 8760, 80, zerolog.Nop())

	advisories, err := advisor.Assess()
	require.NoError(t, err)
	require.Len(t, advisories, domain.NumAssets)

	for _, adv := range advisories {
		assert.Zero(t, adv.AnnualVolPct)
		assert.Zero(t, adv.RSI)
		assert.False(t, adv.Elevated)
	}
}

func TestAssessComputesVolatilityAndRSI(t *testing.T) {
	history := newHistory(t)
	advisor := NewAdvisor(history, testAssets, 8760, 80, zerolog.Nop())

	at := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24; i++ {
		// Base stays flat; alpha oscillates.
		require.NoError(t, history.Record("tkn:base", 100, at))
		alpha := uint64(100)
		if i%2 == 0 {
			alpha = 104
		}
		require.NoError(t, history.Record("tkn:alpha", alpha, at))
		at = at.Add(time.Hour)
	}

	advisories, err := advisor.Assess()
	require.NoError(t, err)
	require.Len(t, advisories, domain.NumAssets)

	base, alpha, beta := advisories[0], advisories[1], advisories[2]

	assert.Equal(t, 24, base.Samples)
	assert.Zero(t, base.AnnualVolPct)

	assert.Equal(t, 24, alpha.Samples)
	assert.Greater(t, alpha.AnnualVolPct, 80.0)
	assert.True(t, alpha.Elevated)
	assert.Greater(t, alpha.RSI, 0.0)
	assert.LessOrEqual(t, alpha.RSI, 100.0)

	// Beta has no samples at all.
	assert.Equal(t, 0, beta.Samples)
	assert.False(t, beta.Elevated)
}

func TestPruneDropsOldSamples(t *testing.T) {
	history := newHistory(t)

	old := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, history.Record("tkn:base", 100, old))
	require.NoError(t, history.Record("tkn:base", 101, recent))

	dropped, err := history.Prune(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, int64(1), dropped)

	prices, err := history.Recent("tkn:base", 10)
	require.NoError(t, err)
	assert.Equal(t, []float64{101}, prices)
}
