package drift

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/domain"
)

var equalTargets = [3]uint64{3333, 3333, 3334}

func TestComputeAllInBaseAsset(t *testing.T) {
	// Fresh vault after a single deposit: 100% base asset.
	report, err := Compute(
		domain.Balances{1_000_000, 0, 0},
		domain.Prices{1, 1, 1},
		equalTargets,
	)
	require.NoError(t, err)

	assert.False(t, report.Empty)
	assert.Equal(t, uint64(10000), report.CurrentBps[0])
	assert.Equal(t, uint64(6667), report.MaxDrift)
	assert.True(t, report.Exceeds(2000))
}

func TestComputeAtTarget(t *testing.T) {
	// Values exactly proportional to targets.
	report, err := Compute(
		domain.Balances{3333, 3333, 3334},
		domain.Prices{1, 1, 1},
		equalTargets,
	)
	require.NoError(t, err)

	assert.Equal(t, uint64(0), report.MaxDrift)
	assert.False(t, report.Exceeds(1000))
}

func TestComputeZeroTotal(t *testing.T) {
	report, err := Compute(domain.Balances{}, domain.Prices{1, 1, 1}, equalTargets)
	require.NoError(t, err)

	assert.True(t, report.Empty)
	assert.False(t, report.Exceeds(1))
}

func TestComputeUsesPrices(t *testing.T) {
	// Equal balances but asset C is worth 8x: allocation must follow value,
	// not raw balance.
	report, err := Compute(
		domain.Balances{100, 100, 100},
		domain.Prices{1, 1, 8},
		equalTargets,
	)
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), report.CurrentBps[0])
	assert.Equal(t, uint64(1000), report.CurrentBps[1])
	assert.Equal(t, uint64(8000), report.CurrentBps[2])
	assert.Equal(t, uint64(4666), report.MaxDrift)
}

func TestComputeDeterministic(t *testing.T) {
	balances := domain.Balances{12345, 67890, 13579}
	prices := domain.Prices{3, 7, 11}

	first, err := Compute(balances, prices, equalTargets)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Compute(balances, prices, equalTargets)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestComputeRejectsValueOverflow(t *testing.T) {
	_, err := Compute(
		domain.Balances{math.MaxUint64, 0, 0},
		domain.Prices{2, 1, 1},
		equalTargets,
	)
	assert.ErrorIs(t, err, domain.ErrOverflow)
}
