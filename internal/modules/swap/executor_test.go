package swap

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/host"
)

const testVault = domain.Address("sim:vault")

func newExecutorFixture() (*Executor, *host.TokenLedger, *host.AMMRouter) {
	ledger := host.NewTokenLedger()
	router := host.NewAMMRouter(ledger, "tkn:base", 30)
	router.AddPool("tkn:base", "tkn:alpha", 1_000_000, 1_000_000)
	exec := NewExecutor(ledger, router, testVault, host.RouterAddress, 100, time.Minute, zerolog.Nop())
	return exec, ledger, router
}

func TestExecuteSettlesSwap(t *testing.T) {
	exec, ledger, _ := newExecutorFixture()
	ctx := context.Background()

	ledger.Mint("tkn:base", testVault, 10_000)

	res, err := exec.Execute(ctx, Leg{From: "tkn:base", To: "tkn:alpha", AmountIn: 1000})
	require.NoError(t, err)

	assert.Equal(t, uint64(1000), res.AmountIn)
	assert.Greater(t, res.AmountOut, uint64(0))
	assert.Equal(t, []domain.AssetID{"tkn:base", "tkn:alpha"}, res.Path)

	base, err := ledger.BalanceOf(ctx, "tkn:base", testVault)
	require.NoError(t, err)
	assert.Equal(t, uint64(9000), base)

	alpha, err := ledger.BalanceOf(ctx, "tkn:alpha", testVault)
	require.NoError(t, err)
	assert.Equal(t, res.AmountOut, alpha)
}

func TestExecuteRejectsSilentRouter(t *testing.T) {
	exec, ledger, router := newExecutorFixture()
	ctx := context.Background()

	ledger.Mint("tkn:base", testVault, 10_000)
	router.SilentFail = true

	_, err := exec.Execute(ctx, Leg{From: "tkn:base", To: "tkn:alpha", AmountIn: 1000})
	assert.ErrorIs(t, err, domain.ErrExternalCall)

	// No funds moved.
	base, err := ledger.BalanceOf(ctx, "tkn:base", testVault)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000), base)
}

func TestExecuteRejectsUnquotablePair(t *testing.T) {
	exec, ledger, _ := newExecutorFixture()
	ctx := context.Background()

	ledger.Mint("tkn:base", testVault, 10_000)

	_, err := exec.Execute(ctx, Leg{From: "tkn:base", To: "tkn:unknown", AmountIn: 1000})
	assert.ErrorIs(t, err, domain.ErrExternalCall)
}
