package host

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/domain"
)

func TestTokenLedgerSnapshotRestores(t *testing.T) {
	ctx := context.Background()
	ledger := NewTokenLedger()
	ledger.Mint("tkn:base", "addr:a", 1000)
	require.NoError(t, ledger.Approve(ctx, "tkn:base", "addr:a", "addr:spender", 500))

	restore := ledger.Snapshot()

	require.NoError(t, ledger.Transfer(ctx, "tkn:base", "addr:a", "addr:b", 700))
	require.NoError(t, ledger.TransferFrom(ctx, "tkn:base", "addr:spender", "addr:a", "addr:b", 200))

	restore()

	bal, err := ledger.BalanceOf(ctx, "tkn:base", "addr:a")
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), bal)
	bal, err = ledger.BalanceOf(ctx, "tkn:base", "addr:b")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), bal)

	// The allowance is back too, so the restored spend succeeds in full.
	require.NoError(t, ledger.TransferFrom(ctx, "tkn:base", "addr:spender", "addr:a", "addr:b", 500))
}

func TestAMMRouterSnapshotRestoresReserves(t *testing.T) {
	ctx := context.Background()
	ledger := NewTokenLedger()
	router := NewAMMRouter(ledger, "tkn:base", 30)
	router.AddPool("tkn:base", "tkn:alpha", 1_000_000, 2_000_000)

	quotedBefore, _, err := router.Quote(ctx, "tkn:base", "tkn:alpha", 1000)
	require.NoError(t, err)

	restoreRouter := router.Snapshot()
	restoreLedger := ledger.Snapshot()

	caller := domain.Address("addr:trader")
	ledger.Mint("tkn:base", caller, 1000)
	require.NoError(t, ledger.Approve(ctx, "tkn:base", caller, RouterAddress, 1000))
	_, err = router.SwapExactIn(ctx, caller, []domain.AssetID{"tkn:base", "tkn:alpha"}, 1000, 0, time.Now().Add(time.Minute))
	require.NoError(t, err)

	restoreLedger()
	restoreRouter()

	quotedAfter, _, err := router.Quote(ctx, "tkn:base", "tkn:alpha", 1000)
	require.NoError(t, err)
	assert.Equal(t, quotedBefore, quotedAfter)
}
