package shares

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/database"
	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/pkg/logger"
)

func testRepo(t *testing.T) *Repository {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    "file:shares_test_" + t.Name() + "?mode=memory&cache=shared",
		Profile: database.ProfileStandard,
		Name:    "state",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitSchema(db.Conn()))

	log := logger.New(logger.Config{Level: "error"})
	return NewRepository(db.Conn(), log)
}

func inTx(t *testing.T, r *Repository, fn func(tx *sql.Tx) error) error {
	t.Helper()
	tx, err := r.db.Begin()
	require.NoError(t, err)
	if err := fn(tx); err != nil {
		require.NoError(t, tx.Rollback())
		return err
	}
	require.NoError(t, tx.Commit())
	return nil
}

func TestMintAndBurnMaintainInvariant(t *testing.T) {
	r := testRepo(t)

	require.NoError(t, inTx(t, r, func(tx *sql.Tx) error {
		return r.MintTx(tx, "0xalice", 1_000_000)
	}))
	require.NoError(t, inTx(t, r, func(tx *sql.Tx) error {
		return r.MintTx(tx, "0xbob", 250_000)
	}))
	require.NoError(t, inTx(t, r, func(tx *sql.Tx) error {
		return r.BurnTx(tx, "0xalice", 400_000)
	}))

	total, err := r.TotalShares()
	require.NoError(t, err)
	sum, err := r.SumHolders()
	require.NoError(t, err)
	assert.Equal(t, total, sum)
	assert.Equal(t, uint64(850_000), total)

	alice, err := r.BalanceOf("0xalice")
	require.NoError(t, err)
	assert.Equal(t, uint64(600_000), alice)
}

func TestBurnToZeroDeletesHolderRow(t *testing.T) {
	r := testRepo(t)

	require.NoError(t, inTx(t, r, func(tx *sql.Tx) error {
		return r.MintTx(tx, "0xalice", 100)
	}))
	require.NoError(t, inTx(t, r, func(tx *sql.Tx) error {
		return r.BurnTx(tx, "0xalice", 100)
	}))

	holders, err := r.Holders()
	require.NoError(t, err)
	assert.Empty(t, holders)

	balance, err := r.BalanceOf("0xalice")
	require.NoError(t, err)
	assert.Equal(t, uint64(0), balance)
}

func TestBurnRejectsInsufficientShares(t *testing.T) {
	r := testRepo(t)

	require.NoError(t, inTx(t, r, func(tx *sql.Tx) error {
		return r.MintTx(tx, "0xalice", 100)
	}))

	err := inTx(t, r, func(tx *sql.Tx) error {
		return r.BurnTx(tx, "0xalice", 101)
	})
	assert.ErrorIs(t, err, domain.ErrPrecondition)

	// The failed burn rolled back: nothing changed.
	total, err := r.TotalShares()
	require.NoError(t, err)
	assert.Equal(t, uint64(100), total)
}

func TestRedemptionAmounts(t *testing.T) {
	tests := []struct {
		name     string
		burned   uint64
		total    uint64
		balances domain.Balances
		want     domain.Balances
		wantErr  bool
	}{
		{
			name:     "exactly half of each",
			burned:   500_000,
			total:    1_000_000,
			balances: domain.Balances{600, 400, 1000},
			want:     domain.Balances{300, 200, 500},
		},
		{
			name:     "floor division never overpays",
			burned:   1,
			total:    3,
			balances: domain.Balances{10, 11, 2},
			want:     domain.Balances{3, 3, 0},
		},
		{
			name:    "zero total shares",
			burned:  1,
			total:   0,
			wantErr: true,
		},
		{
			name:    "burning more than total",
			burned:  10,
			total:   5,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RedemptionAmounts(tt.burned, tt.total, tt.balances)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrPrecondition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
