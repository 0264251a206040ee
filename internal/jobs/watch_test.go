package jobs

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/database"
	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/gasbank"
	"github.com/ballastfi/ballast/internal/modules/risk"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := database.New(database.Config{
		Path: filepath.Join(t.TempDir(), "test.db"),
		Name: "test",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db.Conn()
}

func drainEvents(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev := <-ch:
			out = append(out, ev)
		default:
			return out
		}
	}
}

func creditGas(t *testing.T, db *sql.DB, gas *gasbank.Service, amount uint64) {
	t.Helper()
	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = gas.CreditTx(tx, amount)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())
}

func TestReserveWatchEmitsOnlyOnTransition(t *testing.T) {
	db := testDB(t)
	require.NoError(t, gasbank.InitSchema(db))
	gas := gasbank.NewService(db, 50, 100, zerolog.Nop())

	bus := events.NewBus(zerolog.Nop())
	ch, cancel := bus.Subscribe()
	defer cancel()

	job := NewReserveWatchJob(gas, bus, zerolog.Nop())

	// Balance 0 is below the warning level: one event on the first run,
	// none on the repeat.
	require.NoError(t, job.Run())
	require.NoError(t, job.Run())
	emitted := drainEvents(ch)
	require.Len(t, emitted, 1)
	assert.Equal(t, events.GasReserveLow, emitted[0].Type)

	// Topping up above the level and draining again re-triggers.
	creditGas(t, db, gas, 200)
	require.NoError(t, job.Run())
	assert.Empty(t, drainEvents(ch))

	tx, err := db.Begin()
	require.NoError(t, err)
	_, err = gas.DebitTx(tx, 150)
	require.NoError(t, err)
	require.NoError(t, tx.Commit())

	require.NoError(t, job.Run())
	emitted = drainEvents(ch)
	require.Len(t, emitted, 1)
	assert.Equal(t, events.GasReserveLow, emitted[0].Type)
}

func TestRiskWatchEmitsOnElevation(t *testing.T) {
	db := testDB(t)
	require.NoError(t, risk.InitSchema(db))
	history := risk.NewHistoryRepository(db, zerolog.Nop())

	assets := [domain.NumAssets]domain.AssetID{"tkn:base", "tkn:alpha", "tkn:beta"}
	advisor := risk.NewAdvisor(history, assets, 8760, 80, zerolog.Nop())

	// Alpha oscillates hard, the others hold flat.
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 24; i++ {
		at := start.Add(time.Duration(i) * time.Hour)
		require.NoError(t, history.Record(assets[0], 100, at))
		require.NoError(t, history.Record(assets[2], 100, at))
		price := uint64(100)
		if i%2 == 1 {
			price = 104
		}
		require.NoError(t, history.Record(assets[1], price, at))
	}

	bus := events.NewBus(zerolog.Nop())
	ch, cancel := bus.Subscribe()
	defer cancel()

	job := NewRiskWatchJob(advisor, bus, zerolog.Nop())

	require.NoError(t, job.Run())
	emitted := drainEvents(ch)
	require.Len(t, emitted, 1)
	assert.Equal(t, events.RiskAdvisory, emitted[0].Type)

	// Still elevated: no repeat while the state holds.
	require.NoError(t, job.Run())
	assert.Empty(t, drainEvents(ch))
}
