package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ballastfi/ballast/internal/database"
	"github.com/ballastfi/ballast/pkg/logger"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	db, err := database.New(database.Config{
		Path:    "file:events_test_" + t.Name() + "?mode=memory&cache=shared",
		Profile: database.ProfileLedger,
		Name:    "journal",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, InitJournalSchema(db.Conn()))

	log := logger.New(logger.Config{Level: "error"})
	return NewJournal(db.Conn(), log)
}

func TestBusEmitDeliversToSubscribers(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	bus := NewBus(log)

	ch, cancel := bus.Subscribe()
	defer cancel()

	emitted := bus.Emit(&DepositData{Holder: "0xalice", Amount: 1000, Shares: 1000})

	received := <-ch
	assert.Equal(t, emitted.ID, received.ID)
	assert.Equal(t, Deposit, received.Type)

	data, ok := received.Data.(*DepositData)
	require.True(t, ok)
	assert.Equal(t, uint64(1000), data.Shares)
}

func TestBusUnsubscribeStopsDelivery(t *testing.T) {
	log := logger.New(logger.Config{Level: "error"})
	bus := NewBus(log)

	ch, cancel := bus.Subscribe()
	cancel()

	bus.Emit(&PausedData{})

	_, open := <-ch
	assert.False(t, open)
}

func TestJournalAppendAndRecent(t *testing.T) {
	journal := testJournal(t)
	log := logger.New(logger.Config{Level: "error"})
	bus := NewBus(log)
	bus.AddSink(journal)

	bus.Emit(&DepositData{Holder: "0xalice", Amount: 500, Shares: 500})
	bus.Emit(&RebalanceSkippedData{Reason: "within threshold"})

	entries, err := journal.Recent(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first
	assert.Equal(t, RebalanceSkipped, entries[0].Type)
	assert.Equal(t, Deposit, entries[1].Type)
	assert.Contains(t, string(entries[0].Payload), "within threshold")
}
