package jobs

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/gasbank"
)

// ReserveWatchJob emits a warning event when the gas bank drops below the
// warning level. Only the transition into the low state is emitted, so a
// starved reserve does not flood the journal.
type ReserveWatchJob struct {
	gas *gasbank.Service
	bus *events.Bus
	log zerolog.Logger

	mu  sync.Mutex
	low bool
}

// NewReserveWatchJob creates the reserve watcher.
func NewReserveWatchJob(gas *gasbank.Service, bus *events.Bus, log zerolog.Logger) *ReserveWatchJob {
	return &ReserveWatchJob{
		gas: gas,
		bus: bus,
		log: log.With().Str("job", "reserve_watch").Logger(),
	}
}

// Name returns the job name.
func (j *ReserveWatchJob) Name() string { return "reserve_watch" }

// Run checks the reserve against the warning level.
func (j *ReserveWatchJob) Run() error {
	balance, err := j.gas.Balance()
	if err != nil {
		return err
	}

	nowLow := balance < j.gas.WarnReserve()

	j.mu.Lock()
	wasLow := j.low
	j.low = nowLow
	j.mu.Unlock()

	if nowLow && !wasLow {
		j.log.Warn().
			Uint64("balance", balance).
			Uint64("warn_reserve", j.gas.WarnReserve()).
			Msg("Gas reserve below warning level")
		j.bus.Emit(&events.GasReserveLowData{Balance: balance, WarnReserve: j.gas.WarnReserve()})
	}
	return nil
}
