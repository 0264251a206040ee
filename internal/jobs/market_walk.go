package jobs

import (
	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/host"
)

// MarketWalkJob drives the simulated oracle with a bounded random walk so
// drift actually accumulates in dev mode.
type MarketWalkJob struct {
	oracle     *host.SimOracle
	maxStepBps uint64
	log        zerolog.Logger
}

// NewMarketWalkJob creates the market walk job.
func NewMarketWalkJob(oracle *host.SimOracle, maxStepBps uint64, log zerolog.Logger) *MarketWalkJob {
	return &MarketWalkJob{
		oracle:     oracle,
		maxStepBps: maxStepBps,
		log:        log.With().Str("job", "market_walk").Logger(),
	}
}

// Name returns the job name.
func (j *MarketWalkJob) Name() string { return "market_walk" }

// Run advances every simulated price by one random step.
func (j *MarketWalkJob) Run() error {
	j.oracle.Walk(j.maxStepBps)
	return nil
}
