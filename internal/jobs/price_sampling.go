package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/modules/risk"
	"github.com/ballastfi/ballast/internal/modules/vaultcfg"
)

// historyRetention bounds how much price history is kept.
const historyRetention = 90 * 24 * time.Hour

// PriceSamplingJob records one oracle price sample per basket asset into
// the history database and prunes samples past retention.
type PriceSamplingJob struct {
	cfgRepo *vaultcfg.Repository
	oracle  domain.PriceOracle
	history *risk.HistoryRepository
	log     zerolog.Logger
}

// NewPriceSamplingJob creates the price sampling job.
func NewPriceSamplingJob(
	cfgRepo *vaultcfg.Repository,
	oracle domain.PriceOracle,
	history *risk.HistoryRepository,
	log zerolog.Logger,
) *PriceSamplingJob {
	return &PriceSamplingJob{
		cfgRepo: cfgRepo,
		oracle:  oracle,
		history: history,
		log:     log.With().Str("job", "price_sampling").Logger(),
	}
}

// Name returns the job name.
func (j *PriceSamplingJob) Name() string { return "price_sampling" }

// Run samples all basket assets. A single unavailable price skips that
// asset rather than failing the whole sample.
func (j *PriceSamplingJob) Run() error {
	cfg, ok, err := j.cfgRepo.Get()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if !ok {
		return fmt.Errorf("vault not initialized")
	}

	now := time.Now().UTC()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, asset := range cfg.Assets {
		price, err := j.oracle.Price(ctx, asset)
		if err != nil {
			j.log.Warn().Err(err).Str("asset", string(asset)).Msg("Price unavailable, sample skipped")
			continue
		}
		if err := j.history.Record(asset, price, now); err != nil {
			return fmt.Errorf("record %s sample: %w", asset, err)
		}
	}

	if _, err := j.history.Prune(now.Add(-historyRetention)); err != nil {
		j.log.Warn().Err(err).Msg("History prune failed")
	}
	return nil
}
