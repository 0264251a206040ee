package jobs

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/risk"
)

// RiskWatchJob emits an advisory event when an asset's annualized volatility
// crosses the alert threshold. Only the transition into the elevated state is
// emitted per asset. The advisory never touches the guard; arming it stays an
// owner decision.
type RiskWatchJob struct {
	advisor *risk.Advisor
	bus     *events.Bus
	log     zerolog.Logger

	mu       sync.Mutex
	elevated map[domain.AssetID]bool
}

// NewRiskWatchJob creates the volatility watcher.
func NewRiskWatchJob(advisor *risk.Advisor, bus *events.Bus, log zerolog.Logger) *RiskWatchJob {
	return &RiskWatchJob{
		advisor:  advisor,
		bus:      bus,
		log:      log.With().Str("job", "risk_watch").Logger(),
		elevated: make(map[domain.AssetID]bool, domain.NumAssets),
	}
}

// Name returns the job name.
func (j *RiskWatchJob) Name() string { return "risk_watch" }

// Run assesses every basket asset and emits advisories for new elevations.
func (j *RiskWatchJob) Run() error {
	advisories, err := j.advisor.Assess()
	if err != nil {
		return err
	}

	for _, adv := range advisories {
		j.mu.Lock()
		was := j.elevated[adv.Asset]
		j.elevated[adv.Asset] = adv.Elevated
		j.mu.Unlock()

		if adv.Elevated && !was {
			j.log.Warn().
				Str("asset", string(adv.Asset)).
				Float64("annual_vol_pct", adv.AnnualVolPct).
				Msg("Volatility above alert threshold")
			j.bus.Emit(&events.RiskAdvisoryData{
				Asset:          adv.Asset,
				AnnualVolPct:   adv.AnnualVolPct,
				RSI:            adv.RSI,
				Recommendation: "volatility elevated, consider arming the guard",
			})
		}
	}
	return nil
}
