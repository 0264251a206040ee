package risk

import (
	"math"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/ballastfi/ballast/internal/domain"
)

// rsiPeriod is the standard 14-sample RSI window.
const rsiPeriod = 14

// minSamples is the smallest history that yields a meaningful picture.
const minSamples = rsiPeriod + 2

// Advisory is the per-asset risk picture.
type Advisory struct {
	Asset        domain.AssetID `json:"asset"`
	Samples      int            `json:"samples"`
	AnnualVolPct float64        `json:"annual_vol_pct"`
	RSI          float64        `json:"rsi"`
	Elevated     bool           `json:"elevated"`
}

// Advisor computes volatility advisories from sampled prices.
type Advisor struct {
	history        *HistoryRepository
	assets         [domain.NumAssets]domain.AssetID
	samplesPerYear float64
	alertVolPct    float64
	log            zerolog.Logger
}

// NewAdvisor creates a risk advisor. samplesPerYear reflects the sampling
// job's cadence and scales per-sample volatility to an annual figure.
func NewAdvisor(
	history *HistoryRepository,
	assets [domain.NumAssets]domain.AssetID,
	samplesPerYear float64,
	alertVolPct float64,
	log zerolog.Logger,
) *Advisor {
	return &Advisor{
		history:        history,
		assets:         assets,
		samplesPerYear: samplesPerYear,
		alertVolPct:    alertVolPct,
		log:            log.With().Str("service", "risk_advisor").Logger(),
	}
}

// Assess returns one advisory per basket asset. Assets with too little
// history produce an advisory with zero metrics and Elevated false.
func (a *Advisor) Assess() ([]Advisory, error) {
	advisories := make([]Advisory, 0, domain.NumAssets)

	for _, asset := range a.assets {
		prices, err := a.history.Recent(asset, 256)
		if err != nil {
			return nil, err
		}

		adv := Advisory{Asset: asset, Samples: len(prices)}
		if len(prices) >= minSamples {
			adv.AnnualVolPct = a.annualizedVol(prices)
			adv.RSI = lastRSI(prices)
			adv.Elevated = adv.AnnualVolPct >= a.alertVolPct
		}
		advisories = append(advisories, adv)
	}

	return advisories, nil
}

// annualizedVol is the standard deviation of log returns scaled to a year.
func (a *Advisor) annualizedVol(prices []float64) float64 {
	returns := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] <= 0 || prices[i] <= 0 {
			continue
		}
		returns = append(returns, math.Log(prices[i]/prices[i-1]))
	}
	if len(returns) < 2 {
		return 0
	}

	sd := stat.StdDev(returns, nil)
	return sd * math.Sqrt(a.samplesPerYear) * 100
}

// lastRSI is the most recent 14-period RSI value.
func lastRSI(prices []float64) float64 {
	rsi := talib.Rsi(prices, rsiPeriod)
	for i := len(rsi) - 1; i >= 0; i-- {
		if rsi[i] != 0 {
			return rsi[i]
		}
	}
	return 0
}
