// Package swap plans and executes the router swaps that correct basket
// drift. Planning walks the assets in fixed index order and funds every
// under-allocated asset from the base asset independently; there is no
// global optimization of the trade set.
package swap

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/modules/drift"
	"github.com/ballastfi/ballast/internal/modules/vaultcfg"
	"github.com/ballastfi/ballast/internal/umath"
)

// UnderAllocBufferBps is the dead band below target before an asset is
// considered under-allocated (~1 percentage point).
const UnderAllocBufferBps = 100

// Leg is one planned swap: buy the deficit of a single under-allocated
// asset with base-asset funds.
type Leg struct {
	From         domain.AssetID
	To           domain.AssetID
	AmountIn     uint64 // base asset units
	DeficitValue uint64 // common value units, for audit
}

// Planner decides which swaps are needed to correct drift.
type Planner struct {
	log zerolog.Logger
}

// NewPlanner creates a new swap planner.
func NewPlanner(log zerolog.Logger) *Planner {
	return &Planner{
		log: log.With().Str("service", "swap_planner").Logger(),
	}
}

// Plan computes the swap legs for the given drift report. Legs are returned
// in asset-index order. Each leg draws from the base asset, capped at half
// of the base balance still unspent, and legs below the minimum slice value
// are dropped as uneconomical.
func (p *Planner) Plan(report drift.Report, cfg vaultcfg.VaultConfig, balances domain.Balances, prices domain.Prices) ([]Leg, error) {
	if report.Empty {
		return nil, nil
	}

	basePrice := prices[domain.BaseAssetIndex]
	if basePrice == 0 {
		return nil, domain.PreconditionError("base asset price is zero")
	}

	remainingBase := balances[domain.BaseAssetIndex]
	var legs []Leg

	for i := 0; i < domain.NumAssets; i++ {
		if i == domain.BaseAssetIndex {
			// The base asset is only ever a source; its own drift is
			// corrected implicitly as it gets spent.
			continue
		}

		current := report.CurrentBps[i]
		target := cfg.Targets[i]
		if current+UnderAllocBufferBps >= target {
			continue
		}

		deficitValue, err := umath.MulDiv(target-current, report.TotalValue, domain.TotalBps)
		if err != nil {
			return nil, fmt.Errorf("deficit value for asset %d: %w", i, err)
		}

		if deficitValue < cfg.MinSliceValue {
			p.log.Debug().
				Str("asset", string(cfg.Assets[i])).
				Uint64("deficit_value", deficitValue).
				Uint64("min_slice_value", cfg.MinSliceValue).
				Msg("Swap leg below minimum slice, skipped")
			continue
		}

		amountIn := deficitValue / basePrice

		// Anti-drain safeguard: never spend more than half of the base
		// funds still available.
		if limit := remainingBase / 2; amountIn > limit {
			amountIn = limit
		}
		if amountIn == 0 {
			continue
		}

		remainingBase -= amountIn
		legs = append(legs, Leg{
			From:         cfg.BaseAsset(),
			To:           cfg.Assets[i],
			AmountIn:     amountIn,
			DeficitValue: deficitValue,
		})
	}

	return legs, nil
}
