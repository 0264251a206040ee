// Package drift converts raw basket balances into a per-asset allocation
// report and measures how far the basket has drifted from its target
// weights.
package drift

import (
	"fmt"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// Report is the ephemeral result of one drift computation. It is never
// persisted; every rebalance attempt recomputes it from live balances.
type Report struct {
	Values     [domain.NumAssets]uint64 // per-asset value in the common unit
	TotalValue uint64
	CurrentBps [domain.NumAssets]uint64
	DriftBps   [domain.NumAssets]uint64
	MaxDrift   uint64
	Empty      bool // total value is zero: no rebalance possible
}

// Compute builds the drift report for the given balances, prices and target
// weights. Pure function of its inputs: identical inputs always produce an
// identical report.
func Compute(balances domain.Balances, prices domain.Prices, targets [domain.NumAssets]uint64) (Report, error) {
	var report Report

	for i := 0; i < domain.NumAssets; i++ {
		value, err := umath.Mul(balances[i], prices[i])
		if err != nil {
			return Report{}, fmt.Errorf("value of asset %d: %w", i, err)
		}
		report.Values[i] = value

		total, err := umath.Add(report.TotalValue, value)
		if err != nil {
			return Report{}, fmt.Errorf("total portfolio value: %w", err)
		}
		report.TotalValue = total
	}

	if report.TotalValue == 0 {
		report.Empty = true
		return report, nil
	}

	for i := 0; i < domain.NumAssets; i++ {
		bps, err := umath.MulDiv(report.Values[i], domain.TotalBps, report.TotalValue)
		if err != nil {
			return Report{}, fmt.Errorf("allocation of asset %d: %w", i, err)
		}
		report.CurrentBps[i] = bps
		report.DriftBps[i] = umath.AbsDiff(bps, targets[i])
		if report.DriftBps[i] > report.MaxDrift {
			report.MaxDrift = report.DriftBps[i]
		}
	}

	return report, nil
}

// Exceeds reports whether the basket needs rebalancing under the given
// threshold.
func (r Report) Exceeds(maxDriftBps uint64) bool {
	return !r.Empty && r.MaxDrift > maxDriftBps
}
