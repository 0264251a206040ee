package host

import (
	"context"
	"fmt"
	"math/rand"
	"sync"

	"github.com/ballastfi/ballast/internal/domain"
)

// SimOracle is an in-memory implementation of domain.PriceOracle with
// settable prices and an optional random-walk step used by the simulation's
// sampling job.
type SimOracle struct {
	mu     sync.RWMutex
	prices map[domain.AssetID]uint64
	rng    *rand.Rand
}

// NewSimOracle creates an oracle with the given starting prices.
func NewSimOracle(prices map[domain.AssetID]uint64, seed int64) *SimOracle {
	copied := make(map[domain.AssetID]uint64, len(prices))
	for asset, price := range prices {
		copied[asset] = price
	}
	return &SimOracle{
		prices: copied,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Price returns the current price of the asset in the common value unit.
func (o *SimOracle) Price(_ context.Context, asset domain.AssetID) (uint64, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	price, ok := o.prices[asset]
	if !ok {
		return 0, fmt.Errorf("no price for asset %s", asset)
	}
	return price, nil
}

// Set overrides the price of an asset.
func (o *SimOracle) Set(asset domain.AssetID, price uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[asset] = price
}

// Walk nudges every price by at most maxStepBps in a random direction.
func (o *SimOracle) Walk(maxStepBps uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	for asset, price := range o.prices {
		if price == 0 {
			continue
		}
		stepBps := uint64(o.rng.Int63n(int64(maxStepBps) + 1))
		delta := price * stepBps / domain.TotalBps
		if o.rng.Intn(2) == 0 {
			o.prices[asset] = price + delta
		} else if price > delta {
			o.prices[asset] = price - delta
		}
	}
}
