// Package vaultcfg manages the vault's construction parameters: target
// weights, drift threshold, epoch length, minimum sizes, ownership and the
// external asset/router identities. The parameters are immutable after
// construction except through the owner-gated update operations, and every
// mutation re-validates the invariants below.
package vaultcfg

import (
	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// VaultConfig is the persisted configuration record.
type VaultConfig struct {
	Targets       [domain.NumAssets]uint64 // basis points, must sum to 10000
	MaxDriftBps   uint64                   // 1..2000
	EpochSeconds  uint64                   // minimum interval between rebalances, >= 300
	MinDeposit    uint64                   // smallest accepted deposit in base asset units
	MinSliceValue uint64                   // smallest swap-leg notional in the common value unit
	Owner         domain.Address
	Assets        [domain.NumAssets]domain.AssetID
	Router        domain.Address
}

// MinEpochSeconds is the smallest allowed rebalance epoch.
const MinEpochSeconds = 300

// MaxDriftCeilingBps is the largest allowed drift threshold.
const MaxDriftCeilingBps = 2000

// Validate enforces the construction invariants. It is called at genesis and
// again on every owner update.
func (c *VaultConfig) Validate() error {
	var sum uint64
	for _, t := range c.Targets {
		s, err := umath.Add(sum, t)
		if err != nil {
			return domain.PreconditionError("targets overflow: %d + %d", sum, t)
		}
		sum = s
	}
	if sum != domain.TotalBps {
		return domain.PreconditionError("targets must sum to %d bps, got %d", domain.TotalBps, sum)
	}

	if c.MaxDriftBps < 1 || c.MaxDriftBps > MaxDriftCeilingBps {
		return domain.PreconditionError("max drift must be in [1, %d] bps, got %d", MaxDriftCeilingBps, c.MaxDriftBps)
	}

	if c.EpochSeconds < MinEpochSeconds {
		return domain.PreconditionError("epoch must be at least %d seconds, got %d", MinEpochSeconds, c.EpochSeconds)
	}

	if c.MinDeposit == 0 {
		return domain.PreconditionError("minimum deposit must be positive")
	}

	if c.Owner == "" {
		return domain.PreconditionError("owner address is required")
	}
	if c.Router == "" {
		return domain.PreconditionError("router address is required")
	}

	seen := make(map[domain.AssetID]bool, domain.NumAssets)
	for i, a := range c.Assets {
		if a == "" {
			return domain.PreconditionError("asset %d identity is required", i)
		}
		if seen[a] {
			return domain.PreconditionError("duplicate asset identity %s", a)
		}
		seen[a] = true
	}

	return nil
}

// BaseAsset returns the identity of the base asset (deposits and swap
// funding).
func (c *VaultConfig) BaseAsset() domain.AssetID {
	return c.Assets[domain.BaseAssetIndex]
}
