// Package domain holds the core types and capability interfaces of the vault
// engine. It is pure: no infrastructure dependencies, so every other package
// can import it without cycles.
package domain

import "time"

// NumAssets is the size of the vault's basket. The engine holds exactly three
// assets; index 0 is the base asset (deposits come in, swap legs are funded
// from it).
const NumAssets = 3

// BaseAssetIndex is the basket index of the base asset.
const BaseAssetIndex = 0

// TotalBps is the basis-point scale: 10000 bps = 100%.
const TotalBps = 10000

// Address identifies an account on the host chain (a holder, the owner, the
// vault itself, a token contract or the router).
type Address string

// AssetID identifies one of the basket's token contracts.
type AssetID string

// Balances holds the vault's raw holdings of the three basket assets,
// indexed like VaultConfig.Assets.
type Balances [NumAssets]uint64

// Prices holds per-asset prices in the common value unit, same indexing.
type Prices [NumAssets]uint64

// ScheduleQuote is the host's answer to a deferred-invocation fee inquiry:
// the cheapest execution slot at or after the requested time, and its cost in
// native currency.
type ScheduleQuote struct {
	Slot time.Time
	Cost uint64
}

// ScheduleHandle identifies a registered deferred self-invocation.
type ScheduleHandle uint64
