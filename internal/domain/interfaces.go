package domain

import (
	"context"
	"time"
)

// AssetLedger abstracts the token contracts holding the basket assets.
// All methods are polymorphic over the asset identity so the engine can be
// tested against in-memory fakes.
type AssetLedger interface {
	// BalanceOf returns holder's balance of the given asset.
	BalanceOf(ctx context.Context, asset AssetID, holder Address) (uint64, error)

	// Transfer moves amount from the caller account to the recipient.
	Transfer(ctx context.Context, asset AssetID, from, to Address, amount uint64) error

	// TransferFrom moves amount from owner to recipient using a prior
	// approval granted to spender.
	TransferFrom(ctx context.Context, asset AssetID, spender, owner, to Address, amount uint64) error

	// Approve grants spender the right to move up to amount of owner's
	// balance.
	Approve(ctx context.Context, asset AssetID, owner, spender Address, amount uint64) error
}

// SwapRouter abstracts the external DEX router. Quote resolves the path
// (direct pair or one intermediate hop) and the expected output; SwapExactIn
// settles the whole path atomically or fails as a unit.
type SwapRouter interface {
	Quote(ctx context.Context, in, out AssetID, amountIn uint64) (amountOut uint64, path []AssetID, err error)

	SwapExactIn(ctx context.Context, caller Address, path []AssetID, amountIn, minOut uint64, deadline time.Time) (amountOut uint64, err error)
}

// PriceOracle supplies per-asset prices in the common value unit.
type PriceOracle interface {
	Price(ctx context.Context, asset AssetID) (uint64, error)
}

// StateSnapshotter captures the externally visible state of a host
// component. A chain host reverts external calls together with contract
// storage when an entry point fails; the simulated host exposes the same
// guarantee through an explicit snapshot taken before external calls and
// restored on the error path.
type StateSnapshotter interface {
	// Snapshot returns a closure restoring the component to its state at
	// the time of the call.
	Snapshot() (restore func())
}

// DeferredScheduler is the host's self-invocation facility: the only way the
// vault can keep itself running without an external operator. Quote searches
// a window starting at notBefore for the cheapest execution slot; Register
// books that slot, carrying an opaque payload back to the vault when the
// slot executes.
type DeferredScheduler interface {
	Quote(ctx context.Context, notBefore time.Time, gasBudget uint64) (ScheduleQuote, error)

	Register(ctx context.Context, quote ScheduleQuote, gasBudget uint64, payload []byte) (ScheduleHandle, error)
}
