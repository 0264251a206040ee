package host

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// RouterAddress is the account the simulated router settles through.
const RouterAddress = domain.Address("sim:router")

type pairKey struct {
	a, b domain.AssetID
}

func orderedPair(x, y domain.AssetID) (pairKey, bool) {
	if x < y {
		return pairKey{a: x, b: y}, false
	}
	return pairKey{a: y, b: x}, true
}

// pool is a constant-product liquidity pool over an ordered asset pair.
type pool struct {
	reserveA uint64
	reserveB uint64
}

// AMMRouter is an in-memory implementation of domain.SwapRouter: a
// constant-product AMM with direct pairs and one-hop routing through a
// configured intermediate asset. A multi-hop swap settles atomically or not
// at all.
type AMMRouter struct {
	mu           sync.Mutex
	ledger       *TokenLedger
	pools        map[pairKey]*pool
	intermediate domain.AssetID
	feeBps       uint64

	// SilentFail makes SwapExactIn report a successful output without
	// moving any funds. Fault injection for verification tests.
	SilentFail bool
}

// NewAMMRouter creates a router settling against the given token ledger.
// Hops are resolved through the intermediate asset when no direct pair
// exists.
func NewAMMRouter(ledger *TokenLedger, intermediate domain.AssetID, feeBps uint64) *AMMRouter {
	return &AMMRouter{
		ledger:       ledger,
		pools:        make(map[pairKey]*pool),
		intermediate: intermediate,
		feeBps:       feeBps,
	}
}

// AddPool seeds a liquidity pair. The reserves are minted to the router
// account so swap settlement is backed by real ledger balances.
func (r *AMMRouter) AddPool(x, y domain.AssetID, reserveX, reserveY uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key, swapped := orderedPair(x, y)
	if swapped {
		reserveX, reserveY = reserveY, reserveX
	}
	r.pools[key] = &pool{reserveA: reserveX, reserveB: reserveY}

	r.ledger.Mint(x, RouterAddress, reserveX)
	r.ledger.Mint(y, RouterAddress, reserveY)
}

// Quote resolves the swap path and the expected output. Direct pair first;
// otherwise one hop through the intermediate asset.
func (r *AMMRouter) Quote(_ context.Context, in, out domain.AssetID, amountIn uint64) (uint64, []domain.AssetID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.poolFor(in, out); ok {
		quoted, err := r.quoteHop(in, out, amountIn)
		if err != nil {
			return 0, nil, err
		}
		return quoted, []domain.AssetID{in, out}, nil
	}

	_, hasFirst := r.poolFor(in, r.intermediate)
	_, hasSecond := r.poolFor(r.intermediate, out)
	if !hasFirst || !hasSecond {
		return 0, nil, fmt.Errorf("no route from %s to %s", in, out)
	}

	mid, err := r.quoteHop(in, r.intermediate, amountIn)
	if err != nil {
		return 0, nil, err
	}
	quoted, err := r.quoteHop(r.intermediate, out, mid)
	if err != nil {
		return 0, nil, err
	}
	return quoted, []domain.AssetID{in, r.intermediate, out}, nil
}

// SwapExactIn settles the whole path atomically: pool reserves and ledger
// balances are only touched after every hop has been computed and the
// output clears the caller's floor.
func (r *AMMRouter) SwapExactIn(ctx context.Context, caller domain.Address, path []domain.AssetID, amountIn, minOut uint64, deadline time.Time) (uint64, error) {
	if len(path) < 2 {
		return 0, fmt.Errorf("path needs at least two assets, got %d", len(path))
	}
	if time.Now().After(deadline) {
		return 0, fmt.Errorf("deadline exceeded")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Compute every hop against current reserves before mutating anything.
	amounts := make([]uint64, len(path))
	amounts[0] = amountIn
	for i := 0; i < len(path)-1; i++ {
		out, err := r.quoteHop(path[i], path[i+1], amounts[i])
		if err != nil {
			return 0, err
		}
		amounts[i+1] = out
	}

	finalOut := amounts[len(amounts)-1]
	if finalOut < minOut {
		return 0, fmt.Errorf("output %d below minimum %d", finalOut, minOut)
	}

	if r.SilentFail {
		return finalOut, nil
	}

	// Settle: pull the input, pay the output, update reserves per hop.
	if err := r.ledger.TransferFrom(ctx, path[0], RouterAddress, caller, RouterAddress, amountIn); err != nil {
		return 0, fmt.Errorf("pull input: %w", err)
	}
	for i := 0; i < len(path)-1; i++ {
		r.applyHop(path[i], path[i+1], amounts[i], amounts[i+1])
	}
	if err := r.ledger.Transfer(ctx, path[len(path)-1], RouterAddress, caller, finalOut); err != nil {
		return 0, fmt.Errorf("pay output: %w", err)
	}

	return finalOut, nil
}

// Snapshot copies all pool reserves and returns a closure restoring them.
// Implements domain.StateSnapshotter. Ledger balances are restored by the
// ledger's own snapshot.
func (r *AMMRouter) Snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	pools := make(map[pairKey]pool, len(r.pools))
	for key, p := range r.pools {
		pools[key] = *p
	}

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for key, p := range pools {
			restored := p
			r.pools[key] = &restored
		}
	}
}

// poolFor returns the pool of a pair, if one exists.
func (r *AMMRouter) poolFor(x, y domain.AssetID) (*pool, bool) {
	key, _ := orderedPair(x, y)
	p, ok := r.pools[key]
	return p, ok
}

// quoteHop prices one hop with the constant-product formula, fee deducted
// from the input.
func (r *AMMRouter) quoteHop(in, out domain.AssetID, amountIn uint64) (uint64, error) {
	p, ok := r.poolFor(in, out)
	if !ok {
		return 0, fmt.Errorf("no pool for %s/%s", in, out)
	}

	_, swapped := orderedPair(in, out)
	reserveIn, reserveOut := p.reserveA, p.reserveB
	if swapped {
		reserveIn, reserveOut = reserveOut, reserveIn
	}
	if reserveIn == 0 || reserveOut == 0 {
		return 0, fmt.Errorf("empty pool for %s/%s", in, out)
	}

	effectiveIn, err := umath.MulDiv(amountIn, domain.TotalBps-r.feeBps, domain.TotalBps)
	if err != nil {
		return 0, err
	}

	newReserveIn, err := umath.Add(reserveIn, effectiveIn)
	if err != nil {
		return 0, err
	}
	out64, err := umath.MulDiv(reserveOut, effectiveIn, newReserveIn)
	if err != nil {
		return 0, err
	}
	return out64, nil
}

// applyHop mutates pool reserves after a settled hop.
func (r *AMMRouter) applyHop(in, out domain.AssetID, amountIn, amountOut uint64) {
	p, _ := r.poolFor(in, out)
	_, swapped := orderedPair(in, out)
	if swapped {
		p.reserveB += amountIn
		p.reserveA -= amountOut
	} else {
		p.reserveA += amountIn
		p.reserveB -= amountOut
	}
}
