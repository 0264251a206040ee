package swap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// Result describes one settled swap for the event log.
type Result struct {
	Path      []domain.AssetID
	AmountIn  uint64
	AmountOut uint64
}

// Executor submits planned legs to the external router and verifies the
// outcome. Any failure aborts the whole rebalance call.
type Executor struct {
	ledger         domain.AssetLedger
	router         domain.SwapRouter
	vaultAddr      domain.Address
	routerAddr     domain.Address
	slippageBps    uint64
	deadlineBuffer time.Duration
	log            zerolog.Logger
}

// NewExecutor creates a new swap executor.
func NewExecutor(
	ledger domain.AssetLedger,
	router domain.SwapRouter,
	vaultAddr domain.Address,
	routerAddr domain.Address,
	slippageBps uint64,
	deadlineBuffer time.Duration,
	log zerolog.Logger,
) *Executor {
	return &Executor{
		ledger:         ledger,
		router:         router,
		vaultAddr:      vaultAddr,
		routerAddr:     routerAddr,
		slippageBps:    slippageBps,
		deadlineBuffer: deadlineBuffer,
		log:            log.With().Str("service", "swap_executor").Logger(),
	}
}

// Execute runs one leg: approve, quote, swap with a slippage floor and a
// deadline, then re-read the destination balance and require it to have
// increased. A router that reports success without moving funds fails the
// verification.
func (e *Executor) Execute(ctx context.Context, leg Leg) (Result, error) {
	if err := e.ledger.Approve(ctx, leg.From, e.vaultAddr, e.routerAddr, leg.AmountIn); err != nil {
		return Result{}, fmt.Errorf("%w: approve %s: %v", domain.ErrExternalCall, leg.From, err)
	}

	quoted, path, err := e.router.Quote(ctx, leg.From, leg.To, leg.AmountIn)
	if err != nil {
		return Result{}, fmt.Errorf("%w: quote %s->%s: %v", domain.ErrExternalCall, leg.From, leg.To, err)
	}
	if quoted == 0 {
		return Result{}, fmt.Errorf("%w: router quoted zero output for %s->%s", domain.ErrExternalCall, leg.From, leg.To)
	}

	minOut, err := umath.MulDiv(quoted, domain.TotalBps-e.slippageBps, domain.TotalBps)
	if err != nil {
		return Result{}, fmt.Errorf("slippage floor: %w", err)
	}

	before, err := e.ledger.BalanceOf(ctx, leg.To, e.vaultAddr)
	if err != nil {
		return Result{}, fmt.Errorf("%w: read %s balance: %v", domain.ErrExternalCall, leg.To, err)
	}

	deadline := time.Now().Add(e.deadlineBuffer)
	out, err := e.router.SwapExactIn(ctx, e.vaultAddr, path, leg.AmountIn, minOut, deadline)
	if err != nil {
		return Result{}, fmt.Errorf("%w: swap %s->%s: %v", domain.ErrExternalCall, leg.From, leg.To, err)
	}

	after, err := e.ledger.BalanceOf(ctx, leg.To, e.vaultAddr)
	if err != nil {
		return Result{}, fmt.Errorf("%w: verify %s balance: %v", domain.ErrExternalCall, leg.To, err)
	}
	if after <= before {
		return Result{}, fmt.Errorf("%w: %s balance did not increase after swap (before %d, after %d)",
			domain.ErrExternalCall, leg.To, before, after)
	}

	e.log.Info().
		Str("from", string(leg.From)).
		Str("to", string(leg.To)).
		Uint64("amount_in", leg.AmountIn).
		Uint64("amount_out", out).
		Int("hops", len(path)-1).
		Msg("Swap settled")

	return Result{Path: path, AmountIn: leg.AmountIn, AmountOut: out}, nil
}
