package vault

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/shares"
	"github.com/ballastfi/ballast/internal/modules/swap"
	"github.com/ballastfi/ballast/internal/umath"
)

// Deposit pulls amount of the base asset from the caller via a prior
// approval and mints shares 1:1. The transfer-in is verified against the
// vault's balance before and after; a token that reports success without
// moving funds fails the call.
func (s *Service) Deposit(ctx context.Context, caller domain.Address, amount uint64) (uint64, error) {
	if s.transferringIn.Load() {
		return 0, fmt.Errorf("%w: deposit during transfer-in", domain.ErrReentrantCall)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return 0, err
	}

	state, err := s.guard.Get()
	if err != nil {
		return 0, err
	}
	if state.Paused {
		return 0, fmt.Errorf("%w: deposits disabled", domain.ErrPaused)
	}

	if amount < cfg.MinDeposit {
		return 0, domain.PreconditionError("deposit %d below minimum %d", amount, cfg.MinDeposit)
	}

	base := cfg.BaseAsset()
	before, err := s.ledger.BalanceOf(ctx, base, s.vaultAddr)
	if err != nil {
		return 0, fmt.Errorf("%w: read base balance: %v", domain.ErrExternalCall, err)
	}

	restore := s.snapshotHost()

	s.transferringIn.Store(true)
	err = s.ledger.TransferFrom(ctx, base, s.vaultAddr, caller, s.vaultAddr, amount)
	s.transferringIn.Store(false)
	if err != nil {
		restore()
		return 0, fmt.Errorf("%w: transfer-in: %v", domain.ErrExternalCall, err)
	}

	after, err := s.ledger.BalanceOf(ctx, base, s.vaultAddr)
	if err != nil {
		restore()
		return 0, fmt.Errorf("%w: verify base balance: %v", domain.ErrExternalCall, err)
	}
	if after < before+amount {
		restore()
		return 0, fmt.Errorf("%w: transfer-in reported success but balance moved %d of %d",
			domain.ErrExternalCall, after-before, amount)
	}

	// Shares mint 1:1 against deposited base units regardless of current
	// basket composition.
	minted := amount
	err = s.withTx(func(tx *sql.Tx) error {
		return s.sharesRepo.MintTx(tx, caller, minted)
	})
	if err != nil {
		restore()
		return 0, err
	}

	s.bus.Emit(&events.DepositData{Holder: caller, Amount: amount, Shares: minted})
	return minted, nil
}

// Redeem burns the caller's shares and pays out the proportional slice of
// every basket asset. With toBaseAsset set, the non-base slices are swapped
// to the base asset through the router first and the holder receives a
// single base payout. The burn happens before any transfer; a failed
// transfer rolls the burn back.
func (s *Service) Redeem(ctx context.Context, caller domain.Address, shareAmount uint64, toBaseAsset bool) (domain.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero domain.Balances

	if shareAmount == 0 {
		return zero, domain.PreconditionError("redeem amount must be positive")
	}

	cfg, err := s.config()
	if err != nil {
		return zero, err
	}

	total, err := s.sharesRepo.TotalShares()
	if err != nil {
		return zero, err
	}
	if total == 0 {
		return zero, domain.PreconditionError("no shares outstanding")
	}

	held, err := s.sharesRepo.BalanceOf(caller)
	if err != nil {
		return zero, err
	}
	if held < shareAmount {
		return zero, domain.PreconditionError("insufficient shares: have %d, redeeming %d", held, shareAmount)
	}

	balances, err := s.readBalances(ctx, cfg)
	if err != nil {
		return zero, err
	}

	amounts, err := shares.RedemptionAmounts(shareAmount, total, balances)
	if err != nil {
		return zero, err
	}

	restore := s.snapshotHost()

	payout := amounts
	err = s.withTx(func(tx *sql.Tx) error {
		if err := s.sharesRepo.BurnTx(tx, caller, shareAmount); err != nil {
			return err
		}

		if toBaseAsset {
			basePayout := amounts[domain.BaseAssetIndex]
			for i := 0; i < domain.NumAssets; i++ {
				if i == domain.BaseAssetIndex || amounts[i] == 0 {
					continue
				}
				res, err := s.executor.Execute(ctx, swap.Leg{
					From:     cfg.Assets[i],
					To:       cfg.BaseAsset(),
					AmountIn: amounts[i],
				})
				if err != nil {
					return err
				}
				basePayout, err = umath.Add(basePayout, res.AmountOut)
				if err != nil {
					return err
				}
			}
			payout = domain.Balances{}
			payout[domain.BaseAssetIndex] = basePayout
		}

		for i := 0; i < domain.NumAssets; i++ {
			if payout[i] == 0 {
				continue
			}
			if err := s.ledger.Transfer(ctx, cfg.Assets[i], s.vaultAddr, caller, payout[i]); err != nil {
				return fmt.Errorf("%w: payout %s: %v", domain.ErrExternalCall, cfg.Assets[i], err)
			}
		}
		return nil
	})
	if err != nil {
		restore()
		return zero, err
	}

	s.bus.Emit(&events.WithdrawData{
		Holder:      caller,
		Shares:      shareAmount,
		Amounts:     payout,
		ToBaseAsset: toBaseAsset,
	})
	return payout, nil
}
