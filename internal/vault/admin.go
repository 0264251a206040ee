package vault

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
)

// SetGuard arms or disarms the rebalance guard. Autonomy cannot start while
// the guard is disarmed.
func (s *Service) SetGuard(caller domain.Address, armed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}

	err = s.withTx(func(tx *sql.Tx) error {
		return s.guard.SetArmedTx(tx, armed)
	})
	if err != nil {
		return err
	}

	s.bus.Emit(&events.GuardArmedData{Armed: armed})
	return nil
}

// Pause sets the emergency pause flag. Deposits and autonomy starts are
// rejected while paused; redemptions stay open so holders can always exit.
func (s *Service) Pause(caller domain.Address) error {
	return s.setPaused(caller, true)
}

// Unpause clears the emergency pause flag.
func (s *Service) Unpause(caller domain.Address) error {
	return s.setPaused(caller, false)
}

func (s *Service) setPaused(caller domain.Address, paused bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}

	err = s.withTx(func(tx *sql.Tx) error {
		return s.guard.SetPausedTx(tx, paused)
	})
	if err != nil {
		return err
	}

	if paused {
		s.bus.Emit(&events.PausedData{})
	} else {
		s.bus.Emit(&events.UnpausedData{})
	}
	return nil
}

// TopUpGasBank credits the native reserve. Anyone may fund it.
func (s *Service) TopUpGasBank(caller domain.Address, amount uint64) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount == 0 {
		return 0, domain.PreconditionError("top-up amount must be positive")
	}

	var newBalance uint64
	err := s.withTx(func(tx *sql.Tx) error {
		var err error
		newBalance, err = s.gas.CreditTx(tx, amount)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.bus.Emit(&events.GasBankUpdatedData{NewBalance: newBalance, Change: int64(amount)})
	s.log.Info().
		Str("caller", string(caller)).
		Uint64("amount", amount).
		Uint64("new_balance", newBalance).
		Msg("Gas bank funded")
	return newBalance, nil
}

// StartAutonomy registers the first self-invocation. It requires the owner,
// an armed guard, an unpaused contract, at least one outstanding share, and
// a gas bank that can cover the quoted slot cost on top of the minimum
// reserve. Any shortfall fails the call loudly.
func (s *Service) StartAutonomy(ctx context.Context, caller domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}

	state, err := s.guard.Get()
	if err != nil {
		return err
	}
	if state.Paused {
		return fmt.Errorf("%w: cannot start autonomy", domain.ErrPaused)
	}
	if !state.Armed {
		return domain.PreconditionError("guard is not armed")
	}

	total, err := s.sharesRepo.TotalShares()
	if err != nil {
		return err
	}
	if total == 0 {
		return domain.PreconditionError("no shares outstanding, nothing to manage")
	}

	var arm struct {
		handle uint64
		slot   int64
		cost   uint64
	}
	err = s.withTx(func(tx *sql.Tx) error {
		result, err := s.autonomy.StartTx(ctx, tx, s.now().UTC(), cfg.EpochSeconds)
		if err != nil {
			return err
		}
		arm.handle = result.Handle
		arm.slot = result.TargetSlot.Unix()
		arm.cost = result.Cost
		return nil
	})
	if err != nil {
		return err
	}

	s.bus.Emit(&events.AutonomyStartedData{Handle: arm.handle, TargetSlot: arm.slot, Quote: arm.cost})
	return nil
}

// StopAutonomy disables the autonomy state machine on owner request. A
// still-registered slot may fire once more; it will find autonomy inactive
// and not re-arm.
func (s *Service) StopAutonomy(caller domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}

	err = s.withTx(func(tx *sql.Tx) error {
		return s.autonomy.StopTx(tx)
	})
	if err != nil {
		return err
	}

	s.bus.Emit(&events.AutonomyStoppedData{Reason: "owner requested"})
	return nil
}

// UpdateTargets replaces the target weights. The candidate configuration is
// re-validated as a whole before persisting.
func (s *Service) UpdateTargets(caller domain.Address, targets [domain.NumAssets]uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}

	candidate := cfg
	candidate.Targets = targets
	if err := candidate.Validate(); err != nil {
		return err
	}

	err = s.withTx(func(tx *sql.Tx) error {
		return s.cfgRepo.UpdateTargetsTx(tx, targets)
	})
	if err != nil {
		return err
	}

	s.bus.Emit(&events.TargetsUpdatedData{Targets: targets})
	return nil
}

// UpdateMaxDrift replaces the rebalance threshold.
func (s *Service) UpdateMaxDrift(caller domain.Address, maxDriftBps uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}

	candidate := cfg
	candidate.MaxDriftBps = maxDriftBps
	if err := candidate.Validate(); err != nil {
		return err
	}

	err = s.withTx(func(tx *sql.Tx) error {
		return s.cfgRepo.UpdateMaxDriftTx(tx, maxDriftBps)
	})
	if err != nil {
		return err
	}

	s.bus.Emit(&events.MaxDriftUpdatedData{MaxDriftBps: maxDriftBps})
	return nil
}

// UpdateEpoch replaces the rebalance epoch. Takes effect from the next
// re-arm; an already registered slot is not rescheduled.
func (s *Service) UpdateEpoch(caller domain.Address, epochSeconds uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}

	candidate := cfg
	candidate.EpochSeconds = epochSeconds
	if err := candidate.Validate(); err != nil {
		return err
	}

	err = s.withTx(func(tx *sql.Tx) error {
		return s.cfgRepo.UpdateEpochTx(tx, epochSeconds)
	})
	if err != nil {
		return err
	}

	s.bus.Emit(&events.EpochUpdatedData{EpochSeconds: epochSeconds})
	return nil
}

// TransferOwnership hands the vault to a new owner address.
func (s *Service) TransferOwnership(caller, newOwner domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return err
	}
	if newOwner == "" {
		return domain.PreconditionError("new owner address is required")
	}

	err = s.withTx(func(tx *sql.Tx) error {
		return s.cfgRepo.UpdateOwnerTx(tx, newOwner)
	})
	if err != nil {
		return err
	}

	s.bus.Emit(&events.OwnershipTransferredData{PreviousOwner: cfg.Owner, NewOwner: newOwner})
	return nil
}

// EmergencyWithdraw sweeps the vault's entire basket to the given address.
// Owner-only escape hatch; shares are left untouched for off-line
// reconciliation.
func (s *Service) EmergencyWithdraw(ctx context.Context, caller, to domain.Address) (domain.Balances, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var zero domain.Balances

	cfg, err := s.config()
	if err != nil {
		return zero, err
	}
	if err := s.requireOwner(cfg, caller); err != nil {
		return zero, err
	}
	if to == "" {
		return zero, domain.PreconditionError("destination address is required")
	}

	balances, err := s.readBalances(ctx, cfg)
	if err != nil {
		return zero, err
	}

	restore := s.snapshotHost()

	for i := 0; i < domain.NumAssets; i++ {
		if balances[i] == 0 {
			continue
		}
		if err := s.ledger.Transfer(ctx, cfg.Assets[i], s.vaultAddr, to, balances[i]); err != nil {
			restore()
			return zero, fmt.Errorf("%w: sweep %s: %v", domain.ErrExternalCall, cfg.Assets[i], err)
		}
	}

	s.bus.Emit(&events.EmergencyWithdrawalData{To: to, Amounts: balances})
	s.log.Warn().
		Str("to", string(to)).
		Msg("Emergency withdrawal executed")
	return balances, nil
}
