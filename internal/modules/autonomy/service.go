package autonomy

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/modules/gasbank"
)

// ArmResult describes a successful registration.
type ArmResult struct {
	Handle     uint64
	TargetSlot time.Time
	Cost       uint64
}

// RearmOutcome is the result of the post-rebalance re-arm attempt: either a
// new registration or an exhaustion stop with the shortfall amount.
type RearmOutcome struct {
	Rearmed   bool
	Arm       ArmResult
	Shortfall uint64
}

// Service drives the autonomy state machine. It owns the quote/register/
// debit/persist mechanics; the caller (the vault orchestrator) enforces the
// owner/guard/shares preconditions.
type Service struct {
	repo      *Repository
	gas       *gasbank.Service
	scheduler domain.DeferredScheduler
	log       zerolog.Logger
}

// NewService creates a new autonomy service.
func NewService(repo *Repository, gas *gasbank.Service, scheduler domain.DeferredScheduler, log zerolog.Logger) *Service {
	return &Service{
		repo:      repo,
		gas:       gas,
		scheduler: scheduler,
		log:       log.With().Str("service", "autonomy").Logger(),
	}
}

// Status returns the schedule record.
func (s *Service) Status() (ScheduleRecord, error) {
	return s.repo.Get()
}

// StartTx arms autonomy: quotes the cheapest slot at or after
// now+epochSeconds and fails loudly if the gas bank cannot cover it. The
// owner must fund the reserve first.
func (s *Service) StartTx(ctx context.Context, tx *sql.Tx, now time.Time, epochSeconds uint64) (ArmResult, error) {
	target := now.Add(time.Duration(epochSeconds) * time.Second)

	quote, err := s.scheduler.Quote(ctx, target, 0)
	if err != nil {
		return ArmResult{}, fmt.Errorf("%w: schedule quote: %v", domain.ErrExternalCall, err)
	}

	balance, err := s.gas.BalanceTx(tx)
	if err != nil {
		return ArmResult{}, err
	}
	if balance < quote.Cost || balance-quote.Cost < s.gas.MinReserve() {
		return ArmResult{}, fmt.Errorf("%w: balance %d, quote %d, floor %d",
			domain.ErrInsufficientReserve, balance, quote.Cost, s.gas.MinReserve())
	}

	arm, err := s.register(ctx, tx, quote)
	if err != nil {
		return ArmResult{}, err
	}

	s.log.Info().
		Uint64("handle", arm.Handle).
		Time("target_slot", arm.TargetSlot).
		Uint64("cost", arm.Cost).
		Msg("Autonomy started")

	return arm, nil
}

// StopTx disables autonomy on owner request. Any still-registered
// invocation will find the enabled flag false and skip re-arming.
func (s *Service) StopTx(tx *sql.Tx) error {
	return s.repo.SetModeTx(tx, ModeInactive)
}

// RearmTx attempts the post-rebalance re-arm. Resource exhaustion is not an
// error: the outcome reports the shortfall and the state machine moves to
// stopped-on-exhaustion.
func (s *Service) RearmTx(ctx context.Context, tx *sql.Tx, now time.Time, epochSeconds uint64) (RearmOutcome, error) {
	target := now.Add(time.Duration(epochSeconds) * time.Second)

	quote, err := s.scheduler.Quote(ctx, target, 0)
	if err != nil {
		return RearmOutcome{}, fmt.Errorf("%w: schedule quote: %v", domain.ErrExternalCall, err)
	}

	balance, err := s.gas.BalanceTx(tx)
	if err != nil {
		return RearmOutcome{}, err
	}

	if balance < s.gas.MinReserve() || balance < quote.Cost {
		needed := quote.Cost
		if s.gas.MinReserve() > needed {
			needed = s.gas.MinReserve()
		}
		if err := s.repo.SetModeTx(tx, ModeStoppedExhausted); err != nil {
			return RearmOutcome{}, err
		}
		shortfall := needed - balance
		s.log.Warn().
			Uint64("balance", balance).
			Uint64("needed", needed).
			Uint64("shortfall", shortfall).
			Msg("Gas bank exhausted, autonomy stopped")
		return RearmOutcome{Shortfall: shortfall}, nil
	}

	arm, err := s.register(ctx, tx, quote)
	if err != nil {
		return RearmOutcome{}, err
	}

	return RearmOutcome{Rearmed: true, Arm: arm}, nil
}

// register books the slot, debits its cost and persists the record.
func (s *Service) register(ctx context.Context, tx *sql.Tx, quote domain.ScheduleQuote) (ArmResult, error) {
	payload, err := EncodePayload(SelfInvocation{
		Op:           OpTriggerRebalance,
		RegisteredAt: time.Now().UTC(),
		TargetSlot:   quote.Slot,
	})
	if err != nil {
		return ArmResult{}, err
	}

	handle, err := s.scheduler.Register(ctx, quote, 0, payload)
	if err != nil {
		return ArmResult{}, fmt.Errorf("%w: schedule register: %v", domain.ErrExternalCall, err)
	}

	if _, err := s.gas.DebitTx(tx, quote.Cost); err != nil {
		return ArmResult{}, err
	}
	if err := s.repo.SetArmedTx(tx, uint64(handle), quote.Slot, quote.Cost); err != nil {
		return ArmResult{}, err
	}

	return ArmResult{Handle: uint64(handle), TargetSlot: quote.Slot, Cost: quote.Cost}, nil
}

// RecordOutcomeTx forwards to the repository; kept on the service so the
// orchestrator has a single autonomy dependency.
func (s *Service) RecordOutcomeTx(tx *sql.Tx, at time.Time, status, errText string) error {
	return s.repo.RecordOutcomeTx(tx, at, status, errText)
}

// GetTx returns the schedule record inside the caller's transaction.
func (s *Service) GetTx(tx *sql.Tx) (ScheduleRecord, error) {
	return s.repo.GetTx(tx)
}
