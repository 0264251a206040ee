package vault

import (
	"context"
	"database/sql"
	"time"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/autonomy"
	"github.com/ballastfi/ballast/internal/modules/drift"
	"github.com/ballastfi/ballast/internal/modules/swap"
)

// Rebalance outcome status strings persisted on the schedule record.
const (
	statusExecuted      = "executed"
	statusSkippedDrift  = "skipped: within threshold"
	statusSkippedEmpty  = "skipped: zero portfolio value"
	statusSkippedNoLegs = "skipped: no viable swap legs"
	statusSkippedPaused = "skipped: contract paused"
)

// TriggerRebalance runs one rebalance cycle. Anyone may call it; the epoch
// gate makes spamming it harmless. The cycle measures drift, executes the
// planned swap legs when the threshold is exceeded, records the outcome,
// and when autonomy is active re-arms the next self-invocation from the gas
// bank. Exhaustion of the gas bank stops autonomy instead of failing the
// call.
func (s *Service) TriggerRebalance(ctx context.Context, caller domain.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.config()
	if err != nil {
		return err
	}

	now := s.now().UTC()

	sched, err := s.autonomy.Status()
	if err != nil {
		return err
	}

	// The epoch gate comes before any state change, including the re-arm:
	// a premature call must leave the registered invocation untouched.
	if !sched.LastRebalance.IsZero() {
		elapsed := now.Sub(sched.LastRebalance)
		if elapsed < time.Duration(cfg.EpochSeconds)*time.Second {
			s.log.Debug().
				Dur("elapsed", elapsed).
				Uint64("epoch_seconds", cfg.EpochSeconds).
				Msg("Rebalance within epoch, ignored")
			s.bus.Emit(&events.RebalanceSkippedData{Reason: "epoch not elapsed"})
			return nil
		}
	}

	state, err := s.guard.Get()
	if err != nil {
		return err
	}

	// From here the cycle makes external calls; a failure after a settled
	// swap leg must revert the host alongside the state transaction.
	restore := s.snapshotHost()

	var (
		status  string
		pending []events.EventData
	)

	switch {
	case state.Paused:
		status = statusSkippedPaused

	default:
		balances, err := s.readBalances(ctx, cfg)
		if err != nil {
			restore()
			return err
		}
		prices, err := s.readPrices(ctx, cfg)
		if err != nil {
			restore()
			return err
		}

		report, err := drift.Compute(balances, prices, cfg.Targets)
		if err != nil {
			restore()
			return err
		}

		if report.Empty {
			status = statusSkippedEmpty
			break
		}

		pending = append(pending, &events.DriftCalculatedData{
			CurrentBps: report.CurrentBps,
			DriftBps:   report.DriftBps,
			MaxDrift:   report.MaxDrift,
			TotalValue: report.TotalValue,
		})

		if !report.Exceeds(cfg.MaxDriftBps) {
			status = statusSkippedDrift
			break
		}

		legs, err := s.planner.Plan(report, cfg, balances, prices)
		if err != nil {
			restore()
			return err
		}
		if len(legs) == 0 {
			status = statusSkippedNoLegs
			break
		}

		results, err := s.executeLegs(ctx, legs)
		if err != nil {
			restore()
			return err
		}
		for _, res := range results {
			pending = append(pending, &events.SwapExecutedData{
				Path:      res.Path,
				AmountIn:  res.AmountIn,
				AmountOut: res.AmountOut,
			})
		}
		pending = append(pending, &events.RebalanceExecutedData{
			Swaps:    len(results),
			MaxDrift: report.MaxDrift,
		})
		status = statusExecuted
	}

	if status != statusExecuted {
		pending = append(pending, &events.RebalanceSkippedData{Reason: skipReason(status)})
	}

	err = s.withTx(func(tx *sql.Tx) error {
		if err := s.autonomy.RecordOutcomeTx(tx, now, status, ""); err != nil {
			return err
		}

		if sched.Mode != autonomy.ModeActive {
			return nil
		}

		outcome, err := s.autonomy.RearmTx(ctx, tx, now, cfg.EpochSeconds)
		if err != nil {
			return err
		}
		if outcome.Rearmed {
			pending = append(pending, &events.NextRebalanceScheduledData{
				Handle:     outcome.Arm.Handle,
				TargetSlot: outcome.Arm.TargetSlot.Unix(),
				Quote:      outcome.Arm.Cost,
			})
		} else {
			pending = append(pending, &events.AutonomyStoppedData{
				Reason:    "gas bank exhausted",
				Shortfall: outcome.Shortfall,
			})
		}
		return nil
	})
	if err != nil {
		restore()
		return err
	}

	for _, data := range pending {
		s.bus.Emit(data)
	}

	s.log.Info().
		Str("caller", string(caller)).
		Str("status", status).
		Msg("Rebalance cycle finished")
	return nil
}

// executeLegs submits the planned legs in order; the first failure aborts
// the whole cycle.
func (s *Service) executeLegs(ctx context.Context, legs []swap.Leg) ([]swap.Result, error) {
	results := make([]swap.Result, 0, len(legs))
	for _, leg := range legs {
		res, err := s.executor.Execute(ctx, leg)
		if err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

// skipReason strips the status prefix for the event payload.
func skipReason(status string) string {
	const prefix = "skipped: "
	if len(status) > len(prefix) && status[:len(prefix)] == prefix {
		return status[len(prefix):]
	}
	return status
}

// HandleSelfInvocation is the scheduler callback: it decodes the registered
// payload and dispatches the carried operation with the vault itself as the
// caller. Errors are logged, not propagated, because the host slot has
// already fired and there is nothing upstream to revert.
func (s *Service) HandleSelfInvocation(ctx context.Context, payload []byte) {
	inv, err := autonomy.DecodePayload(payload)
	if err != nil {
		s.log.Error().Err(err).Msg("Undecodable self-invocation payload")
		return
	}

	switch inv.Op {
	case autonomy.OpTriggerRebalance:
		if err := s.TriggerRebalance(ctx, s.vaultAddr); err != nil {
			s.log.Error().Err(err).Msg("Self-invoked rebalance failed")
			s.recordFailure(err)
		}
	default:
		s.log.Error().Str("op", inv.Op).Msg("Unknown self-invocation operation")
	}
}

// recordFailure persists a failed self-invoked cycle on the schedule record
// for monitoring.
func (s *Service) recordFailure(cause error) {
	err := s.withTx(func(tx *sql.Tx) error {
		return s.autonomy.RecordOutcomeTx(tx, s.now().UTC(), "failed", cause.Error())
	})
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to record rebalance failure")
	}
}
