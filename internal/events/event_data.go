// Package events defines the vault's structured event log: typed event
// payloads, an in-process bus, and the append-only journal. Events are the
// sole channel external observers use to reconstruct history.
package events

import (
	"github.com/ballastfi/ballast/internal/domain"
)

// EventType represents different event types
type EventType string

const (
	Deposit                EventType = "DEPOSIT"
	Withdraw               EventType = "WITHDRAW"
	GuardArmed             EventType = "GUARD_ARMED"
	ContractPaused         EventType = "CONTRACT_PAUSED"
	ContractUnpaused       EventType = "CONTRACT_UNPAUSED"
	GasBankUpdated         EventType = "GAS_BANK_UPDATED"
	GasReserveLow          EventType = "GAS_RESERVE_LOW"
	AutonomousModeStarted  EventType = "AUTONOMOUS_MODE_STARTED"
	AutonomousModeStopped  EventType = "AUTONOMOUS_MODE_STOPPED"
	DriftCalculated        EventType = "DRIFT_CALCULATED"
	SwapExecuted           EventType = "SWAP_EXECUTED"
	RebalanceExecuted      EventType = "REBALANCE_EXECUTED"
	RebalanceSkipped       EventType = "REBALANCE_SKIPPED"
	NextRebalanceScheduled EventType = "NEXT_REBALANCE_SCHEDULED"
	OwnershipTransferred   EventType = "OWNERSHIP_TRANSFERRED"
	TargetsUpdated         EventType = "TARGETS_UPDATED"
	MaxDriftUpdated        EventType = "MAX_DRIFT_UPDATED"
	EpochUpdated           EventType = "EPOCH_UPDATED"
	EmergencyWithdrawal    EventType = "EMERGENCY_WITHDRAWAL"
	RiskAdvisory           EventType = "RISK_ADVISORY"
)

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// DepositData contains data for Deposit events
type DepositData struct {
	Holder domain.Address `json:"holder"`
	Amount uint64         `json:"amount"`
	Shares uint64         `json:"shares"`
}

// EventType returns the event type for DepositData
func (d *DepositData) EventType() EventType { return Deposit }

// WithdrawData contains data for Withdraw events
type WithdrawData struct {
	Holder      domain.Address           `json:"holder"`
	Shares      uint64                   `json:"shares"`
	Amounts     [domain.NumAssets]uint64 `json:"per_asset_amounts"`
	ToBaseAsset bool                     `json:"to_base_asset"`
}

// EventType returns the event type for WithdrawData
func (d *WithdrawData) EventType() EventType { return Withdraw }

// GuardArmedData contains data for GuardArmed events
type GuardArmedData struct {
	Armed bool `json:"armed"`
}

// EventType returns the event type for GuardArmedData
func (d *GuardArmedData) EventType() EventType { return GuardArmed }

// PausedData contains data for ContractPaused events
type PausedData struct{}

// EventType returns the event type for PausedData
func (d *PausedData) EventType() EventType { return ContractPaused }

// UnpausedData contains data for ContractUnpaused events
type UnpausedData struct{}

// EventType returns the event type for UnpausedData
func (d *UnpausedData) EventType() EventType { return ContractUnpaused }

// GasBankUpdatedData contains data for GasBankUpdated events
type GasBankUpdatedData struct {
	NewBalance uint64 `json:"new_balance"`
	Change     int64  `json:"change"`
}

// EventType returns the event type for GasBankUpdatedData
func (d *GasBankUpdatedData) EventType() EventType { return GasBankUpdated }

// GasReserveLowData contains data for GasReserveLow events
type GasReserveLowData struct {
	Balance     uint64 `json:"balance"`
	WarnReserve uint64 `json:"warn_reserve"`
}

// EventType returns the event type for GasReserveLowData
func (d *GasReserveLowData) EventType() EventType { return GasReserveLow }

// AutonomyStartedData contains data for AutonomousModeStarted events
type AutonomyStartedData struct {
	Handle     uint64 `json:"schedule_handle"`
	TargetSlot int64  `json:"target_slot"`
	Quote      uint64 `json:"quote"`
}

// EventType returns the event type for AutonomyStartedData
func (d *AutonomyStartedData) EventType() EventType { return AutonomousModeStarted }

// AutonomyStoppedData contains data for AutonomousModeStopped events.
// Shortfall is zero when the stop was owner-requested.
type AutonomyStoppedData struct {
	Reason    string `json:"reason"`
	Shortfall uint64 `json:"shortfall,omitempty"`
}

// EventType returns the event type for AutonomyStoppedData
func (d *AutonomyStoppedData) EventType() EventType { return AutonomousModeStopped }

// DriftCalculatedData contains data for DriftCalculated events
type DriftCalculatedData struct {
	CurrentBps [domain.NumAssets]uint64 `json:"current_bps"`
	DriftBps   [domain.NumAssets]uint64 `json:"drift_bps"`
	MaxDrift   uint64                   `json:"max_drift"`
	TotalValue uint64                   `json:"total_value"`
}

// EventType returns the event type for DriftCalculatedData
func (d *DriftCalculatedData) EventType() EventType { return DriftCalculated }

// SwapExecutedData contains data for SwapExecuted events
type SwapExecutedData struct {
	Path      []domain.AssetID `json:"path"`
	AmountIn  uint64           `json:"amount_in"`
	AmountOut uint64           `json:"amount_out"`
}

// EventType returns the event type for SwapExecutedData
func (d *SwapExecutedData) EventType() EventType { return SwapExecuted }

// RebalanceExecutedData contains data for RebalanceExecuted events
type RebalanceExecutedData struct {
	Swaps    int    `json:"swaps"`
	MaxDrift uint64 `json:"max_drift"`
}

// EventType returns the event type for RebalanceExecutedData
func (d *RebalanceExecutedData) EventType() EventType { return RebalanceExecuted }

// RebalanceSkippedData contains data for RebalanceSkipped events
type RebalanceSkippedData struct {
	Reason string `json:"reason"`
}

// EventType returns the event type for RebalanceSkippedData
func (d *RebalanceSkippedData) EventType() EventType { return RebalanceSkipped }

// NextRebalanceScheduledData contains data for NextRebalanceScheduled events
type NextRebalanceScheduledData struct {
	Handle     uint64 `json:"schedule_handle"`
	TargetSlot int64  `json:"target_slot"`
	Quote      uint64 `json:"quote"`
}

// EventType returns the event type for NextRebalanceScheduledData
func (d *NextRebalanceScheduledData) EventType() EventType { return NextRebalanceScheduled }

// OwnershipTransferredData contains data for OwnershipTransferred events
type OwnershipTransferredData struct {
	PreviousOwner domain.Address `json:"previous_owner"`
	NewOwner      domain.Address `json:"new_owner"`
}

// EventType returns the event type for OwnershipTransferredData
func (d *OwnershipTransferredData) EventType() EventType { return OwnershipTransferred }

// TargetsUpdatedData contains data for TargetsUpdated events
type TargetsUpdatedData struct {
	Targets [domain.NumAssets]uint64 `json:"targets"`
}

// EventType returns the event type for TargetsUpdatedData
func (d *TargetsUpdatedData) EventType() EventType { return TargetsUpdated }

// MaxDriftUpdatedData contains data for MaxDriftUpdated events
type MaxDriftUpdatedData struct {
	MaxDriftBps uint64 `json:"max_drift_bps"`
}

// EventType returns the event type for MaxDriftUpdatedData
func (d *MaxDriftUpdatedData) EventType() EventType { return MaxDriftUpdated }

// EpochUpdatedData contains data for EpochUpdated events
type EpochUpdatedData struct {
	EpochSeconds uint64 `json:"epoch_seconds"`
}

// EventType returns the event type for EpochUpdatedData
func (d *EpochUpdatedData) EventType() EventType { return EpochUpdated }

// EmergencyWithdrawalData contains data for EmergencyWithdrawal events
type EmergencyWithdrawalData struct {
	To      domain.Address           `json:"to"`
	Amounts [domain.NumAssets]uint64 `json:"per_asset_amounts"`
}

// EventType returns the event type for EmergencyWithdrawalData
func (d *EmergencyWithdrawalData) EventType() EventType { return EmergencyWithdrawal }

// RiskAdvisoryData contains data for RiskAdvisory events
type RiskAdvisoryData struct {
	Asset          domain.AssetID `json:"asset"`
	AnnualVolPct   float64        `json:"annual_vol_pct"`
	RSI            float64        `json:"rsi"`
	Recommendation string         `json:"recommendation"`
}

// EventType returns the event type for RiskAdvisoryData
func (d *RiskAdvisoryData) EventType() EventType { return RiskAdvisory }
