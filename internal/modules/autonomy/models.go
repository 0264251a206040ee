// Package autonomy implements the self-rescheduling state machine: the
// vault pays, from its own gas bank, for its next invocation of the
// rebalance entry point. There is no external keeper; exhaustion of the
// reserve is the only automatic stop.
package autonomy

import "time"

// Mode is the autonomy state machine position.
type Mode string

const (
	// ModeInactive - autonomy never started or owner-stopped.
	ModeInactive Mode = "inactive"
	// ModeActive - a self-invocation is registered.
	ModeActive Mode = "active"
	// ModeStoppedExhausted - the gas bank could not fund the next slot.
	ModeStoppedExhausted Mode = "stopped-on-exhaustion"
)

// ScheduleRecord is the persisted handle to the currently registered
// self-invocation plus the monitoring fields overwritten on each re-arm.
type ScheduleRecord struct {
	Mode           Mode      `json:"mode"`
	Enabled        bool      `json:"enabled"`
	Handle         uint64    `json:"handle"`
	TargetSlot     time.Time `json:"target_slot"`
	QuotedCost     uint64    `json:"quoted_cost"`
	LastRebalance  time.Time `json:"last_rebalance"`
	NextRebalance  time.Time `json:"next_rebalance"`
	RebalanceCount uint64    `json:"rebalance_count"`
	LastStatus     string    `json:"last_status"`
	LastError      string    `json:"last_error"`
}
