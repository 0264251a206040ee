package autonomy

import (
	"fmt"
	"time"

	"github.com/vmihailenco/msgpack/v5"
)

// OpTriggerRebalance is the only self-invocation the vault registers.
const OpTriggerRebalance = "trigger_rebalance"

// SelfInvocation is the payload carried through the host's deferred
// scheduler back to the vault.
type SelfInvocation struct {
	Op           string    `msgpack:"op"`
	RegisteredAt time.Time `msgpack:"registered_at"`
	TargetSlot   time.Time `msgpack:"target_slot"`
}

// EncodePayload marshals a self-invocation for registration.
func EncodePayload(inv SelfInvocation) ([]byte, error) {
	data, err := msgpack.Marshal(inv)
	if err != nil {
		return nil, fmt.Errorf("failed to encode self-invocation: %w", err)
	}
	return data, nil
}

// DecodePayload unmarshals a delivered payload.
func DecodePayload(data []byte) (SelfInvocation, error) {
	var inv SelfInvocation
	if err := msgpack.Unmarshal(data, &inv); err != nil {
		return SelfInvocation{}, fmt.Errorf("failed to decode self-invocation: %w", err)
	}
	return inv, nil
}
