// Package host provides an in-memory simulated chain host: token ledgers, a
// constant-product AMM router, a price oracle and a slot-based deferred
// scheduler. The vault engine only ever sees the capability interfaces in
// internal/domain, so these implementations double as the fakes its tests
// run against.
package host

import (
	"context"
	"fmt"
	"sync"

	"github.com/ballastfi/ballast/internal/domain"
)

type allowanceKey struct {
	asset   domain.AssetID
	owner   domain.Address
	spender domain.Address
}

// TokenLedger is an in-memory implementation of domain.AssetLedger covering
// all basket assets.
type TokenLedger struct {
	mu         sync.Mutex
	balances   map[domain.AssetID]map[domain.Address]uint64
	allowances map[allowanceKey]uint64

	// Fault injection for tests. BeforeTransferFrom runs before the
	// transfer is applied (a malicious token can re-enter the vault from
	// here); assets in SilentFail report success without moving funds.
	BeforeTransferFrom func(asset domain.AssetID, owner, to domain.Address, amount uint64) error
	SilentFail         map[domain.AssetID]bool
}

// NewTokenLedger creates an empty token ledger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{
		balances:   make(map[domain.AssetID]map[domain.Address]uint64),
		allowances: make(map[allowanceKey]uint64),
		SilentFail: make(map[domain.AssetID]bool),
	}
}

// Mint credits freshly created tokens to an account. Setup helper for the
// simulation and tests.
func (l *TokenLedger) Mint(asset domain.AssetID, to domain.Address, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(asset, to, amount)
}

// BalanceOf returns holder's balance of the given asset.
func (l *TokenLedger) BalanceOf(_ context.Context, asset domain.AssetID, holder domain.Address) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[asset][holder], nil
}

// Transfer moves amount from from to to.
func (l *TokenLedger) Transfer(_ context.Context, asset domain.AssetID, from, to domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.SilentFail[asset] {
		return nil
	}
	return l.move(asset, from, to, amount)
}

// TransferFrom moves amount from owner to to using spender's allowance.
func (l *TokenLedger) TransferFrom(ctx context.Context, asset domain.AssetID, spender, owner, to domain.Address, amount uint64) error {
	if hook := l.BeforeTransferFrom; hook != nil {
		if err := hook(asset, owner, to, amount); err != nil {
			return err
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.SilentFail[asset] {
		return nil
	}

	key := allowanceKey{asset: asset, owner: owner, spender: spender}
	if l.allowances[key] < amount {
		return fmt.Errorf("allowance of %s for %s is %d, need %d", owner, spender, l.allowances[key], amount)
	}

	if err := l.move(asset, owner, to, amount); err != nil {
		return err
	}
	l.allowances[key] -= amount
	return nil
}

// Approve grants spender the right to move up to amount of owner's balance.
func (l *TokenLedger) Approve(_ context.Context, asset domain.AssetID, owner, spender domain.Address, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{asset: asset, owner: owner, spender: spender}] = amount
	return nil
}

// Snapshot copies all balances and allowances and returns a closure
// restoring them. Implements domain.StateSnapshotter.
func (l *TokenLedger) Snapshot() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	balances := make(map[domain.AssetID]map[domain.Address]uint64, len(l.balances))
	for asset, holders := range l.balances {
		cp := make(map[domain.Address]uint64, len(holders))
		for holder, amount := range holders {
			cp[holder] = amount
		}
		balances[asset] = cp
	}
	allowances := make(map[allowanceKey]uint64, len(l.allowances))
	for key, amount := range l.allowances {
		allowances[key] = amount
	}

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.balances = balances
		l.allowances = allowances
	}
}

// move is the locked transfer primitive.
func (l *TokenLedger) move(asset domain.AssetID, from, to domain.Address, amount uint64) error {
	if l.balances[asset][from] < amount {
		return fmt.Errorf("balance of %s is %d, need %d", from, l.balances[asset][from], amount)
	}
	l.balances[asset][from] -= amount
	l.credit(asset, to, amount)
	return nil
}

func (l *TokenLedger) credit(asset domain.AssetID, to domain.Address, amount uint64) {
	if l.balances[asset] == nil {
		l.balances[asset] = make(map[domain.Address]uint64)
	}
	l.balances[asset][to] += amount
}
