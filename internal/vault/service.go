// Package vault is the contract body: it owns the entry points, composes
// the share ledger, drift calculator, swap planner/executor, gas bank,
// guard and autonomy modules, and enforces the execution model - one entry
// point at a time, each mutating persisted state inside a single
// transaction that commits whole or not at all.
package vault

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/database"
	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/modules/autonomy"
	"github.com/ballastfi/ballast/internal/modules/gasbank"
	"github.com/ballastfi/ballast/internal/modules/guard"
	"github.com/ballastfi/ballast/internal/modules/shares"
	"github.com/ballastfi/ballast/internal/modules/swap"
	"github.com/ballastfi/ballast/internal/modules/vaultcfg"
)

// Config holds the vault service dependencies.
type Config struct {
	VaultAddress domain.Address
	StateDB      *database.DB
	ConfigRepo   *vaultcfg.Repository
	SharesRepo   *shares.Repository
	Guard        *guard.Service
	GasBank      *gasbank.Service
	Autonomy     *autonomy.Service
	Planner      *swap.Planner
	Executor     *swap.Executor
	Ledger       domain.AssetLedger
	Oracle       domain.PriceOracle
	Bus          *events.Bus
	Log          zerolog.Logger

	// Host components whose externally visible state must revert together
	// with the state transaction when an entry point fails (the ledger and
	// the router in the simulated host).
	Host []domain.StateSnapshotter

	// Now overrides the clock; nil means time.Now. Tests use it to drive
	// the epoch gate deterministically.
	Now func() time.Time
}

// Service is the vault contract.
type Service struct {
	mu sync.Mutex

	// transferringIn is the deposit reentrancy flag. It is held only for
	// the duration of the external transfer-in call and checked before
	// the serialization lock, so a malicious token re-entering Deposit
	// from inside the transfer is rejected instead of deadlocking.
	transferringIn atomic.Bool

	vaultAddr  domain.Address
	stateDB    *database.DB
	cfgRepo    *vaultcfg.Repository
	sharesRepo *shares.Repository
	guard      *guard.Service
	gas        *gasbank.Service
	autonomy   *autonomy.Service
	planner    *swap.Planner
	executor   *swap.Executor
	ledger     domain.AssetLedger
	oracle     domain.PriceOracle
	bus        *events.Bus
	host       []domain.StateSnapshotter
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates the vault service.
func NewService(cfg Config) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		vaultAddr:  cfg.VaultAddress,
		stateDB:    cfg.StateDB,
		cfgRepo:    cfg.ConfigRepo,
		sharesRepo: cfg.SharesRepo,
		guard:      cfg.Guard,
		gas:        cfg.GasBank,
		autonomy:   cfg.Autonomy,
		planner:    cfg.Planner,
		executor:   cfg.Executor,
		ledger:     cfg.Ledger,
		oracle:     cfg.Oracle,
		bus:        cfg.Bus,
		host:       cfg.Host,
		now:        now,
		log:        cfg.Log.With().Str("service", "vault").Logger(),
	}
}

// Address returns the vault's own account address.
func (s *Service) Address() domain.Address {
	return s.vaultAddr
}

// withTx runs fn inside one state transaction: commit on nil, rollback on
// error. This is the full-rollback boundary of every entry point.
func (s *Service) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.stateDB.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin state transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.log.Error().Err(rbErr).Msg("Rollback failed")
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit state transaction: %w", err)
	}
	return nil
}

// snapshotHost captures every registered host component and returns one
// closure reverting them all. Entry points that make external calls take a
// snapshot up front and restore it on any failure, so external state never
// outlives a rolled-back transaction.
func (s *Service) snapshotHost() func() {
	restores := make([]func(), 0, len(s.host))
	for _, h := range s.host {
		restores = append(restores, h.Snapshot())
	}
	return func() {
		for i := len(restores) - 1; i >= 0; i-- {
			restores[i]()
		}
	}
}

// config loads the vault configuration, failing if the vault was never
// initialized.
func (s *Service) config() (vaultcfg.VaultConfig, error) {
	cfg, ok, err := s.cfgRepo.Get()
	if err != nil {
		return vaultcfg.VaultConfig{}, err
	}
	if !ok {
		return vaultcfg.VaultConfig{}, domain.PreconditionError("vault not initialized")
	}
	return cfg, nil
}

// requireOwner enforces owner-only operations.
func (s *Service) requireOwner(cfg vaultcfg.VaultConfig, caller domain.Address) error {
	if caller != cfg.Owner {
		return fmt.Errorf("%w: %s is not the owner", domain.ErrUnauthorized, caller)
	}
	return nil
}

// readBalances reads the vault's holdings of all basket assets from their
// token contracts.
func (s *Service) readBalances(ctx context.Context, cfg vaultcfg.VaultConfig) (domain.Balances, error) {
	var balances domain.Balances
	for i, asset := range cfg.Assets {
		balance, err := s.ledger.BalanceOf(ctx, asset, s.vaultAddr)
		if err != nil {
			return domain.Balances{}, fmt.Errorf("%w: read %s balance: %v", domain.ErrExternalCall, asset, err)
		}
		balances[i] = balance
	}
	return balances, nil
}

// readPrices reads per-asset prices from the oracle.
func (s *Service) readPrices(ctx context.Context, cfg vaultcfg.VaultConfig) (domain.Prices, error) {
	var prices domain.Prices
	for i, asset := range cfg.Assets {
		price, err := s.oracle.Price(ctx, asset)
		if err != nil {
			return domain.Prices{}, fmt.Errorf("%w: price of %s: %v", domain.ErrExternalCall, asset, err)
		}
		prices[i] = price
	}
	return prices, nil
}

// --- Read-only queries -----------------------------------------------------

// GetConfig returns the vault configuration.
func (s *Service) GetConfig() (vaultcfg.VaultConfig, error) {
	return s.config()
}

// GetBalances returns the vault's current basket holdings.
func (s *Service) GetBalances(ctx context.Context) (domain.Balances, error) {
	cfg, err := s.config()
	if err != nil {
		return domain.Balances{}, err
	}
	return s.readBalances(ctx, cfg)
}

// GetUserShares returns a holder's share balance.
func (s *Service) GetUserShares(holder domain.Address) (uint64, error) {
	return s.sharesRepo.BalanceOf(holder)
}

// TotalShares returns the share supply.
func (s *Service) TotalShares() (uint64, error) {
	return s.sharesRepo.TotalShares()
}

// GetGuardStatus returns both guard flags.
func (s *Service) GetGuardStatus() (guard.State, error) {
	return s.guard.Get()
}

// IsPaused reports the emergency pause flag.
func (s *Service) IsPaused() (bool, error) {
	state, err := s.guard.Get()
	if err != nil {
		return false, err
	}
	return state.Paused, nil
}

// GetAutonomousStatus returns the schedule record.
func (s *Service) GetAutonomousStatus() (autonomy.ScheduleRecord, error) {
	return s.autonomy.Status()
}

// GetGasBankBalance returns the native reserve balance.
func (s *Service) GetGasBankBalance() (uint64, error) {
	return s.gas.Balance()
}
