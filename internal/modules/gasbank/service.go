// Package gasbank tracks the vault's own native-currency balance - the
// reserve that pays for its self-invocations. Two thresholds govern
// autonomy: a hard floor below which autonomy stops and a soft warning
// level.
package gasbank

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// GasBankSchema is the single-row native balance table in state.db.
const GasBankSchema = `
CREATE TABLE IF NOT EXISTS gas_bank (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    balance INTEGER NOT NULL CHECK (balance >= 0)
);

INSERT OR IGNORE INTO gas_bank (id, balance) VALUES (1, 0);
`

// InitSchema ensures the gas_bank table exists in state.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(GasBankSchema)
	return err
}

// Service manages the gas bank balance and its reserve thresholds.
type Service struct {
	db          *sql.DB
	minReserve  uint64 // hard floor: autonomy stops below this
	warnReserve uint64 // soft warning level
	log         zerolog.Logger
}

// NewService creates a new gas bank service.
func NewService(db *sql.DB, minReserve, warnReserve uint64, log zerolog.Logger) *Service {
	return &Service{
		db:          db,
		minReserve:  minReserve,
		warnReserve: warnReserve,
		log:         log.With().Str("service", "gasbank").Logger(),
	}
}

// Balance returns the current native-currency balance.
func (s *Service) Balance() (uint64, error) {
	var balance int64
	if err := s.db.QueryRow(`SELECT balance FROM gas_bank WHERE id = 1`).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to query gas bank balance: %w", err)
	}
	return umath.FromInt64(balance)
}

// BalanceTx returns the balance inside the caller's transaction.
func (s *Service) BalanceTx(tx *sql.Tx) (uint64, error) {
	var balance int64
	if err := tx.QueryRow(`SELECT balance FROM gas_bank WHERE id = 1`).Scan(&balance); err != nil {
		return 0, fmt.Errorf("failed to query gas bank balance: %w", err)
	}
	return umath.FromInt64(balance)
}

// MinReserve returns the hard floor below which autonomy stops.
func (s *Service) MinReserve() uint64 { return s.minReserve }

// WarnReserve returns the soft warning threshold.
func (s *Service) WarnReserve() uint64 { return s.warnReserve }

// CreditTx adds a top-up payment inside the caller's transaction and
// returns the new balance.
func (s *Service) CreditTx(tx *sql.Tx, amount uint64) (uint64, error) {
	if amount == 0 {
		return 0, domain.PreconditionError("top-up amount must be positive")
	}

	current, err := s.BalanceTx(tx)
	if err != nil {
		return 0, err
	}
	newBalance, err := umath.Add(current, amount)
	if err != nil {
		return 0, fmt.Errorf("gas bank overflow: %w", err)
	}
	if err := s.store(tx, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

// DebitTx spends native currency (a scheduling fee) inside the caller's
// transaction and returns the new balance.
func (s *Service) DebitTx(tx *sql.Tx, amount uint64) (uint64, error) {
	current, err := s.BalanceTx(tx)
	if err != nil {
		return 0, err
	}
	newBalance, err := umath.Sub(current, amount)
	if err != nil {
		return 0, domain.PreconditionError("gas bank balance %d cannot cover %d", current, amount)
	}
	if err := s.store(tx, newBalance); err != nil {
		return 0, err
	}
	return newBalance, nil
}

func (s *Service) store(tx *sql.Tx, balance uint64) error {
	stored, err := umath.ToInt64(balance)
	if err != nil {
		return fmt.Errorf("gas bank balance exceeds storage range: %w", err)
	}
	if _, err := tx.Exec(`UPDATE gas_bank SET balance = ? WHERE id = 1`, stored); err != nil {
		return fmt.Errorf("failed to store gas bank balance: %w", err)
	}
	return nil
}
