// Package guard implements the owner-controlled circuit breakers: the
// risk-off "armed" flag gating autonomy start and the emergency "paused"
// flag gating deposits and rebalance execution. Redemption is never gated -
// holders must always be able to exit.
package guard

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"
)

// GuardSchema is the single-row flag table in state.db.
const GuardSchema = `
CREATE TABLE IF NOT EXISTS guard_state (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    armed INTEGER NOT NULL DEFAULT 0,
    paused INTEGER NOT NULL DEFAULT 0
);

INSERT OR IGNORE INTO guard_state (id, armed, paused) VALUES (1, 0, 0);
`

// InitSchema ensures the guard_state table exists in state.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(GuardSchema)
	return err
}

// State is the pair of independent guard flags.
type State struct {
	Armed  bool `json:"armed"`
	Paused bool `json:"paused"`
}

// Service manages guard flag persistence.
type Service struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewService creates a new guard service.
func NewService(db *sql.DB, log zerolog.Logger) *Service {
	return &Service{
		db:  db,
		log: log.With().Str("service", "guard").Logger(),
	}
}

// Get returns the current guard state.
func (s *Service) Get() (State, error) {
	var armed, paused int
	if err := s.db.QueryRow(`SELECT armed, paused FROM guard_state WHERE id = 1`).Scan(&armed, &paused); err != nil {
		return State{}, fmt.Errorf("failed to query guard state: %w", err)
	}
	return State{Armed: armed != 0, Paused: paused != 0}, nil
}

// SetArmedTx flips the risk-off flag inside the caller's transaction.
func (s *Service) SetArmedTx(tx *sql.Tx, armed bool) error {
	if _, err := tx.Exec(`UPDATE guard_state SET armed = ? WHERE id = 1`, boolToInt(armed)); err != nil {
		return fmt.Errorf("failed to set armed flag: %w", err)
	}
	return nil
}

// SetPausedTx flips the emergency pause flag inside the caller's transaction.
func (s *Service) SetPausedTx(tx *sql.Tx, paused bool) error {
	if _, err := tx.Exec(`UPDATE guard_state SET paused = ? WHERE id = 1`, boolToInt(paused)); err != nil {
		return fmt.Errorf("failed to set paused flag: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
