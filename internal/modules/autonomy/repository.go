package autonomy

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/umath"
)

// Repository handles schedule record persistence.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new schedule repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "autonomy").Logger(),
	}
}

// Get returns the schedule record.
func (r *Repository) Get() (ScheduleRecord, error) {
	return scanRecord(r.db.QueryRow(`SELECT mode, handle, target_slot, quoted_cost,
		last_rebalance, next_rebalance, rebalance_count, last_status, last_error
		FROM schedule WHERE id = 1`))
}

// GetTx returns the schedule record inside the caller's transaction.
func (r *Repository) GetTx(tx *sql.Tx) (ScheduleRecord, error) {
	return scanRecord(tx.QueryRow(`SELECT mode, handle, target_slot, quoted_cost,
		last_rebalance, next_rebalance, rebalance_count, last_status, last_error
		FROM schedule WHERE id = 1`))
}

// SetArmedTx overwrites the registration fields and activates autonomy.
func (r *Repository) SetArmedTx(tx *sql.Tx, handle uint64, slot time.Time, cost uint64) error {
	storedHandle, err := umath.ToInt64(handle)
	if err != nil {
		return fmt.Errorf("schedule handle exceeds storage range: %w", err)
	}
	storedCost, err := umath.ToInt64(cost)
	if err != nil {
		return fmt.Errorf("quoted cost exceeds storage range: %w", err)
	}

	_, err = tx.Exec(`UPDATE schedule SET mode = ?, handle = ?, target_slot = ?,
		quoted_cost = ?, next_rebalance = ? WHERE id = 1`,
		string(ModeActive), storedHandle, slot.Unix(), storedCost, slot.Unix())
	if err != nil {
		return fmt.Errorf("failed to arm schedule: %w", err)
	}
	return nil
}

// SetModeTx moves the state machine without touching registration fields.
func (r *Repository) SetModeTx(tx *sql.Tx, mode Mode) error {
	if _, err := tx.Exec(`UPDATE schedule SET mode = ? WHERE id = 1`, string(mode)); err != nil {
		return fmt.Errorf("failed to set schedule mode: %w", err)
	}
	return nil
}

// RecordOutcomeTx updates the monitoring fields after a rebalance attempt
// that made it past the epoch gate.
func (r *Repository) RecordOutcomeTx(tx *sql.Tx, at time.Time, status, errText string) error {
	_, err := tx.Exec(`UPDATE schedule SET last_rebalance = ?, rebalance_count = rebalance_count + 1,
		last_status = ?, last_error = ? WHERE id = 1`,
		at.Unix(), status, errText)
	if err != nil {
		return fmt.Errorf("failed to record rebalance outcome: %w", err)
	}
	return nil
}

func scanRecord(row *sql.Row) (ScheduleRecord, error) {
	var (
		rec                                   ScheduleRecord
		mode                                  string
		handle, slot, cost, last, next, count int64
	)
	err := row.Scan(&mode, &handle, &slot, &cost, &last, &next, &count, &rec.LastStatus, &rec.LastError)
	if err != nil {
		return ScheduleRecord{}, fmt.Errorf("failed to scan schedule record: %w", err)
	}

	rec.Mode = Mode(mode)
	rec.Enabled = rec.Mode == ModeActive

	if rec.Handle, err = umath.FromInt64(handle); err != nil {
		return ScheduleRecord{}, fmt.Errorf("corrupt schedule handle: %w", err)
	}
	if rec.QuotedCost, err = umath.FromInt64(cost); err != nil {
		return ScheduleRecord{}, fmt.Errorf("corrupt quoted cost: %w", err)
	}
	if rec.RebalanceCount, err = umath.FromInt64(count); err != nil {
		return ScheduleRecord{}, fmt.Errorf("corrupt rebalance count: %w", err)
	}

	if slot > 0 {
		rec.TargetSlot = time.Unix(slot, 0).UTC()
	}
	if last > 0 {
		rec.LastRebalance = time.Unix(last, 0).UTC()
	}
	if next > 0 {
		rec.NextRebalance = time.Unix(next, 0).UTC()
	}

	return rec, nil
}
