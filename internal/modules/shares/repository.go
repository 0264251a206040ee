// Package shares implements the share ledger: per-holder balances and the
// total-share invariant, mutated only by deposit and redemption.
package shares

import (
	"database/sql"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// Repository handles share ledger database operations. Mutations take the
// caller's transaction; mint and burn keep holder rows and the supply row in
// step so sum(holders) == total holds after every commit.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new share ledger repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "shares").Logger(),
	}
}

// BalanceOf returns the holder's share balance, zero if no row exists.
func (r *Repository) BalanceOf(holder domain.Address) (uint64, error) {
	var amount int64
	err := r.db.QueryRow(`SELECT amount FROM share_holders WHERE holder = ?`, string(holder)).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query holder balance: %w", err)
	}
	return umath.FromInt64(amount)
}

// TotalShares returns the persisted share supply.
func (r *Repository) TotalShares() (uint64, error) {
	var total int64
	if err := r.db.QueryRow(`SELECT total FROM share_supply WHERE id = 1`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query share supply: %w", err)
	}
	return umath.FromInt64(total)
}

// SumHolders recomputes the supply from holder rows. Used by invariant
// checks in tests and the status endpoint.
func (r *Repository) SumHolders() (uint64, error) {
	var sum sql.NullInt64
	if err := r.db.QueryRow(`SELECT SUM(amount) FROM share_holders`).Scan(&sum); err != nil {
		return 0, fmt.Errorf("failed to sum holder balances: %w", err)
	}
	if !sum.Valid {
		return 0, nil
	}
	return umath.FromInt64(sum.Int64)
}

// Holders returns all holder balances.
func (r *Repository) Holders() (map[domain.Address]uint64, error) {
	rows, err := r.db.Query(`SELECT holder, amount FROM share_holders`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holders: %w", err)
	}
	defer rows.Close()

	holders := make(map[domain.Address]uint64)
	for rows.Next() {
		var (
			holder string
			amount int64
		)
		if err := rows.Scan(&holder, &amount); err != nil {
			return nil, fmt.Errorf("failed to scan holder: %w", err)
		}
		v, err := umath.FromInt64(amount)
		if err != nil {
			return nil, fmt.Errorf("corrupt holder balance for %s: %w", holder, err)
		}
		holders[domain.Address(holder)] = v
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holders: %w", err)
	}

	return holders, nil
}

// MintTx credits shares to the holder and the supply inside the caller's
// transaction. Overflowing either count rejects the mint.
func (r *Repository) MintTx(tx *sql.Tx, holder domain.Address, amount uint64) error {
	if amount == 0 {
		return domain.PreconditionError("cannot mint zero shares")
	}

	current, err := balanceOfTx(tx, holder)
	if err != nil {
		return err
	}
	newBalance, err := umath.Add(current, amount)
	if err != nil {
		return fmt.Errorf("holder balance overflow: %w", err)
	}
	stored, err := umath.ToInt64(newBalance)
	if err != nil {
		return fmt.Errorf("holder balance exceeds storage range: %w", err)
	}

	total, err := totalSharesTx(tx)
	if err != nil {
		return err
	}
	newTotal, err := umath.Add(total, amount)
	if err != nil {
		return fmt.Errorf("share supply overflow: %w", err)
	}
	storedTotal, err := umath.ToInt64(newTotal)
	if err != nil {
		return fmt.Errorf("share supply exceeds storage range: %w", err)
	}

	if _, err := tx.Exec(`INSERT INTO share_holders (holder, amount) VALUES (?, ?)
		ON CONFLICT(holder) DO UPDATE SET amount = excluded.amount`,
		string(holder), stored); err != nil {
		return fmt.Errorf("failed to credit holder: %w", err)
	}
	if _, err := tx.Exec(`UPDATE share_supply SET total = ? WHERE id = 1`, storedTotal); err != nil {
		return fmt.Errorf("failed to update share supply: %w", err)
	}

	return nil
}

// BurnTx debits shares from the holder and the supply inside the caller's
// transaction. Rows reaching zero are deleted.
func (r *Repository) BurnTx(tx *sql.Tx, holder domain.Address, amount uint64) error {
	if amount == 0 {
		return domain.PreconditionError("cannot burn zero shares")
	}

	current, err := balanceOfTx(tx, holder)
	if err != nil {
		return err
	}
	newBalance, err := umath.Sub(current, amount)
	if err != nil {
		return domain.PreconditionError("insufficient shares: have %d, burning %d", current, amount)
	}

	total, err := totalSharesTx(tx)
	if err != nil {
		return err
	}
	newTotal, err := umath.Sub(total, amount)
	if err != nil {
		return domain.PreconditionError("share supply underflow: total %d, burning %d", total, amount)
	}

	if newBalance == 0 {
		if _, err := tx.Exec(`DELETE FROM share_holders WHERE holder = ?`, string(holder)); err != nil {
			return fmt.Errorf("failed to delete emptied holder: %w", err)
		}
	} else {
		stored, err := umath.ToInt64(newBalance)
		if err != nil {
			return fmt.Errorf("holder balance exceeds storage range: %w", err)
		}
		if _, err := tx.Exec(`UPDATE share_holders SET amount = ? WHERE holder = ?`, stored, string(holder)); err != nil {
			return fmt.Errorf("failed to debit holder: %w", err)
		}
	}

	storedTotal, err := umath.ToInt64(newTotal)
	if err != nil {
		return fmt.Errorf("share supply exceeds storage range: %w", err)
	}
	if _, err := tx.Exec(`UPDATE share_supply SET total = ? WHERE id = 1`, storedTotal); err != nil {
		return fmt.Errorf("failed to update share supply: %w", err)
	}

	return nil
}

func balanceOfTx(tx *sql.Tx, holder domain.Address) (uint64, error) {
	var amount int64
	err := tx.QueryRow(`SELECT amount FROM share_holders WHERE holder = ?`, string(holder)).Scan(&amount)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to query holder balance: %w", err)
	}
	return umath.FromInt64(amount)
}

func totalSharesTx(tx *sql.Tx) (uint64, error) {
	var total int64
	if err := tx.QueryRow(`SELECT total FROM share_supply WHERE id = 1`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to query share supply: %w", err)
	}
	return umath.FromInt64(total)
}
