// Package risk computes an advisory volatility picture of the basket from
// sampled oracle prices. It never touches vault state: arming the risk-off
// guard stays an owner judgment call; this module only informs it.
package risk

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// HistorySchema is the sampled price table in history.db.
const HistorySchema = `
CREATE TABLE IF NOT EXISTS price_history (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    asset TEXT NOT NULL,
    price INTEGER NOT NULL,
    sampled_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_price_history_asset_time ON price_history(asset, sampled_at);
`

// InitSchema ensures the price_history table exists in history.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(HistorySchema)
	return err
}

// HistoryRepository handles price sample persistence.
type HistoryRepository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewHistoryRepository creates a new price history repository.
func NewHistoryRepository(db *sql.DB, log zerolog.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:  db,
		log: log.With().Str("repository", "price_history").Logger(),
	}
}

// Record appends one price sample.
func (r *HistoryRepository) Record(asset domain.AssetID, price uint64, at time.Time) error {
	stored, err := umath.ToInt64(price)
	if err != nil {
		return fmt.Errorf("price exceeds storage range: %w", err)
	}
	if _, err := r.db.Exec(`INSERT INTO price_history (asset, price, sampled_at) VALUES (?, ?, ?)`,
		string(asset), stored, at.Unix()); err != nil {
		return fmt.Errorf("failed to record price sample: %w", err)
	}
	return nil
}

// Recent returns the latest samples for an asset in chronological order,
// capped at limit.
func (r *HistoryRepository) Recent(asset domain.AssetID, limit int) ([]float64, error) {
	if limit <= 0 {
		limit = 256
	}

	rows, err := r.db.Query(`SELECT price FROM (
			SELECT price, sampled_at FROM price_history
			WHERE asset = ? ORDER BY sampled_at DESC, id DESC LIMIT ?
		) ORDER BY sampled_at ASC`, string(asset), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query price history: %w", err)
	}
	defer rows.Close()

	var prices []float64
	for rows.Next() {
		var price int64
		if err := rows.Scan(&price); err != nil {
			return nil, fmt.Errorf("failed to scan price sample: %w", err)
		}
		prices = append(prices, float64(price))
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price samples: %w", err)
	}

	return prices, nil
}

// Prune deletes samples older than the cutoff.
func (r *HistoryRepository) Prune(cutoff time.Time) (int64, error) {
	res, err := r.db.Exec(`DELETE FROM price_history WHERE sampled_at < ?`, cutoff.Unix())
	if err != nil {
		return 0, fmt.Errorf("failed to prune price history: %w", err)
	}
	return res.RowsAffected()
}
