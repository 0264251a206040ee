package shares

import "database/sql"

// SharesSchema holds per-holder share balances in state.db. Zero-balance
// rows are deleted, never kept; total_shares is derivable but persisted in a
// single-row table so the invariant can be checked cheaply.
const SharesSchema = `
CREATE TABLE IF NOT EXISTS share_holders (
    holder TEXT PRIMARY KEY,
    amount INTEGER NOT NULL CHECK (amount > 0)
);

CREATE TABLE IF NOT EXISTS share_supply (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    total INTEGER NOT NULL CHECK (total >= 0)
);

INSERT OR IGNORE INTO share_supply (id, total) VALUES (1, 0);
`

// InitSchema ensures the share tables exist in state.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(SharesSchema)
	return err
}
