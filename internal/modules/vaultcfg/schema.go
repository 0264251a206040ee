package vaultcfg

import "database/sql"

// ConfigSchema is the single-row configuration table in state.db.
const ConfigSchema = `
CREATE TABLE IF NOT EXISTS vault_config (
    id INTEGER PRIMARY KEY CHECK (id = 1),
    target_a INTEGER NOT NULL,
    target_b INTEGER NOT NULL,
    target_c INTEGER NOT NULL,
    max_drift_bps INTEGER NOT NULL,
    epoch_seconds INTEGER NOT NULL,
    min_deposit INTEGER NOT NULL,
    min_slice_value INTEGER NOT NULL,
    owner TEXT NOT NULL,
    asset_a TEXT NOT NULL,
    asset_b TEXT NOT NULL,
    asset_c TEXT NOT NULL,
    router TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`

// InitSchema ensures the vault_config table exists in state.db
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(ConfigSchema)
	return err
}
