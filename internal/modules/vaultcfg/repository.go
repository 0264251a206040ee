package vaultcfg

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/umath"
)

// Repository handles vault configuration persistence. Reads go through the
// connection; mutations take the caller's transaction so configuration
// changes commit or roll back together with the rest of the entry point.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new vault configuration repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repository", "vaultcfg").Logger(),
	}
}

// Get returns the persisted configuration. The second return value is false
// when the vault has not been initialized yet.
func (r *Repository) Get() (VaultConfig, bool, error) {
	var (
		cfg       VaultConfig
		raw       [7]int64
		owner     string
		assets    [3]string
		router    string
		updatedAt string
	)

	err := r.db.QueryRow(`SELECT target_a, target_b, target_c, max_drift_bps,
		epoch_seconds, min_deposit, min_slice_value,
		owner, asset_a, asset_b, asset_c, router, updated_at
		FROM vault_config WHERE id = 1`).Scan(
		&raw[0], &raw[1], &raw[2], &raw[3], &raw[4], &raw[5], &raw[6],
		&owner, &assets[0], &assets[1], &assets[2], &router, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return VaultConfig{}, false, nil
	}
	if err != nil {
		return VaultConfig{}, false, fmt.Errorf("failed to query vault config: %w", err)
	}

	fields := []*uint64{
		&cfg.Targets[0], &cfg.Targets[1], &cfg.Targets[2],
		&cfg.MaxDriftBps, &cfg.EpochSeconds, &cfg.MinDeposit, &cfg.MinSliceValue,
	}
	for i, dst := range fields {
		v, err := umath.FromInt64(raw[i])
		if err != nil {
			return VaultConfig{}, false, fmt.Errorf("corrupt vault config field %d: %w", i, err)
		}
		*dst = v
	}

	cfg.Owner = domain.Address(owner)
	cfg.Router = domain.Address(router)
	for i, a := range assets {
		cfg.Assets[i] = domain.AssetID(a)
	}

	return cfg, true, nil
}

// Init persists the genesis configuration. Fails if a configuration row
// already exists or the config is invalid.
func (r *Repository) Init(cfg VaultConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	_, exists, err := r.Get()
	if err != nil {
		return err
	}
	if exists {
		return domain.PreconditionError("vault config already initialized")
	}

	_, err = r.db.Exec(`INSERT INTO vault_config
		(id, target_a, target_b, target_c, max_drift_bps, epoch_seconds,
		 min_deposit, min_slice_value, owner, asset_a, asset_b, asset_c, router, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(cfg.Targets[0]), int64(cfg.Targets[1]), int64(cfg.Targets[2]),
		int64(cfg.MaxDriftBps), int64(cfg.EpochSeconds),
		int64(cfg.MinDeposit), int64(cfg.MinSliceValue),
		string(cfg.Owner), string(cfg.Assets[0]), string(cfg.Assets[1]), string(cfg.Assets[2]),
		string(cfg.Router), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert vault config: %w", err)
	}

	r.log.Info().
		Str("owner", string(cfg.Owner)).
		Uints64("targets", cfg.Targets[:]).
		Msg("Vault config initialized")

	return nil
}

// UpdateTargetsTx replaces the target weights inside the caller's transaction.
func (r *Repository) UpdateTargetsTx(tx *sql.Tx, targets [domain.NumAssets]uint64) error {
	res, err := tx.Exec(`UPDATE vault_config SET target_a = ?, target_b = ?, target_c = ?, updated_at = ? WHERE id = 1`,
		int64(targets[0]), int64(targets[1]), int64(targets[2]),
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to update targets: %w", err)
	}
	return requireRow(res)
}

// UpdateMaxDriftTx replaces the drift threshold inside the caller's transaction.
func (r *Repository) UpdateMaxDriftTx(tx *sql.Tx, maxDriftBps uint64) error {
	res, err := tx.Exec(`UPDATE vault_config SET max_drift_bps = ?, updated_at = ? WHERE id = 1`,
		int64(maxDriftBps), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to update max drift: %w", err)
	}
	return requireRow(res)
}

// UpdateEpochTx replaces the rebalance epoch inside the caller's transaction.
func (r *Repository) UpdateEpochTx(tx *sql.Tx, epochSeconds uint64) error {
	res, err := tx.Exec(`UPDATE vault_config SET epoch_seconds = ?, updated_at = ? WHERE id = 1`,
		int64(epochSeconds), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to update epoch: %w", err)
	}
	return requireRow(res)
}

// UpdateOwnerTx transfers ownership inside the caller's transaction.
func (r *Repository) UpdateOwnerTx(tx *sql.Tx, newOwner domain.Address) error {
	res, err := tx.Exec(`UPDATE vault_config SET owner = ?, updated_at = ? WHERE id = 1`,
		string(newOwner), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to update owner: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n != 1 {
		return domain.PreconditionError("vault config not initialized")
	}
	return nil
}
