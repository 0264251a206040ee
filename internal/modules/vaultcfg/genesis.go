package vaultcfg

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ballastfi/ballast/internal/domain"
)

// genesisFile mirrors the YAML layout of the vault genesis file.
type genesisFile struct {
	Owner         string   `yaml:"owner"`
	Router        string   `yaml:"router"`
	Assets        []string `yaml:"assets"`
	TargetsBps    []uint64 `yaml:"targets_bps"`
	MaxDriftBps   uint64   `yaml:"max_drift_bps"`
	EpochSeconds  uint64   `yaml:"epoch_seconds"`
	MinDeposit    uint64   `yaml:"min_deposit"`
	MinSliceValue uint64   `yaml:"min_slice_value"`
}

// LoadGenesis reads and validates the vault genesis parameters from a YAML
// file.
func LoadGenesis(path string) (VaultConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VaultConfig{}, fmt.Errorf("read genesis file: %w", err)
	}

	var gf genesisFile
	if err := yaml.Unmarshal(data, &gf); err != nil {
		return VaultConfig{}, fmt.Errorf("parse genesis file: %w", err)
	}

	if len(gf.Assets) != domain.NumAssets {
		return VaultConfig{}, domain.PreconditionError("genesis must list exactly %d assets, got %d", domain.NumAssets, len(gf.Assets))
	}
	if len(gf.TargetsBps) != domain.NumAssets {
		return VaultConfig{}, domain.PreconditionError("genesis must list exactly %d targets, got %d", domain.NumAssets, len(gf.TargetsBps))
	}

	cfg := VaultConfig{
		MaxDriftBps:   gf.MaxDriftBps,
		EpochSeconds:  gf.EpochSeconds,
		MinDeposit:    gf.MinDeposit,
		MinSliceValue: gf.MinSliceValue,
		Owner:         domain.Address(gf.Owner),
		Router:        domain.Address(gf.Router),
	}
	for i := 0; i < domain.NumAssets; i++ {
		cfg.Assets[i] = domain.AssetID(gf.Assets[i])
		cfg.Targets[i] = gf.TargetsBps[i]
	}

	if err := cfg.Validate(); err != nil {
		return VaultConfig{}, err
	}

	return cfg, nil
}
