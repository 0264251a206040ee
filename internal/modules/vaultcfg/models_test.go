package vaultcfg

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ballastfi/ballast/internal/domain"
)

func validConfig() VaultConfig {
	return VaultConfig{
		Targets:       [3]uint64{3333, 3333, 3334},
		MaxDriftBps:   500,
		EpochSeconds:  1800,
		MinDeposit:    1000,
		MinSliceValue: 500,
		Owner:         "0xowner",
		Assets:        [3]domain.AssetID{"WTON", "ETH", "USDC"},
		Router:        "0xrouter",
	}
}

func TestVaultConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*VaultConfig)
		ok     bool
	}{
		{name: "valid", mutate: func(c *VaultConfig) {}, ok: true},
		{name: "targets sum below 10000", mutate: func(c *VaultConfig) { c.Targets = [3]uint64{3333, 3333, 3333} }},
		{name: "targets sum above 10000", mutate: func(c *VaultConfig) { c.Targets = [3]uint64{5000, 5000, 1} }},
		{name: "targets wrap around to 10000", mutate: func(c *VaultConfig) { c.Targets = [3]uint64{1 << 63, 1 << 63, 10000} }},
		{name: "zero drift threshold", mutate: func(c *VaultConfig) { c.MaxDriftBps = 0 }},
		{name: "drift threshold above ceiling", mutate: func(c *VaultConfig) { c.MaxDriftBps = 2001 }},
		{name: "epoch too short", mutate: func(c *VaultConfig) { c.EpochSeconds = 299 }},
		{name: "zero min deposit", mutate: func(c *VaultConfig) { c.MinDeposit = 0 }},
		{name: "missing owner", mutate: func(c *VaultConfig) { c.Owner = "" }},
		{name: "missing router", mutate: func(c *VaultConfig) { c.Router = "" }},
		{name: "missing asset", mutate: func(c *VaultConfig) { c.Assets[1] = "" }},
		{name: "duplicate assets", mutate: func(c *VaultConfig) { c.Assets[2] = c.Assets[0] }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, domain.ErrPrecondition)
			}
		})
	}
}
