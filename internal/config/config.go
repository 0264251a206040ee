// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment variables
// (.env file supported). The vault's own immutable-after-construction
// parameters live in the genesis YAML file, not here - see genesis.go.
type Config struct {
	DataDir     string // Base directory for all databases
	GenesisPath string // YAML file with the vault genesis parameters
	BackupDir   string // Directory for database snapshot backups
	LogLevel    string
	Port        int
	DevMode     bool

	// Oracle selection: "sim" uses the in-process simulated host oracle,
	// anything else is treated as a websocket price-feed URL.
	OracleURL string

	// Gas bank thresholds in native currency units.
	GasMinReserve  uint64 // Hard floor below which autonomy stops
	GasWarnReserve uint64 // Soft warning threshold

	// Swap execution parameters.
	MaxSlippageBps   uint64 // Minimum-output tolerance below the router quote
	SwapDeadlineSecs int64  // Deadline buffer for router calls

	// Risk advisor.
	VolatilityAlertPct float64 // Annualized volatility (%) above which an advisory fires
}

// Load reads configuration from environment variables, loading a .env file
// first when present.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if it doesn't)
	_ = godotenv.Load()

	dataDir := getEnv("BALLAST_DATA_DIR", "./data")
	absDataDir, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir: %w", err)
	}

	port, err := getEnvInt("BALLAST_PORT", 8090)
	if err != nil {
		return nil, err
	}

	minReserve, err := getEnvUint("BALLAST_GAS_MIN_RESERVE", 50_000_000)
	if err != nil {
		return nil, err
	}
	warnReserve, err := getEnvUint("BALLAST_GAS_WARN_RESERVE", 100_000_000)
	if err != nil {
		return nil, err
	}

	slippage, err := getEnvUint("BALLAST_MAX_SLIPPAGE_BPS", 100)
	if err != nil {
		return nil, err
	}
	deadline, err := getEnvInt("BALLAST_SWAP_DEADLINE_SECS", 300)
	if err != nil {
		return nil, err
	}

	volAlert := 80.0
	if v := os.Getenv("BALLAST_VOL_ALERT_PCT"); v != "" {
		parsed, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid BALLAST_VOL_ALERT_PCT: %w", err)
		}
		volAlert = parsed
	}

	cfg := &Config{
		DataDir:            absDataDir,
		GenesisPath:        getEnv("BALLAST_GENESIS", filepath.Join(absDataDir, "genesis.yaml")),
		BackupDir:          getEnv("BALLAST_BACKUP_DIR", filepath.Join(absDataDir, "backups")),
		LogLevel:           getEnv("BALLAST_LOG_LEVEL", "info"),
		Port:               port,
		DevMode:            os.Getenv("BALLAST_DEV_MODE") == "true",
		OracleURL:          getEnv("BALLAST_ORACLE_URL", "sim"),
		GasMinReserve:      minReserve,
		GasWarnReserve:     warnReserve,
		MaxSlippageBps:     slippage,
		SwapDeadlineSecs:   int64(deadline),
		VolatilityAlertPct: volAlert,
	}

	if cfg.MaxSlippageBps >= 10000 {
		return nil, fmt.Errorf("BALLAST_MAX_SLIPPAGE_BPS must be below 10000, got %d", cfg.MaxSlippageBps)
	}

	return cfg, nil
}

// StateDBPath returns the path of the vault state database.
func (c *Config) StateDBPath() string {
	return filepath.Join(c.DataDir, "state.db")
}

// JournalDBPath returns the path of the append-only event journal database.
func (c *Config) JournalDBPath() string {
	return filepath.Join(c.DataDir, "journal.db")
}

// HistoryDBPath returns the path of the price-history database.
func (c *Config) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func getEnvUint(key string, fallback uint64) (uint64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
