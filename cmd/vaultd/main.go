// Package main is the entry point for the ballast index-vault engine: a
// three-asset basket vault with proportional shares, drift-based
// rebalancing through a DEX router, and a self-rescheduling autonomy loop
// paid from its own gas bank.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ballastfi/ballast/internal/clients/oracle"
	"github.com/ballastfi/ballast/internal/config"
	"github.com/ballastfi/ballast/internal/database"
	"github.com/ballastfi/ballast/internal/domain"
	"github.com/ballastfi/ballast/internal/events"
	"github.com/ballastfi/ballast/internal/host"
	"github.com/ballastfi/ballast/internal/jobs"
	"github.com/ballastfi/ballast/internal/modules/autonomy"
	"github.com/ballastfi/ballast/internal/modules/gasbank"
	"github.com/ballastfi/ballast/internal/modules/guard"
	"github.com/ballastfi/ballast/internal/modules/risk"
	"github.com/ballastfi/ballast/internal/modules/shares"
	"github.com/ballastfi/ballast/internal/modules/swap"
	"github.com/ballastfi/ballast/internal/modules/vaultcfg"
	"github.com/ballastfi/ballast/internal/reliability"
	"github.com/ballastfi/ballast/internal/server"
	"github.com/ballastfi/ballast/internal/vault"
	"github.com/ballastfi/ballast/pkg/logger"
)

// vaultAddress is the vault's own account on the simulated host chain.
const vaultAddress = domain.Address("vault:main")

// Simulated host parameters.
const (
	simPoolReserve    = 1_000_000_000_000
	simPoolFeeBps     = 30
	simInitialPrice   = 100
	simSlotInterval   = time.Minute
	simSlotWindow     = 10
	simSlotBaseCost   = 1_000_000
	simSlotCostStep   = 250_000
	simWalkMaxStepBps = 50
)

const snapshotRetention = 14

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.DevMode})
	log.Info().Str("data_dir", cfg.DataDir).Msg("Ballast vault engine starting")

	// Three databases: balanced state, durable journal, fast history.
	stateDB := mustOpen(log, database.Config{Path: cfg.StateDBPath(), Profile: database.ProfileStandard, Name: "state"})
	defer stateDB.Close()
	journalDB := mustOpen(log, database.Config{Path: cfg.JournalDBPath(), Profile: database.ProfileLedger, Name: "journal"})
	defer journalDB.Close()
	historyDB := mustOpen(log, database.Config{Path: cfg.HistoryDBPath(), Profile: database.ProfileCache, Name: "history"})
	defer historyDB.Close()

	if err := initSchemas(stateDB, journalDB, historyDB); err != nil {
		log.Fatal().Err(err).Msg("Schema initialization failed")
	}

	// Vault construction parameters come from the genesis file on first
	// start; afterwards the persisted record is authoritative.
	cfgRepo := vaultcfg.NewRepository(stateDB.Conn(), log)
	vaultCfg, ok, err := cfgRepo.Get()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read vault configuration")
	}
	if !ok {
		vaultCfg, err = vaultcfg.LoadGenesis(cfg.GenesisPath)
		if err != nil {
			log.Fatal().Err(err).Str("genesis", cfg.GenesisPath).Msg("Failed to load genesis")
		}
		if err := cfgRepo.Init(vaultCfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to persist genesis configuration")
		}
		log.Info().Str("owner", string(vaultCfg.Owner)).Msg("Vault initialized from genesis")
	}

	// Event bus with the append-only journal as sink.
	bus := events.NewBus(log)
	journal := events.NewJournal(journalDB.Conn(), log)
	bus.AddSink(journal)

	// Simulated host chain: token ledger, AMM router and slot scheduler.
	ledger := host.NewTokenLedger()
	router := host.NewAMMRouter(ledger, vaultCfg.BaseAsset(), simPoolFeeBps)
	for i := 1; i < domain.NumAssets; i++ {
		router.AddPool(vaultCfg.BaseAsset(), vaultCfg.Assets[i], simPoolReserve, simPoolReserve)
	}
	scheduler := host.NewSlotScheduler(simSlotInterval, simSlotWindow, simSlotBaseCost, simSlotCostStep, log)

	// Oracle: simulated random walk or a live websocket feed.
	var (
		priceOracle domain.PriceOracle
		simOracle   *host.SimOracle
		feed        *oracle.PriceFeedClient
	)
	if cfg.OracleURL == "sim" {
		prices := make(map[domain.AssetID]uint64, domain.NumAssets)
		for _, asset := range vaultCfg.Assets {
			prices[asset] = simInitialPrice
		}
		simOracle = host.NewSimOracle(prices, time.Now().UnixNano())
		priceOracle = simOracle
	} else {
		feed = oracle.NewPriceFeedClient(cfg.OracleURL, log)
		if err := feed.Start(); err != nil {
			log.Warn().Err(err).Msg("Price feed not yet connected")
		}
		priceOracle = feed
	}

	// Modules.
	gas := gasbank.NewService(stateDB.Conn(), cfg.GasMinReserve, cfg.GasWarnReserve, log)
	guardSvc := guard.NewService(stateDB.Conn(), log)
	sharesRepo := shares.NewRepository(stateDB.Conn(), log)
	autoRepo := autonomy.NewRepository(stateDB.Conn(), log)
	autoSvc := autonomy.NewService(autoRepo, gas, scheduler, log)
	planner := swap.NewPlanner(log)
	executor := swap.NewExecutor(
		ledger, router, vaultAddress, vaultCfg.Router,
		cfg.MaxSlippageBps, time.Duration(cfg.SwapDeadlineSecs)*time.Second, log,
	)

	history := risk.NewHistoryRepository(historyDB.Conn(), log)
	// One sample per minute.
	advisor := risk.NewAdvisor(history, vaultCfg.Assets, 525_600, cfg.VolatilityAlertPct, log)

	vaultSvc := vault.NewService(vault.Config{
		VaultAddress: vaultAddress,
		StateDB:      stateDB,
		ConfigRepo:   cfgRepo,
		SharesRepo:   sharesRepo,
		Guard:        guardSvc,
		GasBank:      gas,
		Autonomy:     autoSvc,
		Planner:      planner,
		Executor:     executor,
		Ledger:       ledger,
		Oracle:       priceOracle,
		Bus:          bus,
		Log:          log,
		Host:         []domain.StateSnapshotter{ledger, router},
	})

	// Deferred self-invocations come back through the scheduler.
	scheduler.SetInvoker(func(payload []byte) {
		vaultSvc.HandleSelfInvocation(context.Background(), payload)
	})
	scheduler.Start()

	// Background jobs.
	snapshots := reliability.NewSnapshotService(map[string]*database.DB{
		"state":   stateDB,
		"journal": journalDB,
		"history": historyDB,
	}, cfg.BackupDir, snapshotRetention, log)

	runner := jobs.NewRunner(log)
	mustAddJob(log, runner, "@every 1m", jobs.NewPriceSamplingJob(cfgRepo, priceOracle, history, log))
	mustAddJob(log, runner, "@every 1m", jobs.NewReserveWatchJob(gas, bus, log))
	mustAddJob(log, runner, "@every 5m", jobs.NewRiskWatchJob(advisor, bus, log))
	mustAddJob(log, runner, "@daily", jobs.NewSnapshotJob(snapshots, log))
	if simOracle != nil {
		mustAddJob(log, runner, "@every 30s", jobs.NewMarketWalkJob(simOracle, simWalkMaxStepBps, log))
	}
	runner.Start()

	srv := server.New(server.Config{
		Port:    cfg.Port,
		Log:     log,
		Vault:   vaultSvc,
		Bus:     bus,
		Journal: journal,
		Advisor: advisor,
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	runner.Stop()
	scheduler.Stop()
	if feed != nil {
		feed.Stop()
	}

	log.Info().Msg("Ballast vault engine stopped")
}

func mustOpen(log zerolog.Logger, cfg database.Config) *database.DB {
	db, err := database.New(cfg)
	if err != nil {
		log.Fatal().Err(err).Str("database", cfg.Name).Msg("Failed to open database")
	}
	return db
}

func mustAddJob(log zerolog.Logger, runner *jobs.Runner, schedule string, job jobs.Job) {
	if err := runner.AddJob(schedule, job); err != nil {
		log.Fatal().Err(err).Str("job", job.Name()).Msg("Failed to register job")
	}
}

func initSchemas(stateDB, journalDB, historyDB *database.DB) error {
	if err := vaultcfg.InitSchema(stateDB.Conn()); err != nil {
		return err
	}
	if err := shares.InitSchema(stateDB.Conn()); err != nil {
		return err
	}
	if err := guard.InitSchema(stateDB.Conn()); err != nil {
		return err
	}
	if err := gasbank.InitSchema(stateDB.Conn()); err != nil {
		return err
	}
	if err := autonomy.InitSchema(stateDB.Conn()); err != nil {
		return err
	}
	if err := events.InitJournalSchema(journalDB.Conn()); err != nil {
		return err
	}
	return risk.InitSchema(historyDB.Conn())
}
