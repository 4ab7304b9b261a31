package main

import (
	"context"
	"fmt"

	"github.com/simaogato/papertrade-backend/internal/adapter/repository/memory"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/papertrade-backend/internal/adapter/repository/sqlite"
	"github.com/simaogato/papertrade-backend/internal/config"
	"github.com/simaogato/papertrade-backend/internal/domain"
	"github.com/simaogato/papertrade-backend/internal/logger"
	"github.com/simaogato/papertrade-backend/internal/usecase/catalog"
	"github.com/simaogato/papertrade-backend/internal/usecase/dashboard"
	"github.com/simaogato/papertrade-backend/internal/usecase/ledger"
	"github.com/simaogato/papertrade-backend/internal/usecase/seeder"
	"github.com/simaogato/papertrade-backend/internal/usecase/simulator"
)

// app holds the wired services shared by every subcommand
type app struct {
	Config    *config.Config
	Logger    logger.Logger
	Catalog   *catalog.CatalogService
	Ledger    *ledger.LedgerService
	Dashboard *dashboard.DashboardService
	Simulator *simulator.SimulatorService

	closers []func()
}

func newApp(ctx context.Context, path string) (*app, error) {
	// 1. Configuration and logging
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	log, syncLog, err := logger.NewZapLogger(level)
	if err != nil {
		return nil, err
	}

	a := &app{Config: cfg, Logger: log.With("service", cfg.Name)}
	a.closers = append(a.closers, syncLog)

	// 2. Persistence gateway
	store, err := a.openStore(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}

	// 3. Services (Use Cases)
	a.Catalog = catalog.NewCatalogService(store, a.Logger, cfg.Market.HistoryDays)
	a.Ledger = ledger.NewLedgerService(store, a.Catalog, a.Logger, cfg.Ledger.StartingBalance)
	a.Dashboard = dashboard.NewDashboardService(a.Catalog)
	a.Simulator = simulator.NewSimulatorService(a.Catalog, a.Logger, cfg.Market.TickInterval, cfg.Market.HistoryLimit)

	// Load the persisted catalog, or list the default stocks on first run
	seeded, err := seeder.NewMarketSeeder(a.Catalog).Seed(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to seed market: %w", err)
	}
	if seeded {
		a.Logger.Infof("default market seeded")
	}

	return a, nil
}

func (a *app) openStore(ctx context.Context) (domain.RecordStore, error) {
	cfg := a.Config.Storage

	switch cfg.Driver {
	case config.DriverMemory:
		a.Logger.Warnf("using in-memory storage, nothing survives a restart")
		return memory.NewRecordRepository(), nil

	case config.DriverSQLite:
		db, err := sqlite.NewDB(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		a.Logger.Infof("using sqlite storage at %s", cfg.DSN)
		return sqlite.NewRecordRepository(db), nil

	case config.DriverPostgres:
		db, err := postgres.NewDB(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		if err := db.Migrate(ctx); err != nil {
			return nil, err
		}
		a.Logger.Infof("using postgres storage")
		return postgres.NewRecordRepository(db), nil

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

// Close releases the store and flushes the logger, newest resource first
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
