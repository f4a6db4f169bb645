package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/rpattn/salesingest/internal/config"
	"github.com/rpattn/salesingest/internal/db"
	"github.com/rpattn/salesingest/internal/domain"
	"github.com/rpattn/salesingest/internal/drive"
	"github.com/rpattn/salesingest/internal/ingestion"
	"github.com/rpattn/salesingest/internal/query"
	"github.com/rpattn/salesingest/internal/repository"
)

// app holds the collaborators built once from the configuration.
type app struct {
	cfg       config.Config
	logger    *slog.Logger
	ledgerDB  *sql.DB
	warehouse *db.Warehouse
	ingestion *ingestion.Service
	query     *query.Service
}

type appOptions struct {
	// withDrive builds the Drive fetcher when a folder is configured.
	withDrive bool
}

func newApp(ctx context.Context, opts appOptions) (*app, error) {
	logger := newLogger()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	ledgerDB, err := db.OpenLedger(ctx, cfg.Ledger.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLedgerUnavailable, err)
	}

	warehouse := db.NewWarehouse(cfg.Sink.DatabaseURL)

	serviceOpts := []ingestion.Option{
		ingestion.WithLogger(logger),
		ingestion.WithRevenueColumns(ingestion.RevenueColumns{
			Quantity:  cfg.QuantityColumn,
			UnitPrice: cfg.UnitPriceColumn,
		}),
	}
	if opts.withDrive {
		fetcher, err := newFetcher(ctx, cfg, logger)
		if err != nil {
			_ = ledgerDB.Close()
			return nil, err
		}
		if fetcher != nil {
			serviceOpts = append(serviceOpts, ingestion.WithFetcher(fetcher))
		}
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		ledgerDB:  ledgerDB,
		warehouse: warehouse,
		ingestion: ingestion.NewService(
			repository.NewLedgerRepository(ledgerDB),
			repository.NewWarehouseRepository(warehouse),
			cfg.DataDir,
			cfg.Sink.Table,
			serviceOpts...,
		),
		query: query.NewService(query.WarehouseConnector(warehouse)),
	}, nil
}

func newFetcher(ctx context.Context, cfg config.Config, logger *slog.Logger) (*drive.Fetcher, error) {
	if cfg.Drive.FolderID == "" {
		logger.Warn("no drive folder configured, runs only ingest local files")
		return nil, nil
	}
	client, err := drive.NewGoogleDriveClient(ctx, []byte(cfg.Drive.Token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrFetchFailure, err)
	}
	return drive.NewFetcher(client, cfg.Drive.FolderID, logger), nil
}

func (a *app) Close() {
	a.warehouse.Close()
	if err := a.ledgerDB.Close(); err != nil {
		a.logger.Error("failed to close ledger", "error", err)
	}
}
