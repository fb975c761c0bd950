// Package app wires configuration, the API client, storage and services
// into a runnable application.
package app

import (
	"fmt"

	"github.com/bobmcallan/polyfolio/internal/clients/polymarket"
	"github.com/bobmcallan/polyfolio/internal/common"
	"github.com/bobmcallan/polyfolio/internal/interfaces"
	"github.com/bobmcallan/polyfolio/internal/services/analyzer"
	"github.com/bobmcallan/polyfolio/internal/services/snapshot"
	"github.com/bobmcallan/polyfolio/internal/storage/reportfs"
	"github.com/bobmcallan/polyfolio/internal/storage/snapshotfs"
)

// App holds all application components.
type App struct {
	Config *common.Config
	Logger *common.Logger

	Client interfaces.PolymarketClient

	SnapshotStore interfaces.SnapshotStore
	ReportStore   interfaces.ReportStore

	SnapshotService interfaces.SnapshotService
	AnalyzerService interfaces.AnalyzerService
}

// NewApp creates the application from a config file path. An empty path
// loads defaults plus environment overrides.
func NewApp(configPath string) (*App, error) {
	var (
		cfg *common.Config
		err error
	)
	if configPath != "" {
		cfg, err = common.LoadConfig(configPath)
	} else {
		cfg, err = common.LoadConfig()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := common.NewLogger(cfg.Logging.Level)
	logger.Info().
		Str("environment", cfg.Environment).
		Msg("Polyfolio starting")

	client := polymarket.NewClient(
		polymarket.WithDataBaseURL(cfg.Client.DataBaseURL),
		polymarket.WithGammaBaseURL(cfg.Client.GammaBaseURL),
		polymarket.WithClobBaseURL(cfg.Client.ClobBaseURL),
		polymarket.WithTimeout(cfg.Client.GetTimeout()),
		polymarket.WithPageDelay(cfg.Client.GetPageDelay()),
		polymarket.WithCooldown(cfg.Client.GetCooldown()),
		polymarket.WithLogger(logger),
	)

	snapshotStore, err := snapshotfs.NewStore(logger, cfg.Storage.Snapshots.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open snapshot store: %w", err)
	}
	reportStore, err := reportfs.NewStore(logger, cfg.Storage.Reports.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open report store: %w", err)
	}

	snapshotService := snapshot.NewService(
		client,
		snapshotStore,
		logger,
		cfg.Snapshot.MaxRetries,
		cfg.Snapshot.GetRetryDelay(),
	)
	analyzerService := analyzer.NewService(client, logger)

	return &App{
		Config:          cfg,
		Logger:          logger,
		Client:          client,
		SnapshotStore:   snapshotStore,
		ReportStore:     reportStore,
		SnapshotService: snapshotService,
		AnalyzerService: analyzerService,
	}, nil
}
