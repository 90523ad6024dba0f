// Package app wires configuration, storage, the AI client, and the HTTP
// handlers into a single application object.
package app

import (
	"fmt"
	"strings"
	"time"

	"github.com/bobmcallan/marketbrief/internal/cache"
	"github.com/bobmcallan/marketbrief/internal/common"
	"github.com/bobmcallan/marketbrief/internal/config"
	"github.com/bobmcallan/marketbrief/internal/handlers"
	"github.com/bobmcallan/marketbrief/internal/interfaces"
	"github.com/bobmcallan/marketbrief/internal/llm"
	"github.com/bobmcallan/marketbrief/internal/mcp"
	"github.com/bobmcallan/marketbrief/internal/report"
	"github.com/bobmcallan/marketbrief/internal/storage"
)

const (
	reportCacheTTL     = 5 * time.Minute
	reportCacheEntries = 64
)

// App holds all application components and dependencies.
type App struct {
	Config  *config.Config
	Logger  *common.Logger
	Storage interfaces.StorageManager
	AI      llm.Client
	Service *report.Service

	// HTTP handlers
	HealthHandler  *handlers.HealthHandler
	VersionHandler *handlers.VersionHandler
	ReportHandler  *handlers.ReportHandler
	TickerHandler  *handlers.TickerHandler
	MCPHandler     *mcp.Handler
}

// New initializes the application with all dependencies.
func New(cfg *config.Config, logger *common.Logger) (*App, error) {
	a := &App{
		Config: cfg,
		Logger: logger,
	}

	env := strings.ToLower(strings.TrimSpace(cfg.Environment))
	if cfg.IsDevMode() {
		logger.Warn().Msg("RUNNING IN DEV MODE — verbose request logging enabled")
	} else if env != "prod" && env != "" {
		logger.Warn().
			Str("environment", cfg.Environment).
			Msg("unrecognized environment value, defaulting to prod behavior")
	}

	storageManager, err := storage.NewStorageManager(logger, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Storage = storageManager

	aiClient, err := llm.NewClient(cfg, logger)
	if err != nil {
		storageManager.Close()
		return nil, fmt.Errorf("failed to initialize AI client: %w", err)
	}
	a.AI = aiClient

	a.Service = report.NewService(aiClient, storageManager, logger)

	a.initHandlers()

	logger.Info().Msg("application initialization complete")

	return a, nil
}

// initHandlers initializes all HTTP handlers.
func (a *App) initHandlers() {
	reportCache := cache.New(reportCacheTTL, reportCacheEntries)

	a.HealthHandler = handlers.NewHealthHandler(a.Logger)
	a.VersionHandler = handlers.NewVersionHandler(a.Logger)
	a.ReportHandler = handlers.NewReportHandler(a.Service, reportCache, a.Logger)
	a.TickerHandler = handlers.NewTickerHandler(a.Storage.TickerSummaryStorage(), a.Logger)
	a.MCPHandler = mcp.NewHandler(a.Service, a.Logger)

	a.Logger.Debug().Msg("HTTP handlers initialized")
}

// Close closes all application resources.
func (a *App) Close() error {
	if a.Storage != nil {
		return a.Storage.Close()
	}
	return nil
}
