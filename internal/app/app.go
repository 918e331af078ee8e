// Package app wires configuration, services and handlers together.
package app

import (
	"fmt"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tenka/internal/common"
	"github.com/ternarybob/tenka/internal/edgar"
	"github.com/ternarybob/tenka/internal/handlers"
	"github.com/ternarybob/tenka/internal/services/filings"
	"github.com/ternarybob/tenka/internal/services/jobs"
	"github.com/ternarybob/tenka/internal/services/orchestrator"
	"github.com/ternarybob/tenka/internal/services/pdf"
	"github.com/ternarybob/tenka/internal/services/registry"
	"github.com/ternarybob/tenka/internal/services/scheduler"
)

// App holds all application components and dependencies
type App struct {
	Config *common.Config
	Logger arbor.ILogger

	// SEC EDGAR access
	EdgarClient *edgar.Client

	// Domain services
	Resolver     *registry.Resolver
	Selector     *filings.Selector
	Fetcher      *filings.Fetcher
	PDFService   *pdf.Service
	Orchestrator *orchestrator.Service
	JobTracker   *jobs.Tracker
	Scheduler    *scheduler.Service

	// HTTP handlers
	APIHandler    *handlers.APIHandler
	ReportHandler *handlers.ReportHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	app.EdgarClient = edgar.NewClient(
		edgar.WithUserAgent(cfg.SEC.UserAgent),
		edgar.WithSubmissionsURL(cfg.SEC.SubmissionsURL),
		edgar.WithArchiveBaseURL(cfg.SEC.ArchiveBaseURL),
		edgar.WithRequestDelay(cfg.SEC.RequestDelay),
		edgar.WithTimeout(cfg.SEC.RequestTimeout),
		edgar.WithMaxRetries(cfg.SEC.MaxRetries),
		edgar.WithLogger(logger),
	)

	app.Resolver = registry.NewResolver()
	app.Selector = filings.NewSelector(app.EdgarClient, logger)
	app.Fetcher = filings.NewFetcher(app.EdgarClient, logger)
	app.PDFService = pdf.NewService(logger)
	app.Orchestrator = orchestrator.NewService(
		app.Resolver,
		app.Selector,
		app.Fetcher,
		app.PDFService,
		cfg.SEC.FormType,
		logger,
	)
	app.JobTracker = jobs.NewTracker()

	schedulerCfg := cfg.Scheduler
	if schedulerCfg.OutputDir == "" {
		schedulerCfg.OutputDir = cfg.Fetcher.OutputDir
	}
	if schedulerCfg.Enabled {
		if err := common.ValidateSchedule(schedulerCfg.Schedule); err != nil {
			return nil, fmt.Errorf("invalid scheduler configuration: %w", err)
		}
	}
	app.Scheduler = scheduler.NewService(app.Orchestrator, app.JobTracker, schedulerCfg, app.Resolver.Tickers(), logger)

	app.APIHandler = handlers.NewAPIHandler()
	app.ReportHandler = handlers.NewReportHandler(app.Orchestrator, app.JobTracker, app.Resolver, cfg.Fetcher.OutputDir)

	logger.Info().
		Str("form_type", cfg.SEC.FormType).
		Int("companies", len(registry.DefaultCompanies)).
		Msg("Application initialized")

	return app, nil
}

// Start begins background components.
func (a *App) Start() error {
	return a.Scheduler.Start()
}

// Close stops background components.
func (a *App) Close() {
	a.Scheduler.Stop()
}
