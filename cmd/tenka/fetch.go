package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tenka/internal/app"
	"github.com/ternarybob/tenka/internal/common"
	"github.com/ternarybob/tenka/internal/models"
	"github.com/ternarybob/tenka/internal/services/orchestrator"
)

// runFetch performs a one-shot fetch run and exits. A run that completes is
// exit 0 even when individual tickers fail; only unusable arguments or an
// unwritable output directory are fatal.
func runFetch(args []string) {
	fs := flag.NewFlagSet("fetch", flag.ExitOnError)

	var configFiles configPaths
	fs.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	fs.Var(&configFiles, "c", "Configuration file path (shorthand)")
	tickersArg := fs.String("tickers", "", "Comma-separated ticker symbols (default: all supported companies)")
	outputDir := fs.String("output_dir", "", "Directory for rendered PDFs (overrides config)")
	outputDirAlias := fs.String("output-dir", "", "Directory for rendered PDFs (alias)")
	formType := fs.String("form", "", "Filing form type (overrides config)")

	fs.Parse(args)

	config, err := loadConfig(configFiles)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}

	if *formType != "" {
		config.SEC.FormType = *formType
	}
	dir := config.Fetcher.OutputDir
	if *outputDirAlias != "" {
		dir = *outputDirAlias
	}
	if *outputDir != "" {
		dir = *outputDir
	}

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}

	tickers := common.ParseTickerList(*tickersArg)
	if len(tickers) == 0 {
		tickers = application.Resolver.Tickers()
	}
	for _, ticker := range tickers {
		if err := common.ValidateTicker(ticker); err != nil {
			logger.Error().Err(err).Msg("Invalid ticker argument")
			os.Exit(2)
		}
	}

	if err := orchestrator.EnsureOutputDir(dir); err != nil {
		logger.Error().Err(err).Msg("Output directory unavailable")
		os.Exit(1)
	}

	results := application.Orchestrator.Run(context.Background(), tickers, dir)

	successful := 0
	for _, result := range results {
		switch result.Status {
		case models.StatusSuccess:
			successful++
			fmt.Printf("  %-6s  OK         %s (%d pages)\n", result.Ticker, result.PDFPath, result.Pages)
		case models.StatusNotFound:
			fmt.Printf("  %-6s  NOT FOUND  %s\n", result.Ticker, result.Error)
		default:
			fmt.Printf("  %-6s  ERROR      %s\n", result.Ticker, result.Error)
		}
	}
	fmt.Printf("\n%d of %d reports fetched to %s\n", successful, len(results), dir)
}
