// Package orchestrator drives the fetch pipeline across a batch of tickers.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tenka/internal/common"
	"github.com/ternarybob/tenka/internal/models"
	"github.com/ternarybob/tenka/internal/services/filings"
	"github.com/ternarybob/tenka/internal/services/pdf"
	"github.com/ternarybob/tenka/internal/services/registry"
)

// Service coordinates ticker resolution, filing selection, document download
// and PDF rendering. One ticker's failure never aborts the batch; every
// ticker yields exactly one FetchResult.
type Service struct {
	resolver *registry.Resolver
	selector *filings.Selector
	fetcher  *filings.Fetcher
	renderer *pdf.Service
	logger   arbor.ILogger
	formType string
}

// NewService creates a fetch orchestrator for the given form type.
func NewService(
	resolver *registry.Resolver,
	selector *filings.Selector,
	fetcher *filings.Fetcher,
	renderer *pdf.Service,
	formType string,
	logger arbor.ILogger,
) *Service {
	return &Service{
		resolver: resolver,
		selector: selector,
		fetcher:  fetcher,
		renderer: renderer,
		logger:   logger,
		formType: formType,
	}
}

// Run processes each ticker in order and returns one result per ticker, in
// input order.
func (s *Service) Run(ctx context.Context, tickers []string, outputDir string) []models.FetchResult {
	return s.RunWithCallback(ctx, tickers, outputDir, nil)
}

// RunWithCallback behaves like Run but additionally invokes onResult after
// each ticker finishes, letting callers track progress incrementally.
func (s *Service) RunWithCallback(ctx context.Context, tickers []string, outputDir string, onResult func(models.FetchResult)) []models.FetchResult {
	s.logger.Info().
		Int("tickers", len(tickers)).
		Str("form", s.formType).
		Str("output_dir", outputDir).
		Msg("Starting report fetch run")

	results := make([]models.FetchResult, 0, len(tickers))
	for _, ticker := range tickers {
		result := s.processTicker(ctx, ticker, outputDir)
		results = append(results, result)
		if onResult != nil {
			onResult(result)
		}
	}

	successful := 0
	for _, r := range results {
		if r.Succeeded() {
			successful++
		}
	}
	s.logger.Info().
		Int("total", len(results)).
		Int("successful", successful).
		Int("failed", len(results)-successful).
		Msg("Report fetch run finished")

	return results
}

// processTicker runs the full pipeline for a single symbol. Pipeline errors
// are folded into the result rather than returned; the distinction between
// "no filing exists" and "something broke" is preserved in the status.
func (s *Service) processTicker(ctx context.Context, ticker string, outputDir string) models.FetchResult {
	ticker = common.NormalizeTicker(ticker)
	result := models.FetchResult{Ticker: ticker, Status: models.StatusError}

	cik, err := s.resolver.Resolve(ticker)
	if err != nil {
		s.logger.Warn().Str("ticker", ticker).Err(err).Msg("Ticker not in company directory")
		result.Error = err.Error()
		return result
	}
	result.CIK = cik

	record, err := s.selector.SelectLatest(ctx, cik, s.formType)
	if err != nil {
		var notFound *filings.NoFilingFoundError
		if errors.As(err, &notFound) {
			s.logger.Warn().Str("ticker", ticker).Str("cik", cik).Msg("No filing of requested form type")
			result.Status = models.StatusNotFound
		} else {
			s.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to select filing")
		}
		result.Error = err.Error()
		return result
	}
	result.AccessionNumber = record.AccessionNumber
	result.FilingDate = record.FilingDate

	workDir, err := os.MkdirTemp("", "tenka-"+ticker+"-")
	if err != nil {
		result.Error = fmt.Sprintf("failed to create working directory: %v", err)
		return result
	}
	defer os.RemoveAll(workDir)

	doc, err := s.fetcher.FetchDocument(ctx, cik, record, workDir)
	if err != nil {
		s.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to download filing document")
		result.Error = err.Error()
		return result
	}

	var pdfBytes []byte
	if doc.HTML {
		pdfBytes, err = s.renderer.ConvertHTMLToPDF(string(doc.Content), doc.Filename, doc.ImageDir)
	} else {
		pdfBytes, err = s.renderer.ConvertTextToPDF(string(doc.Content), doc.Filename)
	}
	if err != nil {
		s.logger.Error().Str("ticker", ticker).Err(err).Msg("Failed to render filing to PDF")
		result.Error = err.Error()
		return result
	}

	pages, err := s.renderer.PageCount(pdfBytes)
	if err != nil {
		s.logger.Error().Str("ticker", ticker).Err(err).Msg("Rendered PDF failed validation")
		result.Error = err.Error()
		return result
	}

	outPath := filepath.Join(outputDir, ReportFilename(ticker, record.AccessionNumber, record.FilingDate))
	if err := os.WriteFile(outPath, pdfBytes, 0644); err != nil {
		result.Error = fmt.Sprintf("failed to write PDF: %v", err)
		return result
	}

	s.logger.Info().
		Str("ticker", ticker).
		Str("accession", record.AccessionNumber).
		Str("path", outPath).
		Int("pages", pages).
		Msg("Report saved")

	result.Status = models.StatusSuccess
	result.PDFPath = outPath
	result.Pages = pages
	return result
}

// ReportFilename builds the canonical output name for a rendered report:
// {TICKER}_{accessionNumber}_{filingDate}.pdf. Accession numbers keep their
// hyphenated form so the name parses back unambiguously.
func ReportFilename(ticker, accessionNumber, filingDate string) string {
	return fmt.Sprintf("%s_%s_%s.pdf", ticker, accessionNumber, filingDate)
}

// ParseReportFilename splits a report filename back into its components.
func ParseReportFilename(name string) (ticker, accessionNumber, filingDate string, err error) {
	base := strings.TrimSuffix(name, ".pdf")
	if base == name {
		return "", "", "", fmt.Errorf("not a report filename: %s", name)
	}
	parts := strings.Split(base, "_")
	if len(parts) != 3 {
		return "", "", "", fmt.Errorf("malformed report filename: %s", name)
	}
	return parts[0], parts[1], parts[2], nil
}

// EnsureOutputDir creates the output directory if needed and verifies it is
// writable before a run starts.
func EnsureOutputDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory %s: %w", dir, err)
	}
	probe, err := os.CreateTemp(dir, ".tenka-probe-")
	if err != nil {
		return fmt.Errorf("output directory %s is not writable: %w", dir, err)
	}
	probe.Close()
	os.Remove(probe.Name())
	return nil
}
