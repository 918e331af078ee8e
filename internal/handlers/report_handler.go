package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tenka/internal/common"
	"github.com/ternarybob/tenka/internal/models"
	"github.com/ternarybob/tenka/internal/services/jobs"
	"github.com/ternarybob/tenka/internal/services/orchestrator"
	"github.com/ternarybob/tenka/internal/services/registry"
)

// Runner executes a fetch run and reports each result as it completes.
// Satisfied by the orchestrator; stubbed in tests.
type Runner interface {
	RunWithCallback(ctx context.Context, tickers []string, outputDir string, onResult func(models.FetchResult)) []models.FetchResult
}

// FetchRequest is the body of POST /reports/fetch. An omitted ticker list
// requests the full supported set; an explicitly empty list is rejected.
// output_dir overrides the configured output directory for this job only.
type FetchRequest struct {
	Tickers   []string `json:"tickers" validate:"omitempty,dive,min=1,max=10"`
	OutputDir string   `json:"output_dir" validate:"omitempty,max=512"`
}

// ReportHandler exposes the fetch/status/download API surface.
type ReportHandler struct {
	runner    Runner
	tracker   *jobs.Tracker
	resolver  *registry.Resolver
	outputDir string
	validate  *validator.Validate
	logger    arbor.ILogger
}

// NewReportHandler creates the report API handler.
func NewReportHandler(runner Runner, tracker *jobs.Tracker, resolver *registry.Resolver, outputDir string) *ReportHandler {
	return &ReportHandler{
		runner:    runner,
		tracker:   tracker,
		resolver:  resolver,
		outputDir: outputDir,
		validate:  validator.New(),
		logger:    common.GetLogger(),
	}
}

// FetchHandler starts an asynchronous fetch job and returns immediately.
// Unknown tickers are dropped from the batch; the request fails only when no
// requested ticker is supported at all.
func (h *ReportHandler) FetchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "POST") {
		return
	}

	var req FetchRequest
	if r.Body != nil {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			WriteError(w, http.StatusBadRequest, "Failed to read request body")
			return
		}
		if len(strings.TrimSpace(string(body))) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				WriteError(w, http.StatusBadRequest, "Invalid JSON body")
				return
			}
		}
	}

	if err := h.validate.Struct(&req); err != nil {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid request: %v", err))
		return
	}

	requested := common.NormalizeTickers(req.Tickers)
	if req.Tickers != nil && len(requested) == 0 {
		WriteError(w, http.StatusBadRequest, "Ticker list is empty")
		return
	}
	if len(requested) == 0 {
		requested = h.resolver.Tickers()
	}

	for _, ticker := range requested {
		if err := common.ValidateTicker(ticker); err != nil {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Invalid ticker %q", ticker))
			return
		}
	}

	// One results entry per ticker; repeats collapse to the first occurrence.
	seen := make(map[string]bool, len(requested))
	var tickers, skipped []string
	for _, ticker := range requested {
		if seen[ticker] {
			continue
		}
		seen[ticker] = true
		if h.resolver.Supported(ticker) {
			tickers = append(tickers, ticker)
		} else {
			skipped = append(skipped, ticker)
		}
	}
	if len(tickers) == 0 {
		WriteError(w, http.StatusBadRequest, fmt.Sprintf(
			"No supported tickers in request. Supported: %s", strings.Join(h.resolver.Tickers(), ", ")))
		return
	}

	outputDir := h.outputDir
	if req.OutputDir != "" {
		outputDir = req.OutputDir
	}
	if err := orchestrator.EnsureOutputDir(outputDir); err != nil {
		h.logger.Error().Str("output_dir", outputDir).Err(err).Msg("Output directory unavailable")
		if req.OutputDir != "" {
			WriteError(w, http.StatusBadRequest, fmt.Sprintf("Output directory %s is not writable", outputDir))
		} else {
			WriteError(w, http.StatusInternalServerError, "Output directory is not writable")
		}
		return
	}

	job := h.tracker.Create(tickers)
	h.logger.Info().
		Str("job_id", job.ID).
		Int("tickers", len(tickers)).
		Str("output_dir", outputDir).
		Msg("Fetch job accepted")

	go h.runJob(job.ID, tickers, outputDir)

	message := fmt.Sprintf("Fetching reports for %d companies", len(tickers))
	if len(skipped) > 0 {
		message += fmt.Sprintf(" (skipped unsupported: %s)", strings.Join(skipped, ", "))
	}

	WriteJSON(w, http.StatusAccepted, map[string]interface{}{
		"job_id":          job.ID,
		"status":          string(models.JobStatusStarted),
		"message":         message,
		"total_companies": job.TotalCompanies,
	})
}

func (h *ReportHandler) runJob(jobID string, tickers []string, outputDir string) {
	h.tracker.MarkRunning(jobID)
	h.runner.RunWithCallback(context.Background(), tickers, outputDir, func(result models.FetchResult) {
		h.tracker.AppendResult(jobID, result)
	})
	h.tracker.Complete(jobID)

	if job, err := h.tracker.Get(jobID); err == nil {
		h.logger.Info().
			Str("job_id", jobID).
			Str("status", string(job.Status)).
			Int("successful", job.Successful).
			Int("failed", job.Failed).
			Msg("Fetch job finished")
	}
}

// StatusHandler returns the current snapshot of a job.
func (h *ReportHandler) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	jobID := strings.TrimPrefix(r.URL.Path, "/reports/status/")
	if jobID == "" || strings.Contains(jobID, "/") {
		WriteError(w, http.StatusBadRequest, "Job ID is required")
		return
	}

	job, err := h.tracker.Get(jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", jobID))
		return
	}

	WriteJSON(w, http.StatusOK, job)
}

// DownloadHandler streams the rendered PDF for one ticker of a finished job.
func (h *ReportHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/reports/download/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		WriteError(w, http.StatusBadRequest, "Expected /reports/download/{job_id}/{ticker}")
		return
	}
	jobID := parts[0]
	ticker := common.NormalizeTicker(parts[1])

	job, err := h.tracker.Get(jobID)
	if err != nil {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("Job %s not found", jobID))
		return
	}

	result, ok := job.Results[ticker]
	if !ok {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("No result for ticker %s in job %s", ticker, jobID))
		return
	}
	if !result.Succeeded() || result.PDFPath == "" {
		WriteError(w, http.StatusNotFound, fmt.Sprintf("No report available for %s: %s", ticker, result.Error))
		return
	}

	f, err := os.Open(result.PDFPath)
	if err != nil {
		h.logger.Error().Str("path", result.PDFPath).Err(err).Msg("Report file missing on disk")
		WriteError(w, http.StatusNotFound, "Report file no longer available")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(result.PDFPath)))
	io.Copy(w, f)
}

// CompaniesHandler lists the supported company universe.
func (h *ReportHandler) CompaniesHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, "GET") {
		return
	}

	companies := h.resolver.Companies()
	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"companies": companies,
		"count":     len(companies),
	})
}
