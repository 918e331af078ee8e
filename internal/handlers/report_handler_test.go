package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tenka/internal/models"
	"github.com/ternarybob/tenka/internal/services/jobs"
	"github.com/ternarybob/tenka/internal/services/registry"
)

// stubRunner reports every ticker as successful without touching the network.
type stubRunner struct {
	resultFor  func(ticker string) models.FetchResult
	outputDirs chan string
}

func (s *stubRunner) RunWithCallback(ctx context.Context, tickers []string, outputDir string, onResult func(models.FetchResult)) []models.FetchResult {
	if s.outputDirs != nil {
		s.outputDirs <- outputDir
	}
	results := make([]models.FetchResult, 0, len(tickers))
	for _, ticker := range tickers {
		result := models.FetchResult{Ticker: ticker, Status: models.StatusSuccess}
		if s.resultFor != nil {
			result = s.resultFor(ticker)
		}
		results = append(results, result)
		if onResult != nil {
			onResult(result)
		}
	}
	return results
}

func newTestHandler(t *testing.T, runner Runner) (*ReportHandler, *jobs.Tracker) {
	t.Helper()
	tracker := jobs.NewTracker()
	if runner == nil {
		runner = &stubRunner{}
	}
	return NewReportHandler(runner, tracker, registry.NewResolver(), t.TempDir()), tracker
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func waitForTerminal(t *testing.T, tracker *jobs.Tracker, jobID string) models.Job {
	t.Helper()
	var job models.Job
	require.Eventually(t, func() bool {
		j, err := tracker.Get(jobID)
		if err != nil {
			return false
		}
		job = j
		return job.Terminal()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestFetchHandlerAccepted(t *testing.T) {
	handler, tracker := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["AAPL","meta"]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)

	assert.Equal(t, "started", body["status"])
	assert.Equal(t, float64(2), body["total_companies"])
	jobID, ok := body["job_id"].(string)
	require.True(t, ok)
	require.NotEmpty(t, jobID)

	job := waitForTerminal(t, tracker, jobID)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, job.Processed)
	assert.Contains(t, job.Results, "AAPL")
	assert.Contains(t, job.Results, "META")
}

func TestFetchHandlerEmptyBodyDefaultsToAllCompanies(t *testing.T) {
	handler, tracker := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", nil)
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(6), body["total_companies"])

	job := waitForTerminal(t, tracker, body["job_id"].(string))
	assert.Len(t, job.Results, 6)
}

func TestFetchHandlerHonorsRequestOutputDir(t *testing.T) {
	runner := &stubRunner{outputDirs: make(chan string, 1)}
	handler, _ := newTestHandler(t, runner)

	requestDir := filepath.Join(t.TempDir(), "per-request")
	body := `{"tickers":["AAPL"],"output_dir":"` + strings.ReplaceAll(requestDir, `\`, `\\`) + `"}`

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)

	select {
	case got := <-runner.outputDirs:
		assert.Equal(t, requestDir, got, "the job must run against the requested directory")
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}

	// The requested directory was created before the job was accepted
	info, err := os.Stat(requestDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFetchHandlerDefaultOutputDir(t *testing.T) {
	runner := &stubRunner{outputDirs: make(chan string, 1)}
	tracker := jobs.NewTracker()
	configuredDir := t.TempDir()
	handler := NewReportHandler(runner, tracker, registry.NewResolver(), configuredDir)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["AAPL"]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	select {
	case got := <-runner.outputDirs:
		assert.Equal(t, configuredDir, got)
	case <-time.After(2 * time.Second):
		t.Fatal("job never started")
	}
}

func TestFetchHandlerEmptyTickerListRejected(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	// An explicitly empty list is malformed; only an omitted field defaults
	// to the full supported set.
	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":[]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchHandlerBlankTickersRejected(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["  "]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchHandlerDeduplicatesTickers(t *testing.T) {
	handler, tracker := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["AAPL","aapl","AAPL"]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total_companies"])

	job := waitForTerminal(t, tracker, body["job_id"].(string))
	assert.Len(t, job.Results, 1)
	assert.Equal(t, 1, job.Processed)
	assert.Equal(t, 1, job.Successful)
	assert.Equal(t, 0, job.Failed)
}

func TestFetchHandlerSkipsUnsupportedTickers(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["AAPL","TSLA"]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	require.Equal(t, http.StatusAccepted, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(1), body["total_companies"])
	assert.Contains(t, body["message"], "TSLA")
}

func TestFetchHandlerAllUnsupported(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["TSLA","MSFT"]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchHandlerInvalidTickerFormat(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["AA PL$"]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchHandlerInvalidJSON(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers": not json`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFetchHandlerRejectsGet(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("GET", "/reports/fetch", nil)
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusHandler(t *testing.T) {
	handler, tracker := newTestHandler(t, nil)
	job := tracker.Create([]string{"AAPL"})

	req := httptest.NewRequest("GET", "/reports/status/"+job.ID, nil)
	rec := httptest.NewRecorder()
	handler.StatusHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, job.ID, body["job_id"])
	assert.Equal(t, "started", body["status"])
}

func TestStatusHandlerUnknownJob(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("GET", "/reports/status/f1e2d3c4", nil)
	rec := httptest.NewRecorder()
	handler.StatusHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusHandlerMissingJobID(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("GET", "/reports/status/", nil)
	rec := httptest.NewRecorder()
	handler.StatusHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDownloadHandler(t *testing.T) {
	handler, tracker := newTestHandler(t, nil)

	pdfPath := filepath.Join(t.TempDir(), "AAPL_0000320193-23-000077_2023-11-03.pdf")
	require.NoError(t, os.WriteFile(pdfPath, []byte("%PDF-1.4 fake"), 0644))

	job := tracker.Create([]string{"AAPL"})
	tracker.AppendResult(job.ID, models.FetchResult{
		Ticker:  "AAPL",
		Status:  models.StatusSuccess,
		PDFPath: pdfPath,
	})

	req := httptest.NewRequest("GET", "/reports/download/"+job.ID+"/aapl", nil)
	rec := httptest.NewRecorder()
	handler.DownloadHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "AAPL_0000320193-23-000077_2023-11-03.pdf")
	assert.Equal(t, "%PDF-1.4 fake", rec.Body.String())
}

func TestDownloadHandlerNoResult(t *testing.T) {
	handler, tracker := newTestHandler(t, nil)
	job := tracker.Create([]string{"AAPL"})

	req := httptest.NewRequest("GET", "/reports/download/"+job.ID+"/META", nil)
	rec := httptest.NewRecorder()
	handler.DownloadHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadHandlerFailedTicker(t *testing.T) {
	handler, tracker := newTestHandler(t, nil)
	job := tracker.Create([]string{"AAPL"})
	tracker.AppendResult(job.ID, models.FetchResult{
		Ticker: "AAPL",
		Status: models.StatusError,
		Error:  "download failed",
	})

	req := httptest.NewRequest("GET", "/reports/download/"+job.ID+"/AAPL", nil)
	rec := httptest.NewRecorder()
	handler.DownloadHandler(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDownloadHandlerMalformedPath(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("GET", "/reports/download/only-a-job-id", nil)
	rec := httptest.NewRecorder()
	handler.DownloadHandler(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompaniesHandler(t *testing.T) {
	handler, _ := newTestHandler(t, nil)

	req := httptest.NewRequest("GET", "/companies", nil)
	rec := httptest.NewRecorder()
	handler.CompaniesHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, float64(6), body["count"])

	companies, ok := body["companies"].([]interface{})
	require.True(t, ok)
	require.Len(t, companies, 6)
	first := companies[0].(map[string]interface{})
	assert.Equal(t, "AAPL", first["ticker"])
}

func TestFetchHandlerPartialFailureStillCompletes(t *testing.T) {
	runner := &stubRunner{resultFor: func(ticker string) models.FetchResult {
		if ticker == "META" {
			return models.FetchResult{Ticker: ticker, Status: models.StatusError, Error: "render failed"}
		}
		return models.FetchResult{Ticker: ticker, Status: models.StatusSuccess}
	}}
	handler, tracker := newTestHandler(t, runner)

	req := httptest.NewRequest("POST", "/reports/fetch", strings.NewReader(`{"tickers":["AAPL","META"]}`))
	rec := httptest.NewRecorder()
	handler.FetchHandler(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	body := decodeBody(t, rec)
	job := waitForTerminal(t, tracker, body["job_id"].(string))

	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.Successful)
	assert.Equal(t, 1, job.Failed)
}
