package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Report fetching
	mux.HandleFunc("/reports/fetch", s.app.ReportHandler.FetchHandler)        // POST - start async fetch job
	mux.HandleFunc("/reports/status/", s.app.ReportHandler.StatusHandler)     // GET /{job_id}
	mux.HandleFunc("/reports/download/", s.app.ReportHandler.DownloadHandler) // GET /{job_id}/{ticker}

	// Company directory
	mux.HandleFunc("/companies", s.app.ReportHandler.CompaniesHandler)

	// System
	mux.HandleFunc("/health", s.app.APIHandler.HealthHandler)
	mux.HandleFunc("/version", s.app.APIHandler.VersionHandler)

	// 404 handler for unmatched routes
	mux.HandleFunc("/", s.app.APIHandler.NotFoundHandler)

	return mux
}
