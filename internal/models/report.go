package models

// FetchStatus is the per-ticker outcome of one orchestrator run.
type FetchStatus string

const (
	StatusSuccess  FetchStatus = "success"
	StatusNotFound FetchStatus = "not_found"
	StatusError    FetchStatus = "error"
)

// FetchResult records the outcome of fetching and converting one company's
// latest annual report. Immutable after creation; one per input ticker.
type FetchResult struct {
	Ticker          string      `json:"ticker"`
	CIK             string      `json:"cik,omitempty"`
	AccessionNumber string      `json:"accession_number,omitempty"`
	FilingDate      string      `json:"filing_date,omitempty"`
	PDFPath         string      `json:"pdf_path,omitempty"`
	Pages           int         `json:"pages,omitempty"`
	Status          FetchStatus `json:"status"`
	Error           string      `json:"error,omitempty"`
}

// Succeeded reports whether the ticker produced a PDF.
func (r FetchResult) Succeeded() bool {
	return r.Status == StatusSuccess
}
