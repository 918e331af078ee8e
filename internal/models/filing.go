package models

// FilingRecord describes one filing from a registrant's submission history.
// FilingDate is kept in the feed's YYYY-MM-DD form; consumers that need to
// compare dates must parse it explicitly rather than rely on feed order.
type FilingRecord struct {
	AccessionNumber string `json:"accession_number"` // e.g. "0000320193-23-000077"
	FormType        string `json:"form_type"`        // e.g. "10-K"
	FilingDate      string `json:"filing_date"`      // e.g. "2023-11-03"
	PrimaryDocument string `json:"primary_document"` // filename within the filing archive
}

// Company maps a ticker symbol to its SEC registrant identifier.
type Company struct {
	Ticker string `json:"ticker"`
	CIK    string `json:"cik"` // 10-digit zero-padded Central Index Key
	Name   string `json:"name,omitempty"`
}
