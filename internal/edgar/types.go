package edgar

import (
	"github.com/ternarybob/tenka/internal/models"
)

// Submissions is the top-level response of the SEC submissions endpoint.
// Filing attributes arrive as parallel arrays under filings.recent.
type Submissions struct {
	CIK     string  `json:"cik"`
	Name    string  `json:"name"`
	Filings Filings `json:"filings"`
}

// Filings contains the recent filing list.
type Filings struct {
	Recent RecentFilings `json:"recent"`
}

// RecentFilings holds parallel arrays of filing attributes. Index i across
// all arrays describes one filing.
type RecentFilings struct {
	AccessionNumber []string `json:"accessionNumber"` // e.g. "0000320193-23-000077"
	FilingDate      []string `json:"filingDate"`      // e.g. "2023-11-03"
	Form            []string `json:"form"`            // "10-K", "10-Q", "8-K", ...
	PrimaryDocument []string `json:"primaryDocument"` // filename
}

// Records denormalizes the parallel arrays into filing records, preserving
// feed order. Indices missing from any array are skipped rather than
// guessed at.
func (s *Submissions) Records() []models.FilingRecord {
	recent := s.Filings.Recent
	n := len(recent.Form)
	records := make([]models.FilingRecord, 0, n)
	for i := 0; i < n; i++ {
		if i >= len(recent.AccessionNumber) || i >= len(recent.FilingDate) || i >= len(recent.PrimaryDocument) {
			break
		}
		records = append(records, models.FilingRecord{
			AccessionNumber: recent.AccessionNumber[i],
			FormType:        recent.Form[i],
			FilingDate:      recent.FilingDate[i],
			PrimaryDocument: recent.PrimaryDocument[i],
		})
	}
	return records
}
