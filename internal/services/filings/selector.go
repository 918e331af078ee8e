// Package filings selects and downloads SEC filing documents.
package filings

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tenka/internal/edgar"
	"github.com/ternarybob/tenka/internal/models"
)

const filingDateLayout = "2006-01-02"

// NoFilingFoundError indicates a registrant has no filing of the requested
// form type. This is an expected outcome, not a failure of the pipeline.
type NoFilingFoundError struct {
	CIK      string
	FormType string
}

func (e *NoFilingFoundError) Error() string {
	return fmt.Sprintf("no %s filing found for CIK %s", e.FormType, e.CIK)
}

// Selector picks the latest filing of a target form type from a registrant's
// submission history.
type Selector struct {
	client *edgar.Client
	logger arbor.ILogger
}

// NewSelector creates a filing selector.
func NewSelector(client *edgar.Client, logger arbor.ILogger) *Selector {
	return &Selector{
		client: client,
		logger: logger,
	}
}

// SelectLatest fetches the registrant's filing history and returns the record
// of the given form type with the most recent filing date. Form matching is
// exact, so amendments ("10-K/A") never match "10-K". The feed is usually
// date-descending but the comparison is explicit; a shuffled feed still
// yields the true maximum. Ties keep the first record in feed order.
func (s *Selector) SelectLatest(ctx context.Context, cik, formType string) (models.FilingRecord, error) {
	submissions, err := s.client.GetSubmissions(ctx, cik)
	if err != nil {
		return models.FilingRecord{}, fmt.Errorf("failed to fetch submissions for CIK %s: %w", cik, err)
	}

	var latest models.FilingRecord
	var latestDate time.Time
	found := false

	for _, record := range submissions.Records() {
		if record.FormType != formType {
			continue
		}

		date, err := time.Parse(filingDateLayout, record.FilingDate)
		if err != nil {
			s.logger.Warn().
				Str("cik", cik).
				Str("filing_date", record.FilingDate).
				Msg("Skipping filing with invalid date format")
			continue
		}

		if !found || date.After(latestDate) {
			latest = record
			latestDate = date
			found = true
		}
	}

	if !found {
		return models.FilingRecord{}, &NoFilingFoundError{CIK: cik, FormType: formType}
	}

	s.logger.Info().
		Str("cik", cik).
		Str("form", latest.FormType).
		Str("accession", latest.AccessionNumber).
		Str("filing_date", latest.FilingDate).
		Msg("Selected latest filing")

	return latest, nil
}
