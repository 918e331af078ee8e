// Package registry maps ticker symbols to SEC registrant identifiers.
package registry

import (
	"fmt"

	"github.com/ternarybob/tenka/internal/common"
	"github.com/ternarybob/tenka/internal/models"
)

// DefaultCompanies is the supported company universe. CIKs (Central Index
// Keys) are required to fetch SEC filings; the submissions endpoint is keyed
// by CIK, not by ticker.
var DefaultCompanies = []models.Company{
	{Ticker: "AAPL", CIK: "0000320193", Name: "Apple Inc."},
	{Ticker: "META", CIK: "0001326801", Name: "Meta Platforms Inc."},
	{Ticker: "GOOGL", CIK: "0001652044", Name: "Alphabet Inc. (Class A)"},
	{Ticker: "AMZN", CIK: "0001018724", Name: "Amazon.com Inc."},
	{Ticker: "NFLX", CIK: "0001065280", Name: "Netflix Inc."},
	{Ticker: "GS", CIK: "0000886982", Name: "Goldman Sachs Group Inc."},
}

// UnknownTickerError indicates a symbol absent from the company directory.
type UnknownTickerError struct {
	Ticker string
}

func (e *UnknownTickerError) Error() string {
	return fmt.Sprintf("unknown ticker %q: no CIK mapping found", e.Ticker)
}

// Resolver resolves ticker symbols to registrant identifiers from a static
// directory. Lookups are case-insensitive.
type Resolver struct {
	companies []models.Company
	byTicker  map[string]models.Company
}

// NewResolver creates a resolver over the default supported companies.
func NewResolver() *Resolver {
	return NewResolverWithCompanies(DefaultCompanies)
}

// NewResolverWithCompanies creates a resolver over a custom directory.
func NewResolverWithCompanies(companies []models.Company) *Resolver {
	byTicker := make(map[string]models.Company, len(companies))
	for _, c := range companies {
		byTicker[common.NormalizeTicker(c.Ticker)] = c
	}
	return &Resolver{
		companies: companies,
		byTicker:  byTicker,
	}
}

// Resolve maps a ticker symbol to its CIK.
func (r *Resolver) Resolve(ticker string) (string, error) {
	normalized := common.NormalizeTicker(ticker)
	if normalized == "" {
		return "", &UnknownTickerError{Ticker: ticker}
	}
	company, ok := r.byTicker[normalized]
	if !ok {
		return "", &UnknownTickerError{Ticker: normalized}
	}
	return company.CIK, nil
}

// Supported reports whether the symbol is in the directory.
func (r *Resolver) Supported(ticker string) bool {
	_, ok := r.byTicker[common.NormalizeTicker(ticker)]
	return ok
}

// Companies returns the directory in its declared order.
func (r *Resolver) Companies() []models.Company {
	return append([]models.Company(nil), r.companies...)
}

// Tickers returns the supported symbols in directory order.
func (r *Resolver) Tickers() []string {
	tickers := make([]string, 0, len(r.companies))
	for _, c := range r.companies {
		tickers = append(tickers, common.NormalizeTicker(c.Ticker))
	}
	return tickers
}
