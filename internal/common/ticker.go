// Package common provides shared utilities across the application.
package common

import (
	"fmt"
	"strings"
)

// NormalizeTicker uppercases and trims a ticker symbol. Lookups against the
// supported-company directory are case-insensitive, so all symbols are
// normalized before use.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// ValidateTicker checks that a symbol is non-empty and contains only the
// characters that appear in exchange symbols (letters, digits, dot, hyphen).
func ValidateTicker(ticker string) error {
	t := NormalizeTicker(ticker)
	if t == "" {
		return fmt.Errorf("ticker symbol is empty")
	}
	for _, c := range t {
		if (c < 'A' || c > 'Z') && (c < '0' || c > '9') && c != '.' && c != '-' {
			return fmt.Errorf("ticker %q contains invalid character %q", ticker, c)
		}
	}
	return nil
}

// ParseTickerList splits a comma-separated ticker argument into normalized
// symbols, dropping empty entries. "aapl, meta," -> ["AAPL", "META"].
func ParseTickerList(arg string) []string {
	parts := strings.Split(arg, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := NormalizeTicker(p); t != "" {
			result = append(result, t)
		}
	}
	return result
}

// NormalizeTickers normalizes a slice of symbols, dropping empty entries.
func NormalizeTickers(tickers []string) []string {
	result := make([]string, 0, len(tickers))
	for _, t := range tickers {
		if n := NormalizeTicker(t); n != "" {
			result = append(result, n)
		}
	}
	return result
}
