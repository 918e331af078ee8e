package registry

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tenka/internal/models"
)

func TestResolveKnownTickers(t *testing.T) {
	resolver := NewResolver()

	tests := []struct {
		ticker string
		cik    string
	}{
		{ticker: "AAPL", cik: "0000320193"},
		{ticker: "META", cik: "0001326801"},
		{ticker: "GOOGL", cik: "0001652044"},
		{ticker: "AMZN", cik: "0001018724"},
		{ticker: "NFLX", cik: "0001065280"},
		{ticker: "GS", cik: "0000886982"},
	}

	for _, tt := range tests {
		t.Run(tt.ticker, func(t *testing.T) {
			cik, err := resolver.Resolve(tt.ticker)
			require.NoError(t, err)
			assert.Equal(t, tt.cik, cik)
		})
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	resolver := NewResolver()

	cik, err := resolver.Resolve(" aapl ")
	require.NoError(t, err)
	assert.Equal(t, "0000320193", cik)
}

func TestResolveUnknownTicker(t *testing.T) {
	resolver := NewResolver()

	_, err := resolver.Resolve("ZZZZ")
	require.Error(t, err)

	var unknownErr *UnknownTickerError
	require.True(t, errors.As(err, &unknownErr))
	assert.Equal(t, "ZZZZ", unknownErr.Ticker)
}

func TestResolveEmptyTicker(t *testing.T) {
	resolver := NewResolver()

	_, err := resolver.Resolve("   ")
	assert.Error(t, err)
}

func TestSupported(t *testing.T) {
	resolver := NewResolver()

	assert.True(t, resolver.Supported("nflx"))
	assert.False(t, resolver.Supported("TSLA"))
}

func TestCustomDirectory(t *testing.T) {
	resolver := NewResolverWithCompanies([]models.Company{
		{Ticker: "test", CIK: "0000000001", Name: "Test Co"},
	})

	cik, err := resolver.Resolve("TEST")
	require.NoError(t, err)
	assert.Equal(t, "0000000001", cik)
	assert.False(t, resolver.Supported("AAPL"))
}

func TestTickersPreserveDirectoryOrder(t *testing.T) {
	resolver := NewResolver()
	assert.Equal(t, []string{"AAPL", "META", "GOOGL", "AMZN", "NFLX", "GS"}, resolver.Tickers())
}

func TestCompaniesReturnsCopy(t *testing.T) {
	resolver := NewResolver()

	companies := resolver.Companies()
	require.NotEmpty(t, companies)
	companies[0].CIK = "mutated"

	fresh := resolver.Companies()
	assert.Equal(t, "0000320193", fresh[0].CIK)
}
