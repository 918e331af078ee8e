package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTicker(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "lowercase", input: "aapl", expected: "AAPL"},
		{name: "mixed case", input: "GooGL", expected: "GOOGL"},
		{name: "surrounding whitespace", input: "  meta  ", expected: "META"},
		{name: "already normalized", input: "GS", expected: "GS"},
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: "   ", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormalizeTicker(tt.input))
		})
	}
}

func TestValidateTicker(t *testing.T) {
	valid := []string{"AAPL", "BRK.B", "aapl", "X-1", "GS"}
	for _, ticker := range valid {
		assert.NoError(t, ValidateTicker(ticker), "expected %q to be valid", ticker)
	}

	invalid := []string{"", "   ", "AA PL", "AAPL$", "AAPL;DROP"}
	for _, ticker := range invalid {
		assert.Error(t, ValidateTicker(ticker), "expected %q to be invalid", ticker)
	}
}

func TestParseTickerList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{name: "simple list", input: "AAPL,META", expected: []string{"AAPL", "META"}},
		{name: "spaces and case", input: " aapl , meta ", expected: []string{"AAPL", "META"}},
		{name: "trailing comma", input: "AAPL,META,", expected: []string{"AAPL", "META"}},
		{name: "empty entries dropped", input: ",,AAPL,,", expected: []string{"AAPL"}},
		{name: "empty string", input: "", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseTickerList(tt.input))
		})
	}
}

func TestNormalizeTickers(t *testing.T) {
	result := NormalizeTickers([]string{" aapl", "", "Meta "})
	require.Len(t, result, 2)
	assert.Equal(t, []string{"AAPL", "META"}, result)
}
