package filings

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tenka/internal/common"
	"github.com/ternarybob/tenka/internal/edgar"
	"github.com/ternarybob/tenka/internal/models"
)

// newArchiveServer serves a fake EDGAR archive directory from files.
func newArchiveServer(files map[string][]byte) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := filepath.Base(r.URL.Path)
		content, ok := files[name]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(content)
	}))
}

func newArchiveClient(serverURL string) *edgar.Client {
	return edgar.NewClient(
		edgar.WithArchiveBaseURL(serverURL),
		edgar.WithRequestDelay(time.Millisecond),
	)
}

func TestFetchDocumentHTML(t *testing.T) {
	html := `<html><body><p>Annual report</p><img src="chart.png"/></body></html>`
	server := newArchiveServer(map[string][]byte{
		"report.htm": []byte(html),
		"chart.png":  []byte("png-bytes"),
	})
	defer server.Close()

	fetcher := NewFetcher(newArchiveClient(server.URL), common.GetLogger())
	workDir := t.TempDir()

	record := models.FilingRecord{
		AccessionNumber: "0000320193-23-000077",
		FormType:        "10-K",
		FilingDate:      "2023-11-03",
		PrimaryDocument: "report.htm",
	}

	doc, err := fetcher.FetchDocument(context.Background(), "0000320193", record, workDir)
	require.NoError(t, err)

	assert.True(t, doc.HTML)
	assert.Equal(t, "report.htm", doc.Filename)
	assert.Equal(t, html, string(doc.Content))
	assert.Equal(t, workDir, doc.ImageDir)

	// Referenced image downloaded alongside the document
	data, err := os.ReadFile(filepath.Join(workDir, "chart.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
}

func TestFetchDocumentPlainText(t *testing.T) {
	server := newArchiveServer(map[string][]byte{
		"report.txt": []byte("ANNUAL REPORT\n\nItem 1. Business"),
	})
	defer server.Close()

	fetcher := NewFetcher(newArchiveClient(server.URL), common.GetLogger())

	record := models.FilingRecord{
		AccessionNumber: "0000886982-20-000123",
		PrimaryDocument: "report.txt",
	}

	doc, err := fetcher.FetchDocument(context.Background(), "0000886982", record, t.TempDir())
	require.NoError(t, err)

	assert.False(t, doc.HTML)
	assert.Empty(t, doc.ImageDir, "plain text filings have no images to cache")
}

func TestFetchDocumentMissing(t *testing.T) {
	server := newArchiveServer(nil)
	defer server.Close()

	fetcher := NewFetcher(newArchiveClient(server.URL), common.GetLogger())

	record := models.FilingRecord{
		AccessionNumber: "0000320193-23-000077",
		PrimaryDocument: "gone.htm",
	}

	_, err := fetcher.FetchDocument(context.Background(), "0000320193", record, t.TempDir())
	require.Error(t, err)

	var fetchErr *DocumentFetchError
	assert.ErrorAs(t, err, &fetchErr)
}

func TestFetchDocumentImageFailureIsNonFatal(t *testing.T) {
	html := `<html><img src="exists.png"><img src="missing.png"></html>`
	server := newArchiveServer(map[string][]byte{
		"report.htm": []byte(html),
		"exists.png": []byte("png"),
	})
	defer server.Close()

	fetcher := NewFetcher(newArchiveClient(server.URL), common.GetLogger())
	workDir := t.TempDir()

	record := models.FilingRecord{
		AccessionNumber: "0000320193-23-000077",
		PrimaryDocument: "report.htm",
	}

	doc, err := fetcher.FetchDocument(context.Background(), "0000320193", record, workDir)
	require.NoError(t, err, "a missing image must not fail the document fetch")
	assert.True(t, doc.HTML)

	_, err = os.Stat(filepath.Join(workDir, "exists.png"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(workDir, "missing.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestExtractImageRefs(t *testing.T) {
	html := `
	<html><body>
		<img src="logo.png">
		<img src="chart.jpg"/>
		<img src="logo.png">
		<img src="https://external.example.com/pic.png">
		<img src="//cdn.example.com/pic.gif">
		<img src="document.htm">
		<div style="background-image: url('watermark.gif')"></div>
	</body></html>`

	refs := extractImageRefs(html)

	assert.Equal(t, []string{"logo.png", "chart.jpg", "watermark.gif"}, refs)
}

func TestExtractImageRefsEmpty(t *testing.T) {
	assert.Empty(t, extractImageRefs("<html><body>No images here</body></html>"))
}
