package filings

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tenka/internal/edgar"
	"github.com/ternarybob/tenka/internal/models"
)

// DocumentFetchError indicates the filing's primary document could not be
// downloaded. Fatal for that ticker, never for the batch.
type DocumentFetchError struct {
	URL string
	Err error
}

func (e *DocumentFetchError) Error() string {
	return fmt.Sprintf("failed to download filing document %s: %v", e.URL, e.Err)
}

func (e *DocumentFetchError) Unwrap() error {
	return e.Err
}

// RawDocument is a downloaded filing document plus any images it references,
// cached locally so the renderer can embed them offline.
type RawDocument struct {
	Ticker   string
	Filename string
	Content  []byte
	HTML     bool
	ImageDir string // local directory holding downloaded images; may be empty
}

var (
	imageExtensions = map[string]bool{
		".jpg": true, ".jpeg": true, ".png": true, ".gif": true, ".svg": true,
	}

	// CSS background images inside style attributes or style blocks.
	backgroundImageRe = regexp.MustCompile(`(?i)background-image:\s*url\(["']?([^"')]+\.(?:jpg|jpeg|png|gif|svg))["']?\)`)
)

// Fetcher downloads filing documents and their referenced images.
type Fetcher struct {
	client *edgar.Client
	logger arbor.ILogger
}

// NewFetcher creates a document fetcher.
func NewFetcher(client *edgar.Client, logger arbor.ILogger) *Fetcher {
	return &Fetcher{
		client: client,
		logger: logger,
	}
}

// FetchDocument downloads the filing's primary document into workDir and, for
// HTML documents, downloads every same-directory image it references.
// A failed image download is logged and skipped; the conversion proceeds with
// that image omitted.
func (f *Fetcher) FetchDocument(ctx context.Context, cik string, record models.FilingRecord, workDir string) (*RawDocument, error) {
	docURL := f.client.DocumentURL(cik, record.AccessionNumber, record.PrimaryDocument)

	content, err := f.client.FetchDocument(ctx, cik, record.AccessionNumber, record.PrimaryDocument)
	if err != nil {
		return nil, &DocumentFetchError{URL: docURL, Err: err}
	}

	ext := strings.ToLower(filepath.Ext(record.PrimaryDocument))
	isHTML := ext == ".htm" || ext == ".html"

	doc := &RawDocument{
		Filename: record.PrimaryDocument,
		Content:  content,
		HTML:     isHTML,
	}

	f.logger.Info().
		Str("cik", cik).
		Str("document", record.PrimaryDocument).
		Int("bytes", len(content)).
		Msg("Downloaded filing document")

	if isHTML {
		doc.ImageDir = workDir
		baseURL := f.client.FilingBaseURL(cik, record.AccessionNumber)
		f.downloadImages(ctx, string(content), baseURL, workDir)
	}

	return doc, nil
}

// downloadImages finds image references in the filing HTML and downloads each
// into imageDir. Only relative, same-directory references with known image
// extensions are fetched; external URLs are left alone.
func (f *Fetcher) downloadImages(ctx context.Context, html, baseURL, imageDir string) {
	refs := extractImageRefs(html)
	if len(refs) == 0 {
		f.logger.Debug().Msg("No images found to download")
		return
	}

	downloaded := 0
	for _, ref := range refs {
		if err := f.downloadImage(ctx, ref, baseURL, imageDir); err != nil {
			f.logger.Warn().
				Str("image", ref).
				Err(err).
				Msg("Failed to download referenced image, proceeding without it")
			continue
		}
		downloaded++
	}

	f.logger.Info().
		Int("downloaded", downloaded).
		Int("referenced", len(refs)).
		Msg("Downloaded filing images")
}

func (f *Fetcher) downloadImage(ctx context.Context, ref, baseURL, imageDir string) error {
	resolved := ref
	if !strings.HasPrefix(ref, "http") {
		base, err := url.Parse(baseURL)
		if err != nil {
			return fmt.Errorf("invalid base URL: %w", err)
		}
		rel, err := url.Parse(ref)
		if err != nil {
			return fmt.Errorf("invalid image reference: %w", err)
		}
		resolved = base.ResolveReference(rel).String()
	}

	parsed, err := url.Parse(resolved)
	if err != nil {
		return fmt.Errorf("invalid image URL: %w", err)
	}
	filename := path.Base(parsed.Path)
	if filename == "" || filename == "." || filename == "/" {
		return fmt.Errorf("image URL %s has no filename", resolved)
	}

	localPath := filepath.Join(imageDir, filename)
	if _, err := os.Stat(localPath); err == nil {
		return nil // already downloaded
	}

	data, err := f.client.FetchArchiveFile(ctx, resolved)
	if err != nil {
		return err
	}

	if err := os.WriteFile(localPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write image file: %w", err)
	}

	f.logger.Debug().Str("image", filename).Msg("Downloaded image")
	return nil
}

// extractImageRefs returns image references found in img tags and CSS
// background-image declarations, in document order, deduplicated. External
// and protocol-relative URLs are excluded; filings reference their images by
// bare filename within the same archive directory.
func extractImageRefs(html string) []string {
	seen := make(map[string]bool)
	var refs []string

	add := func(ref string) {
		ref = strings.TrimSpace(ref)
		if ref == "" || seen[ref] {
			return
		}
		if strings.HasPrefix(ref, "http") || strings.HasPrefix(ref, "//") {
			return
		}
		if !imageExtensions[strings.ToLower(path.Ext(ref))] {
			return
		}
		seen[ref] = true
		refs = append(refs, ref)
	}

	if doc, err := goquery.NewDocumentFromReader(strings.NewReader(html)); err == nil {
		doc.Find("img[src]").Each(func(_ int, sel *goquery.Selection) {
			if src, ok := sel.Attr("src"); ok {
				add(src)
			}
		})
	}

	for _, match := range backgroundImageRe.FindAllStringSubmatch(html, -1) {
		add(match[1])
	}

	return refs
}
