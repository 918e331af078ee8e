// Package pdf renders filing documents to paginated PDF files.
package pdf

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/go-pdf/fpdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

// RenderError indicates a document could not be converted to PDF. Scoped to
// one ticker; the orchestrator records it and moves on.
type RenderError struct {
	Document string
	Err      error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("failed to render %s to PDF: %v", e.Document, e.Err)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

// Service converts filing documents (HTML or plain text) to PDF bytes.
// HTML goes through a markdown intermediate, which flattens the filing's
// presentation markup into a linear layout fpdf can paginate.
type Service struct {
	logger arbor.ILogger
}

// NewService creates a new PDF service
func NewService(logger arbor.ILogger) *Service {
	return &Service{
		logger: logger,
	}
}

// ConvertHTMLToPDF converts an HTML document to PDF. imageDir holds locally
// downloaded images referenced by the document; references without a local
// copy are skipped.
func (s *Service) ConvertHTMLToPDF(html, name, imageDir string) ([]byte, error) {
	s.logger.Debug().
		Int("html_len", len(html)).
		Str("document", name).
		Msg("Converting HTML filing to PDF")

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(html)
	if err != nil {
		return nil, &RenderError{Document: name, Err: fmt.Errorf("html conversion failed: %w", err)}
	}
	if strings.TrimSpace(markdown) == "" {
		// Some filings are markup-only wrappers; fall back to stripped text
		// rather than emitting an empty PDF.
		markdown = stripHTMLTags(html)
	}

	return s.ConvertMarkdownToPDF(markdown, name, imageDir)
}

// ConvertTextToPDF wraps a plain-text filing in a minimal monospace layout.
func (s *Service) ConvertTextToPDF(content, name string) ([]byte, error) {
	s.logger.Debug().
		Int("text_len", len(content)).
		Str("document", name).
		Msg("Converting plain-text filing to PDF")

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Courier", "", 8)

	for _, line := range strings.Split(content, "\n") {
		pdf.MultiCell(0, 4, strings.TrimRight(line, "\r"), "", "L", false)
	}

	return output(pdf, name)
}

// ConvertMarkdownToPDF renders markdown content to PDF bytes.
func (s *Service) ConvertMarkdownToPDF(markdown, name, imageDir string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 10)
	pdf.AddPage()
	pdf.SetFont("Arial", "", 9)

	parser := goldmark.New(
		goldmark.WithExtensions(extension.Table, extension.Strikethrough),
	)

	source := []byte(markdown)
	doc := parser.Parser().Parse(text.NewReader(source))

	renderer := &pdfRenderer{
		pdf:      pdf,
		source:   source,
		logger:   s.logger,
		imageDir: imageDir,
		font:     "Arial",
		size:     9,
	}

	if err := renderer.render(doc); err != nil {
		return nil, &RenderError{Document: name, Err: err}
	}

	out, err := output(pdf, name)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().
		Int("pdf_size", len(out)).
		Str("document", name).
		Msg("PDF generated")

	return out, nil
}

// PageCount validates the rendered PDF and returns its page count.
func (s *Service) PageCount(pdfBytes []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(pdfBytes), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to read PDF page count: %w", err)
	}
	return count, nil
}

func output(pdf *fpdf.Fpdf, name string) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, &RenderError{Document: name, Err: err}
	}
	return buf.Bytes(), nil
}

// stripHTMLTags is the fallback for markup the converter cannot handle.
func stripHTMLTags(html string) string {
	var b strings.Builder
	inTag := false
	for _, c := range html {
		switch {
		case c == '<':
			inTag = true
		case c == '>':
			inTag = false
			b.WriteByte(' ')
		case !inTag:
			b.WriteRune(c)
		}
	}
	fields := strings.Fields(b.String())
	return strings.Join(fields, " ")
}
