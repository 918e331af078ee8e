package pdf

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-pdf/fpdf"
	"github.com/ternarybob/arbor"
	"github.com/yuin/goldmark/ast"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

const (
	pageContentWidth = 190.0 // A4 width minus margins, mm
	maxImageWidth    = 160.0
)

// pdfRenderer walks a goldmark AST and writes it into an fpdf document.
type pdfRenderer struct {
	pdf       *fpdf.Fpdf
	source    []byte
	logger    arbor.ILogger
	imageDir  string
	font      string
	size      float64
	bold      bool
	italic    bool
	listLevel int
}

func (r *pdfRenderer) render(node ast.Node) error {
	return ast.Walk(node, r.walk)
}

func (r *pdfRenderer) updateFont() {
	style := ""
	if r.bold {
		style += "B"
	}
	if r.italic {
		style += "I"
	}
	r.pdf.SetFont(r.font, style, r.size)
}

func (r *pdfRenderer) walk(n ast.Node, entering bool) (ast.WalkStatus, error) {
	switch n.Kind() {
	case ast.KindHeading:
		r.handleHeading(n.(*ast.Heading), entering)
	case ast.KindParagraph:
		if !entering {
			r.pdf.Ln(7)
		}
	case ast.KindText:
		if entering {
			r.pdf.Write(5, string(n.Text(r.source)))
		}
	case ast.KindEmphasis:
		if n.(*ast.Emphasis).Level == 2 {
			r.bold = entering
		} else {
			r.italic = entering
		}
		r.updateFont()
	case ast.KindCodeSpan:
		return r.handleCodeSpan(n, entering)
	case ast.KindFencedCodeBlock:
		if entering {
			r.renderCodeBlock(n.Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindCodeBlock:
		if entering {
			r.renderCodeBlock(n.Lines())
			return ast.WalkSkipChildren, nil
		}
	case ast.KindList:
		if entering {
			r.listLevel++
		} else {
			r.listLevel--
			if r.listLevel == 0 {
				r.pdf.Ln(2)
			}
		}
	case ast.KindListItem:
		if entering {
			r.pdf.Ln(5)
			r.pdf.SetX(15 + float64(r.listLevel)*5.0)
			r.pdf.Write(5, "- ")
		}
	case ast.KindImage:
		if entering {
			r.handleImage(n.(*ast.Image))
			return ast.WalkSkipChildren, nil
		}
	case ast.KindThematicBreak:
		if entering {
			r.pdf.Ln(2)
			r.pdf.Line(15, r.pdf.GetY(), 195, r.pdf.GetY())
			r.pdf.Ln(2)
		}
	case extast.KindTable:
		if entering {
			r.handleTable(n.(*extast.Table))
			return ast.WalkSkipChildren, nil
		}
	}
	return ast.WalkContinue, nil
}

func (r *pdfRenderer) handleHeading(n *ast.Heading, entering bool) {
	if entering {
		r.pdf.Ln(6)
		size := 10.0
		switch n.Level {
		case 1:
			size = 14
		case 2:
			size = 12
		case 3:
			size = 11
		}
		r.pdf.SetFont(r.font, "B", size)
	} else {
		r.pdf.Ln(6)
		r.updateFont()
	}
}

func (r *pdfRenderer) handleCodeSpan(n ast.Node, entering bool) (ast.WalkStatus, error) {
	if entering {
		r.pdf.SetFont("Courier", "", r.size)
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if textNode, ok := c.(*ast.Text); ok {
				r.pdf.Write(5, string(textNode.Segment.Value(r.source)))
			}
		}
	} else {
		r.updateFont()
	}
	return ast.WalkSkipChildren, nil
}

func (r *pdfRenderer) renderCodeBlock(lines *text.Segments) {
	r.pdf.Ln(3)
	r.pdf.SetFont("Courier", "", r.size-1)
	r.pdf.SetFillColor(245, 245, 245)
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		line := strings.TrimRight(string(segment.Value(r.source)), "\n")
		r.pdf.MultiCell(0, 4, line, "", "L", true)
	}
	r.pdf.SetFillColor(255, 255, 255)
	r.updateFont()
	r.pdf.Ln(3)
}

// handleImage embeds a locally cached image at the current position. Images
// without a local copy (failed downloads, external references) are skipped;
// SVG is not supported by the PDF library and is also skipped.
func (r *pdfRenderer) handleImage(n *ast.Image) {
	if r.imageDir == "" {
		return
	}

	filename := path.Base(strings.TrimSpace(string(n.Destination)))
	if filename == "" || filename == "." {
		return
	}
	if strings.EqualFold(path.Ext(filename), ".svg") {
		r.logger.Debug().Str("image", filename).Msg("Skipping unsupported SVG image")
		return
	}

	localPath := filepath.Join(r.imageDir, filename)
	if _, err := os.Stat(localPath); err != nil {
		r.logger.Debug().Str("image", filename).Msg("Image not cached locally, skipping")
		return
	}

	r.pdf.Ln(3)
	r.pdf.ImageOptions(localPath, -1, -1, maxImageWidth, 0, true, fpdf.ImageOptions{ReadDpi: true}, 0, "")
	r.pdf.Ln(3)

	if r.pdf.Err() {
		// A corrupt image must not sink the whole document.
		r.logger.Warn().Str("image", filename).Msg("Failed to embed image, continuing without it")
		r.pdf.ClearError()
	}
}

// handleTable renders a markdown table with evenly divided columns. Filing
// tables can be very wide; cells wrap and truncate rather than overflow.
func (r *pdfRenderer) handleTable(n *extast.Table) {
	var rows [][]string

	var collect func(node ast.Node)
	collect = func(node ast.Node) {
		for child := node.FirstChild(); child != nil; child = child.NextSibling() {
			switch row := child.(type) {
			case *extast.TableRow:
				rows = append(rows, r.extractRow(row))
			case *extast.TableHeader:
				collect(row)
			}
		}
	}
	collect(n)

	if len(rows) == 0 || len(rows[0]) == 0 {
		return
	}

	numCols := len(rows[0])
	colWidth := pageContentWidth / float64(numCols)
	lineHeight := 4.0
	fontSize := 7.0

	r.pdf.Ln(2)
	for i, row := range rows {
		if i == 0 {
			r.pdf.SetFont(r.font, "B", fontSize)
			r.pdf.SetFillColor(230, 230, 230)
		} else {
			r.pdf.SetFont(r.font, "", fontSize)
			r.pdf.SetFillColor(255, 255, 255)
		}

		startX := r.pdf.GetX()
		startY := r.pdf.GetY()

		if startY+lineHeight > 287 {
			r.pdf.AddPage()
			startY = r.pdf.GetY()
		}

		for j, cell := range row {
			if j >= numCols {
				break
			}
			x := startX + float64(j)*colWidth
			r.pdf.Rect(x, startY, colWidth, lineHeight+1, "D")
			r.pdf.SetXY(x+1, startY+0.5)
			r.pdf.CellFormat(colWidth-2, lineHeight, r.truncate(cell, colWidth-2), "", 0, "L", i == 0, 0, "")
		}

		r.pdf.SetXY(startX, startY+lineHeight+1)
	}
	r.pdf.Ln(3)
	r.updateFont()
}

func (r *pdfRenderer) extractRow(n *extast.TableRow) []string {
	var row []string
	for cell := n.FirstChild(); cell != nil; cell = cell.NextSibling() {
		if _, ok := cell.(*extast.TableCell); ok {
			row = append(row, string(cell.Text(r.source)))
		}
	}
	return row
}

// truncate shortens a cell value to fit the column width.
func (r *pdfRenderer) truncate(s string, width float64) string {
	if r.pdf.GetStringWidth(s) <= width {
		return s
	}
	for len(s) > 3 && r.pdf.GetStringWidth(s+"...") > width {
		s = s[:len(s)-1]
	}
	return s + "..."
}
