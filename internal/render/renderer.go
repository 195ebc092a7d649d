// Package render converts styled HTML markup into PDF documents.
//
// The renderer is deterministic: the same markup and options always produce
// byte-identical output. The generation timestamp is injected by the caller
// through Options so tests can pin it.
package render

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/net/html"
)

// ErrMalformedMarkup is returned when the markup cannot be turned into a document.
var ErrMalformedMarkup = errors.New("render: malformed markup")

// Options carries per-render parameters.
type Options struct {
	// Title is the PDF document title. Empty means no title metadata.
	Title string

	// GeneratedAt is embedded as the document creation date and printed in
	// the page footer. The caller injects it; a zero value pins the epoch so
	// output stays deterministic.
	GeneratedAt time.Time
}

// Renderer produces a binary document from styled markup.
type Renderer interface {
	Render(markup []byte, opts Options) ([]byte, error)
}

// PDFRenderer renders HTML markup to PDF. It holds no mutable state and is
// safe for concurrent use.
type PDFRenderer struct{}

// NewPDFRenderer creates a PDFRenderer.
func NewPDFRenderer() *PDFRenderer {
	return &PDFRenderer{}
}

// Render parses the markup and lays it out on A4 pages. Headings, paragraphs,
// lists, and tables are supported; other elements contribute their text
// content. Returns ErrMalformedMarkup when the markup is empty, unparseable,
// or contains no renderable content.
func (r *PDFRenderer) Render(markup []byte, opts Options) ([]byte, error) {
	if len(bytes.TrimSpace(markup)) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformedMarkup)
	}

	doc, err := html.Parse(bytes.NewReader(markup))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedMarkup, err)
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Unix(0, 0).UTC()
	}
	pdf.SetCreationDate(generatedAt.UTC())
	pdf.SetModificationDate(generatedAt.UTC())
	// Emit catalog objects in sorted order so identical markup yields
	// identical bytes.
	pdf.SetCatalogSort(true)
	if opts.Title != "" {
		pdf.SetTitle(opts.Title, true)
	}
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 25)

	w := &docWriter{
		pdf: pdf,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}

	footerDate := generatedAt.UTC().Format("January 2, 2006")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, w.tr(fmt.Sprintf("Generated %s, page %d", footerDate, pdf.PageNo())),
			"", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	w.walk(findBody(doc))

	if !w.rendered {
		return nil, fmt.Errorf("%w: no renderable content", ErrMalformedMarkup)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: pdf output: %w", err)
	}
	return buf.Bytes(), nil
}

// docWriter tracks layout state while walking the parsed HTML tree.
type docWriter struct {
	pdf      *fpdf.Fpdf
	tr       func(string) string
	rendered bool
}

func (w *docWriter) walk(n *html.Node) {
	if n == nil {
		return
	}

	if n.Type == html.ElementNode {
		switch n.Data {
		case "style", "script", "head", "title", "meta", "link":
			return
		case "h1":
			w.heading(n, 18, 6, "C", 44, 62, 80)
			return
		case "h2":
			w.heading(n, 14, 4, "L", 52, 73, 94)
			return
		case "h3":
			w.heading(n, 12, 3, "L", 44, 62, 80)
			return
		case "p":
			w.paragraph(textContent(n))
			return
		case "ul", "ol":
			w.list(n)
			return
		case "table":
			w.table(n)
			return
		case "blockquote", "pre":
			w.preformatted(textContent(n))
			return
		case "hr":
			w.rule()
			return
		}
	}

	if n.Type == html.TextNode {
		// Loose text between block elements becomes a paragraph.
		if text := collapseSpace(n.Data); text != "" {
			w.paragraph(text)
		}
		return
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		w.walk(c)
	}
}

func (w *docWriter) heading(n *html.Node, size, spaceAfter float64, align string, cr, cg, cb int) {
	text := textContent(n)
	if text == "" {
		return
	}
	w.pdf.SetFont("Helvetica", "B", size)
	w.pdf.SetTextColor(cr, cg, cb)
	w.pdf.MultiCell(0, size*0.5, w.tr(text), "", align, false)
	w.pdf.Ln(spaceAfter)
	w.rendered = true
}

func (w *docWriter) paragraph(text string) {
	if text == "" {
		return
	}
	w.pdf.SetFont("Helvetica", "", 11)
	w.pdf.SetTextColor(51, 51, 51)
	w.pdf.MultiCell(0, 5.5, w.tr(text), "", "L", false)
	w.pdf.Ln(3)
	w.rendered = true
}

func (w *docWriter) preformatted(text string) {
	if text == "" {
		return
	}
	w.pdf.SetFont("Courier", "", 9)
	w.pdf.SetTextColor(51, 51, 51)
	w.pdf.MultiCell(0, 4.5, w.tr(text), "", "L", false)
	w.pdf.Ln(3)
	w.rendered = true
}

func (w *docWriter) rule() {
	y := w.pdf.GetY()
	pageW, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	w.pdf.SetDrawColor(200, 200, 200)
	w.pdf.Line(left, y, pageW-right, y)
	w.pdf.Ln(4)
}

func (w *docWriter) list(n *html.Node) {
	w.pdf.SetFont("Helvetica", "", 11)
	w.pdf.SetTextColor(51, 51, 51)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == "li" {
			text := textContent(c)
			if text == "" {
				continue
			}
			w.pdf.MultiCell(0, 5.5, w.tr("- "+text), "", "L", false)
			w.rendered = true
		}
	}
	w.pdf.Ln(3)
}

func (w *docWriter) table(n *html.Node) {
	rows := tableRows(n)
	if len(rows) == 0 {
		return
	}

	cols := len(rows[0])
	if cols == 0 {
		return
	}

	pageW, _ := w.pdf.GetPageSize()
	left, _, right, _ := w.pdf.GetMargins()
	colW := (pageW - left - right) / float64(cols)

	for i, row := range rows {
		if i == 0 {
			w.pdf.SetFont("Helvetica", "B", 10)
			w.pdf.SetFillColor(52, 152, 219)
			w.pdf.SetTextColor(255, 255, 255)
		} else {
			w.pdf.SetFont("Helvetica", "", 10)
			w.pdf.SetFillColor(248, 249, 250)
			w.pdf.SetTextColor(51, 51, 51)
		}
		fill := i == 0 || i%2 == 0
		for j := 0; j < cols; j++ {
			var cell string
			if j < len(row) {
				cell = row[j]
			}
			w.pdf.CellFormat(colW, 8, w.tr(cell), "1", 0, "C", fill, 0, "")
		}
		w.pdf.Ln(-1)
	}
	w.pdf.Ln(4)
	w.rendered = true
}

// tableRows flattens a table node into rows of cell text, traversing through
// thead/tbody wrappers.
func tableRows(n *html.Node) [][]string {
	var rows [][]string
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.Data {
			case "tr":
				var row []string
				for cell := c.FirstChild; cell != nil; cell = cell.NextSibling {
					if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
						row = append(row, textContent(cell))
					}
				}
				if len(row) > 0 {
					rows = append(rows, row)
				}
			case "thead", "tbody", "tfoot":
				visit(c)
			}
		}
	}
	visit(n)
	return rows
}

// findBody returns the body element of a parsed document, or the document
// itself when html.Parse produced no body.
func findBody(doc *html.Node) *html.Node {
	var body *html.Node
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		if body != nil {
			return
		}
		if n.Type == html.ElementNode && n.Data == "body" {
			body = n
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(doc)
	if body == nil {
		return doc
	}
	return body
}

// textContent concatenates the text nodes under n with whitespace collapsed.
func textContent(n *html.Node) string {
	var sb strings.Builder
	var visit func(*html.Node)
	visit = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(n)
	return collapseSpace(sb.String())
}

// collapseSpace trims and collapses runs of whitespace into single spaces.
func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
