// Package extract turns fetched bytes into plain text with a page count.
// PDFs go through a PDFReader; everything else is treated as HTML.
package extract

import (
	"bytes"
	"context"
	"net/url"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/internal/config"
	"github.com/sells-group/report-agent/internal/model"
)

var pdfMagic = []byte("%PDF-")

// Document is the extracted form of a fetched candidate.
type Document struct {
	Text   string
	Pages  int
	Format model.Format
	Title  string
}

// Extractor converts raw bytes into a Document.
type Extractor interface {
	Extract(ctx context.Context, raw []byte, locator string) (Document, error)
}

// Service dispatches to the PDF or HTML extractor by format.
type Service struct {
	pdf         PDFReader
	html        *HTMLExtractor
	maxPages    int
	titleMaxLen int
}

// New creates a Service based on config.
func New(cfg config.ExtractConfig) (*Service, error) {
	var reader PDFReader
	switch cfg.PDFProvider {
	case "native", "":
		reader = NewNativePDF()
	case "pdftotext":
		reader = NewPdfToText(cfg.PdfToTextPath, cfg.PdfInfoPath, nil)
	default:
		return nil, eris.Errorf("extract: unknown pdf provider %q", cfg.PDFProvider)
	}
	return NewService(reader, NewHTMLExtractor(cfg.WordsPerPage), cfg.MaxPDFPages, cfg.TitleMaxLen), nil
}

// NewService wires explicit collaborators.
func NewService(pdf PDFReader, html *HTMLExtractor, maxPages, titleMaxLen int) *Service {
	if maxPages <= 0 {
		maxPages = 5
	}
	if titleMaxLen <= 0 {
		titleMaxLen = 120
	}
	return &Service{pdf: pdf, html: html, maxPages: maxPages, titleMaxLen: titleMaxLen}
}

// Extract implements Extractor.
func (s *Service) Extract(ctx context.Context, raw []byte, locator string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, eris.Wrap(err, "extract: context")
	}

	var (
		doc Document
		err error
	)
	switch DetectFormat(locator, raw) {
	case model.FormatPDF:
		doc, err = s.extractPDF(ctx, raw)
	default:
		doc, err = s.html.Extract(raw, locator)
	}
	if err != nil {
		return Document{}, err
	}

	if t := TitleFromLocator(locator, s.titleMaxLen); t != "" {
		doc.Title = t
	} else {
		doc.Title = truncateRunes(doc.Title, s.titleMaxLen)
	}
	return doc, nil
}

func (s *Service) extractPDF(ctx context.Context, raw []byte) (Document, error) {
	text, pages, err := s.pdf.ReadPDF(ctx, raw, s.maxPages)
	if err != nil {
		return Document{}, err
	}
	return Document{Text: text, Pages: pages, Format: model.FormatPDF}, nil
}

// DetectFormat reports PDF when the locator path ends in .pdf (query and
// fragment ignored) or the bytes start with the PDF magic number.
func DetectFormat(locator string, raw []byte) model.Format {
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	} else if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	if strings.HasSuffix(strings.ToLower(p), ".pdf") {
		return model.FormatPDF
	}
	if bytes.HasPrefix(raw, pdfMagic) {
		return model.FormatPDF
	}
	return model.FormatHTML
}

// TitleFromLocator derives a display title from the last path segment of the
// locator, with underscores turned into spaces.
func TitleFromLocator(locator string, maxLen int) string {
	p := locator
	if u, err := url.Parse(locator); err == nil {
		p = u.Path
	}
	name := path.Base(strings.TrimRight(p, "/"))
	if name == "." || name == "/" || name == "" {
		return ""
	}
	return truncateRunes(strings.ReplaceAll(name, "_", " "), maxLen)
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
