package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// PDFReader reads the text of the first maxPages pages and the total page
// count of a PDF document.
type PDFReader interface {
	ReadPDF(ctx context.Context, raw []byte, maxPages int) (text string, pages int, err error)
}

// NativePDF parses PDFs in-process.
type NativePDF struct{}

// NewNativePDF creates a NativePDF reader.
func NewNativePDF() *NativePDF {
	return &NativePDF{}
}

// ReadPDF implements PDFReader. Parser panics on hostile input are recovered
// and reported as malformed.
func (n *NativePDF) ReadPDF(ctx context.Context, raw []byte, maxPages int) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Debug("extract: pdf parser panic", zap.Any("panic", r))
			text, pages = "", 0
			err = unreadable(CategoryMalformed, fmt.Errorf("pdf parser panic: %v", r))
		}
	}()

	if !bytes.HasPrefix(raw, pdfMagic) {
		return "", 0, unreadable(CategoryMalformed, eris.New("missing %PDF- header"))
	}

	r, err := pdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", 0, classifyPDFError(err)
	}

	pages = r.NumPage()
	if pages == 0 {
		return "", 0, unreadable(CategoryMalformed, eris.New("document has no pages"))
	}

	limit := min(pages, maxPages)
	var sb strings.Builder
	for i := 1; i <= limit; i++ {
		if err := ctx.Err(); err != nil {
			return "", 0, eris.Wrap(err, "extract: pdf")
		}
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		content, err := p.GetPlainText(nil)
		if err != nil {
			return "", 0, classifyPDFError(err)
		}
		sb.WriteString(content)
		sb.WriteString("\n")
	}

	return sb.String(), pages, nil
}

func classifyPDFError(err error) error {
	if errors.Is(err, pdf.ErrInvalidPassword) {
		return unreadable(CategoryEncrypted, err)
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return unreadable(CategoryTruncated, err)
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "encrypt"), strings.Contains(msg, "password"):
		return unreadable(CategoryEncrypted, err)
	case strings.Contains(msg, "%%eof"), strings.Contains(msg, "unexpected eof"), strings.Contains(msg, "truncated"):
		return unreadable(CategoryTruncated, err)
	default:
		return unreadable(CategoryMalformed, err)
	}
}
