package extract

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// CommandRunner executes an external program and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout []byte, stderr []byte, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

var pdfInfoPages = regexp.MustCompile(`(?m)^Pages:\s+(\d+)`)

// PdfToText reads PDFs using the poppler pdftotext and pdfinfo CLI tools.
type PdfToText struct {
	textBin string
	infoBin string
	runner  CommandRunner
}

// NewPdfToText creates a PdfToText reader. Empty paths fall back to the
// binaries on PATH; a nil runner executes real processes.
func NewPdfToText(textBin, infoBin string, runner CommandRunner) *PdfToText {
	if textBin == "" {
		textBin = "pdftotext"
	}
	if infoBin == "" {
		infoBin = "pdfinfo"
	}
	if runner == nil {
		runner = execRunner{}
	}
	return &PdfToText{textBin: textBin, infoBin: infoBin, runner: runner}
}

// ReadPDF implements PDFReader. The document is staged in a temp file since
// both tools take a path.
func (p *PdfToText) ReadPDF(ctx context.Context, raw []byte, maxPages int) (string, int, error) {
	f, err := os.CreateTemp("", "report-*.pdf")
	if err != nil {
		return "", 0, eris.Wrap(err, "extract: create temp pdf")
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	if _, err := f.Write(raw); err != nil {
		_ = f.Close()
		return "", 0, eris.Wrap(err, "extract: write temp pdf")
	}
	if err := f.Close(); err != nil {
		return "", 0, eris.Wrap(err, "extract: close temp pdf")
	}

	info, stderr, err := p.runner.Run(ctx, p.infoBin, f.Name())
	if err != nil {
		return "", 0, classifyPopplerError(err, stderr)
	}
	m := pdfInfoPages.FindSubmatch(info)
	if m == nil {
		return "", 0, unreadable(CategoryMalformed, eris.New("pdfinfo reported no page count"))
	}
	pages, _ := strconv.Atoi(string(m[1]))

	text, stderr, err := p.runner.Run(ctx, p.textBin, "-layout", "-f", "1", "-l", strconv.Itoa(maxPages), f.Name(), "-")
	if err != nil {
		return "", 0, classifyPopplerError(err, stderr)
	}

	return string(text), pages, nil
}

func classifyPopplerError(err error, stderr []byte) error {
	msg := strings.ToLower(string(stderr))
	wrapped := eris.Wrapf(err, "poppler: %s", strings.TrimSpace(string(stderr)))
	switch {
	case strings.Contains(msg, "password"), strings.Contains(msg, "encrypt"):
		return unreadable(CategoryEncrypted, wrapped)
	case strings.Contains(msg, "trailer"), strings.Contains(msg, "xref"), strings.Contains(msg, "end of file"):
		return unreadable(CategoryTruncated, wrapped)
	case len(stderr) > 0:
		return unreadable(CategoryMalformed, wrapped)
	default:
		return eris.Wrap(err, "extract: poppler")
	}
}
