package parser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"ContractAuditor/internal/extract"
	"ContractAuditor/internal/ports"
)

// NoPDFText replaces the text of a PDF without an extractable text layer.
const NoPDFText = "Не удалось извлечь текст из PDF"

// PDFDecoder reads PDF documents page by page. Pages that fail to decode
// are skipped.
type PDFDecoder struct {
	logger *slog.Logger
}

var (
	_ extract.Decoder  = (*PDFDecoder)(nil)
	_ ports.PageSource = (*PDFDecoder)(nil)
)

// NewPDFDecoder constructs a PDF decoder.
func NewPDFDecoder(logger *slog.Logger) *PDFDecoder {
	return &PDFDecoder{logger: logger}
}

// Name identifies the decoder inside the registry.
func (d *PDFDecoder) Name() string {
	return "pdf"
}

// Extensions lists the file extensions handled by the decoder.
func (d *PDFDecoder) Extensions() []string {
	return []string{"pdf"}
}

// Decode returns the text of all pages separated by newlines.
func (d *PDFDecoder) Decode(ctx context.Context, path string) (string, error) {
	pages, err := d.Pages(ctx, path)
	if err != nil {
		return "", err
	}
	text := strings.Join(pages, "\n")
	if strings.TrimSpace(text) == "" {
		return NoPDFText, nil
	}
	return text, nil
}

// Pages returns the plain text of every readable page.
func (d *PDFDecoder) Pages(ctx context.Context, path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat PDF: %w", err)
	}
	reader, err := newPDFReader(file, info.Size())
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}

	numPages := reader.NumPage()
	pages := make([]string, 0, numPages)
	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := pageText(reader, i)
		if err != nil {
			d.debug("skip unreadable page", "path", path, "page", i, "error", err)
			continue
		}
		if text != "" {
			pages = append(pages, text)
		}
	}

	d.debug("pdf pages extracted", "path", path, "pages", numPages, "with_text", len(pages))
	return pages, nil
}

// newPDFReader guards against the library panicking on malformed cross-reference tables.
func newPDFReader(file *os.File, size int64) (r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			r, err = nil, fmt.Errorf("malformed PDF: %v", rec)
		}
	}()
	return pdf.NewReader(file, size)
}

func pageText(reader *pdf.Reader, index int) (text string, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", index, rec)
		}
	}()

	page := reader.Page(index)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}

func (d *PDFDecoder) debug(msg string, args ...interface{}) {
	if d.logger != nil {
		d.logger.Debug(msg, args...)
	}
}
