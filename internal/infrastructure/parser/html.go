package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"ContractAuditor/internal/extract"
)

// blockSelector lists elements whose text starts on a new line.
const blockSelector = "p, div, li, tr, h1, h2, h3, h4, h5, h6, br, td, th"

// HTMLDecoder reads procurement notices saved from the procurement portal.
type HTMLDecoder struct{}

var _ extract.Decoder = (*HTMLDecoder)(nil)

// NewHTMLDecoder constructs an HTML decoder.
func NewHTMLDecoder() *HTMLDecoder {
	return &HTMLDecoder{}
}

func (d *HTMLDecoder) Name() string         { return "html" }
func (d *HTMLDecoder) Extensions() []string { return []string{"html", "htm"} }

// Decode returns the visible text of the page, one block per line.
func (d *HTMLDecoder) Decode(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	text, err := decodeText(raw)
	if err != nil {
		return "", err
	}
	return htmlText(text)
}

func htmlText(markup string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewBufferString(markup))
	if err != nil {
		return "", fmt.Errorf("parse document: %w", err)
	}

	doc.Find("script, style, noscript, head").Remove()
	doc.Find(blockSelector).Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})

	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n"), nil
}
