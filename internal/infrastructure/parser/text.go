package parser

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"ContractAuditor/internal/extract"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// TextDecoder reads plain-text files in UTF-8 or, failing that, Windows-1251.
type TextDecoder struct{}

var _ extract.Decoder = (*TextDecoder)(nil)

// NewTextDecoder constructs a plain-text decoder.
func NewTextDecoder() *TextDecoder {
	return &TextDecoder{}
}

func (d *TextDecoder) Name() string         { return extract.FallbackDecoder }
func (d *TextDecoder) Extensions() []string { return []string{"txt"} }

func (d *TextDecoder) Decode(_ context.Context, path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return decodeText(raw)
}

func decodeText(raw []byte) (string, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)
	if utf8.Valid(raw) {
		return string(raw), nil
	}

	decoded, err := charmap.Windows1251.NewDecoder().Bytes(raw)
	if err != nil {
		return "", fmt.Errorf("decode windows-1251: %w", err)
	}
	return string(decoded), nil
}
