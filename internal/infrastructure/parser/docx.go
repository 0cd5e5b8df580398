package parser

import (
	"archive/zip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"ContractAuditor/internal/extract"
)

const (
	documentPart = "word/document.xml"
	wordprocML   = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"
)

// DOCXDecoder reads WordprocessingML documents. Body paragraphs come first,
// followed by the text of every table cell.
type DOCXDecoder struct{}

var _ extract.Decoder = (*DOCXDecoder)(nil)

// NewDOCXDecoder constructs a DOCX decoder.
func NewDOCXDecoder() *DOCXDecoder {
	return &DOCXDecoder{}
}

func (d *DOCXDecoder) Name() string         { return "docx" }
func (d *DOCXDecoder) Extensions() []string { return []string{"docx"} }

// Decode returns the non-empty paragraphs and table cells joined by newlines.
func (d *DOCXDecoder) Decode(_ context.Context, path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("open archive: %w", err)
	}
	defer archive.Close()

	for _, file := range archive.File {
		if file.Name != documentPart {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", documentPart, err)
		}
		defer rc.Close()

		paragraphs, cells, err := readDocument(rc)
		if err != nil {
			return "", fmt.Errorf("parse %s: %w", documentPart, err)
		}
		return strings.Join(append(paragraphs, cells...), "\n"), nil
	}

	return "", errors.New("document body not found")
}

// readDocument walks the document XML once. Paragraphs outside tables are
// collected in order; paragraphs inside a cell form that cell's text.
func readDocument(r io.Reader) (paragraphs, cells []string, err error) {
	decoder := xml.NewDecoder(r)

	var (
		tableDepth int
		paragraph  strings.Builder
		cell       []string
		inText     bool
	)

	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return paragraphs, cells, nil
		}
		if err != nil {
			return nil, nil, err
		}

		switch t := token.(type) {
		case xml.StartElement:
			if t.Name.Space != wordprocML {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tc":
				cell = cell[:0]
			case "p":
				paragraph.Reset()
			case "t":
				inText = true
			case "tab":
				paragraph.WriteByte('\t')
			case "br", "cr":
				paragraph.WriteByte('\n')
			}
		case xml.EndElement:
			if t.Name.Space != wordprocML {
				continue
			}
			switch t.Name.Local {
			case "tbl":
				tableDepth--
			case "t":
				inText = false
			case "p":
				text := paragraph.String()
				if tableDepth > 0 {
					cell = append(cell, text)
				} else if strings.TrimSpace(text) != "" {
					paragraphs = append(paragraphs, text)
				}
			case "tc":
				if text := strings.Join(cell, "\n"); strings.TrimSpace(text) != "" {
					cells = append(cells, text)
				}
			}
		case xml.CharData:
			if inText {
				paragraph.Write(t)
			}
		}
	}
}
