// Package parser holds the document decoders behind the text extractor.
package parser

import (
	"log/slog"

	"ContractAuditor/internal/extract"
)

// NewRegistry registers every supported document format.
func NewRegistry(logger *slog.Logger) *extract.Registry {
	reg := extract.NewRegistry()
	reg.Register(NewPDFDecoder(logger))
	reg.Register(NewDOCXDecoder())
	reg.Register(NewTextDecoder())
	reg.Register(NewHTMLDecoder())
	return reg
}
