package extract

import (
	"context"
	"fmt"
	"log/slog"

	"ContractAuditor/internal/ports"
)

// Extractor implements TextExtractor via registered decoders.
type Extractor struct {
	registry *Registry
	logger   *slog.Logger
}

var _ ports.TextExtractor = (*Extractor)(nil)

// NewExtractor wires the decoder registry.
func NewExtractor(reg *Registry, log *slog.Logger) *Extractor {
	return &Extractor{
		registry: reg,
		logger:   log,
	}
}

// ExtractText decodes the document at path. Failures are returned as a
// readable message in place of the text so that analysis can proceed.
func (e *Extractor) ExtractText(ctx context.Context, path string) string {
	text, err := e.extract(ctx, path)
	if err != nil {
		e.warn("text extraction failed", "path", path, "error", err)
		return fmt.Sprintf("Ошибка чтения файла: %v", err)
	}
	return text
}

func (e *Extractor) extract(ctx context.Context, path string) (string, error) {
	if e.registry == nil {
		return "", fmt.Errorf("decoder registry is not configured")
	}

	decoder, err := e.registry.ForPath(path)
	if err != nil {
		return "", err
	}

	e.debug("extract text", "path", path, "decoder", decoder.Name())
	text, err := decoder.Decode(ctx, path)
	if err != nil {
		return "", fmt.Errorf("%s: %w", decoder.Name(), err)
	}

	e.debug("text extracted", "path", path, "bytes", len(text))
	return text, nil
}

func (e *Extractor) debug(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

func (e *Extractor) warn(msg string, args ...interface{}) {
	if e.logger != nil {
		e.logger.Warn(msg, args...)
	}
}
