// Package extract turns uploaded documents into plain text through a
// registry of format decoders.
package extract

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// FallbackDecoder is used for files whose extension has no decoder.
const FallbackDecoder = "txt"

// Decoder reads the text of a single document format.
type Decoder interface {
	Name() string
	Extensions() []string
	Decode(ctx context.Context, path string) (string, error)
}

// Registry keeps a mapping from decoder names and file extensions to decoders.
type Registry struct {
	decoders   map[string]Decoder
	extensions map[string]Decoder
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		decoders:   map[string]Decoder{},
		extensions: map[string]Decoder{},
	}
}

// Register adds or replaces a decoder and claims its extensions.
func (r *Registry) Register(decoder Decoder) {
	if r.decoders == nil {
		r.decoders = map[string]Decoder{}
	}
	if r.extensions == nil {
		r.extensions = map[string]Decoder{}
	}
	r.decoders[decoder.Name()] = decoder
	for _, ext := range decoder.Extensions() {
		r.extensions[normalizeExt(ext)] = decoder
	}
}

// Resolve returns a decoder by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Decoder, error) {
	if decoder, ok := r.decoders[name]; ok {
		return decoder, nil
	}
	return nil, fmt.Errorf("decoder %s is not registered", name)
}

// ForPath picks the decoder for a file by its extension, ignoring case.
// Unknown extensions resolve to the fallback decoder.
func (r *Registry) ForPath(path string) (Decoder, error) {
	if decoder, ok := r.extensions[normalizeExt(filepath.Ext(path))]; ok {
		return decoder, nil
	}
	return r.Resolve(FallbackDecoder)
}

// Supports reports whether a decoder claims the extension of path.
func (r *Registry) Supports(path string) bool {
	_, ok := r.extensions[normalizeExt(filepath.Ext(path))]
	return ok
}

func normalizeExt(ext string) string {
	return strings.TrimPrefix(strings.ToLower(ext), ".")
}
