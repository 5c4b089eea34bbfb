// Package extractor turns uploaded statements into ordered text Documents.
//
// Dispatch is by lower-cased file extension:
//   - .pdf  one Document per page, metadata "page" (zero-indexed)
//   - .docx one Document for the body, metadata "page" = "N/A"
//   - .xlsx one Document per contiguous row region of every sheet
//   - .xls  same as .xlsx for legacy BIFF workbooks
package extractor

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"

	"statementqa/internal/domain"
)

// Func extracts Documents from the file at path. The password is only
// consulted by formats that carry their own encryption (PDF).
type Func func(ctx context.Context, path, password string) ([]domain.Document, error)

// Registry maps extensions to extractors.
type Registry struct {
	byExt  map[string]Func
	logger *slog.Logger
}

// New returns a Registry with the pdf, docx, xlsx and xls extractors.
func New(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		byExt: map[string]Func{
			".pdf":  ExtractPDF,
			".docx": ExtractDOCX,
			".xlsx": ExtractXLSX,
			".xls":  ExtractXLS,
		},
		logger: logger,
	}
}

// Supports reports whether ext (with leading dot, any case) is handled.
func (r *Registry) Supports(ext string) bool {
	_, ok := r.byExt[strings.ToLower(ext)]
	return ok
}

// SupportedExtensions returns all supported extensions, sorted.
func (r *Registry) SupportedExtensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Extract dispatches on the extension of path. Zero documents is an error.
func (r *Registry) Extract(ctx context.Context, path, password string) ([]domain.Document, error) {
	return r.ExtractAs(ctx, filepath.Ext(path), path, password)
}

// ExtractAs extracts path using the extractor registered for ext. Staged
// temp files keep the upload's extension semantics this way even when their
// own name differs.
func (r *Registry) ExtractAs(ctx context.Context, ext, path, password string) ([]domain.Document, error) {
	ext = strings.ToLower(ext)
	fn, ok := r.byExt[ext]
	if !ok {
		return nil, &domain.UnsupportedFormatError{Ext: ext}
	}
	format := strings.TrimPrefix(ext, ".")
	r.logger.DebugContext(ctx, "extracting document", "path", path, "format", format)

	docs, err := fn(ctx, path, password)
	if err != nil {
		var de *domain.DecryptionError
		var ee *domain.ExtractionError
		if errors.As(err, &de) || errors.As(err, &ee) {
			return nil, err
		}
		return nil, &domain.ExtractionError{Format: format, Err: err}
	}

	out := docs[:0]
	for _, d := range docs {
		d.Content = strings.TrimSpace(norm.NFC.String(d.Content))
		if d.Content == "" {
			continue
		}
		if d.Metadata == nil {
			d.Metadata = map[string]any{}
		}
		out = append(out, d)
	}
	if len(out) == 0 {
		return nil, &domain.ExtractionError{Format: format, Err: domain.ErrNoExtractableText}
	}
	r.logger.DebugContext(ctx, "extracted documents", "format", format, "documents", len(out))
	return out, nil
}
