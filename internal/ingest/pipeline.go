// Package ingest turns one uploaded statement into a retrieval index.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"statementqa/internal/decrypt"
	"statementqa/internal/domain"
	"statementqa/internal/extractor"
	"statementqa/internal/vectorstore/memory"
)

const overviewSentences = 3

// Result is a finished ingestion.
type Result struct {
	FileName  string
	Index     domain.Index
	Documents int
	Chunks    int
	// Overview is a short extractive summary of the statement, possibly empty.
	Overview string
}

// Pipeline stages, decrypts, extracts, chunks and indexes uploads. It holds
// no per-call state, so one Pipeline serves concurrent Ingest calls.
type Pipeline struct {
	extractor  *extractor.Registry
	chunker    domain.Chunker
	embedder   domain.Embedder
	summarizer domain.Summarizer
	index      memory.Options
	tempRoot   string
	logger     *slog.Logger
	tracer     trace.Tracer
}

type Option func(*Pipeline)

// WithSummarizer enables the overview text on Result.
func WithSummarizer(s domain.Summarizer) Option {
	return func(p *Pipeline) { p.summarizer = s }
}

func WithIndexOptions(o memory.Options) Option {
	return func(p *Pipeline) { p.index = o }
}

// WithTempRoot sets the parent of the per-call staging directories.
// Defaults to os.TempDir().
func WithTempRoot(dir string) Option {
	return func(p *Pipeline) { p.tempRoot = dir }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func New(reg *extractor.Registry, ch domain.Chunker, emb domain.Embedder, opts ...Option) *Pipeline {
	p := &Pipeline{
		extractor: reg,
		chunker:   ch,
		embedder:  emb,
		logger:    slog.Default(),
		tracer:    otel.Tracer("statementqa/ingest"),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Ingest runs every stage for one file. The staging directory is removed on
// every return path. Errors keep their domain type for errors.As.
func (p *Pipeline) Ingest(ctx context.Context, file domain.UploadedFile, password string) (res *Result, err error) {
	ext := strings.ToLower(filepath.Ext(file.Name))
	ctx, span := p.tracer.Start(ctx, "ingest", trace.WithAttributes(
		attribute.String("file.name", file.Name),
		attribute.String("file.ext", ext),
		attribute.Int("file.size", len(file.Data)),
	))
	defer func() { endSpan(span, err) }()

	if !p.extractor.Supports(ext) {
		return nil, &domain.UnsupportedFormatError{Ext: ext}
	}

	root := p.tempRoot
	if root == "" {
		root = os.TempDir()
	}
	dir := filepath.Join(root, "statementqa-"+uuid.NewString())
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create staging dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(dir); rmErr != nil {
			p.logger.WarnContext(ctx, "failed to remove staging dir", "dir", dir, "error", rmErr)
		}
	}()

	path := filepath.Join(dir, "upload"+ext)
	if err := os.WriteFile(path, file.Data, 0o600); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}

	path, err = p.decrypt(ctx, dir, path, ext, file.Data, password)
	if err != nil {
		return nil, err
	}

	docs, err := p.extract(ctx, file.Name, ext, path, password)
	if err != nil {
		return nil, err
	}

	chunks, err := p.split(ctx, docs)
	if err != nil {
		return nil, err
	}

	ix, err := p.build(ctx, chunks)
	if err != nil {
		return nil, err
	}

	res = &Result{
		FileName:  file.Name,
		Index:     ix,
		Documents: len(docs),
		Chunks:    len(chunks),
		Overview:  p.overview(ctx, docs),
	}
	p.logger.InfoContext(ctx, "statement ingested",
		"file", file.Name, "documents", res.Documents, "chunks", res.Chunks)
	return res, nil
}

func (p *Pipeline) decrypt(ctx context.Context, dir, path, ext string, data []byte, password string) (_ string, err error) {
	_, span := p.tracer.Start(ctx, "ingest.decrypt")
	defer func() { endSpan(span, err) }()

	plain, err := decrypt.Decrypt(ext, data, password)
	if err != nil {
		return "", err
	}
	if bytes.Equal(plain, data) {
		return path, nil
	}
	out := filepath.Join(dir, "decrypted"+ext)
	if err := os.WriteFile(out, plain, 0o600); err != nil {
		return "", fmt.Errorf("stage decrypted file: %w", err)
	}
	p.logger.DebugContext(ctx, "decrypted upload", "ext", ext)
	return out, nil
}

// extract reads the staged file and cites the uploaded name as the source
// rather than the staging path.
func (p *Pipeline) extract(ctx context.Context, name, ext, path, password string) (_ []domain.Document, err error) {
	ctx, span := p.tracer.Start(ctx, "ingest.extract")
	defer func() { endSpan(span, err) }()

	docs, err := p.extractor.ExtractAs(ctx, ext, path, password)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		d.Metadata["source"] = name
	}
	span.SetAttributes(attribute.Int("documents", len(docs)))
	return docs, nil
}

func (p *Pipeline) split(ctx context.Context, docs []domain.Document) (_ []domain.Chunk, err error) {
	_, span := p.tracer.Start(ctx, "ingest.chunk")
	defer func() { endSpan(span, err) }()

	chunks, err := p.chunker.Split(docs)
	if err != nil {
		return nil, fmt.Errorf("chunk documents: %w", err)
	}
	span.SetAttributes(attribute.Int("chunks", len(chunks)))
	return chunks, nil
}

func (p *Pipeline) build(ctx context.Context, chunks []domain.Chunk) (_ *memory.Index, err error) {
	ctx, span := p.tracer.Start(ctx, "ingest.index", trace.WithAttributes(
		attribute.String("embedder", p.embedder.Name()),
	))
	defer func() { endSpan(span, err) }()

	return memory.Build(ctx, p.embedder, chunks, p.index)
}

// overview never fails ingestion; a summarizer error only logs.
func (p *Pipeline) overview(ctx context.Context, docs []domain.Document) string {
	if p.summarizer == nil {
		return ""
	}
	texts := make([]string, len(docs))
	for i, d := range docs {
		texts[i] = d.Content
	}
	s, err := p.summarizer.Summarize(strings.Join(texts, "\n"), overviewSentences)
	if err != nil {
		p.logger.WarnContext(ctx, "overview failed", "error", err)
		return ""
	}
	return s
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, errorKind(err))
	}
	span.End()
}

// errorKind names the failure class for span status.
func errorKind(err error) string {
	var (
		ue *domain.UnsupportedFormatError
		de *domain.DecryptionError
		ee *domain.ExtractionError
	)
	switch {
	case errors.As(err, &ue):
		return "unsupported_format"
	case errors.As(err, &de):
		return "decryption: " + de.Kind.String()
	case errors.As(err, &ee):
		return "extraction"
	case errors.Is(err, domain.ErrEmptyIndex):
		return "empty_index"
	default:
		return err.Error()
	}
}
