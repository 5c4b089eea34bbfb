package domain

import "context"

// Document is one extracted text segment of an uploaded file together with
// its provenance (page number, sheet range, ...).
type Document struct {
	Content  string
	Metadata map[string]any
}

// Chunk is a bounded slice of a Document used as the unit of embedding and retrieval.
type Chunk struct {
	ID       string
	Text     string
	Index    int
	Metadata map[string]any
}

// SearchResult represents a matching chunk with a relevance score.
type SearchResult struct {
	Chunk Chunk
	Score float64
}

// UploadedFile is the raw upload handed to ingestion. The caller owns it for
// the duration of a single Ingest call.
type UploadedFile struct {
	Name string
	Data []byte
}

// Embedder converts free text into a fixed-length numeric vector.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Completer produces a text completion for a prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Searcher runs a live web search and returns a plain-text digest.
type Searcher interface {
	Search(ctx context.Context, query string) (string, error)
}

// Chunker splits documents into chunks suitable for retrieval indexing.
type Chunker interface {
	Split(docs []Document) ([]Chunk, error)
}

// Index answers nearest-k queries over the chunks of one uploaded file.
// Implementations are immutable once built.
type Index interface {
	Retrieve(ctx context.Context, query string, k int) ([]SearchResult, error)
	Len() int
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}
