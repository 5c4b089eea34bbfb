package chunker

import (
	"errors"
	"fmt"
	"maps"
	"strings"
	"unicode/utf8"

	"statementqa/internal/domain"
)

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 100
)

// DefaultSeparators tries paragraph, line and word boundaries before falling
// back to single characters.
var DefaultSeparators = []string{"\n\n", "\n", " ", ""}

// RecursiveChunker splits text on the coarsest separator that occurs in it,
// recursing into pieces that are still too long, then merges neighbouring
// pieces back up to ChunkSize with up to ChunkOverlap characters carried
// over between consecutive chunks. Lengths are counted in runes.
type RecursiveChunker struct {
	chunkSize    int
	chunkOverlap int
	separators   []string
}

// NewRecursiveChunker validates the parameters. A nil separators slice uses
// DefaultSeparators. The size limit is only guaranteed when the list ends
// with the empty separator.
func NewRecursiveChunker(chunkSize, chunkOverlap int, separators []string) (*RecursiveChunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", chunkSize)
	}
	if chunkOverlap < 0 || chunkOverlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap must be in [0, %d), got %d", chunkSize, chunkOverlap)
	}
	if separators == nil {
		separators = DefaultSeparators
	}
	if len(separators) == 0 {
		return nil, errors.New("at least one separator is required")
	}
	return &RecursiveChunker{
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		separators:   append([]string(nil), separators...),
	}, nil
}

// Default returns a chunker with the 1000/100 defaults.
func Default() *RecursiveChunker {
	c, _ := NewRecursiveChunker(DefaultChunkSize, DefaultChunkOverlap, nil)
	return c
}

// Split chunks every document in order. Chunk indices run across the whole
// input; each chunk copies its document's metadata and adds chunk_index.
func (c *RecursiveChunker) Split(docs []domain.Document) ([]domain.Chunk, error) {
	var chunks []domain.Chunk
	for _, doc := range docs {
		for _, text := range c.SplitText(doc.Content) {
			idx := len(chunks)
			meta := maps.Clone(doc.Metadata)
			if meta == nil {
				meta = map[string]any{}
			}
			meta["chunk_index"] = idx
			chunks = append(chunks, domain.Chunk{
				ID:       fmt.Sprintf("chunk-%d", idx),
				Text:     text,
				Index:    idx,
				Metadata: meta,
			})
		}
	}
	return chunks, nil
}

// SplitText returns the chunks of a single text.
func (c *RecursiveChunker) SplitText(text string) []string {
	if runeLen(strings.TrimSpace(text)) <= c.chunkSize {
		if t := strings.TrimSpace(text); t != "" {
			return []string{t}
		}
		return nil
	}
	return c.split(text, c.separators)
}

func (c *RecursiveChunker) split(text string, separators []string) []string {
	sep := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			sep = s
			break
		}
		if strings.Contains(text, s) {
			sep = s
			rest = separators[i+1:]
			break
		}
	}

	var out, good []string
	for _, piece := range splitNonEmpty(text, sep) {
		if runeLen(piece) < c.chunkSize {
			good = append(good, piece)
			continue
		}
		if len(good) > 0 {
			out = append(out, c.merge(good, sep)...)
			good = nil
		}
		if len(rest) == 0 {
			out = append(out, piece)
		} else {
			out = append(out, c.split(piece, rest)...)
		}
	}
	if len(good) > 0 {
		out = append(out, c.merge(good, sep)...)
	}
	return out
}

// merge packs pieces into chunks no longer than chunkSize. When a chunk is
// emitted, pieces are dropped from the front until what remains fits the
// overlap and leaves room for the next piece.
func (c *RecursiveChunker) merge(pieces []string, sep string) []string {
	sepLen := runeLen(sep)
	var (
		out     []string
		current []string
		total   int
	)
	joinLen := func() int {
		if len(current) > 0 {
			return sepLen
		}
		return 0
	}
	for _, p := range pieces {
		n := runeLen(p)
		if total+n+joinLen() > c.chunkSize && len(current) > 0 {
			if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
				out = append(out, doc)
			}
			for total > c.chunkOverlap || (total+n+joinLen() > c.chunkSize && total > 0) {
				total -= runeLen(current[0])
				if len(current) > 1 {
					total -= sepLen
				}
				current = current[1:]
			}
		}
		current = append(current, p)
		total += n
		if len(current) > 1 {
			total += sepLen
		}
	}
	if doc := strings.TrimSpace(strings.Join(current, sep)); doc != "" {
		out = append(out, doc)
	}
	return out
}

func splitNonEmpty(text, sep string) []string {
	var parts []string
	if sep == "" {
		parts = make([]string, 0, len(text))
		for _, r := range text {
			parts = append(parts, string(r))
		}
		return parts
	}
	for _, p := range strings.Split(text, sep) {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func runeLen(s string) int { return utf8.RuneCountInString(s) }
