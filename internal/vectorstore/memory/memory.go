package memory

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"golang.org/x/sync/errgroup"

	"statementqa/internal/domain"
)

// DefaultTopK is the number of chunks Retrieve returns when k <= 0.
const DefaultTopK = 4

// Options tunes Build.
type Options struct {
	BatchSize   int
	Concurrency int
	TopK        int
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 32
	}
	if o.Concurrency <= 0 {
		o.Concurrency = 4
	}
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	return o
}

// Index is an in-memory brute-force cosine index over one file's chunks. It
// is never mutated after Build and may be shared by concurrent readers.
type Index struct {
	embedder  domain.Embedder
	chunks    []domain.Chunk
	vectors   [][]float32
	norms     []float64
	dimension int
	topK      int
}

// Build embeds every chunk and returns the finished index. Zero chunks fail
// with domain.ErrEmptyIndex.
func Build(ctx context.Context, e domain.Embedder, chunks []domain.Chunk, opts Options) (*Index, error) {
	if len(chunks) == 0 {
		return nil, domain.ErrEmptyIndex
	}
	opts = opts.withDefaults()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors := make([][]float32, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for start := 0; start < len(texts); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(texts))
		g.Go(func() error {
			vecs, err := e.EmbedBatch(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embed chunks %d-%d: got %d vectors", start, end-1, len(vecs))
			}
			copy(vectors[start:end], vecs)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	dim := len(vectors[0])
	if dim == 0 {
		return nil, fmt.Errorf("embedder %s returned an empty vector", e.Name())
	}
	norms := make([]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return nil, fmt.Errorf("vector dimension mismatch: chunk %d has %d, want %d", i, len(v), dim)
		}
		norms[i] = norm(v)
	}

	return &Index{
		embedder:  e,
		chunks:    slices.Clone(chunks),
		vectors:   vectors,
		norms:     norms,
		dimension: dim,
		topK:      opts.TopK,
	}, nil
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int { return len(ix.chunks) }

// Dimension returns the vector length shared by all entries.
func (ix *Index) Dimension() int { return ix.dimension }

// Retrieve embeds query and returns the k most similar chunks, best first.
// Equal scores keep chunk order. k <= 0 uses the index default. When the
// query is orthogonal to every chunk, token overlap ranks them instead.
func (ix *Index) Retrieve(ctx context.Context, query string, k int) ([]domain.SearchResult, error) {
	if k <= 0 {
		k = ix.topK
	}
	q, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(q) != ix.dimension {
		return nil, fmt.Errorf("query dimension %d does not match index dimension %d", len(q), ix.dimension)
	}
	qn := norm(q)

	scores := make([]float64, len(ix.vectors))
	for i, v := range ix.vectors {
		scores[i] = cosine(v, ix.norms[i], q, qn)
	}
	if allZero(scores) {
		texts := make([]string, len(ix.chunks))
		for i, c := range ix.chunks {
			texts[i] = c.Text
		}
		scores = lexicalScores(query, texts)
	}
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int { return cmp.Compare(scores[b], scores[a]) })

	k = min(k, len(order))
	results := make([]domain.SearchResult, k)
	for i := 0; i < k; i++ {
		j := order[i]
		results[i] = domain.SearchResult{Chunk: ix.chunks[j], Score: scores[j]}
	}
	return results, nil
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}
