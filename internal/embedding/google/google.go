// Package google embeds text with the Gemini embedding models.
package google

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"

	"statementqa/internal/retry"
)

// Embedder wraps a genai embedding model. Documents and queries are embedded
// with their matching retrieval task types.
type Embedder struct {
	client *genai.Client
	model  string
	policy retry.Policy
}

// New creates the client. The model defaults to text-embedding-004.
func New(ctx context.Context, apiKey, model string, maxRetries int, opts ...genaiopt.ClientOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, errors.New("google embeddings: empty API key")
	}
	if model == "" {
		model = "text-embedding-004"
	}
	client, err := genai.NewClient(ctx, append([]genaiopt.ClientOption{genaiopt.WithAPIKey(apiKey)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	policy := retry.Default()
	if maxRetries > 0 {
		policy.Retries = maxRetries
	}
	return &Embedder{client: client, model: model, policy: policy}, nil
}

func (e *Embedder) Name() string { return "google:" + e.model }

// Close releases the underlying client.
func (e *Embedder) Close() error { return e.client.Close() }

// Embed embeds a retrieval query.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalQuery

	var rsp *genai.EmbedContentResponse
	_, err := e.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		rsp, err = em.EmbedContent(ctx, genai.Text(text))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	if rsp == nil || rsp.Embedding == nil || len(rsp.Embedding.Values) == 0 {
		return nil, errors.New("no response from Google")
	}
	return rsp.Embedding.Values, nil
}

// EmbedBatch embeds document chunks in a single batch request.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	em := e.client.EmbeddingModel(e.model)
	em.TaskType = genai.TaskTypeRetrievalDocument

	var rsp *genai.BatchEmbedContentsResponse
	_, err := e.policy.Do(ctx, func(ctx context.Context) error {
		batch := em.NewBatch()
		for _, t := range texts {
			batch.AddContent(genai.Text(t))
		}
		var err error
		rsp, err = em.BatchEmbedContents(ctx, batch)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("google embeddings: %w", err)
	}
	if rsp == nil || len(rsp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("google embeddings: unexpected batch response for %d inputs", len(texts))
	}
	out := make([][]float32, len(texts))
	for i, emb := range rsp.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, errors.New("no response from Google")
		}
		out[i] = emb.Values
	}
	return out, nil
}
