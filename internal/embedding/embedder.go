// Package embedding builds the configured text embedder.
package embedding

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"statementqa/internal/config"
	"statementqa/internal/domain"
	"statementqa/internal/embedding/google"
	"statementqa/internal/embedding/hashing"
	"statementqa/internal/embedding/openai"
)

// New returns the embedder selected by cfg.Type. apiKey is ignored by the
// offline hashing embedder.
func New(ctx context.Context, cfg config.EmbedderConfig, apiKey string) (domain.Embedder, error) {
	var (
		e   domain.Embedder
		err error
	)
	switch cfg.Type {
	case "google", "":
		e, err = google.New(ctx, apiKey, cfg.Model, 0)
	case "openai":
		e, err = openai.NewClient(openai.Config{
			APIKey:  apiKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: 30 * time.Second,
		})
	case "hashing":
		e, err = hashing.NewEmbedder(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedder: %q", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RatePerSec > 0 {
		e = WithRateLimit(e, cfg.RatePerSec)
	}
	return e, nil
}

// RateLimited blocks each call until the limiter admits it.
type RateLimited struct {
	domain.Embedder
	limiter *rate.Limiter
}

// WithRateLimit admits at most perSec calls per second to e, with a burst of one.
func WithRateLimit(e domain.Embedder, perSec float64) *RateLimited {
	return &RateLimited{Embedder: e, limiter: rate.NewLimiter(rate.Limit(perSec), 1)}
}

func (r *RateLimited) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Embedder.Embed(ctx, text)
}

func (r *RateLimited) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Embedder.EmbedBatch(ctx, texts)
}
