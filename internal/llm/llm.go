// Package llm adapts chat completion APIs to domain.Completer. Every
// provider runs at temperature 0 and is wrapped in a bounded retry.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"statementqa/internal/config"
	"statementqa/internal/domain"
	"statementqa/internal/retry"
)

var errEmptyResponse = errors.New("empty completion")

// New builds the completer chosen by cfg.Provider, already wrapped in Retrying.
func New(ctx context.Context, cfg config.LLMConfig, apiKey string, logger *slog.Logger) (domain.Completer, error) {
	policy := retry.Default()
	policy.Retries = cfg.MaxRetries
	opts := []Option{
		WithAPIKey(apiKey),
		WithModel(cfg.Model),
		WithBaseURL(cfg.BaseURL),
		WithTimeout(time.Duration(cfg.TimeoutSecs) * time.Second),
		WithRetry(policy),
		WithLogger(logger),
	}

	var (
		c   domain.Completer
		err error
	)
	switch cfg.Provider {
	case "google", "":
		c, err = NewGoogle(ctx, opts...)
	case "openai":
		c, err = NewOpenAI(opts...)
	case "anthropic":
		c, err = NewAnthropic(opts...)
	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewRetrying(c, opts...), nil
}

// Retrying retries a Completer per its policy and reports exhaustion as a
// domain.CompletionError.
type Retrying struct {
	next   domain.Completer
	policy retry.Policy
	logger *slog.Logger
}

func NewRetrying(next domain.Completer, opts ...Option) *Retrying {
	o := NewOptions(opts...)
	return &Retrying{next: next, policy: o.Retry, logger: o.Logger}
}

func (r *Retrying) Complete(ctx context.Context, prompt string) (string, error) {
	var out string
	attempts, err := r.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		out, err = r.next.Complete(ctx, prompt)
		if err == nil && out == "" {
			err = errEmptyResponse
		}
		if err != nil {
			r.logger.WarnContext(ctx, "completion attempt failed", "error", err)
		}
		return err
	})
	if err != nil {
		return "", &domain.CompletionError{Attempts: attempts, Err: err}
	}
	return out, nil
}
