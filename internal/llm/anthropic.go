package llm

import (
	"context"
	"errors"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	anthropicopt "github.com/anthropics/anthropic-sdk-go/option"
)

type AnthropicCompleter struct {
	options Options
	client  *anthropic.Client
}

// NewAnthropic returns a Claude completer. SDK-level retries are off; the
// Retrying wrapper owns the policy.
func NewAnthropic(opts ...Option) (*AnthropicCompleter, error) {
	options := NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("anthropic: empty API key")
	}
	if options.Model == "" {
		options.Model = "claude-3-5-haiku-latest"
	}
	ropts := []anthropicopt.RequestOption{
		anthropicopt.WithAPIKey(options.APIKey),
		anthropicopt.WithHTTPClient(options.HTTPClient),
		anthropicopt.WithMaxRetries(0),
	}
	if options.BaseURL != "" {
		ropts = append(ropts, anthropicopt.WithBaseURL(options.BaseURL))
	}
	client := anthropic.NewClient(ropts...)
	return &AnthropicCompleter{options: options, client: &client}, nil
}

func (g *AnthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(g.options.Model),
		MaxTokens:   2048,
		Temperature: anthropic.Float(0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	}

	rsp, err := g.client.Messages.New(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for _, content := range rsp.Content {
		if text, ok := content.AsAny().(anthropic.TextBlock); ok {
			b.WriteString(text.Text)
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no response from Anthropic")
	}
	return b.String(), nil
}
