package llm

import (
	"context"
	"errors"
	"math"

	goopenai "github.com/sashabaranov/go-openai"
)

type OpenAICompleter struct {
	options Options
	client  *goopenai.Client
}

// NewOpenAI returns a completer for any OpenAI-compatible chat endpoint.
func NewOpenAI(opts ...Option) (*OpenAICompleter, error) {
	options := NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("openai: empty API key")
	}
	if options.Model == "" {
		options.Model = goopenai.GPT4oMini
	}
	cfg := goopenai.DefaultConfig(options.APIKey)
	if options.BaseURL != "" {
		cfg.BaseURL = options.BaseURL
	}
	cfg.HTTPClient = options.HTTPClient
	return &OpenAICompleter{options: options, client: goopenai.NewClientWithConfig(cfg)}, nil
}

func (g *OpenAICompleter) Complete(ctx context.Context, prompt string) (string, error) {
	req := goopenai.ChatCompletionRequest{
		Model: g.options.Model,
		Messages: []goopenai.ChatCompletionMessage{
			{
				Role:    goopenai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		// A literal 0 is dropped by omitempty and the server default applies.
		Temperature: math.SmallestNonzeroFloat32,
	}

	rsp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", err
	}
	if len(rsp.Choices) == 0 || len(rsp.Choices[0].Message.Content) == 0 {
		return "", errors.New("no response from OpenAI")
	}
	return rsp.Choices[0].Message.Content, nil
}
