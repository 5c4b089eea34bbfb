package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/google/generative-ai-go/genai"
	genaiopt "google.golang.org/api/option"
)

type GoogleCompleter struct {
	options Options
	client  *genai.Client
}

// NewGoogle returns a Gemini completer. The model defaults to gemini-2.0-flash.
func NewGoogle(ctx context.Context, opts ...Option) (*GoogleCompleter, error) {
	options := NewOptions(opts...)
	if options.APIKey == "" {
		return nil, errors.New("google: empty API key")
	}
	if options.Model == "" {
		options.Model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, genaiopt.WithAPIKey(options.APIKey))
	if err != nil {
		return nil, err
	}
	return &GoogleCompleter{options: options, client: client}, nil
}

func (g *GoogleCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.options.Model)
	model.SetTemperature(0)

	rsp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	if len(rsp.Candidates) == 0 || rsp.Candidates[0].Content == nil || len(rsp.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Google")
	}

	var b strings.Builder
	for _, part := range rsp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String(), nil
}

func (g *GoogleCompleter) Close() error { return g.client.Close() }
