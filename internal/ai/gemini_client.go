package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider serves completions from Google's Gemini models.
type GeminiProvider struct {
	client *genai.Client
	model  string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiProvider{client: client, model: model}, nil
}

func (p *GeminiProvider) Name() string { return "gemini" }

func (p *GeminiProvider) generativeModel(opts CallOptions) *genai.GenerativeModel {
	model := p.client.GenerativeModel(p.model)
	model.SetTemperature(opts.Temperature)
	if opts.MaxOutputTokens > 0 {
		model.SetMaxOutputTokens(opts.MaxOutputTokens)
	}
	return model
}

func (p *GeminiProvider) Generate(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	resp, err := p.generativeModel(opts).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}
	text := extractResponseText(resp)
	if text == "" {
		return "", errors.New("gemini returned an empty completion")
	}
	return text, nil
}

func (p *GeminiProvider) Stream(ctx context.Context, prompt string, opts CallOptions, onFragment func(string) error) error {
	iter := p.generativeModel(opts).GenerateContentStream(ctx, genai.Text(prompt))
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if fragment := extractResponseText(resp); fragment != "" {
			if err := onFragment(fragment); err != nil {
				return err
			}
		}
	}
}

func (p *GeminiProvider) Close() error {
	if p.client != nil {
		return p.client.Close()
	}
	return nil
}

// extractResponseText concatenates the text parts of the first candidate.
func extractResponseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return b.String()
}
