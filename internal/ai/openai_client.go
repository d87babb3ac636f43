package ai

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	oaioption "github.com/openai/openai-go/option"
)

// OpenAIProvider serves completions from the OpenAI chat completions API.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

// NewOpenAIProvider disables the SDK's built-in retries; failures go straight to the caller.
func NewOpenAIProvider(apiKey, model string, opts ...oaioption.RequestOption) *OpenAIProvider {
	opts = append([]oaioption.RequestOption{
		oaioption.WithAPIKey(apiKey),
		oaioption.WithMaxRetries(0),
	}, opts...)
	return &OpenAIProvider{client: openai.NewClient(opts...), model: model}
}

func (p *OpenAIProvider) Name() string { return "openai" }

func (p *OpenAIProvider) params(prompt string, opts CallOptions) openai.ChatCompletionNewParams {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
		Temperature: openai.Float(float64(opts.Temperature)),
	}
	if opts.MaxOutputTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(opts.MaxOutputTokens))
	}
	return params
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string, opts CallOptions) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, p.params(prompt, opts))
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("openai returned an empty completion")
	}
	return resp.Choices[0].Message.Content, nil
}

func (p *OpenAIProvider) Stream(ctx context.Context, prompt string, opts CallOptions, onFragment func(string) error) error {
	stream := p.client.Chat.Completions.NewStreaming(ctx, p.params(prompt, opts))
	defer stream.Close()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}
		if err := onFragment(chunk.Choices[0].Delta.Content); err != nil {
			return err
		}
	}
	return stream.Err()
}

func (p *OpenAIProvider) Close() error { return nil }
