package ai

import (
	"context"
	"fmt"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/telemetry"

	"github.com/google/generative-ai-go/genai"
	"github.com/openai/openai-go"
	oaioption "github.com/openai/openai-go/option"
	"google.golang.org/api/option"
)

// Gemini accepts at most 100 contents per batch request.
const googleBatchLimit = 100

// GoogleEmbedder embeds text with Google Generative AI (text-embedding-004 by default).
type GoogleEmbedder struct {
	client *genai.Client
	model  string
}

func NewGoogleEmbedder(ctx context.Context, apiKey, model string) (*GoogleEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("missing GEMINI_API_KEY for embeddings")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GoogleEmbedder{client: client, model: model}, nil
}

func (e *GoogleEmbedder) Model() string { return "google/" + e.model }

func (e *GoogleEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	model := e.client.EmbeddingModel(e.model)
	model.TaskType = genai.TaskTypeRetrievalDocument

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += googleBatchLimit {
		end := min(start+googleBatchLimit, len(texts))

		batch := model.NewBatch()
		for _, text := range texts[start:end] {
			batch.AddContent(genai.Text(text))
		}
		resp, err := model.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, err
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("expected %d embeddings, got %d", end-start, len(resp.Embeddings))
		}
		for _, emb := range resp.Embeddings {
			if emb == nil {
				return nil, fmt.Errorf("no embedding returned")
			}
			vectors = append(vectors, emb.Values)
		}
	}
	return vectors, nil
}

func (e *GoogleEmbedder) Close() error { return e.client.Close() }

// OpenAIEmbedder embeds text with the OpenAI embeddings API.
type OpenAIEmbedder struct {
	client     openai.Client
	model      string
	dimensions int
}

func NewOpenAIEmbedder(apiKey, model string, dimensions int, opts ...oaioption.RequestOption) *OpenAIEmbedder {
	opts = append([]oaioption.RequestOption{
		oaioption.WithAPIKey(apiKey),
		oaioption.WithMaxRetries(0),
	}, opts...)
	return &OpenAIEmbedder{client: openai.NewClient(opts...), model: model, dimensions: dimensions}
}

func (e *OpenAIEmbedder) Model() string { return "openai/" + e.model }

func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
		Model: openai.EmbeddingModel(e.model),
	}
	if e.dimensions > 0 {
		params.Dimensions = openai.Int(int64(e.dimensions))
	}

	resp, err := e.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || int(d.Index) >= len(texts) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		vectors[d.Index] = vec
	}
	return vectors, nil
}

func (e *OpenAIEmbedder) Close() error { return nil }

// Embedder is the common shape of the embedding providers.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Close() error
}

// NewEmbedder picks the provider named by EMBEDDINGS_PROVIDER.
func NewEmbedder(ctx context.Context, cfg *config.Config) (Embedder, error) {
	switch cfg.EmbeddingsProvider {
	case "openai", "":
		return NewOpenAIEmbedder(cfg.OpenAIAPIKey, cfg.OpenAIEmbeddingsModel, cfg.VectorDimensions), nil
	case "google":
		embedder, err := NewGoogleEmbedder(ctx, cfg.GeminiAPIKey, cfg.GoogleEmbeddingsModel)
		if err != nil {
			return nil, err
		}
		return embedder, nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider: %s", cfg.EmbeddingsProvider)
	}
}

// NewProvider picks the completion provider named by LLM_PROVIDER.
func NewProvider(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.LLMProvider {
	case "gemini", "":
		provider, err := NewGeminiProvider(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return provider, nil
	case "openai":
		return NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIChatModel), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider: %s", cfg.LLMProvider)
	}
}

// NewModels builds the two completion clients the QA chain needs: a deterministic one for
// rewriting questions and one for streamed answers. Both share the provider.
func NewModels(provider Provider, cfg *config.Config, metrics *telemetry.Metrics) (condense, answer *CompletionClient) {
	condense = NewCompletionClient(provider, Settings{
		Name:              provider.Name() + "-condense",
		Temperature:       0,
		MaxOutputTokens:   256,
		RequestsPerMinute: cfg.LLMRPM,
	}, metrics)
	answer = NewCompletionClient(provider, Settings{
		Name:              provider.Name() + "-answer",
		Temperature:       float32(cfg.LLMTemperature),
		MaxOutputTokens:   2048,
		RequestsPerMinute: cfg.LLMRPM,
	}, metrics)
	return condense, answer
}
