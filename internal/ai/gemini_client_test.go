package ai

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
)

func TestExtractResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("Atlas "), genai.Text("is a database.")}},
		}},
	}
	if got := extractResponseText(resp); got != "Atlas is a database." {
		t.Errorf("extractResponseText = %q", got)
	}
	if got := extractResponseText(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("empty response gave %q", got)
	}
	if got := extractResponseText(nil); got != "" {
		t.Errorf("nil response gave %q", got)
	}
}

func TestGeminiLive(t *testing.T) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		t.Skip("GEMINI_API_KEY not set, skipping live Gemini test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	provider, err := NewGeminiProvider(ctx, apiKey, "gemini-2.0-flash")
	if err != nil {
		t.Fatalf("NewGeminiProvider: %v", err)
	}
	defer provider.Close()

	fragments := 0
	err = provider.Stream(ctx, "Reply with the single word: pong", CallOptions{MaxOutputTokens: 16}, func(string) error {
		fragments++
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if fragments == 0 {
		t.Error("expected at least one fragment")
	}

	embedder, err := NewGoogleEmbedder(ctx, apiKey, "text-embedding-004")
	if err != nil {
		t.Fatalf("NewGoogleEmbedder: %v", err)
	}
	defer embedder.Close()

	vectors, err := embedder.Embed(ctx, []string{"refund policy"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		t.Errorf("unexpected vectors: %d", len(vectors))
	}
}
