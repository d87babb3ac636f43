package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	oaioption "github.com/openai/openai-go/option"
)

func newOpenAIServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Input      []string `json:"input"`
			Model      string   `json:"model"`
			Dimensions int      `json:"dimensions"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		type item struct {
			Object    string    `json:"object"`
			Index     int       `json:"index"`
			Embedding []float64 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		// Reverse order to check that results are placed by index.
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			vec := make([]float64, req.Dimensions)
			vec[0] = float64(len(req.Input[j]))
			data[i] = item{Object: "embedding", Index: j, Embedding: vec}
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  req.Model,
			"usage":  map[string]int{"prompt_tokens": 1, "total_tokens": 1},
		})
	})

	mux.HandleFunc("/v1/chat/completions", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Stream bool `json:"stream"`
		}
		json.NewDecoder(r.Body).Decode(&req)

		if !req.Stream {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4o-mini",`+
				`"choices":[{"index":0,"message":{"role":"assistant","content":"What is the refund policy?"},"finish_reason":"stop"}]}`)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Refunds ", "take ", "14 days."} {
			fmt.Fprintf(w, "data: {\"id\":\"c2\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"gpt-4o-mini\","+
				"\"choices\":[{\"index\":0,\"delta\":{\"content\":%q},\"finish_reason\":null}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIEmbedderPlacesVectorsByIndex(t *testing.T) {
	srv := newOpenAIServer(t)
	embedder := NewOpenAIEmbedder("test-key", "text-embedding-3-small", 8, oaioption.WithBaseURL(srv.URL+"/v1/"))

	vectors, err := embedder.Embed(context.Background(), []string{"a", "bbb", "cc"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 3 {
		t.Fatalf("got %d vectors", len(vectors))
	}
	for i, want := range []float32{1, 3, 2} {
		if len(vectors[i]) != 8 || vectors[i][0] != want {
			t.Errorf("vector %d = %v", i, vectors[i])
		}
	}
	if embedder.Model() != "openai/text-embedding-3-small" {
		t.Errorf("Model() = %s", embedder.Model())
	}
}

func TestOpenAIProviderGenerateAndStream(t *testing.T) {
	srv := newOpenAIServer(t)
	provider := NewOpenAIProvider("test-key", "gpt-4o-mini", oaioption.WithBaseURL(srv.URL+"/v1/"))

	got, err := provider.Generate(context.Background(), "rewrite", CallOptions{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "What is the refund policy?" {
		t.Errorf("Generate = %q", got)
	}

	var b strings.Builder
	err = provider.Stream(context.Background(), "answer", CallOptions{Temperature: 0.2}, func(s string) error {
		b.WriteString(s)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if b.String() != "Refunds take 14 days." {
		t.Errorf("streamed = %q", b.String())
	}
}
