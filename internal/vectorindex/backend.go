// Package vectorindex stores embedded chunks and answers similarity queries.
package vectorindex

import (
	"context"
	"math"

	"pdf-chat-backend/models"
)

// IndexSpec names an index and fixes its vector shape.
type IndexSpec struct {
	Name      string
	Dimension int
	Metric    string
}

// Match is one retrieved chunk with its similarity score.
type Match struct {
	Chunk models.Chunk
	Score float64
}

// Backend is a vector store that owns the physical index.
type Backend interface {
	Name() string
	IndexExists(ctx context.Context, spec IndexSpec) (bool, error)
	CreateIndex(ctx context.Context, spec IndexSpec) error
	IndexReady(ctx context.Context, spec IndexSpec) (bool, error)
	// Upsert must replace records that share a chunk id.
	Upsert(ctx context.Context, spec IndexSpec, records []models.EmbeddedChunk) error
	// Search returns at most k matches ordered by descending score.
	Search(ctx context.Context, spec IndexSpec, vector []float32, k int) ([]Match, error)
	Count(ctx context.Context, spec IndexSpec) (int64, error)
	Reset(ctx context.Context, spec IndexSpec) error
}

// Embedder turns text into vectors of a fixed dimension.
type Embedder interface {
	Model() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
