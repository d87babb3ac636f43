package vectorindex

import (
	"context"
	"fmt"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/telemetry"

	"go.mongodb.org/mongo-driver/mongo"
)

// NewBackend selects the store named by VECTOR_BACKEND. db is only used by the mongo backend.
func NewBackend(cfg *config.Config, db *mongo.Database) (Backend, error) {
	switch cfg.VectorBackend {
	case "mongo", "":
		if db == nil {
			return nil, fmt.Errorf("mongo backend requires a database connection")
		}
		return NewMongoBackend(db, cfg.ChunksCollection), nil
	case "qdrant":
		return NewQdrantBackend(cfg.QdrantURL, cfg.QdrantAPIKey, 0), nil
	case "memory":
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND: %s", cfg.VectorBackend)
	}
}

// NewInitFunc returns an initializer that builds a client and ensures the configured index.
func NewInitFunc(cfg *config.Config, backend Backend, embedder Embedder, metrics *telemetry.Metrics) InitFunc {
	return func(ctx context.Context) (*Client, error) {
		client := NewClient(backend, embedder, Options{
			InitTimeout:  cfg.IndexInitTimeout,
			PollInterval: cfg.IndexReadyPollInterval,
			Metrics:      metrics,
		})
		if err := client.EnsureIndex(ctx, cfg.VectorIndexName, cfg.VectorDimensions, cfg.VectorMetric); err != nil {
			return nil, err
		}
		return client, nil
	}
}
