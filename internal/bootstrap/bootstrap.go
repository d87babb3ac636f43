// Package bootstrap wires configuration into the shared runtime dependencies used by the
// API server, the worker and the command line tools.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"pdf-chat-backend/internal/ai"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/internal/vectorindex"
	"pdf-chat-backend/services"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

type App struct {
	Config  *config.Config
	Metrics *telemetry.Metrics

	Mongo *mongo.Client
	// Redis is nil when it could not be reached; callers must degrade without it.
	Redis *redis.Client

	Embedder  ai.Embedder
	Models    ai.Provider
	Index     *vectorindex.Provider
	Chunker   *services.Chunker
	Ingestion *services.IngestionService
	Chain     *services.Chain

	closers []func()
}

// New connects the stores and builds every service. The vector index itself is created
// lazily on first use.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	metrics, err := telemetry.InitMetrics()
	if err != nil {
		logger.Warn("Failed to initialize metrics", "error", err)
	}
	app.Metrics = metrics

	var db *mongo.Database
	if cfg.VectorBackend == "mongo" {
		client, err := config.ConnectMongoDB(cfg)
		if err != nil {
			return nil, err
		}
		app.Mongo = client
		app.closers = append(app.closers, func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			client.Disconnect(ctx)
		})
		db = client.Database(cfg.DBName)
		logger.Info("Connected to MongoDB", "database", cfg.DBName)
	}

	if rdb, err := config.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, embedding cache and rate limiting disabled", "error", err)
	} else {
		app.Redis = rdb
		app.closers = append(app.closers, func() { rdb.Close() })
	}

	embedder, err := ai.NewEmbedder(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	app.Embedder = embedder
	app.closers = append(app.closers, func() { embedder.Close() })

	var indexEmbedder vectorindex.Embedder = embedder
	if app.Redis != nil && cfg.EmbeddingCacheTTL > 0 {
		indexEmbedder = vectorindex.NewCachedEmbedder(embedder, app.Redis, cfg.EmbeddingCacheTTL, metrics)
	}

	backend, err := vectorindex.NewBackend(cfg, db)
	if err != nil {
		return nil, err
	}
	app.Index = vectorindex.NewProvider(vectorindex.NewInitFunc(cfg, backend, indexEmbedder, metrics))

	if app.Chunker, err = services.NewChunker(cfg.MaxChunkSize, cfg.ChunkOverlap); err != nil {
		return nil, err
	}
	app.Ingestion = services.NewIngestionService(app.Chunker, app.Index, metrics)

	provider, err := ai.NewProvider(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s provider: %w", cfg.LLMProvider, err)
	}
	app.Models = provider
	app.closers = append(app.closers, func() { provider.Close() })

	condense, answer := ai.NewModels(provider, cfg, metrics)
	app.Chain = services.NewChain(condense, answer, app.Index, services.ChainOptions{
		RetrievalK:   cfg.RetrievalK,
		SourcesLimit: cfg.SourcesLimit,
		Metrics:      metrics,
	})

	logger.Info("Dependencies initialized",
		"vector_backend", backend.Name(),
		"embedder", embedder.Model(),
		"llm_provider", provider.Name(),
	)
	ok = true
	return app, nil
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
