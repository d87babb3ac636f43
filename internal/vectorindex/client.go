package vectorindex

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errIndexNotReady = errors.New("vector index is not ready")

// Options tune index lifecycle and batching.
type Options struct {
	// InitTimeout bounds the readiness wait after index creation.
	InitTimeout  time.Duration
	PollInterval time.Duration
	BatchSize    int
	Metrics      *telemetry.Metrics
}

// Client embeds chunks and queries through a Backend.
type Client struct {
	backend  Backend
	embedder Embedder
	opts     Options

	mu    sync.RWMutex
	spec  IndexSpec
	ready bool
}

func NewClient(backend Backend, embedder Embedder, opts Options) *Client {
	if opts.InitTimeout <= 0 {
		opts.InitTimeout = 3 * time.Minute
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 100
	}
	return &Client{backend: backend, embedder: embedder, opts: opts}
}

func (c *Client) currentSpec() (IndexSpec, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.spec, c.ready
}

// EnsureIndex creates the named index unless it already exists. A new index is polled
// until the backend reports it ready, for at most InitTimeout.
func (c *Client) EnsureIndex(ctx context.Context, name string, dimension int, metric string) error {
	ctx, span := telemetry.Tracer("vectorindex").Start(ctx, "vectorindex.ensure_index")
	defer span.End()
	span.SetAttributes(
		attribute.String("index.name", name),
		attribute.String("index.backend", c.backend.Name()),
		attribute.Int("index.dimension", dimension),
	)

	if name == "" || dimension <= 0 {
		return apperr.New(apperr.ErrIndexCreation, "vectorindex.EnsureIndex", "invalid index spec %q/%d", name, dimension)
	}
	spec := IndexSpec{Name: name, Dimension: dimension, Metric: metric}

	exists, err := c.backend.IndexExists(ctx, spec)
	if err != nil {
		return c.creationFailed(ctx, span, "list indexes", err)
	}

	if exists {
		logger.Info("Vector index already exists", "index", name, "backend", c.backend.Name())
		ready, err := c.backend.IndexReady(ctx, spec)
		if err != nil {
			logger.Warn("Could not read index readiness", "index", name, "error", err)
		}
		c.setSpec(spec, ready)
		span.SetAttributes(attribute.Bool("index.created", false))
		return nil
	}

	logger.Info("Creating vector index", "index", name, "dimension", dimension, "metric", metric)
	if err := c.backend.CreateIndex(ctx, spec); err != nil {
		return c.creationFailed(ctx, span, "create index", err)
	}
	c.setSpec(spec, false)
	span.SetAttributes(attribute.Bool("index.created", true))

	if err := c.waitReady(ctx, spec); err != nil {
		return c.creationFailed(ctx, span, "wait for readiness", err)
	}

	c.setSpec(spec, true)
	c.opts.Metrics.RecordIndexOperation(ctx, "create", c.backend.Name(), true)
	logger.Info("Vector index ready", "index", name)
	return nil
}

// waitReady polls with a bounded number of attempts derived from InitTimeout/PollInterval.
func (c *Client) waitReady(ctx context.Context, spec IndexSpec) error {
	attempts := int(c.opts.InitTimeout / c.opts.PollInterval)
	if attempts < 1 {
		attempts = 1
	}

	timer := time.NewTimer(0)
	defer timer.Stop()

	for attempt := 1; attempt <= attempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		ready, err := c.backend.IndexReady(ctx, spec)
		if err != nil {
			return err
		}
		if ready {
			return nil
		}
		logger.Debug("Vector index not ready yet", "index", spec.Name, "attempt", attempt, "max_attempts", attempts)
		timer.Reset(c.opts.PollInterval)
	}
	return fmt.Errorf("index %s not ready after %d polls (%s)", spec.Name, attempts, c.opts.InitTimeout)
}

func (c *Client) setSpec(spec IndexSpec, ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spec = spec
	c.ready = ready
}

func (c *Client) creationFailed(ctx context.Context, span trace.Span, step string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, step)
	c.opts.Metrics.RecordIndexOperation(ctx, "create", c.backend.Name(), false)
	logger.Error("Vector index creation failed", "step", step, "backend", c.backend.Name(), "error", err)
	return apperr.Wrap(apperr.ErrIndexCreation, "vectorindex.EnsureIndex", fmt.Errorf("%s: %w", step, err))
}

// Upsert embeds and stores chunks in batches. Re-upserting a chunk id replaces it.
func (c *Client) Upsert(ctx context.Context, chunks []models.Chunk) (int, error) {
	ctx, span := telemetry.Tracer("vectorindex").Start(ctx, "vectorindex.upsert")
	defer span.End()
	span.SetAttributes(attribute.Int("index.chunks", len(chunks)))

	spec, _ := c.currentSpec()
	if spec.Name == "" {
		return 0, apperr.New(apperr.ErrIndexWrite, "vectorindex.Upsert", "index not initialized, call EnsureIndex first")
	}

	written := 0
	for start := 0; start < len(chunks); start += c.opts.BatchSize {
		end := min(start+c.opts.BatchSize, len(chunks))
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, ch := range batch {
			texts[i] = ch.Text
		}

		vectors, err := c.embedder.Embed(ctx, texts)
		if err != nil {
			return written, c.writeFailed(ctx, span, fmt.Errorf("embed batch %d-%d: %w", start, end, err))
		}
		if len(vectors) != len(batch) {
			return written, c.writeFailed(ctx, span, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(batch)))
		}

		now := time.Now().UTC()
		records := make([]models.EmbeddedChunk, len(batch))
		for i, ch := range batch {
			if len(vectors[i]) != spec.Dimension {
				return written, c.writeFailed(ctx, span, fmt.Errorf("chunk %s: embedding has %d dimensions, index expects %d", ch.ID, len(vectors[i]), spec.Dimension))
			}
			records[i] = models.EmbeddedChunk{Chunk: ch, Vector: vectors[i], UpdatedAt: now}
		}

		if err := c.backend.Upsert(ctx, spec, records); err != nil {
			return written, c.writeFailed(ctx, span, err)
		}
		written += len(records)
		logger.Debug("Upserted chunk batch", "index", spec.Name, "from", start, "to", end)
	}

	c.opts.Metrics.RecordIndexOperation(ctx, "upsert", c.backend.Name(), true)
	return written, nil
}

func (c *Client) writeFailed(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, "upsert failed")
	c.opts.Metrics.RecordIndexOperation(ctx, "upsert", c.backend.Name(), false)
	logger.Error("Vector index upsert failed", "backend", c.backend.Name(), "error", err)
	return apperr.Wrap(apperr.ErrIndexWrite, "vectorindex.Upsert", err)
}

// Query embeds text with the ingestion embedder and returns the top k chunks by similarity.
func (c *Client) Query(ctx context.Context, text string, k int) ([]Match, error) {
	ctx, span := telemetry.Tracer("vectorindex").Start(ctx, "vectorindex.query")
	defer span.End()
	span.SetAttributes(attribute.Int("index.k", k), attribute.String("index.backend", c.backend.Name()))

	matches, err := c.query(ctx, text, k)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "query failed")
		c.opts.Metrics.RecordIndexOperation(ctx, "query", c.backend.Name(), false)
		logger.Error("Vector index query failed", "backend", c.backend.Name(), "error", err)
		return nil, apperr.Wrap(apperr.ErrQuery, "vectorindex.Query", err)
	}

	span.SetAttributes(attribute.Int("index.matches", len(matches)))
	c.opts.Metrics.RecordIndexOperation(ctx, "query", c.backend.Name(), true)
	return matches, nil
}

func (c *Client) query(ctx context.Context, text string, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	spec, ready := c.currentSpec()
	if spec.Name == "" {
		return nil, errIndexNotReady
	}
	if !ready {
		// The index may have finished building since EnsureIndex returned.
		nowReady, err := c.backend.IndexReady(ctx, spec)
		if err != nil {
			return nil, err
		}
		if !nowReady {
			return nil, errIndexNotReady
		}
		c.setSpec(spec, true)
	}

	vectors, err := c.embedder.Embed(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) != 1 || len(vectors[0]) != spec.Dimension {
		return nil, fmt.Errorf("query embedding does not match index dimension %d", spec.Dimension)
	}

	return c.backend.Search(ctx, spec, vectors[0], k)
}

// Status reports what the backend knows about the index.
func (c *Client) Status(ctx context.Context) (models.IndexStatus, error) {
	spec, _ := c.currentSpec()
	status := models.IndexStatus{
		Name:      spec.Name,
		Backend:   c.backend.Name(),
		Dimension: spec.Dimension,
		Metric:    spec.Metric,
	}
	if spec.Name == "" {
		return status, nil
	}

	exists, err := c.backend.IndexExists(ctx, spec)
	if err != nil {
		return status, apperr.Wrap(apperr.ErrQuery, "vectorindex.Status", err)
	}
	status.Exists = exists
	if !exists {
		return status, nil
	}

	if status.Ready, err = c.backend.IndexReady(ctx, spec); err != nil {
		return status, apperr.Wrap(apperr.ErrQuery, "vectorindex.Status", err)
	}
	if status.Count, err = c.backend.Count(ctx, spec); err != nil {
		return status, apperr.Wrap(apperr.ErrQuery, "vectorindex.Status", err)
	}
	return status, nil
}

// Reset removes every stored chunk while keeping the index definition.
func (c *Client) Reset(ctx context.Context) error {
	spec, _ := c.currentSpec()
	if spec.Name == "" {
		return apperr.New(apperr.ErrIndexWrite, "vectorindex.Reset", "index not initialized")
	}
	if err := c.backend.Reset(ctx, spec); err != nil {
		return apperr.Wrap(apperr.ErrIndexWrite, "vectorindex.Reset", err)
	}
	logger.Info("Vector index reset", "index", spec.Name)
	return nil
}
