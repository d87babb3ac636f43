package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds all application metrics. A nil *Metrics records nothing.
type Metrics struct {
	RequestCounter      metric.Int64Counter
	RequestDuration     metric.Float64Histogram
	StageDuration       metric.Float64Histogram
	ModelCalls          metric.Int64Counter
	StreamedFragments   metric.Int64Counter
	IngestionDuration   metric.Float64Histogram
	ChunksIndexed       metric.Int64Counter
	IndexOperations     metric.Int64Counter
	EmbeddingCache      metric.Int64Counter
	CircuitBreakerState metric.Int64Counter
}

// InitMetrics initializes all application metrics
func InitMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter(ServiceName))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	if m.RequestCounter, err = meter.Int64Counter(
		"http.requests.total",
		metric.WithDescription("Total HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.RequestDuration, err = meter.Float64Histogram(
		"http.request.duration",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.StageDuration, err = meter.Float64Histogram(
		"chain.stage.duration",
		metric.WithDescription("QA chain stage duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ModelCalls, err = meter.Int64Counter(
		"model.calls.total",
		metric.WithDescription("Completion model calls by mode and outcome"),
	); err != nil {
		return nil, err
	}

	if m.StreamedFragments, err = meter.Int64Counter(
		"model.stream.fragments",
		metric.WithDescription("Answer fragments forwarded to callers"),
	); err != nil {
		return nil, err
	}

	if m.IngestionDuration, err = meter.Float64Histogram(
		"ingestion.duration",
		metric.WithDescription("Document ingestion duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ChunksIndexed, err = meter.Int64Counter(
		"ingestion.chunks.indexed",
		metric.WithDescription("Chunks upserted into the vector index"),
	); err != nil {
		return nil, err
	}

	if m.IndexOperations, err = meter.Int64Counter(
		"vectorindex.operations.total",
		metric.WithDescription("Vector index operations"),
	); err != nil {
		return nil, err
	}

	if m.EmbeddingCache, err = meter.Int64Counter(
		"embedding.cache.lookups",
		metric.WithDescription("Embedding cache lookups by result"),
	); err != nil {
		return nil, err
	}

	if m.CircuitBreakerState, err = meter.Int64Counter(
		"circuit_breaker.state_changes",
		metric.WithDescription("Circuit breaker state changes"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRequest records HTTP request metrics
func (m *Metrics) RecordRequest(method, path, status string, duration float64) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", path),
		attribute.String("http.status", status),
	)
	m.RequestCounter.Add(context.Background(), 1, attrs)
	m.RequestDuration.Record(context.Background(), duration, attrs)
}

// RecordStage records the latency of one chain stage.
func (m *Metrics) RecordStage(ctx context.Context, stage string, duration float64, success bool) {
	if m == nil {
		return
	}
	m.StageDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("chain.stage", stage),
		attribute.Bool("chain.success", success),
	))
}

// RecordModelCall records one completion call.
func (m *Metrics) RecordModelCall(ctx context.Context, provider, mode string, success bool) {
	if m == nil {
		return
	}
	m.ModelCalls.Add(ctx, 1, metric.WithAttributes(
		attribute.String("model.provider", provider),
		attribute.String("model.mode", mode),
		attribute.Bool("model.success", success),
	))
}

func (m *Metrics) RecordFragments(ctx context.Context, count int) {
	if m == nil || count == 0 {
		return
	}
	m.StreamedFragments.Add(ctx, int64(count))
}

// RecordIngestion records ingestion metrics
func (m *Metrics) RecordIngestion(ctx context.Context, duration float64, chunks int, status string) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("ingestion.status", status))
	m.IngestionDuration.Record(ctx, duration, attrs)
	m.ChunksIndexed.Add(ctx, int64(chunks), attrs)
}

// RecordIndexOperation records vector index operation metrics
func (m *Metrics) RecordIndexOperation(ctx context.Context, operation, backend string, success bool) {
	if m == nil {
		return
	}
	m.IndexOperations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("index.operation", operation),
		attribute.String("index.backend", backend),
		attribute.Bool("index.success", success),
	))
}

func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.EmbeddingCache.Add(ctx, 1, metric.WithAttributes(attribute.String("cache.result", result)))
}

// RecordCircuitBreakerState records circuit breaker state changes
func (m *Metrics) RecordCircuitBreakerState(service, state string) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.Add(context.Background(), 1, metric.WithAttributes(
		attribute.String("service", service),
		attribute.String("state", state),
	))
}
