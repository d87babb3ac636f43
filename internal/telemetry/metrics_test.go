package telemetry

import (
	"context"
	"testing"

	"pdf-chat-backend/internal/config"

	"go.opentelemetry.io/otel/metric/noop"
)

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	m.RecordRequest("GET", "/health", "success", 0.01)
	m.RecordStage(ctx, "retrieve", 0.2, true)
	m.RecordModelCall(ctx, "gemini", "stream", false)
	m.RecordFragments(ctx, 3)
	m.RecordIngestion(ctx, 1.5, 12, "completed")
	m.RecordIndexOperation(ctx, "query", "memory", true)
	m.RecordCacheLookup(ctx, true)
	m.RecordCircuitBreakerState("gemini", "open")
}

func TestNewMetricsRegistersInstruments(t *testing.T) {
	m, err := newMetrics(noop.NewMeterProvider().Meter("test"))
	if err != nil {
		t.Fatalf("newMetrics: %v", err)
	}
	if m.StageDuration == nil || m.ModelCalls == nil || m.EmbeddingCache == nil {
		t.Fatal("instruments not registered")
	}
	m.RecordStage(context.Background(), "condense", 0.1, true)
}

func TestInitTracerDisabled(t *testing.T) {
	shutdown, err := InitTracer(&config.Config{OTelEnabled: false})
	if err != nil {
		t.Fatalf("InitTracer: %v", err)
	}
	shutdown()
}
