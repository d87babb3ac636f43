package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/models"

	"github.com/hibiken/asynq"
)

type fakeIngester struct {
	path  string
	reset bool
	err   error
}

func (f *fakeIngester) Ingest(ctx context.Context, path string, reset bool) (*models.IngestionReport, error) {
	f.path, f.reset = path, reset
	if f.err != nil {
		return nil, f.err
	}
	return &models.IngestionReport{Source: path, ChunkCount: 3}, nil
}

func TestNewIngestTask(t *testing.T) {
	task, err := NewIngestTask("docs/atlas.pdf", true)
	if err != nil {
		t.Fatalf("NewIngestTask: %v", err)
	}
	if task.Type() != TaskIngestPDF {
		t.Errorf("type = %q", task.Type())
	}
	var payload IngestPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		t.Fatal(err)
	}
	if payload.Path != "docs/atlas.pdf" || !payload.Reset {
		t.Errorf("payload = %+v", payload)
	}
}

func TestProcessIngestRunsIngester(t *testing.T) {
	ingester := &fakeIngester{}
	task, _ := NewIngestTask("docs/atlas.pdf", true)

	if err := NewTaskProcessor(ingester).ProcessIngest(context.Background(), task); err != nil {
		t.Fatalf("ProcessIngest: %v", err)
	}
	if ingester.path != "docs/atlas.pdf" || !ingester.reset {
		t.Errorf("ingester got path=%q reset=%v", ingester.path, ingester.reset)
	}
}

func TestProcessIngestSkipsRetryForBadDocuments(t *testing.T) {
	ingester := &fakeIngester{err: apperr.New(apperr.ErrLoad, "test", "missing file")}
	task, _ := NewIngestTask("missing.pdf", false)

	err := NewTaskProcessor(ingester).ProcessIngest(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) || !errors.Is(err, apperr.ErrLoad) {
		t.Fatalf("expected skip-retry load error, got %v", err)
	}
}

func TestProcessIngestRetriesIndexFailures(t *testing.T) {
	ingester := &fakeIngester{err: apperr.New(apperr.ErrIndexWrite, "test", "atlas timeout")}
	task, _ := NewIngestTask("docs/atlas.pdf", false)

	err := NewTaskProcessor(ingester).ProcessIngest(context.Background(), task)
	if err == nil || errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected retryable error, got %v", err)
	}
}

func TestProcessIngestRejectsBadPayload(t *testing.T) {
	task := asynq.NewTask(TaskIngestPDF, []byte("{not json"))
	err := NewTaskProcessor(&fakeIngester{}).ProcessIngest(context.Background(), task)
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("expected skip retry, got %v", err)
	}
}

func TestRedisClientOpt(t *testing.T) {
	opt, err := RedisClientOpt(&config.Config{RedisURL: "redis://:pw@cache:6380/2"})
	if err != nil {
		t.Fatalf("RedisClientOpt: %v", err)
	}
	if opt.Addr != "cache:6380" || opt.Password != "pw" || opt.DB != 2 {
		t.Errorf("opt = %+v", opt)
	}
}
