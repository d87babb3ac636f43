package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/models"

	"github.com/hibiken/asynq"
)

const (
	TaskIngestPDF = "pdf:ingest"
	QueueIngest   = "critical"
)

type IngestPayload struct {
	Path  string `json:"path"`
	Reset bool   `json:"reset"`
}

// NewIngestTask builds an ingestion task. Only one task per path may be queued at a time.
func NewIngestTask(path string, reset bool) (*asynq.Task, error) {
	payload, err := json.Marshal(IngestPayload{Path: path, Reset: reset})
	if err != nil {
		return nil, err
	}

	return asynq.NewTask(
		TaskIngestPDF,
		payload,
		asynq.MaxRetry(3),
		asynq.Timeout(30*time.Minute),
		asynq.Queue(QueueIngest),
		asynq.Unique(time.Hour),
	), nil
}

// RedisClientOpt maps the shared Redis settings onto asynq's connection options.
func RedisClientOpt(cfg *config.Config) (asynq.RedisClientOpt, error) {
	opt, err := config.RedisOptions(cfg)
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}
	return asynq.RedisClientOpt{
		Addr:      opt.Addr,
		Username:  opt.Username,
		Password:  opt.Password,
		DB:        opt.DB,
		TLSConfig: opt.TLSConfig,
	}, nil
}

// Ingester runs one ingestion of a document.
type Ingester interface {
	Ingest(ctx context.Context, path string, reset bool) (*models.IngestionReport, error)
}

type TaskProcessor struct {
	ingester Ingester
}

func NewTaskProcessor(ingester Ingester) *TaskProcessor {
	return &TaskProcessor{ingester: ingester}
}

func (p *TaskProcessor) ProcessIngest(ctx context.Context, t *asynq.Task) error {
	var payload IngestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Path == "" {
		return fmt.Errorf("ingest task without path: %w", asynq.SkipRetry)
	}

	logger.Info("Processing ingestion task", "path", payload.Path, "reset", payload.Reset)

	report, err := p.ingester.Ingest(ctx, payload.Path, payload.Reset)
	if err != nil {
		// A document that cannot be read or split will not succeed on retry.
		if errors.Is(err, apperr.ErrLoad) || errors.Is(err, apperr.ErrSplit) {
			return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
		}
		return err
	}

	if w := t.ResultWriter(); w != nil {
		if data, err := json.Marshal(report); err == nil {
			if _, err := w.Write(data); err != nil {
				logger.Warn("Failed to write task result", "error", err)
			}
		}
	}
	return nil
}

// Register wires the handlers onto an asynq mux.
func (p *TaskProcessor) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskIngestPDF, p.ProcessIngest)
}
