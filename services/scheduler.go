package services

import (
	"context"
	"sync"
	"time"

	"pdf-chat-backend/internal/logger"

	"github.com/go-co-op/gocron"
)

const reindexTag = "pdf-reindex"

// ReindexScheduler re-ingests the document whenever its checksum changes.
type ReindexScheduler struct {
	scheduler *gocron.Scheduler
	ingestion *IngestionService
	path      string
	timeout   time.Duration

	mu       sync.Mutex
	checksum string
}

func NewReindexScheduler(ingestion *IngestionService, path string) *ReindexScheduler {
	s := gocron.NewScheduler(time.UTC)
	s.TagsUnique()
	return &ReindexScheduler{
		scheduler: s,
		ingestion: ingestion,
		path:      path,
		timeout:   10 * time.Minute,
	}
}

// Start records the current checksum and checks for changes every interval.
func (r *ReindexScheduler) Start(interval time.Duration) error {
	if sum, err := FileChecksum(r.path); err == nil {
		r.checksum = sum
	} else {
		logger.Warn("Could not checksum document", "path", r.path, "error", err)
	}

	_, err := r.scheduler.Every(interval).Tag(reindexTag).WaitForSchedule().Do(func() {
		if _, err := r.CheckOnce(context.Background()); err != nil {
			logger.Error("Scheduled re-index failed", "path", r.path, "error", err)
		}
	})
	if err != nil {
		return err
	}
	r.scheduler.StartAsync()
	logger.Info("Re-index scheduler started", "path", r.path, "interval", interval.String())
	return nil
}

func (r *ReindexScheduler) Stop() {
	r.scheduler.Stop()
}

// CheckOnce re-ingests when the document changed since the last successful run.
func (r *ReindexScheduler) CheckOnce(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum, err := FileChecksum(r.path)
	if err != nil {
		return false, err
	}
	if sum == r.checksum {
		return false, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	logger.Info("Document changed, re-indexing", "path", r.path)
	if _, err := r.ingestion.Ingest(ctx, r.path, true); err != nil {
		return false, err
	}
	r.checksum = sum
	return true, nil
}
