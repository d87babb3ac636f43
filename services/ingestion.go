package services

import (
	"context"
	"time"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/models"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// ChunkIndex is where ingested chunks are written.
type ChunkIndex interface {
	Upsert(ctx context.Context, chunks []models.Chunk) (int, error)
	Reset(ctx context.Context) error
}

// IngestionService chunks a document and writes the chunks to the index.
type IngestionService struct {
	chunker   *Chunker
	index     ChunkIndex
	metrics   *telemetry.Metrics
	batchSize int
}

func NewIngestionService(chunker *Chunker, index ChunkIndex, metrics *telemetry.Metrics) *IngestionService {
	return &IngestionService{chunker: chunker, index: index, metrics: metrics, batchSize: 100}
}

// Ingest indexes the document at path. With reset, existing chunks are removed first.
func (s *IngestionService) Ingest(ctx context.Context, path string, reset bool) (*models.IngestionReport, error) {
	ctx, span := telemetry.Tracer("ingestion").Start(ctx, "ingestion.run")
	defer span.End()
	span.SetAttributes(attribute.String("ingestion.path", path), attribute.Bool("ingestion.reset", reset))

	report := &models.IngestionReport{Source: path, StartedAt: time.Now().UTC()}

	fail := func(err error) (*models.IngestionReport, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, "ingestion failed")
		report.Duration = time.Since(report.StartedAt)
		s.metrics.RecordIngestion(ctx, report.Duration.Seconds(), report.ChunkCount, "failed")
		logger.Error("Ingestion failed", "path", path, "chunks_written", report.ChunkCount, "error", err)
		return report, err
	}

	checksum, err := FileChecksum(path)
	if err != nil {
		return fail(err)
	}
	report.Checksum = checksum

	if reset {
		if err := s.index.Reset(ctx); err != nil {
			return fail(err)
		}
	}

	pages := make(map[int]struct{})
	batch := make([]models.Chunk, 0, s.batchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := s.index.Upsert(ctx, batch)
		report.ChunkCount += n
		batch = batch[:0]
		return err
	}

	for chunk, err := range s.chunker.Chunks(ctx, path) {
		if err != nil {
			return fail(err)
		}
		pages[chunk.Page] = struct{}{}
		batch = append(batch, chunk)
		if len(batch) == s.batchSize {
			if err := flush(); err != nil {
				return fail(err)
			}
		}
	}
	if err := flush(); err != nil {
		return fail(err)
	}

	if report.ChunkCount == 0 {
		return fail(apperr.New(apperr.ErrSplit, "services.Ingest", "document %s produced no chunks", path))
	}

	report.Pages = len(pages)
	report.Duration = time.Since(report.StartedAt)
	span.SetAttributes(attribute.Int("ingestion.chunks", report.ChunkCount))
	s.metrics.RecordIngestion(ctx, report.Duration.Seconds(), report.ChunkCount, "success")
	logger.Info("Ingestion completed",
		"path", path,
		"pages", report.Pages,
		"chunks", report.ChunkCount,
		"duration_ms", report.Duration.Milliseconds(),
	)
	return report, nil
}
