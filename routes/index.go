package routes

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/queue"
	"pdf-chat-backend/models"
	"pdf-chat-backend/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

// IndexInspector reports on the lazily created vector index.
type IndexInspector interface {
	Initialized() bool
	Status(ctx context.Context) (models.IndexStatus, error)
}

// TaskEnqueuer is satisfied by *asynq.Client.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// IngestKeyHeader carries the ingestion API key.
const IngestKeyHeader = "X-Ingest-Key"

var ingestExtensions = map[string]bool{".pdf": true, ".txt": true, ".md": true}

var errOutsideDocuments = errors.New("path is outside the documents directory")

// SetupIndexRoutes registers ingestion and index status routes. A nil enqueuer disables
// POST /api/ingest.
func SetupIndexRoutes(router *gin.Engine, cfg *config.Config, index IndexInspector, enqueuer TaskEnqueuer) {
	api := router.Group("/api")

	api.POST("/ingest", HandleIngest(cfg, enqueuer))

	api.GET("/index/status", func(c *gin.Context) {
		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		status, err := index.Status(ctx)
		if err != nil {
			logger.Error("Failed to read index status", "error", err)
			utils.RespondWithAppError(c, "Failed to read index status", err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"index":       status,
			"initialized": index.Initialized(),
		})
	})
}

// HandleIngest queues an ingestion of the configured document, or of an explicit path.
func HandleIngest(cfg *config.Config, enqueuer TaskEnqueuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		if enqueuer == nil {
			utils.RespondWithError(c, http.StatusServiceUnavailable, "queue_unavailable", "Ingestion queue is not configured", nil)
			return
		}

		hasKey := cfg.IngestAPIKey != "" &&
			subtle.ConstantTimeCompare([]byte(c.GetHeader(IngestKeyHeader)), []byte(cfg.IngestAPIKey)) == 1
		if cfg.IngestAPIKey != "" && !hasKey {
			utils.RespondWithError(c, http.StatusUnauthorized, "unauthorized", "Invalid or missing ingestion key", nil)
			return
		}

		var req models.IngestRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				utils.RespondWithBadRequest(c, "Invalid request data", gin.H{"error": err.Error()})
				return
			}
		}

		if req.Reset && !hasKey {
			utils.RespondWithError(c, http.StatusForbidden, "forbidden", "Index reset requires an ingestion key", nil)
			return
		}

		path, err := resolveDocumentPath(cfg, req.Path)
		if err != nil {
			logger.Warn("Rejected ingestion path", "path", req.Path, "error", err)
			utils.RespondWithError(c, http.StatusForbidden, "forbidden", "Document path is not allowed", nil)
			return
		}
		if !ingestExtensions[strings.ToLower(filepath.Ext(path))] {
			utils.RespondWithBadRequest(c, "Unsupported document type", gin.H{"path": req.Path})
			return
		}
		if info, err := os.Stat(path); err != nil || info.IsDir() {
			utils.RespondWithNotFound(c, "Document not found")
			return
		}

		task, err := queue.NewIngestTask(path, req.Reset)
		if err != nil {
			utils.RespondWithInternalError(c, "Failed to create ingestion task", nil)
			return
		}

		ctx, cancel := utils.WithShortTimeout(c.Request.Context())
		defer cancel()

		info, err := enqueuer.EnqueueContext(ctx, task)
		if err != nil {
			if errors.Is(err, asynq.ErrDuplicateTask) {
				utils.RespondWithError(c, http.StatusConflict, "duplicate_task", "An ingestion of this document is already queued", gin.H{"path": path})
				return
			}
			logger.Error("Failed to enqueue ingestion", "path", path, "error", err)
			utils.RespondWithError(c, http.StatusServiceUnavailable, "queue_unavailable", "Failed to enqueue ingestion", nil)
			return
		}

		logger.Info("Ingestion queued", "task_id", info.ID, "queue", info.Queue, "path", path, "reset", req.Reset)
		c.JSON(http.StatusAccepted, models.IngestResponse{
			TaskID:  info.ID,
			Queue:   info.Queue,
			Path:    path,
			Message: "Ingestion queued",
		})
	}
}

// resolveDocumentPath maps a requested path onto the documents directory. An empty
// request selects the configured document.
func resolveDocumentPath(cfg *config.Config, requested string) (string, error) {
	requested = strings.TrimSpace(requested)
	if requested == "" || filepath.Clean(requested) == filepath.Clean(cfg.PDFPath) {
		return cfg.PDFPath, nil
	}

	dir := cfg.DocumentsDir
	if dir == "" {
		dir = filepath.Dir(cfg.PDFPath)
	}
	root, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}

	path := requested
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if !within(root, path) {
		return "", errOutsideDocuments
	}

	// Symlinks must not lead out of the directory either.
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		realRoot, rootErr := filepath.EvalSymlinks(root)
		if rootErr != nil || !within(realRoot, resolved) {
			return "", errOutsideDocuments
		}
	}
	return path, nil
}

func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// SetupHealthRoutes registers liveness and readiness probes. Readiness checks the index
// without forcing its creation.
func SetupHealthRoutes(router *gin.Engine, index IndexInspector) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now()})
	})

	router.GET("/ready", func(c *gin.Context) {
		if !index.Initialized() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "initializing"})
			return
		}

		ctx, cancel := utils.WithTimeout(c.Request.Context())
		defer cancel()

		status, err := index.Status(ctx)
		if err != nil || !status.Ready {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "count": status.Count})
	})
}
