package main

import (
	"context"
	"fmt"
	"log"

	"pdf-chat-backend/internal/bootstrap"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/queue"

	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize dependencies:", err)
	}
	defer app.Close()

	redisOpt, err := queue.RedisClientOpt(cfg)
	if err != nil {
		log.Fatal("Invalid Redis configuration:", err)
	}

	server := asynq.NewServer(
		redisOpt,
		asynq.Config{
			// Ingestion is heavy on the embedding API, so run few jobs at once.
			Concurrency: 2,
			Queues: map[string]int{
				queue.QueueIngest: 6,
				"default":         3,
				"low":             1,
			},
			StrictPriority: true,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				logger.Error("Task failed", "type", task.Type(), "error", err)
			}),
			Logger: asynqLogger{},
		},
	)

	mux := asynq.NewServeMux()
	queue.NewTaskProcessor(app.Ingestion).Register(mux)

	logger.Info("Starting Asynq worker", "queue", queue.QueueIngest, "redis", redisOpt.Addr)

	if err := server.Run(mux); err != nil {
		log.Fatal("Failed to start worker:", err)
	}
}

// asynqLogger routes asynq's internal logs through slog.
type asynqLogger struct{}

func (asynqLogger) Debug(args ...interface{}) { logger.L().Debug(fmt.Sprint(args...)) }
func (asynqLogger) Info(args ...interface{})  { logger.L().Info(fmt.Sprint(args...)) }
func (asynqLogger) Warn(args ...interface{})  { logger.L().Warn(fmt.Sprint(args...)) }
func (asynqLogger) Error(args ...interface{}) { logger.L().Error(fmt.Sprint(args...)) }
func (asynqLogger) Fatal(args ...interface{}) { log.Fatal(args...) }
