package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-chat-backend/internal/bootstrap"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/queue"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/middleware"
	"pdf-chat-backend/routes"
	"pdf-chat-backend/services"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}
	logger.InitLogger(cfg)

	shutdownTracer, err := telemetry.InitTracer(cfg)
	if err != nil {
		logger.Warn("Tracing disabled", "error", err)
		shutdownTracer = func() {}
	}
	defer shutdownTracer()

	app, err := bootstrap.New(context.Background(), cfg)
	if err != nil {
		log.Fatal("Failed to initialize dependencies:", err)
	}
	defer app.Close()

	// Create the index in the background so the first question does not pay for it.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.IndexInitTimeout+30*time.Second)
		defer cancel()
		if _, err := app.Index.Get(ctx); err != nil {
			logger.Error("Vector index warm-up failed, will retry on first use", "error", err)
		}
	}()

	var enqueuer routes.TaskEnqueuer
	if app.Redis != nil {
		redisOpt, err := queue.RedisClientOpt(cfg)
		if err != nil {
			log.Fatal("Invalid Redis configuration:", err)
		}
		queueClient := asynq.NewClient(redisOpt)
		defer queueClient.Close()
		enqueuer = queueClient
	}

	if cfg.ReindexInterval > 0 {
		scheduler := services.NewReindexScheduler(app.Ingestion, cfg.PDFPath)
		if err := scheduler.Start(cfg.ReindexInterval); err != nil {
			logger.Error("Failed to start re-index scheduler", "error", err)
		} else {
			defer scheduler.Stop()
		}
	}

	// Initialize Gin router
	if cfg.GinMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.TracingMiddleware())
	router.Use(middleware.EnrichTrace())
	router.Use(middleware.MetricsMiddleware(app.Metrics))
	router.Use(middleware.CORSMiddlewareWithOrigins(cfg.CORSOrigins))
	router.Use(middleware.RequestSizeLimit(cfg.MaxRequestBytes))

	var limiter middleware.RateLimitStore
	if app.Redis != nil {
		limiter = app.Redis
	}
	router.Use(middleware.RateLimitMiddleware(limiter, cfg))

	// Setup routes
	routes.SetupHealthRoutes(router, app.Index)
	routes.SetupChatRoutes(router, app.Chain)
	routes.SetupIndexRoutes(router, cfg, app.Index, enqueuer)

	// Create HTTP server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Server starting", "port", cfg.Port, "document", cfg.PDFPath)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
