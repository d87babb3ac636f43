package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pdf-chat-backend/internal/bootstrap"
	"pdf-chat-backend/internal/config"
	"pdf-chat-backend/internal/logger"
)

func usage() {
	fmt.Println("Usage: go run ./cmd/ingest <command> [path]")
	fmt.Println("Commands:")
	fmt.Println("  ingest [path]  - Split, embed and index the document (default PDF_PATH)")
	fmt.Println("  reindex [path] - Clear the index, then ingest the document")
	fmt.Println("  status         - Show the vector index status")
	fmt.Println("  reset          - Remove every indexed chunk")
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}
	command := os.Args[1]

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.InitLogger(cfg)

	path := cfg.PDFPath
	if len(os.Args) > 2 {
		path = os.Args[2]
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize dependencies: %v", err)
	}
	defer app.Close()

	switch command {
	case "ingest", "reindex":
		if err := ingest(ctx, app, path, command == "reindex"); err != nil {
			log.Fatalf("Ingestion failed: %v", err)
		}

	case "status":
		status, err := app.Index.Status(ctx)
		if err != nil {
			log.Fatalf("Status failed: %v", err)
		}
		fmt.Printf("Index %q on %s: dimension=%d metric=%s ready=%t chunks=%d\n",
			status.Name, status.Backend, status.Dimension, status.Metric, status.Ready, status.Count)

	case "reset":
		if err := app.Index.Reset(ctx); err != nil {
			log.Fatalf("Reset failed: %v", err)
		}
		fmt.Println("Index cleared")

	default:
		fmt.Printf("Unknown command: %s\n", command)
		usage()
		os.Exit(1)
	}
}

func ingest(ctx context.Context, app *bootstrap.App, path string, reset bool) error {
	fmt.Printf("Ingesting %s (chunk size %d, overlap %d)...\n", path, app.Chunker.Size(), app.Chunker.Overlap())

	report, err := app.Ingestion.Ingest(ctx, path, reset)
	if err != nil {
		return err
	}

	fmt.Printf("Indexed %d chunks from %d pages in %s\n", report.ChunkCount, report.Pages, report.Duration.Round(time.Millisecond))
	fmt.Printf("Checksum: %s\n", report.Checksum)
	return nil
}
