package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	GinMode         string
	CORSOrigins     []string
	MaxRequestBytes int64
	RateLimitReqs   int
	RateLimitWindow int

	// Source document and chunking
	PDFPath string
	// DocumentsDir bounds ingestion paths sent over HTTP; empty means the PDF's directory.
	DocumentsDir string
	// IngestAPIKey guards POST /api/ingest; index resets are refused without it.
	IngestAPIKey string
	MaxChunkSize int
	ChunkOverlap int

	// Vector index
	VectorBackend          string // "mongo" (default), "qdrant", "memory"
	VectorIndexName        string
	VectorDimensions       int
	VectorMetric           string
	IndexInitTimeout       time.Duration
	IndexReadyPollInterval time.Duration
	RetrievalK             int
	SourcesLimit           int

	// MongoDB Atlas
	MongoURI         string
	DBName           string
	ChunksCollection string

	// Qdrant
	QdrantURL    string
	QdrantAPIKey string

	// Redis Configuration
	RedisURL          string
	RedisPassword     string
	RedisDB           int
	EmbeddingCacheTTL time.Duration

	// Completion models
	LLMProvider     string // "gemini" (default), "openai"
	GeminiAPIKey    string
	GeminiModel     string
	OpenAIAPIKey    string
	OpenAIChatModel string
	LLMTemperature  float64
	LLMRPM          int

	// Embeddings configuration
	EmbeddingsProvider    string // "openai" (default), "google"
	GoogleEmbeddingsModel string
	OpenAIEmbeddingsModel string

	// Telemetry
	OTelEnabled  bool
	OTelEndpoint string

	// Re-ingest the document when it changes; zero disables the check.
	ReindexInterval time.Duration
}

func LoadConfig() (*Config, error) {
	// Load .env file if exists
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			return nil, fmt.Errorf("error loading .env file: %v", err)
		}
	}

	cfg := &Config{
		Port:            getEnv("PORT", "8080"),
		GinMode:         getEnv("GIN_MODE", "debug"),
		CORSOrigins:     strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080"), ","),
		MaxRequestBytes: getEnvInt64("MAX_REQUEST_BYTES", 1048576), // 1MB
		RateLimitReqs:   getEnvInt("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow: getEnvInt("RATE_LIMIT_WINDOW", 60),

		PDFPath:      getEnv("PDF_PATH", "docs/atlas.pdf"),
		DocumentsDir: getEnv("DOCUMENTS_DIR", ""),
		IngestAPIKey: getEnv("INGEST_API_KEY", ""),
		MaxChunkSize: getEnvInt("MAX_CHUNK_SIZE", 1000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 200),

		VectorBackend:          getEnv("VECTOR_BACKEND", "mongo"),
		VectorIndexName:        getEnv("VECTOR_INDEX_NAME", "pdf_chunks_vector"),
		VectorDimensions:       getEnvInt("VECTOR_DIM", 1536),
		VectorMetric:           getEnv("VECTOR_METRIC", "cosine"),
		IndexInitTimeout:       getEnvSeconds("INDEX_INIT_TIMEOUT", 180),
		IndexReadyPollInterval: getEnvMillis("INDEX_READY_POLL_INTERVAL", 2000),
		RetrievalK:             getEnvInt("RETRIEVAL_K", 4),
		SourcesLimit:           getEnvInt("SOURCES_LIMIT", 2),

		MongoURI:         getEnv("MONGO_URI", "mongodb://localhost:27017/pdf_chat"),
		DBName:           getEnv("DB_NAME", "pdf_chat"),
		ChunksCollection: getEnv("MONGO_CHUNKS_COLLECTION", "pdf_chunks"),

		QdrantURL:    getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantAPIKey: getEnv("QDRANT_API_KEY", ""),

		RedisURL:          getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		EmbeddingCacheTTL: getEnvSeconds("EMBEDDING_CACHE_TTL", 86400),

		LLMProvider:     getEnv("LLM_PROVIDER", "gemini"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		GeminiModel:     getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		OpenAIChatModel: getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
		LLMTemperature:  getEnvFloat64("LLM_TEMPERATURE", 0.2),
		LLMRPM:          getEnvInt("LLM_RPM", 60),

		EmbeddingsProvider:    getEnv("EMBEDDINGS_PROVIDER", "openai"),
		GoogleEmbeddingsModel: getEnv("GOOGLE_EMBEDDINGS_MODEL", "text-embedding-004"),
		OpenAIEmbeddingsModel: getEnv("OPENAI_EMBEDDINGS_MODEL", "text-embedding-3-small"),

		OTelEnabled:  getEnvBool("OTEL_ENABLED", false),
		OTelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		ReindexInterval: getEnvSeconds("REINDEX_INTERVAL", 0),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings every entrypoint depends on.
func (c *Config) Validate() error {
	if c.MaxChunkSize <= 0 {
		return fmt.Errorf("MAX_CHUNK_SIZE must be positive, got %d", c.MaxChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.MaxChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, MAX_CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.VectorDimensions <= 0 {
		return fmt.Errorf("VECTOR_DIM must be positive, got %d", c.VectorDimensions)
	}
	if c.VectorMetric != "cosine" {
		return fmt.Errorf("VECTOR_METRIC %q is not supported - use cosine", c.VectorMetric)
	}
	if c.VectorIndexName == "" {
		return fmt.Errorf("VECTOR_INDEX_NAME is required - set it in .env file")
	}
	if c.RetrievalK <= 0 || c.SourcesLimit < 0 || c.SourcesLimit > c.RetrievalK {
		return fmt.Errorf("SOURCES_LIMIT must be within [0, RETRIEVAL_K]")
	}

	switch c.VectorBackend {
	case "mongo":
		if c.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required - set it in .env file")
		}
	case "qdrant":
		if c.QdrantURL == "" {
			return fmt.Errorf("QDRANT_URL is required - set it in .env file")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown VECTOR_BACKEND: %s", c.VectorBackend)
	}

	switch c.LLMProvider {
	case "gemini":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required - set it in .env file")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required - set it in .env file")
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER: %s", c.LLMProvider)
	}

	switch c.EmbeddingsProvider {
	case "google":
		if c.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for google embeddings - set it in .env file")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for openai embeddings - set it in .env file")
		}
	default:
		return fmt.Errorf("unknown EMBEDDINGS_PROVIDER: %s", c.EmbeddingsProvider)
	}

	return nil
}
