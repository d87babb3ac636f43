package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		MaxChunkSize:       1000,
		ChunkOverlap:       200,
		VectorBackend:      "memory",
		VectorIndexName:    "pdf_chunks_vector",
		VectorDimensions:   1536,
		VectorMetric:       "cosine",
		RetrievalK:         4,
		SourcesLimit:       2,
		LLMProvider:        "gemini",
		GeminiAPIKey:       "test-key",
		EmbeddingsProvider: "google",
	}
}

func TestValidateAcceptsDefaults(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}
}

func TestValidateRejectsBadSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"overlap equals size", func(c *Config) { c.ChunkOverlap = c.MaxChunkSize }, "CHUNK_OVERLAP"},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, "CHUNK_OVERLAP"},
		{"zero size", func(c *Config) { c.MaxChunkSize = 0 }, "MAX_CHUNK_SIZE"},
		{"unknown backend", func(c *Config) { c.VectorBackend = "pinecone" }, "VECTOR_BACKEND"},
		{"euclidean metric", func(c *Config) { c.VectorMetric = "euclidean" }, "VECTOR_METRIC"},
		{"missing gemini key", func(c *Config) { c.GeminiAPIKey = "" }, "GEMINI_API_KEY"},
		{"missing openai key", func(c *Config) { c.LLMProvider = "openai" }, "OPENAI_API_KEY"},
		{"sources above k", func(c *Config) { c.SourcesLimit = 5 }, "SOURCES_LIMIT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected error mentioning %s", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %s", err, tt.want)
			}
		})
	}
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "k")
	t.Setenv("OPENAI_API_KEY", "k")
	t.Setenv("VECTOR_BACKEND", "memory")
	t.Setenv("PDF_PATH", "docs/handbook.pdf")
	t.Setenv("INDEX_INIT_TIMEOUT", "30")
	t.Setenv("INDEX_READY_POLL_INTERVAL", "250")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PDFPath != "docs/handbook.pdf" {
		t.Errorf("PDFPath = %q", cfg.PDFPath)
	}
	if cfg.IndexInitTimeout != 30*time.Second {
		t.Errorf("IndexInitTimeout = %v", cfg.IndexInitTimeout)
	}
	if cfg.IndexReadyPollInterval != 250*time.Millisecond {
		t.Errorf("IndexReadyPollInterval = %v", cfg.IndexReadyPollInterval)
	}
	if cfg.MaxChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("chunking defaults = %d/%d", cfg.MaxChunkSize, cfg.ChunkOverlap)
	}
	if cfg.VectorDimensions != 1536 {
		t.Errorf("VectorDimensions = %d", cfg.VectorDimensions)
	}
}

func TestRedisOptionsParsesURL(t *testing.T) {
	opt, err := RedisOptions(&Config{RedisURL: "redis://:secret@cache.internal:6380/2"})
	if err != nil {
		t.Fatalf("RedisOptions: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.Password != "secret" || opt.DB != 2 {
		t.Errorf("unexpected options: %+v", opt)
	}

	opt, err = RedisOptions(&Config{RedisURL: "localhost:6379", RedisDB: 1})
	if err != nil {
		t.Fatalf("RedisOptions: %v", err)
	}
	if opt.Addr != "localhost:6379" || opt.DB != 1 {
		t.Errorf("unexpected options: %+v", opt)
	}
}
