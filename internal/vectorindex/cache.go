package vectorindex

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/telemetry"

	"github.com/redis/go-redis/v9"
)

// KV is the subset of *redis.Client used by the embedding cache.
type KV interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedEmbedder stores embeddings in Redis keyed by model and text hash.
// Cache failures are logged and fall through to the wrapped embedder.
type CachedEmbedder struct {
	next    Embedder
	kv      KV
	ttl     time.Duration
	metrics *telemetry.Metrics
}

func NewCachedEmbedder(next Embedder, kv KV, ttl time.Duration, metrics *telemetry.Metrics) *CachedEmbedder {
	return &CachedEmbedder{next: next, kv: kv, ttl: ttl, metrics: metrics}
}

func (c *CachedEmbedder) Model() string { return c.next.Model() }

func (c *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "emb:" + c.next.Model() + ":" + hex.EncodeToString(sum[:])
}

func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	keys := make([]string, len(texts))
	for i, text := range texts {
		keys[i] = c.cacheKey(text)
	}

	vectors := make([][]float32, len(texts))
	cached, err := c.kv.MGet(ctx, keys...).Result()
	if err != nil {
		logger.Warn("Embedding cache read failed", "error", err)
		cached = nil
	}

	var missing []int
	for i := range texts {
		if i < len(cached) {
			if raw, ok := cached[i].(string); ok {
				if vec, err := decodeVector([]byte(raw)); err == nil {
					vectors[i] = vec
					c.metrics.RecordCacheLookup(ctx, true)
					continue
				}
			}
		}
		c.metrics.RecordCacheLookup(ctx, false)
		missing = append(missing, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}
	fresh, err := c.next.Embed(ctx, pending)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(pending) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(fresh), len(pending))
	}

	for j, i := range missing {
		vectors[i] = fresh[j]
		if err := c.kv.Set(ctx, keys[i], encodeVector(fresh[j]), c.ttl).Err(); err != nil {
			logger.Warn("Embedding cache write failed", "error", err)
		}
	}
	return vectors, nil
}

func encodeVector(vec []float32) []byte {
	buf := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) ([]float32, error) {
	if len(buf) == 0 || len(buf)%4 != 0 {
		return nil, fmt.Errorf("invalid cached vector length %d", len(buf))
	}
	vec := make([]float32, len(buf)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vec, nil
}
