package vectorindex

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeKV struct {
	data    map[string]string
	readErr error
	sets    int
}

func (f *fakeKV) MGet(ctx context.Context, keys ...string) *redis.SliceCmd {
	if f.readErr != nil {
		return redis.NewSliceResult(nil, f.readErr)
	}
	vals := make([]interface{}, len(keys))
	for i, k := range keys {
		if v, ok := f.data[k]; ok {
			vals[i] = v
		}
	}
	return redis.NewSliceResult(vals, nil)
}

func (f *fakeKV) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.sets++
	f.data[key] = string(value.([]byte))
	return redis.NewStatusResult("OK", nil)
}

func TestCachedEmbedderServesRepeatsFromCache(t *testing.T) {
	inner := &fakeEmbedder{dim: 2, vectors: map[string][]float32{"a": {0.25, -1.5}, "b": {3, 4}}}
	kv := &fakeKV{data: map[string]string{}}
	cached := NewCachedEmbedder(inner, kv, time.Hour, nil)

	first, err := cached.Embed(context.Background(), []string{"a", "b"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := cached.Embed(context.Background(), []string{"b", "a"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}

	if inner.calls != 1 {
		t.Errorf("inner embedder called %d times, want 1", inner.calls)
	}
	if kv.sets != 2 {
		t.Errorf("cache writes = %d, want 2", kv.sets)
	}
	if second[0][0] != first[1][0] || second[1][1] != -1.5 {
		t.Errorf("cached vectors differ: %v vs %v", first, second)
	}
}

func TestCachedEmbedderOnlyEmbedsMisses(t *testing.T) {
	inner := &fakeEmbedder{dim: 2}
	kv := &fakeKV{data: map[string]string{}}
	cached := NewCachedEmbedder(inner, kv, time.Hour, nil)

	if _, err := cached.Embed(context.Background(), []string{"known"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	inner.texts = nil
	if _, err := cached.Embed(context.Background(), []string{"known", "new"}); err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(inner.texts) != 1 || inner.texts[0] != "new" {
		t.Errorf("inner embedded %v, want only the miss", inner.texts)
	}
}

func TestCachedEmbedderFallsThroughOnReadError(t *testing.T) {
	inner := &fakeEmbedder{dim: 2}
	kv := &fakeKV{data: map[string]string{}, readErr: errors.New("connection refused")}
	cached := NewCachedEmbedder(inner, kv, time.Hour, nil)

	vectors, err := cached.Embed(context.Background(), []string{"x", "y"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vectors) != 2 || inner.calls != 1 {
		t.Errorf("vectors=%d inner calls=%d", len(vectors), inner.calls)
	}
}

func TestCachedEmbedderKeysByModel(t *testing.T) {
	cached := NewCachedEmbedder(&fakeEmbedder{}, &fakeKV{}, 0, nil)
	key := cached.cacheKey("hello")
	if len(key) != len("emb:fake:")+64 || key[:9] != "emb:fake:" {
		t.Errorf("unexpected key %q", key)
	}
}

func TestVectorEncodingRoundTrip(t *testing.T) {
	in := []float32{0, 1.5, -2.25, 1e-7}
	out, err := decodeVector(encodeVector(in))
	if err != nil {
		t.Fatalf("decodeVector: %v", err)
	}
	for i := range in {
		if in[i] != out[i] {
			t.Fatalf("round trip mismatch at %d: %v != %v", i, in[i], out[i])
		}
	}
	if _, err := decodeVector([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated vector")
	}
}
