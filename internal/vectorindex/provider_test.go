package vectorindex

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pdf-chat-backend/internal/apperr"
)

func TestProviderInitializesOnceUnderConcurrency(t *testing.T) {
	var inits atomic.Int32
	backend := NewMemoryBackend()
	provider := NewProvider(func(ctx context.Context) (*Client, error) {
		inits.Add(1)
		time.Sleep(5 * time.Millisecond)
		client := NewClient(backend, &fakeEmbedder{dim: 3}, testOptions())
		return client, client.EnsureIndex(ctx, "idx", 3, "cosine")
	})

	var wg sync.WaitGroup
	clients := make([]*Client, 16)
	for i := range clients {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := provider.Get(context.Background())
			if err != nil {
				t.Errorf("Get: %v", err)
				return
			}
			clients[i] = c
		}(i)
	}
	wg.Wait()

	if inits.Load() != 1 {
		t.Errorf("init ran %d times, want 1", inits.Load())
	}
	if backend.CreateCalls != 1 {
		t.Errorf("CreateIndex ran %d times, want 1", backend.CreateCalls)
	}
	for _, c := range clients[1:] {
		if c != clients[0] {
			t.Fatal("callers received different clients")
		}
	}
}

func TestProviderRetriesAfterFailedInit(t *testing.T) {
	attempts := 0
	provider := NewProvider(func(ctx context.Context) (*Client, error) {
		attempts++
		if attempts == 1 {
			return nil, errors.New("atlas unreachable")
		}
		return NewClient(NewMemoryBackend(), &fakeEmbedder{dim: 3}, testOptions()), nil
	})

	if _, err := provider.Get(context.Background()); err == nil {
		t.Fatal("expected first Get to fail")
	}
	if provider.Initialized() {
		t.Fatal("provider marked initialized after failure")
	}
	if _, err := provider.Get(context.Background()); err != nil {
		t.Fatalf("second Get: %v", err)
	}
	if !provider.Initialized() || attempts != 2 {
		t.Errorf("initialized=%v attempts=%d", provider.Initialized(), attempts)
	}
}

func TestProviderQueryWrapsInitFailure(t *testing.T) {
	provider := NewProvider(func(ctx context.Context) (*Client, error) {
		return nil, apperr.New(apperr.ErrIndexCreation, "test", "no index")
	})

	_, err := provider.Query(context.Background(), "question", 4)
	if !errors.Is(err, apperr.ErrQuery) {
		t.Fatalf("expected query error, got %v", err)
	}
	if !errors.Is(err, apperr.ErrIndexCreation) {
		t.Errorf("cause kind lost: %v", err)
	}
}
