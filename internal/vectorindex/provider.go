package vectorindex

import (
	"context"
	"sync"
	"sync/atomic"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/models"
)

// InitFunc builds a ready client. It runs at most once per successful initialization.
type InitFunc func(ctx context.Context) (*Client, error)

// Provider lazily initializes a shared Client on first use. Concurrent callers wait
// for the same initialization; a failed attempt is retried by the next caller.
type Provider struct {
	init   InitFunc
	mu     sync.Mutex
	client atomic.Pointer[Client]
}

func NewProvider(init InitFunc) *Provider {
	return &Provider{init: init}
}

// Get returns the shared client, initializing it if needed.
func (p *Provider) Get(ctx context.Context) (*Client, error) {
	if c := p.client.Load(); c != nil {
		return c, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if c := p.client.Load(); c != nil {
		return c, nil
	}

	c, err := p.init(ctx)
	if err != nil {
		logger.Error("Vector index initialization failed", "error", err)
		return nil, err
	}
	p.client.Store(c)
	return c, nil
}

// Initialized reports whether Get has succeeded.
func (p *Provider) Initialized() bool {
	return p.client.Load() != nil
}

// Query initializes the client if needed and runs a similarity query.
func (p *Provider) Query(ctx context.Context, text string, k int) ([]Match, error) {
	c, err := p.Get(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrQuery, "vectorindex.Provider.Query", err)
	}
	return c.Query(ctx, text, k)
}

// Upsert initializes the client if needed and stores chunks.
func (p *Provider) Upsert(ctx context.Context, chunks []models.Chunk) (int, error) {
	c, err := p.Get(ctx)
	if err != nil {
		return 0, err
	}
	return c.Upsert(ctx, chunks)
}

func (p *Provider) Reset(ctx context.Context) error {
	c, err := p.Get(ctx)
	if err != nil {
		return err
	}
	return c.Reset(ctx)
}

func (p *Provider) Status(ctx context.Context) (models.IndexStatus, error) {
	c, err := p.Get(ctx)
	if err != nil {
		return models.IndexStatus{}, err
	}
	return c.Status(ctx)
}
