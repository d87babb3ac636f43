package ai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/telemetry"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// CallOptions tune one completion call.
type CallOptions struct {
	Temperature     float32
	MaxOutputTokens int32
}

// Provider is a hosted model family that can answer a prompt in one shot or as a stream.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string, opts CallOptions) (string, error)
	Stream(ctx context.Context, prompt string, opts CallOptions, onFragment func(string) error) error
	Close() error
}

// Settings configure a CompletionClient.
type Settings struct {
	Name            string
	Temperature     float32
	MaxOutputTokens int32
	// RequestsPerMinute <= 0 disables client side rate limiting.
	RequestsPerMinute int
}

// CompletionClient wraps a Provider with rate limiting, a circuit breaker and tracing.
// Failures surface as apperr.ErrGeneration and are never retried.
type CompletionClient struct {
	provider    Provider
	settings    Settings
	breaker     *gobreaker.CircuitBreaker
	rateLimiter *rate.Limiter
	metrics     *telemetry.Metrics
}

// consumerError marks a failure raised by the fragment consumer rather than the provider.
type consumerError struct{ err error }

func (e *consumerError) Error() string { return e.err.Error() }
func (e *consumerError) Unwrap() error { return e.err }

func NewCompletionClient(provider Provider, settings Settings, metrics *telemetry.Metrics) *CompletionClient {
	if settings.Name == "" {
		settings.Name = provider.Name()
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        settings.Name,
		MaxRequests: 5,
		Interval:    10 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		IsSuccessful: func(err error) bool {
			var ce *consumerError
			return err == nil || errors.As(err, &ce) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state change", "breaker", name, "from", from.String(), "to", to.String())
			metrics.RecordCircuitBreakerState(name, to.String())
		},
	})

	limiter := rate.NewLimiter(rate.Inf, 1)
	if settings.RequestsPerMinute > 0 {
		burst := settings.RequestsPerMinute / 10
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(float64(settings.RequestsPerMinute)/60.0), burst)
	}

	return &CompletionClient{
		provider:    provider,
		settings:    settings,
		breaker:     breaker,
		rateLimiter: limiter,
		metrics:     metrics,
	}
}

func (c *CompletionClient) options() CallOptions {
	return CallOptions{Temperature: c.settings.Temperature, MaxOutputTokens: c.settings.MaxOutputTokens}
}

// Generate blocks until the full completion is available.
func (c *CompletionClient) Generate(ctx context.Context, prompt string) (string, error) {
	ctx, span := telemetry.Tracer("completion-client").Start(ctx, "model.generate")
	defer span.End()
	span.SetAttributes(
		attribute.String("model.client", c.settings.Name),
		attribute.String("model.provider", c.provider.Name()),
		attribute.Int("model.prompt_chars", len(prompt)),
	)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("model.rate_limited", true))
		return "", c.fail(ctx, span, "generate", err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		return c.provider.Generate(ctx, prompt, c.options())
	})
	if err != nil {
		return "", c.fail(ctx, span, "generate", err)
	}

	text := result.(string)
	span.SetAttributes(attribute.Int("model.completion_chars", len(text)))
	c.metrics.RecordModelCall(ctx, c.provider.Name(), "generate", true)
	return text, nil
}

// Stream delivers fragments in generation order. An error returned by onFragment stops
// the stream and is returned unchanged.
func (c *CompletionClient) Stream(ctx context.Context, prompt string, onFragment func(string) error) error {
	ctx, span := telemetry.Tracer("completion-client").Start(ctx, "model.stream")
	defer span.End()
	span.SetAttributes(
		attribute.String("model.client", c.settings.Name),
		attribute.String("model.provider", c.provider.Name()),
		attribute.Int("model.prompt_chars", len(prompt)),
	)

	if err := c.rateLimiter.Wait(ctx); err != nil {
		span.SetAttributes(attribute.Bool("model.rate_limited", true))
		return c.fail(ctx, span, "stream", err)
	}

	fragments := 0
	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.provider.Stream(ctx, prompt, c.options(), func(fragment string) error {
			fragments++
			if err := onFragment(fragment); err != nil {
				return &consumerError{err: err}
			}
			return nil
		})
	})
	span.SetAttributes(attribute.Int("model.fragments", fragments))
	c.metrics.RecordFragments(ctx, fragments)

	var ce *consumerError
	if errors.As(err, &ce) {
		return ce.err
	}
	if err != nil {
		return c.fail(ctx, span, "stream", err)
	}

	c.metrics.RecordModelCall(ctx, c.provider.Name(), "stream", true)
	return nil
}

func (c *CompletionClient) fail(ctx context.Context, span trace.Span, mode string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		span.SetAttributes(attribute.Bool("model.circuit_breaker_open", true))
		err = fmt.Errorf("%s unavailable: %w", c.settings.Name, err)
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	c.metrics.RecordModelCall(ctx, c.provider.Name(), mode, false)
	logger.Error("Completion call failed", "client", c.settings.Name, "mode", mode, "error", err)
	return apperr.Wrap(apperr.ErrGeneration, "ai."+mode, err)
}
