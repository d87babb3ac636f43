package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"pdf-chat-backend/internal/apperr"
	"pdf-chat-backend/internal/logger"
	"pdf-chat-backend/internal/telemetry"
	"pdf-chat-backend/internal/vectorindex"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Condenser answers a prompt in one shot.
type Condenser interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Generator streams an answer fragment by fragment.
type Generator interface {
	Stream(ctx context.Context, prompt string, onFragment func(string) error) error
}

// Retriever returns the k chunks most similar to text, best first.
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]vectorindex.Match, error)
}

// EventKind tags an Event.
type EventKind int

const (
	// EventText carries one answer fragment.
	EventText EventKind = iota
	// EventSources is the terminal citation record, sent once after every fragment.
	EventSources
	// EventError ends a stream that failed after it started. No sources follow.
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventText:
		return "token"
	case EventSources:
		return "sources"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one item of an answer stream.
type Event struct {
	Kind    EventKind
	Text    string
	Sources []string
	Err     error
}

type ChainOptions struct {
	RetrievalK   int
	SourcesLimit int
	Metrics      *telemetry.Metrics
}

// Chain answers questions about the indexed document: condense, retrieve, then stream.
type Chain struct {
	condenser Condenser
	generator Generator
	retriever Retriever
	opts      ChainOptions
}

func NewChain(condenser Condenser, generator Generator, retriever Retriever, opts ChainOptions) *Chain {
	if opts.RetrievalK <= 0 {
		opts.RetrievalK = 4
	}
	if opts.SourcesLimit <= 0 {
		opts.SourcesLimit = 2
	}
	return &Chain{condenser: condenser, generator: generator, retriever: retriever, opts: opts}
}

// Call runs the pre-stream stages synchronously and returns a channel fed by the answer
// stream. Failures before streaming return a chain execution error and no channel. The
// channel is closed after the sources record, an error event, or ctx cancellation.
func (c *Chain) Call(ctx context.Context, question, chatHistory string) (<-chan Event, error) {
	ctx, span := telemetry.Tracer("qa-chain").Start(ctx, "chain.call")

	sanitized := sanitizeQuestion(question)
	if sanitized == "" {
		err := c.abort(ctx, span, "sanitize", apperr.New(apperr.ErrInvalidInput, "services.Chain.Call", "question is empty"))
		return nil, err
	}
	span.SetAttributes(
		attribute.Int("chain.question_chars", len(sanitized)),
		attribute.Bool("chain.has_history", strings.TrimSpace(chatHistory) != ""),
	)

	standalone, err := c.condense(ctx, sanitized, chatHistory)
	if err != nil {
		return nil, c.abort(ctx, span, "condense", err)
	}

	matches, err := c.retrieve(ctx, standalone)
	if err != nil {
		return nil, c.abort(ctx, span, "retrieve", err)
	}

	events := make(chan Event, 16)
	go c.generate(ctx, span, events, standalone, chatHistory, matches)
	return events, nil
}

func (c *Chain) abort(ctx context.Context, span trace.Span, stage string, err error) error {
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, stage)
	logger.Error("QA chain failed before streaming", "stage", stage, "error", err)
	return apperr.Wrap(apperr.ErrChainExecution, "services.Chain.Call", err)
}

func (c *Chain) condense(ctx context.Context, question, chatHistory string) (string, error) {
	if strings.TrimSpace(chatHistory) == "" {
		return question, nil
	}

	ctx, span := telemetry.Tracer("qa-chain").Start(ctx, "chain.condense")
	defer span.End()
	start := time.Now()

	prompt, err := render(condenseTemplate, condenseInput{ChatHistory: chatHistory, Question: question})
	if err != nil {
		return "", err
	}
	standalone, err := c.condenser.Generate(ctx, prompt)
	c.opts.Metrics.RecordStage(ctx, "condense", time.Since(start).Seconds(), err == nil)
	if err != nil {
		span.RecordError(err)
		return "", err
	}

	standalone = sanitizeQuestion(standalone)
	if standalone == "" {
		logger.Warn("Condense returned an empty question, using the original")
		return question, nil
	}
	logger.Debug("Condensed question", "question", question, "standalone", standalone)
	return standalone, nil
}

func (c *Chain) retrieve(ctx context.Context, question string) ([]vectorindex.Match, error) {
	ctx, span := telemetry.Tracer("qa-chain").Start(ctx, "chain.retrieve")
	defer span.End()
	start := time.Now()

	matches, err := c.retriever.Query(ctx, question, c.opts.RetrievalK)
	c.opts.Metrics.RecordStage(ctx, "retrieve", time.Since(start).Seconds(), err == nil)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	span.SetAttributes(attribute.Int("chain.matches", len(matches)))
	return matches, nil
}

// generate owns the events channel and is its only writer.
func (c *Chain) generate(ctx context.Context, parent trace.Span, events chan<- Event, question, chatHistory string, matches []vectorindex.Match) {
	defer parent.End()
	defer close(events)

	ctx, span := telemetry.Tracer("qa-chain").Start(ctx, "chain.generate")
	defer span.End()
	start := time.Now()

	send := func(ev Event) error {
		select {
		case events <- ev:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	contexts := make([]string, len(matches))
	for i, m := range matches {
		contexts[i] = m.Chunk.Text
	}

	prompt, err := render(qaTemplate, qaInput{Context: contexts, ChatHistory: chatHistory, Question: question})
	if err == nil {
		err = c.generator.Stream(ctx, prompt, func(fragment string) error {
			if fragment == "" {
				return nil
			}
			return send(Event{Kind: EventText, Text: fragment})
		})
	}
	c.opts.Metrics.RecordStage(ctx, "generate", time.Since(start).Seconds(), err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "generate")
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			logger.Info("Answer stream cancelled by caller", "error", err)
			return
		}
		logger.Error("Answer stream failed", "error", err)
		if apperr.Outer(err) == "" {
			err = apperr.Wrap(apperr.ErrGeneration, "services.Chain.generate", err)
		}
		_ = send(Event{Kind: EventError, Err: err})
		return
	}

	limit := min(c.opts.SourcesLimit, len(contexts))
	sources := make([]string, limit)
	copy(sources, contexts[:limit])
	_ = send(Event{Kind: EventSources, Sources: sources})
}
