package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapPreservesCauseAndKind(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(ErrQuery, "vectorindex.Query", cause)

	if !errors.Is(err, ErrQuery) {
		t.Error("expected query kind")
	}
	if errors.Is(err, ErrGeneration) {
		t.Error("unexpected generation kind")
	}
	if !errors.Is(err, cause) {
		t.Error("cause lost")
	}
	if got := err.Error(); got != "vectorindex.Query: query_error: connection refused" {
		t.Errorf("Error() = %q", got)
	}
}

func TestChainWrapperExposesBothKinds(t *testing.T) {
	inner := Wrap(ErrQuery, "vectorindex.Query", errors.New("timeout"))
	err := Wrap(ErrChainExecution, "chain.Call", fmt.Errorf("retrieve: %w", inner))

	if !errors.Is(err, ErrChainExecution) || !errors.Is(err, ErrQuery) {
		t.Fatalf("expected chain and query kinds in %v", err)
	}
	if KindOf(err) != ErrQuery {
		t.Errorf("KindOf = %s", KindOf(err))
	}
	if Outer(err) != ErrChainExecution {
		t.Errorf("Outer = %s", Outer(err))
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(ErrLoad, "op", nil) != nil {
		t.Error("Wrap(nil) must be nil")
	}
	if KindOf(errors.New("plain")) != "" {
		t.Error("plain errors have no kind")
	}
}
