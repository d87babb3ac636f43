// Package apperr defines the error kinds shared by ingestion, retrieval and generation.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. Kinds are comparable with errors.Is.
type Kind string

func (k Kind) Error() string { return string(k) }

const (
	ErrLoad           Kind = "load_error"
	ErrSplit          Kind = "split_error"
	ErrIndexCreation  Kind = "index_creation_error"
	ErrIndexWrite     Kind = "index_write_error"
	ErrQuery          Kind = "query_error"
	ErrGeneration     Kind = "generation_error"
	ErrChainExecution Kind = "chain_execution_error"
	ErrInvalidInput   Kind = "invalid_input"
)

// Error carries a kind, the failing operation and the original cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, ErrQuery) matches any query failure in the chain.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && e.Kind == k
}

// Wrap returns nil for a nil cause.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// New builds an error of the given kind from a message.
func New(kind Kind, op, format string, args ...any) error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf returns the innermost kind in the chain, which is the most specific cause.
// Unclassified errors report the empty kind.
func KindOf(err error) Kind {
	var kind Kind
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			break
		}
		kind = e.Kind
		err = e.Err
	}
	return kind
}

// Outer returns the outermost kind in the chain.
func Outer(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
