package extraction

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoTextLayer means the document has no embedded text to read.
	ErrNoTextLayer = errors.New("no text layer")
	// ErrUnsupportedFormat means the content is not a format the strategy can read.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrCorruptDocument means the content claims a format but cannot be parsed.
	ErrCorruptDocument = errors.New("corrupt document")
	// ErrTimeBudgetExhausted means the budget ran out before any page was read.
	ErrTimeBudgetExhausted = errors.New("time budget exhausted with zero output")
	// ErrRetriesExhausted means a remote call failed on every attempt.
	ErrRetriesExhausted = errors.New("retries exhausted")
)

// ExtractionError is a hard failure of one strategy: it could not produce
// any output for the document.
type ExtractionError struct {
	Method Method
	Op     string
	Err    error
}

func (e *ExtractionError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("%s extraction failed: %v", e.Method, e.Err)
	}
	return fmt.Sprintf("%s extraction failed in %s: %v", e.Method, e.Op, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// NewExtractionError builds an ExtractionError.
func NewExtractionError(method Method, op string, err error) *ExtractionError {
	return &ExtractionError{Method: method, Op: op, Err: err}
}

// IsExtractionError reports whether err is, or wraps, an ExtractionError.
func IsExtractionError(err error) bool {
	var e *ExtractionError
	return errors.As(err, &e)
}

// StrategyFailure is why one strategy produced nothing.
type StrategyFailure struct {
	Method Method `json:"method"`
	Reason string `json:"reason"`
}

// DocumentUnextractable is returned when no strategy produced any output.
type DocumentUnextractable struct {
	DocumentID string            `json:"document_id"`
	Failures   []StrategyFailure `json:"failures"`
}

func (e *DocumentUnextractable) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = fmt.Sprintf("%s: %s", f.Method, f.Reason)
	}
	if e.DocumentID == "" {
		return "document unextractable: " + strings.Join(parts, "; ")
	}
	return fmt.Sprintf("document %s unextractable: %s", e.DocumentID, strings.Join(parts, "; "))
}

// AsUnextractable unwraps a DocumentUnextractable from err.
func AsUnextractable(err error) (*DocumentUnextractable, bool) {
	var e *DocumentUnextractable
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
