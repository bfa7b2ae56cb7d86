package pipeline

import (
	"time"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// Recorder observes pipeline activity. Implementations must be safe for
// concurrent use; documents may be processed in parallel.
type Recorder interface {
	RecordAttempt(a extraction.Attempt)
	RecordDocument(r *extraction.Result, elapsed time.Duration)
	RecordFailure(documentID string, err error, elapsed time.Duration)
}

// NopRecorder discards everything.
type NopRecorder struct{}

func (NopRecorder) RecordAttempt(extraction.Attempt)                 {}
func (NopRecorder) RecordDocument(*extraction.Result, time.Duration) {}
func (NopRecorder) RecordFailure(string, error, time.Duration)       {}
