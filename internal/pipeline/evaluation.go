package pipeline

import (
	"time"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// Outcome is the decision taken after one strategy ran.
type Outcome int

const (
	// Accepted means the score cleared the strategy's acceptance floor.
	Accepted Outcome = iota
	// Escalate means the result is kept as a candidate and the next strategy runs.
	Escalate
	// HardFailure means the strategy produced no output.
	HardFailure
	// Skipped means the strategy was not applicable or never got time to run.
	Skipped
)

func (o Outcome) String() string {
	switch o {
	case Accepted:
		return "accepted"
	case Escalate:
		return "escalate"
	case HardFailure:
		return "hard_failure"
	case Skipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Evaluation is the typed result of running one strategy.
type Evaluation struct {
	Method  extraction.Method
	Outcome Outcome
	Result  *extraction.Result
	Score   float64
	Reason  string
	Err     error
	Elapsed time.Duration
}

// HasOutput reports whether the strategy produced a scored result.
func (e Evaluation) HasOutput() bool {
	return e.Result != nil && (e.Outcome == Accepted || e.Outcome == Escalate)
}

// Attempt converts the evaluation into the record attached to the final result.
func (e Evaluation) Attempt() extraction.Attempt {
	a := extraction.Attempt{
		Method:           e.Method,
		Outcome:          e.Outcome.String(),
		Reason:           e.Reason,
		ProcessingTimeMs: e.Elapsed.Milliseconds(),
	}
	if e.HasOutput() {
		s := e.Score
		a.Score = &s
		a.EstimatedCostUSD = e.Result.EstimatedCostUSD
	}
	return a
}
