// Package strategy holds the extraction strategies the pipeline escalates
// through, cheapest first.
package strategy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// Default priorities; lower runs first.
const (
	PriorityDirectText = 0
	PriorityLocalOCR   = 10
	PriorityRemoteOCR  = 20
)

// DefaultMinConfidence is the acceptance floor of every strategy unless
// configured otherwise.
const DefaultMinConfidence = 0.50

// Descriptor describes when a strategy runs and when its output is good
// enough to stop.
type Descriptor struct {
	Method                extraction.Method `json:"method"`
	Priority              int               `json:"priority"`
	MinConfidenceToAccept float64           `json:"min_confidence_to_accept"`
	// Budget caps the strategy's wall-clock time; zero means only the
	// document budget applies.
	Budget time.Duration `json:"budget"`
}

// Strategy is one way of turning a document into text.
type Strategy interface {
	Descriptor() Descriptor
	// Applicable reports whether the strategy can run on doc, with a reason
	// when it cannot.
	Applicable(doc *extraction.Document) (bool, string)
	// Extract returns a fresh result or an *extraction.ExtractionError. The
	// result carries no confidence score; the pipeline assigns it.
	Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error)
}

// Fingerprinter is implemented by strategies and their collaborators
// (rasterizers, engines, remote clients). The fingerprint changes whenever a
// setting that affects extraction output changes.
type Fingerprinter interface {
	Fingerprint() string
}

// FingerprintOf returns v's fingerprint, or its type when v has none.
func FingerprintOf(v any) string {
	switch f := v.(type) {
	case nil:
		return ""
	case Fingerprinter:
		return f.Fingerprint()
	default:
		return fmt.Sprintf("%T", v)
	}
}

func fingerprint(parts ...any) string {
	data, err := json.Marshal(parts)
	if err != nil {
		data = fmt.Appendf(nil, "%+v", parts)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Option configures the shared parts of a strategy.
type Option func(*base)

// WithLogger sets the strategy logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithPriority overrides the default priority.
func WithPriority(p int) Option {
	return func(b *base) { b.desc.Priority = p }
}

type base struct {
	desc   Descriptor
	logger *slog.Logger
}

func newBase(method extraction.Method, priority int, minConfidence float64, budget time.Duration, opts []Option) base {
	if minConfidence < 0 || minConfidence > 1 {
		minConfidence = DefaultMinConfidence
	}
	b := base{
		desc: Descriptor{
			Method:                method,
			Priority:              priority,
			MinConfidenceToAccept: minConfidence,
			Budget:                budget,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

func (b *base) Descriptor() Descriptor { return b.desc }

func (b *base) fail(op string, err error) error {
	return extraction.NewExtractionError(b.desc.Method, op, err)
}

func pdfApplicable(doc *extraction.Document) (bool, string) {
	if doc == nil || len(doc.Content) == 0 {
		return false, "empty document"
	}
	if !doc.IsPDF() {
		return false, "not a PDF document"
	}
	return true, ""
}
