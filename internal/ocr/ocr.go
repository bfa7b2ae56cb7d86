// Package ocr defines the recognition engine used by local OCR. Concrete
// engines live in subpackages.
package ocr

import (
	"context"
	"image"
	"strings"
)

// Word is one recognized word with its engine confidence in [0,1].
type Word struct {
	Text       string          `json:"text"`
	Confidence float64         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
}

// Page is the recognition output for one page image.
type Page struct {
	Text       string  `json:"text"`
	Words      []Word  `json:"words,omitempty"`
	Confidence float64 `json:"confidence"`
}

// Engine recognizes text in an image. Implementations must be safe for
// concurrent use.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) (Page, error)
}

// EngineFunc adapts a function to Engine.
type EngineFunc func(ctx context.Context, img image.Image) (Page, error)

// Name implements Engine.
func (f EngineFunc) Name() string { return "func" }

// Recognize implements Engine.
func (f EngineFunc) Recognize(ctx context.Context, img image.Image) (Page, error) {
	return f(ctx, img)
}

// MeanConfidence averages word confidences, ignoring blank words. Engines
// report negative confidence for non-text boxes; those are skipped too.
func MeanConfidence(words []Word) float64 {
	var sum float64
	n := 0
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" || w.Confidence < 0 {
			continue
		}
		c := w.Confidence
		if c > 1 {
			c = 1
		}
		sum += c
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// NewPage builds a page with Confidence set from words.
func NewPage(text string, words []Word) Page {
	return Page{Text: strings.TrimSpace(text), Words: words, Confidence: MeanConfidence(words)}
}
