// Package mock provides scripted strategies for exercising the pipeline
// without PDFs, rasterizers or OCR engines.
package mock

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/quality"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
)

// scorePrefix marks page text whose score is fixed by ScoreFromText.
const scorePrefix = "score="

// ScoreText returns page text that ScoreFromText maps to score.
func ScoreText(score float64) string {
	return scorePrefix + strconv.FormatFloat(score, 'f', 4, 64)
}

// ScoreFromText is a pipeline score function for scripted strategies: text
// produced by ScoreText scores its embedded value, anything else scores 0.
func ScoreFromText(in quality.Input) float64 {
	if !strings.HasPrefix(in.Text, scorePrefix) {
		return 0
	}
	v, err := strconv.ParseFloat(strings.SplitN(strings.TrimPrefix(in.Text, scorePrefix), extraction.PageBreak, 2)[0], 64)
	if err != nil {
		return 0
	}
	return v
}

// Strategy is a scripted strategy. The zero value is applicable and returns a
// single empty page.
type Strategy struct {
	Desc strategy.Descriptor
	// NotApplicable, when set, is returned as the skip reason.
	NotApplicable string
	// Pages are the page texts of the result.
	Pages []string
	// Score sets Pages to one page scoring this value under ScoreFromText.
	Score *float64
	Cost  float64
	Err   error
	// Delay blocks Extract; a context ending first yields ErrTimeBudgetExhausted.
	Delay    time.Duration
	Warnings []string

	calls atomic.Int32
}

// Scoring returns a scripted strategy whose output scores s.
func Scoring(method extraction.Method, priority int, s float64) *Strategy {
	return &Strategy{
		Desc: strategy.Descriptor{
			Method:                method,
			Priority:              priority,
			MinConfidenceToAccept: strategy.DefaultMinConfidence,
		},
		Score: &s,
	}
}

// Failing returns a scripted strategy that hard-fails with err.
func Failing(method extraction.Method, priority int, err error) *Strategy {
	return &Strategy{
		Desc: strategy.Descriptor{
			Method:                method,
			Priority:              priority,
			MinConfidenceToAccept: strategy.DefaultMinConfidence,
		},
		Err: extraction.NewExtractionError(method, "extract", err),
	}
}

// Calls returns how many times Extract ran.
func (s *Strategy) Calls() int { return int(s.calls.Load()) }

// Descriptor implements strategy.Strategy.
func (s *Strategy) Descriptor() strategy.Descriptor { return s.Desc }

// Applicable implements strategy.Strategy.
func (s *Strategy) Applicable(*extraction.Document) (bool, string) {
	return s.NotApplicable == "", s.NotApplicable
}

// Extract implements strategy.Strategy.
func (s *Strategy) Extract(ctx context.Context, _ *extraction.Document) (*extraction.Result, error) {
	s.calls.Add(1)
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, extraction.NewExtractionError(s.Desc.Method, "extract",
				fmt.Errorf("%w: %v", extraction.ErrTimeBudgetExhausted, ctx.Err()))
		}
	}
	if s.Err != nil {
		return nil, s.Err
	}

	texts := s.Pages
	if s.Score != nil {
		texts = []string{ScoreText(*s.Score)}
	}
	pages := make([]extraction.PageText, len(texts))
	for i, t := range texts {
		pages[i] = extraction.PageText{Number: i + 1, Text: t, Processed: true}
	}
	r := extraction.NewResult(s.Desc.Method, pages)
	r.EstimatedCostUSD = s.Cost
	for _, w := range s.Warnings {
		r.AddWarning(w)
	}
	return r, nil
}
