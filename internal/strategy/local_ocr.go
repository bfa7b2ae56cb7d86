package strategy

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/filingocr/internal/common"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/ocr"
	"github.com/MeKo-Tech/filingocr/internal/preprocess"
	"github.com/MeKo-Tech/filingocr/internal/raster"
)

// LocalOCRConfig configures local recognition.
type LocalOCRConfig struct {
	MinConfidence float64
	Budget        time.Duration
	// Workers bounds concurrently processed pages; zero means NumCPU.
	Workers    int
	Preprocess preprocess.Config
}

// DefaultLocalOCRConfig returns the default configuration.
func DefaultLocalOCRConfig() LocalOCRConfig {
	return LocalOCRConfig{
		MinConfidence: DefaultMinConfidence,
		Budget:        3 * time.Minute,
		Preprocess:    preprocess.DefaultConfig(),
	}
}

// LocalOCR rasterizes, preprocesses and recognizes each page on this host.
type LocalOCR struct {
	base
	workers      int
	rasterizer   raster.Rasterizer
	engine       ocr.Engine
	preprocessor *preprocess.Preprocessor
}

// NewLocalOCR creates the strategy.
func NewLocalOCR(cfg LocalOCRConfig, rasterizer raster.Rasterizer, engine ocr.Engine, opts ...Option) *LocalOCR {
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &LocalOCR{
		base:         newBase(extraction.MethodLocalOCR, PriorityLocalOCR, cfg.MinConfidence, cfg.Budget, opts),
		workers:      workers,
		rasterizer:   rasterizer,
		engine:       engine,
		preprocessor: preprocess.New(cfg.Preprocess),
	}
}

// Fingerprint implements Fingerprinter. The worker ceiling is left out: it
// changes speed, not output.
func (s *LocalOCR) Fingerprint() string {
	return fingerprint(s.desc.Method, s.preprocessor.Config(),
		FingerprintOf(s.rasterizer), FingerprintOf(s.engine))
}

// Workers returns the page worker ceiling.
func (s *LocalOCR) Workers() int { return s.workers }

// Applicable implements Strategy.
func (s *LocalOCR) Applicable(doc *extraction.Document) (bool, string) {
	if s.rasterizer == nil || s.engine == nil {
		return false, "no recognition engine configured"
	}
	return pdfApplicable(doc)
}

type pageOutcome struct {
	text       string
	confidence float64
	done       bool
	err        error
}

// Extract implements Strategy. Pages run in parallel up to the worker
// ceiling. When ctx ends mid-document the pages finished so far are returned
// with a time_budget_exceeded warning.
func (s *LocalOCR) Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	timer := common.NewNamedTimer(string(s.desc.Method))

	pages, err := s.rasterizer.Open(doc.Content)
	if err != nil {
		return nil, s.fail("rasterize", fmt.Errorf("%w: %v", extraction.ErrCorruptDocument, err))
	}
	defer func() { _ = pages.Close() }()

	total := pages.NumPage()
	outcomes := make([]pageOutcome, total)

	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := 0; i < total; i++ {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcomes[i] = s.processPage(ctx, doc.ID, pages, i+1)
			return nil
		})
	}
	_ = g.Wait()

	texts := make([]extraction.PageText, total)
	done, failed := 0, 0
	var firstErr error
	var warnings []string
	for i, o := range outcomes {
		texts[i] = extraction.PageText{Number: i + 1, Text: o.text, Confidence: o.confidence, Processed: o.done}
		switch {
		case o.done:
			done++
		case o.err != nil && !errors.Is(o.err, context.Canceled) && !errors.Is(o.err, context.DeadlineExceeded):
			failed++
			if firstErr == nil {
				firstErr = o.err
			}
			warnings = append(warnings, fmt.Sprintf("page %d recognition failed", i+1))
		}
	}

	if ctx.Err() != nil && done < total {
		if done == 0 {
			return nil, s.fail("recognize", extraction.ErrTimeBudgetExhausted)
		}
		warnings = append(warnings, extraction.WarnTimeBudgetExceeded)
	}
	if total > 0 && failed == total {
		return nil, s.fail("recognize", firstErr)
	}

	result := extraction.NewResult(s.desc.Method, texts)
	for _, w := range warnings {
		result.AddWarning(w)
	}
	result.DocumentID = doc.ID
	result.FilingType = doc.FilingType
	result.EstimatedCostUSD = 0
	result.ProcessingTimeMs = timer.Milliseconds()

	s.logger.Debug("Recognized document locally",
		"document_id", doc.ID,
		"engine", s.engine.Name(),
		"pages", total,
		"pages_done", done,
		"pages_failed", failed,
		"elapsed_ms", result.ProcessingTimeMs)
	return result, nil
}

func (s *LocalOCR) processPage(ctx context.Context, docID string, pages raster.Pages, num int) pageOutcome {
	img, err := pages.Render(num)
	if err != nil {
		s.logger.Warn("Page render failed", "document_id", docID, "page", num, "error", err)
		return pageOutcome{err: err}
	}
	if ctx.Err() != nil {
		return pageOutcome{err: ctx.Err()}
	}

	processed, report := s.preprocessor.Process(img)
	s.logger.Debug("Preprocessed page",
		"document_id", docID,
		"page", num,
		"applied", len(report.Applied),
		"skew_degrees", report.SkewAngle)

	page, err := s.engine.Recognize(ctx, processed)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("Page recognition failed", "document_id", docID, "page", num, "error", err)
		}
		return pageOutcome{err: err}
	}

	conf := page.Confidence
	if len(page.Words) > 0 {
		conf = ocr.MeanConfidence(page.Words)
	}
	conf = min(max(conf, 0), 1)
	return pageOutcome{text: page.Text, confidence: conf, done: true}
}
