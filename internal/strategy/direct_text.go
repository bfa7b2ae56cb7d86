package strategy

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/common"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/pdf"
)

// DirectTextConfig configures the text-layer strategy.
type DirectTextConfig struct {
	MinConfidence float64
	Budget        time.Duration
	// MinPageChars is the per-page floor below which a page gets a warning.
	MinPageChars int
	Credentials  pdf.PasswordCredentials
}

// DefaultDirectTextConfig returns the default configuration.
func DefaultDirectTextConfig() DirectTextConfig {
	return DirectTextConfig{
		MinConfidence: DefaultMinConfidence,
		Budget:        30 * time.Second,
		MinPageChars:  50,
	}
}

// DirectText reads the embedded text layer. It never renders and never
// touches the network, so it costs nothing.
type DirectText struct {
	base
	cfg    DirectTextConfig
	reader *pdf.TextLayerReader
}

// Fingerprint implements Fingerprinter.
func (s *DirectText) Fingerprint() string {
	return fingerprint(s.desc.Method, s.cfg.MinPageChars, s.cfg.Credentials)
}

// NewDirectText creates the strategy.
func NewDirectText(cfg DirectTextConfig, opts ...Option) *DirectText {
	if cfg.MinPageChars <= 0 {
		cfg.MinPageChars = DefaultDirectTextConfig().MinPageChars
	}
	s := &DirectText{
		base: newBase(extraction.MethodDirectText, PriorityDirectText, cfg.MinConfidence, cfg.Budget, opts),
		cfg:  cfg,
	}
	s.reader = pdf.NewTextLayerReader(cfg.Credentials).WithLogger(s.logger)
	return s
}

// Applicable implements Strategy.
func (s *DirectText) Applicable(doc *extraction.Document) (bool, string) {
	return pdfApplicable(doc)
}

// Extract implements Strategy. A document without a text layer is a clean
// empty result, not an error.
func (s *DirectText) Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	timer := common.NewNamedTimer(string(s.desc.Method))

	layer, err := s.reader.ReadContext(ctx, doc.Content)
	truncated := false
	switch {
	case err == nil:
	case ctx.Err() != nil && layer != nil:
		if layer.NumPages() == 0 {
			return nil, s.fail("read text layer", extraction.ErrTimeBudgetExhausted)
		}
		truncated = true
	case errors.Is(err, extraction.ErrUnsupportedFormat):
		return nil, s.fail("open", err)
	default:
		return nil, s.fail("read text layer", err)
	}

	analysis := pdf.AnalyzePages(layer, s.cfg.MinPageChars)

	var result *extraction.Result
	if analysis.HasTextLayer() {
		pages := layer.PageTexts()
		for i, pa := range analysis.Pages {
			pages[i].Confidence = pageConfidence(pa, s.cfg.MinPageChars)
		}
		result = extraction.NewResult(s.desc.Method, pages)
	} else {
		result = extraction.Empty(s.desc.Method, layer.NumPages())
		result.AddWarning(extraction.WarnNoTextLayer)
	}
	for _, w := range analysis.Warnings() {
		result.AddWarning(w)
	}
	if truncated {
		result.AddWarning(extraction.WarnTimeBudgetExceeded)
	}
	if layer.Encrypted {
		s.logger.Debug("Decrypted document for text layer", "document_id", doc.ID)
	}

	result.DocumentID = doc.ID
	result.FilingType = doc.FilingType
	result.EstimatedCostUSD = 0
	result.ProcessingTimeMs = timer.Milliseconds()

	s.logger.Debug("Read text layer",
		"document_id", doc.ID,
		"pages", result.PageCount,
		"text_pages", analysis.TextPages,
		"empty_pages", analysis.EmptyPages,
		"characters", result.CharacterCount)
	return result, nil
}

// pageConfidence rates embedded text by how far the page clears the floor.
func pageConfidence(pa pdf.PageAnalysis, minChars int) float64 {
	switch pa.Class {
	case pdf.PageText:
		return 1
	case pdf.PageSparse:
		return math.Round(float64(pa.Characters)/float64(minChars)*1e4) / 1e4
	default:
		return 0
	}
}
