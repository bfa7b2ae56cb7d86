package strategy

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image/png"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/common"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/pdf"
	"github.com/MeKo-Tech/filingocr/internal/raster"
	"github.com/MeKo-Tech/filingocr/internal/remote"
)

// BatchMode selects what is sent to the remote service.
type BatchMode string

const (
	// BatchDocument sends the whole file in one call.
	BatchDocument BatchMode = "document"
	// BatchPage rasterizes the document and sends one call per page image.
	BatchPage BatchMode = "page"
)

// ParseBatchMode parses a batch mode name; the empty string means document.
func ParseBatchMode(s string) (BatchMode, error) {
	switch BatchMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", BatchDocument:
		return BatchDocument, nil
	case BatchPage:
		return BatchPage, nil
	default:
		return "", fmt.Errorf("unknown batch mode %q (want document or page)", s)
	}
}

// DefaultCostPerPageUSD is the list price of one analyzed page.
const DefaultCostPerPageUSD = 0.065

// RemoteOCRConfig configures remote recognition.
type RemoteOCRConfig struct {
	MinConfidence  float64
	Budget         time.Duration
	CostPerPageUSD float64
	BatchMode      BatchMode
}

// DefaultRemoteOCRConfig returns the default configuration.
func DefaultRemoteOCRConfig() RemoteOCRConfig {
	return RemoteOCRConfig{
		MinConfidence:  DefaultMinConfidence,
		Budget:         2 * time.Minute,
		CostPerPageUSD: DefaultCostPerPageUSD,
		BatchMode:      BatchDocument,
	}
}

// Analyzer is the remote call RemoteOCR depends on; *remote.Client
// implements it.
type Analyzer interface {
	Analyze(ctx context.Context, req remote.Request) (*remote.Response, error)
}

// RemoteOCR delegates recognition to the layout-aware service. It is the
// only strategy with a monetary cost.
type RemoteOCR struct {
	base
	cfg        RemoteOCRConfig
	client     Analyzer
	rasterizer raster.Rasterizer
}

// NewRemoteOCR creates the strategy. The rasterizer is only needed in page
// batch mode.
func NewRemoteOCR(cfg RemoteOCRConfig, client Analyzer, rasterizer raster.Rasterizer, opts ...Option) *RemoteOCR {
	if cfg.CostPerPageUSD < 0 {
		cfg.CostPerPageUSD = DefaultCostPerPageUSD
	}
	if cfg.BatchMode == "" {
		cfg.BatchMode = BatchDocument
	}
	return &RemoteOCR{
		base:       newBase(extraction.MethodRemoteOCR, PriorityRemoteOCR, cfg.MinConfidence, cfg.Budget, opts),
		cfg:        cfg,
		client:     client,
		rasterizer: rasterizer,
	}
}

// Fingerprint implements Fingerprinter.
func (s *RemoteOCR) Fingerprint() string {
	var rasterizer string
	if s.cfg.BatchMode == BatchPage {
		rasterizer = FingerprintOf(s.rasterizer)
	}
	return fingerprint(s.desc.Method, s.cfg.CostPerPageUSD, s.cfg.BatchMode,
		FingerprintOf(s.client), rasterizer)
}

// Applicable implements Strategy.
func (s *RemoteOCR) Applicable(doc *extraction.Document) (bool, string) {
	if s.client == nil {
		return false, "remote endpoint not configured"
	}
	if s.cfg.BatchMode == BatchPage && s.rasterizer == nil {
		return false, "page batch mode needs a rasterizer"
	}
	return pdfApplicable(doc)
}

// Extract implements Strategy.
func (s *RemoteOCR) Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	timer := common.NewNamedTimer(string(s.desc.Method))

	var (
		result *extraction.Result
		err    error
	)
	if s.cfg.BatchMode == BatchPage {
		result, err = s.extractPages(ctx, doc)
	} else {
		result, err = s.extractDocument(ctx, doc)
	}
	if err != nil {
		return nil, err
	}

	result.DocumentID = doc.ID
	result.FilingType = doc.FilingType
	result.ProcessingTimeMs = timer.Milliseconds()
	return result, nil
}

func (s *RemoteOCR) extractDocument(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	pageCount, err := pdf.PageCount(doc.Content)
	if err != nil {
		pageCount = 0
	}
	resp, err := s.client.Analyze(ctx, remote.Request{
		DocumentID: doc.ID,
		MimeType:   "application/pdf",
		Content:    doc.Content,
		PageCount:  pageCount,
	})
	if err != nil {
		return nil, s.callFailure(ctx, err)
	}
	// Analyzers other than remote.Client may skip the check.
	if err := resp.CheckPageNumbers(pageCount); err != nil {
		return nil, s.fail("analyze", err)
	}

	total := max(len(resp.Pages), pageCount)
	for _, p := range resp.Pages {
		total = max(total, p.PageNumber)
	}

	texts := make([]extraction.PageText, total)
	for i := range texts {
		texts[i] = extraction.PageText{Number: i + 1}
	}
	var tables []extraction.Table
	for _, p := range sortedPages(resp.Pages) {
		texts[p.PageNumber-1] = responsePage(p)
		tables = append(tables, convertTables(p)...)
	}

	result := extraction.NewResult(s.desc.Method, texts)
	result.Tables = tables
	result.EstimatedCostUSD = s.cost(resp.Billed())

	s.logger.Debug("Remote analysis complete",
		"document_id", doc.ID,
		"model_version", resp.ModelVersion,
		"pages", total,
		"billed_pages", resp.Billed(),
		"attempts", resp.Attempts)
	return result, nil
}

// extractPages sends page images one by one. It stops at the first call that
// fails and keeps whatever pages came back before it.
func (s *RemoteOCR) extractPages(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	pages, err := s.rasterizer.Open(doc.Content)
	if err != nil {
		return nil, s.fail("rasterize", fmt.Errorf("%w: %v", extraction.ErrCorruptDocument, err))
	}
	defer func() { _ = pages.Close() }()

	total := pages.NumPage()
	texts := make([]extraction.PageText, total)
	for i := range texts {
		texts[i] = extraction.PageText{Number: i + 1}
	}

	var (
		tables  []extraction.Table
		billed  int
		done    int
		callErr error
	)
	for num := 1; num <= total; num++ {
		img, err := pages.Render(num)
		if err != nil {
			s.logger.Warn("Page render failed", "document_id", doc.ID, "page", num, "error", err)
			continue
		}
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			s.logger.Warn("Page encode failed", "document_id", doc.ID, "page", num, "error", err)
			continue
		}

		resp, err := s.client.Analyze(ctx, remote.Request{
			DocumentID: doc.ID,
			MimeType:   "image/png",
			Content:    buf.Bytes(),
			PageNumber: num,
		})
		if err != nil {
			callErr = err
			break
		}
		billed += resp.Billed()

		var parts []string
		var confs []float64
		for _, p := range sortedPages(resp.Pages) {
			pt := responsePage(p)
			parts = append(parts, pt.Text)
			confs = append(confs, pt.Confidence)
			for _, t := range convertTables(p) {
				t.Page = num
				tables = append(tables, t)
			}
		}
		texts[num-1] = extraction.PageText{
			Number:     num,
			Text:       strings.Join(parts, "\n"),
			Confidence: mean(confs),
			Processed:  true,
		}
		done++
	}

	if callErr != nil && done == 0 {
		return nil, s.callFailure(ctx, callErr)
	}
	if done == 0 && total > 0 {
		return nil, s.fail("analyze", errors.New("no page could be rendered"))
	}

	result := extraction.NewResult(s.desc.Method, texts)
	result.Tables = tables
	result.EstimatedCostUSD = s.cost(billed)
	if callErr != nil {
		if ctx.Err() != nil {
			result.AddWarning(extraction.WarnTimeBudgetExceeded)
		} else {
			result.AddWarning(extraction.WarnRemoteRetriesExceeded)
		}
		s.logger.Warn("Remote analysis incomplete",
			"document_id", doc.ID,
			"pages_done", done,
			"pages", total,
			"error", callErr)
	}
	return result, nil
}

func (s *RemoteOCR) callFailure(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return s.fail("analyze", fmt.Errorf("%w: %v", extraction.ErrTimeBudgetExhausted, err))
	}
	return s.fail("analyze", err)
}

func (s *RemoteOCR) cost(pages int) float64 {
	return math.Round(float64(pages)*s.cfg.CostPerPageUSD*1e6) / 1e6
}

func sortedPages(pages []remote.Page) []remote.Page {
	out := append([]remote.Page(nil), pages...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].PageNumber < out[j].PageNumber })
	return out
}

// responsePage converts a service page. A page without a reported confidence
// counts as zero.
func responsePage(p remote.Page) extraction.PageText {
	pt := extraction.PageText{Number: p.PageNumber, Text: p.Text, Processed: true}
	if p.Confidence != nil {
		pt.Confidence = *p.Confidence
	}
	return pt
}

func convertTables(p remote.Page) []extraction.Table {
	out := make([]extraction.Table, 0, len(p.Tables))
	for _, t := range p.Tables {
		out = append(out, extraction.Table{Page: p.PageNumber, Rows: t.Rows})
	}
	return out
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
