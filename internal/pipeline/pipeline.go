package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/MeKo-Tech/filingocr/internal/common"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/quality"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
)

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithRecorder sets the activity recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithCache stores final results under a content-addressed key for ttl.
func WithCache(c Cache, ttl time.Duration) Option {
	return func(p *Pipeline) {
		p.cache = c
		p.cacheTTL = ttl
	}
}

// ScoreFunc computes a confidence score in [0,1] from scorer input.
type ScoreFunc func(in quality.Input) float64

// WithScoreFunc replaces the quality scorer, for calibration runs and tests.
func WithScoreFunc(f ScoreFunc) Option {
	return func(p *Pipeline) {
		if f != nil {
			p.scoreFn = f
		}
	}
}

// Pipeline escalates through its strategies until one is accepted.
// It holds no per-document state and is safe for concurrent use.
type Pipeline struct {
	cfg        Config
	strategies []strategy.Strategy
	scoreFn    ScoreFunc
	patterns   []*regexp.Regexp
	logger     *slog.Logger
	recorder   Recorder
	cache      Cache
	cacheTTL   time.Duration
	configKey  string
}

// New builds a pipeline. Strategies run in ascending priority; equal
// priorities keep the order given.
func New(cfg Config, strategies []strategy.Strategy, opts ...Option) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline config: %w", err)
	}
	patterns, err := quality.CompilePatterns(cfg.ExpectedPatterns)
	if err != nil {
		return nil, err
	}

	ordered := make([]strategy.Strategy, 0, len(strategies))
	for _, s := range strategies {
		if s != nil {
			ordered = append(ordered, s)
		}
	}
	if len(ordered) == 0 {
		return nil, errors.New("no extraction strategies configured")
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Descriptor().Priority < ordered[j].Descriptor().Priority
	})

	p := &Pipeline{
		cfg:        cfg,
		strategies: ordered,
		scoreFn:    quality.NewScorer(cfg.Scorer).Score,
		patterns:   patterns,
		logger:     slog.Default(),
		recorder:   NopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.configKey = configFingerprint(cfg, p.strategies)
	return p, nil
}

// Config returns the pipeline configuration.
func (p *Pipeline) Config() Config { return p.cfg }

// Descriptors lists the strategies in execution order.
func (p *Pipeline) Descriptors() []strategy.Descriptor {
	out := make([]strategy.Descriptor, len(p.strategies))
	for i, s := range p.strategies {
		out[i] = s.Descriptor()
	}
	return out
}

// Extract runs the strategies on doc and returns the final result. The only
// errors are *extraction.DocumentUnextractable, an invalid document, or the
// caller's context ending.
func (p *Pipeline) Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	if doc == nil {
		return nil, errors.New("nil document")
	}
	if doc.ID == "" {
		d := *doc
		d.ID = uuid.NewString()
		doc = &d
	}
	timer := common.NewNamedTimer(doc.ID)

	if cached, ok := p.lookup(ctx, doc); ok {
		p.logger.Info("Document served from cache", "document_id", doc.ID, "method", cached.Method)
		return cached, nil
	}

	docCtx, cancel := context.WithTimeout(ctx, p.cfg.DocumentBudget)
	defer cancel()

	var (
		evals    []Evaluation
		best     = -1
		accepted bool
		cost     float64
	)
	for _, s := range p.strategies {
		if err := ctx.Err(); err != nil {
			p.recorder.RecordFailure(doc.ID, err, timer.Elapsed())
			return nil, fmt.Errorf("extract %s: %w", doc.ID, err)
		}

		var ev Evaluation
		if docCtx.Err() != nil {
			ev = Evaluation{Method: s.Descriptor().Method, Outcome: Skipped, Reason: "document time budget exhausted"}
		} else {
			ev = p.evaluate(docCtx, s, doc)
		}
		evals = append(evals, ev)
		p.logAttempt(doc.ID, ev)
		p.recorder.RecordAttempt(ev.Attempt())

		if !ev.HasOutput() {
			continue
		}
		cost += ev.Result.EstimatedCostUSD
		if best < 0 || ev.Score > evals[best].Score {
			best = len(evals) - 1
		}
		if ev.Outcome == Accepted {
			accepted = true
			break
		}
	}

	if best < 0 {
		if err := ctx.Err(); err != nil {
			p.recorder.RecordFailure(doc.ID, err, timer.Elapsed())
			return nil, fmt.Errorf("extract %s: %w", doc.ID, err)
		}
		err := unextractable(doc.ID, evals)
		p.logger.Warn("Document unextractable", "document_id", doc.ID, "error", err)
		p.recorder.RecordFailure(doc.ID, err, timer.Elapsed())
		return nil, err
	}

	final := p.finalize(doc, evals[best], evals, accepted, cost, docCtx.Err() != nil)
	timer.Stop()
	final.ProcessingTimeMs = timer.Milliseconds()

	p.logger.Info("Document extracted",
		"document_id", doc.ID,
		"method", final.Method,
		"score", final.Score(),
		"band", final.Band,
		"accepted", accepted,
		"cost_usd", final.EstimatedCostUSD,
		"elapsed_ms", final.ProcessingTimeMs)
	p.recorder.RecordDocument(final, timer.Elapsed())
	p.store(ctx, doc, final)
	return final, nil
}

// evaluate runs one strategy under its own deadline and scores the output.
func (p *Pipeline) evaluate(ctx context.Context, s strategy.Strategy, doc *extraction.Document) Evaluation {
	desc := s.Descriptor()
	ev := Evaluation{Method: desc.Method}

	if ok, reason := s.Applicable(doc); !ok {
		ev.Outcome = Skipped
		ev.Reason = reason
		return ev
	}

	sctx := ctx
	if desc.Budget > 0 {
		var cancel context.CancelFunc
		sctx, cancel = context.WithTimeout(ctx, desc.Budget)
		defer cancel()
	}

	start := time.Now()
	result, err := s.Extract(sctx, doc)
	ev.Elapsed = time.Since(start)

	switch {
	case err != nil:
		if !extraction.IsExtractionError(err) {
			err = extraction.NewExtractionError(desc.Method, "", err)
		}
		ev.Outcome = HardFailure
		ev.Err = err
		ev.Reason = err.Error()
		return ev
	case result == nil:
		ev.Outcome = HardFailure
		ev.Err = extraction.NewExtractionError(desc.Method, "", errors.New("strategy returned no result"))
		ev.Reason = ev.Err.Error()
		return ev
	}

	ev.Score = p.score(result)
	result.SetScore(ev.Score)
	ev.Result = result
	if ev.Score >= desc.MinConfidenceToAccept {
		ev.Outcome = Accepted
	} else {
		ev.Outcome = Escalate
		ev.Reason = fmt.Sprintf("score %.4f below %.2f", ev.Score, desc.MinConfidenceToAccept)
	}
	return ev
}

func (p *Pipeline) score(r *extraction.Result) float64 {
	v := p.scoreFn(quality.Input{
		Text:             r.Text,
		PageCount:        r.PageCount,
		PageTexts:        r.PageTexts(),
		ExpectedPatterns: p.patterns,
	})
	return math.Min(1, math.Max(0, v))
}

func (p *Pipeline) finalize(doc *extraction.Document, best Evaluation, evals []Evaluation, accepted bool, cost float64, outOfTime bool) *extraction.Result {
	final := best.Result.Clone()
	final.DocumentID = doc.ID
	if doc.FilingType != "" {
		final.FilingType = doc.FilingType
	}
	final.SetScore(best.Score)

	band := ClassifyBand(best.Score, p.cfg.Thresholds)
	final.Band = band.String()
	if w := band.Warning(); w != "" {
		final.AddWarning(w)
	}
	if !accepted {
		final.AddWarning(extraction.WarnLowConfidenceFinal)
	} else if band == BandReject {
		final.AddWarning(extraction.WarnLowConfidenceAccepted)
	}
	if outOfTime {
		final.AddWarning(extraction.WarnTimeBudgetExceeded)
	}
	if doc.ExpectedPageCount > 0 && final.PageCount != doc.ExpectedPageCount {
		final.AddWarning(extraction.WarnPageCountMismatch)
	}

	final.EstimatedCostUSD = math.Round(cost*1e6) / 1e6
	final.Attempts = make([]extraction.Attempt, len(evals))
	for i, ev := range evals {
		final.Attempts[i] = ev.Attempt()
	}
	return final
}

func (p *Pipeline) logAttempt(documentID string, ev Evaluation) {
	args := []any{
		"document_id", documentID,
		"strategy", ev.Method,
		"outcome", ev.Outcome.String(),
		"score", ev.Score,
		"elapsed_ms", ev.Elapsed.Milliseconds(),
	}
	switch ev.Outcome {
	case HardFailure:
		p.logger.Warn("Strategy failed", append(args, "error", ev.Err)...)
	case Skipped:
		p.logger.Debug("Strategy skipped", append(args, "reason", ev.Reason)...)
	default:
		p.logger.Info("Strategy attempt", args...)
	}
}

func unextractable(documentID string, evals []Evaluation) *extraction.DocumentUnextractable {
	e := &extraction.DocumentUnextractable{DocumentID: documentID}
	for _, ev := range evals {
		reason := ev.Reason
		if ev.Outcome == Skipped {
			reason = "not applicable: " + reason
		}
		e.Failures = append(e.Failures, extraction.StrategyFailure{Method: ev.Method, Reason: reason})
	}
	return e
}
