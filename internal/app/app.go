// Package app assembles an extraction pipeline from the loaded configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/filingocr/internal/cache"
	"github.com/MeKo-Tech/filingocr/internal/config"
	"github.com/MeKo-Tech/filingocr/internal/ocr"
	"github.com/MeKo-Tech/filingocr/internal/ocr/tesseract"
	"github.com/MeKo-Tech/filingocr/internal/pipeline"
	"github.com/MeKo-Tech/filingocr/internal/raster"
	"github.com/MeKo-Tech/filingocr/internal/remote"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
)

// Builder constructs an App with fluent configuration. Components left unset
// are created from the config.
type Builder struct {
	cfg        config.Config
	logger     *slog.Logger
	recorder   pipeline.Recorder
	engine     ocr.Engine
	rasterizer raster.Rasterizer
	analyzer   strategy.Analyzer
	cache      cache.Client
}

// NewBuilder creates a builder for cfg.
func NewBuilder(cfg config.Config) *Builder {
	return &Builder{cfg: cfg}
}

// WithLogger sets the logger for every component.
func (b *Builder) WithLogger(l *slog.Logger) *Builder {
	b.logger = l
	return b
}

// WithRecorder sets the attempt and document recorder.
func (b *Builder) WithRecorder(r pipeline.Recorder) *Builder {
	b.recorder = r
	return b
}

// WithEngine overrides the Tesseract engine.
func (b *Builder) WithEngine(e ocr.Engine) *Builder {
	b.engine = e
	return b
}

// WithRasterizer overrides the configured rasterizer.
func (b *Builder) WithRasterizer(r raster.Rasterizer) *Builder {
	b.rasterizer = r
	return b
}

// WithAnalyzer overrides the remote client.
func (b *Builder) WithAnalyzer(a strategy.Analyzer) *Builder {
	b.analyzer = a
	return b
}

// WithCache overrides the configured cache client.
func (b *Builder) WithCache(c cache.Client) *Builder {
	b.cache = c
	return b
}

// Config returns a copy of the current config.
func (b *Builder) Config() config.Config { return b.cfg }

// App is an assembled pipeline plus the resources it owns.
type App struct {
	Pipeline *pipeline.Pipeline

	cfg   config.Config
	cache cache.Client
}

// Build initializes the strategies and the pipeline.
func (b *Builder) Build(ctx context.Context) (*App, error) {
	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	cfg := b.cfg
	sopts := []strategy.Option{strategy.WithLogger(logger)}

	var strategies []strategy.Strategy
	if cfg.Pipeline.DirectText.Enabled {
		strategies = append(strategies, strategy.NewDirectText(cfg.ToDirectTextConfig(), sopts...))
	}

	needRaster := cfg.Pipeline.LocalOCR.Enabled ||
		(cfg.Pipeline.RemoteOCR.Enabled && cfg.ToRemoteOCRConfig().BatchMode == strategy.BatchPage)
	rasterizer := b.rasterizer
	if rasterizer == nil && needRaster {
		r, err := raster.New(cfg.RasterizerKind(), float64(cfg.Pipeline.LocalOCR.DPI))
		if err != nil {
			return nil, fmt.Errorf("init rasterizer: %w", err)
		}
		rasterizer = r
	}

	if cfg.Pipeline.LocalOCR.Enabled {
		engine := b.engine
		if engine == nil {
			engine = tesseract.New(tesseract.Config{
				Languages: cfg.Pipeline.LocalOCR.Languages,
				DPI:       cfg.Pipeline.LocalOCR.DPI,
			})
		}
		strategies = append(strategies, strategy.NewLocalOCR(cfg.ToLocalOCRConfig(), rasterizer, engine, sopts...))
	}

	if cfg.Pipeline.RemoteOCR.Enabled {
		analyzer := b.analyzer
		if analyzer == nil {
			client, err := remote.NewClient(cfg.ToRemoteClientConfig(), remote.WithLogger(logger))
			if err != nil {
				return nil, fmt.Errorf("init remote client: %w", err)
			}
			analyzer = client
		}
		strategies = append(strategies, strategy.NewRemoteOCR(cfg.ToRemoteOCRConfig(), analyzer, rasterizer, sopts...))
	}

	if len(strategies) == 0 {
		return nil, errors.New("no extraction strategy enabled")
	}

	c := b.cache
	if c == nil && cfg.Cache.Enabled {
		client, err := cache.New(ctx, cfg.Cache)
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		c = client
	}

	popts := []pipeline.Option{pipeline.WithLogger(logger)}
	if b.recorder != nil {
		popts = append(popts, pipeline.WithRecorder(b.recorder))
	}
	if c != nil {
		popts = append(popts, pipeline.WithCache(c, cfg.Cache.TTL))
	}

	p, err := pipeline.New(cfg.ToPipelineConfig(), strategies, popts...)
	if err != nil {
		if c != nil && b.cache == nil {
			_ = c.Close()
		}
		return nil, fmt.Errorf("init pipeline: %w", err)
	}

	logger.Debug("Pipeline assembled",
		"strategies", methodNames(p.Descriptors()),
		"cache", c != nil,
		"document_budget", cfg.Pipeline.DocumentBudget.String())

	return &App{Pipeline: p, cfg: cfg, cache: c}, nil
}

// Close releases the cache connection.
func (a *App) Close() error {
	if a.cache == nil {
		return nil
	}
	err := a.cache.Close()
	a.cache = nil
	return err
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config { return a.cfg }

// Strategies returns the method names in execution order.
func (a *App) Strategies() []string {
	return methodNames(a.Pipeline.Descriptors())
}

// Info returns key pipeline properties for diagnostics.
func (a *App) Info() map[string]interface{} {
	pc := a.Pipeline.Config()
	descs := a.Pipeline.Descriptors()
	strategies := make([]map[string]interface{}, 0, len(descs))
	for _, d := range descs {
		strategies = append(strategies, map[string]interface{}{
			"method":         string(d.Method),
			"priority":       d.Priority,
			"min_confidence": d.MinConfidenceToAccept,
			"budget":         d.Budget.String(),
		})
	}
	return map[string]interface{}{
		"document_budget": pc.DocumentBudget.String(),
		"thresholds":      pc.Thresholds,
		"strategies":      strategies,
		"cache":           a.cache != nil,
	}
}

func methodNames(descs []strategy.Descriptor) []string {
	out := make([]string, 0, len(descs))
	for _, d := range descs {
		out = append(out, string(d.Method))
	}
	return out
}
