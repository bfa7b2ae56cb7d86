// Package support holds the step definitions of the pipeline feature suite.
package support

import (
	"io"
	"log/slog"
	"net/http/httptest"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/pipeline"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
	"github.com/MeKo-Tech/filingocr/internal/strategy/mock"
)

// TestContext holds the state of one scenario.
type TestContext struct {
	// Pipeline under test
	Config     pipeline.Config
	Scripted   map[extraction.Method]*mock.Strategy
	Strategies []strategy.Strategy
	Scripting  bool

	// Input and outcome
	Document *extraction.Document
	Result   *extraction.Result
	Err      error

	// HTTP API state
	Server             *httptest.Server
	LastHTTPStatusCode int
	LastHTTPResponse   []byte
	LastHTTPHeaders    map[string]string
}

// NewTestContext creates an empty scenario context.
func NewTestContext() *TestContext {
	return &TestContext{
		Config:   pipeline.DefaultConfig(),
		Scripted: map[extraction.Method]*mock.Strategy{},
	}
}

// Cleanup stops the API server if one was started.
func (testCtx *TestContext) Cleanup() error {
	if testCtx.Server != nil {
		testCtx.Server.Close()
		testCtx.Server = nil
	}
	return nil
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// build assembles a pipeline from the strategies declared so far.
func (testCtx *TestContext) build() (*pipeline.Pipeline, error) {
	opts := []pipeline.Option{pipeline.WithLogger(quietLogger())}
	if testCtx.Scripting {
		opts = append(opts, pipeline.WithScoreFunc(mock.ScoreFromText))
	}
	return pipeline.New(testCtx.Config, testCtx.Strategies, opts...)
}
