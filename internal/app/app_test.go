package app

import (
	"context"
	"image"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/cache"
	"github.com/MeKo-Tech/filingocr/internal/config"
	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/ocr"
	"github.com/MeKo-Tech/filingocr/internal/raster"
	"github.com/MeKo-Tech/filingocr/internal/testutil"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func directOnly() config.Config {
	cfg := config.DefaultConfig()
	cfg.Pipeline.LocalOCR.Enabled = false
	return cfg
}

func noEngine() ocr.Engine {
	return ocr.EngineFunc(func(context.Context, image.Image) (ocr.Page, error) {
		return ocr.NewPage("", nil), nil
	})
}

func TestBuild_DirectTextOnly(t *testing.T) {
	a, err := NewBuilder(directOnly()).WithLogger(quietLogger()).Build(context.Background())
	require.NoError(t, err)
	defer func() { _ = a.Close() }()

	assert.Equal(t, []string{"direct_text"}, a.Strategies())

	doc := &extraction.Document{ID: "d1", FilingType: extraction.FilingAnnual, Content: testutil.DisclosurePDF(2)}
	result, err := a.Pipeline.Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, extraction.MethodDirectText, result.Method)
	assert.Equal(t, 2, result.PageCount)
}

func TestBuild_DefaultStrategies(t *testing.T) {
	a, err := NewBuilder(config.DefaultConfig()).
		WithLogger(quietLogger()).
		WithEngine(noEngine()).
		WithRasterizer(raster.Embedded{}).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"direct_text", "local_ocr"}, a.Strategies())

	info := a.Info()
	assert.Equal(t, "5m0s", info["document_budget"])
	assert.Equal(t, false, info["cache"])
	assert.Len(t, info["strategies"], 2)
}

func TestBuild_RemoteOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := config.DefaultConfig()
	cfg.Pipeline.RemoteOCR.Enabled = true
	cfg.Pipeline.RemoteOCR.Endpoint = srv.URL

	a, err := NewBuilder(cfg).
		WithLogger(quietLogger()).
		WithEngine(noEngine()).
		WithRasterizer(raster.Embedded{}).
		Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"direct_text", "local_ocr", "remote_ocr"}, a.Strategies())
}

func TestBuild_RemoteWithoutEndpoint(t *testing.T) {
	cfg := directOnly()
	cfg.Pipeline.RemoteOCR.Enabled = true

	_, err := NewBuilder(cfg).WithLogger(quietLogger()).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init remote client")
}

func TestBuild_NothingEnabled(t *testing.T) {
	cfg := directOnly()
	cfg.Pipeline.DirectText.Enabled = false

	_, err := NewBuilder(cfg).Build(context.Background())
	assert.EqualError(t, err, "no extraction strategy enabled")
}

func TestBuild_InvalidPipelineConfig(t *testing.T) {
	cfg := directOnly()
	cfg.Pipeline.Thresholds.Warn = 0.99

	_, err := NewBuilder(cfg).WithLogger(quietLogger()).Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init pipeline")
}

func TestBuild_MemoryCache(t *testing.T) {
	cfg := directOnly()
	cfg.Cache.Enabled = true

	a, err := NewBuilder(cfg).WithLogger(quietLogger()).Build(context.Background())
	require.NoError(t, err)
	defer func() { _ = a.Close() }()
	assert.Equal(t, true, a.Info()["cache"])

	content := testutil.DisclosurePDF(1)
	first, err := a.Pipeline.Extract(context.Background(), &extraction.Document{ID: "a", Content: content})
	require.NoError(t, err)
	second, err := a.Pipeline.Extract(context.Background(), &extraction.Document{ID: "b", Content: content})
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, "b", second.DocumentID)
}

func TestBuild_InjectedCacheNotClosed(t *testing.T) {
	mem := cache.NewMemory(10)
	a, err := NewBuilder(directOnly()).WithCache(mem).WithLogger(quietLogger()).Build(context.Background())
	require.NoError(t, err)
	require.NoError(t, a.Close())
	require.NoError(t, a.Close(), "second close is a no-op")
}
