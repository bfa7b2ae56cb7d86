package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/raster"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
)

const infoLevel = "info"

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.False(t, cfg.Verbose)

	p := cfg.Pipeline
	assert.Equal(t, 5*time.Minute, p.DocumentBudget)
	assert.InDelta(t, 0.85, p.Thresholds.Accept, 1e-9)
	assert.InDelta(t, 0.70, p.Thresholds.SpotCheck, 1e-9)
	assert.InDelta(t, 0.50, p.Thresholds.Warn, 1e-9)
	assert.Equal(t, 500, p.Scorer.CharsPerPage)

	assert.True(t, p.DirectText.Enabled)
	assert.Equal(t, 30*time.Second, p.DirectText.Budget)
	assert.True(t, p.LocalOCR.Enabled)
	assert.Equal(t, 3*time.Minute, p.LocalOCR.Budget)
	assert.Equal(t, 300, p.LocalOCR.DPI)
	assert.Equal(t, []string{"eng"}, p.LocalOCR.Languages)
	assert.Equal(t, "fitz", p.LocalOCR.Rasterizer)
	assert.False(t, p.RemoteOCR.Enabled)
	assert.Equal(t, 2*time.Minute, p.RemoteOCR.Budget)
	assert.InDelta(t, 0.065, p.RemoteOCR.CostPerPageUSD, 1e-9)
	assert.Equal(t, "document", p.RemoteOCR.BatchMode)
	assert.Equal(t, 4, p.RemoteOCR.MaxRetries)

	assert.False(t, cfg.Cache.Enabled)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 50, cfg.Server.MaxUploadMB)
	assert.Equal(t, 4, cfg.Batch.Workers)
	assert.True(t, cfg.Batch.ContinueOnError)
	assert.Equal(t, []string{"*.pdf"}, cfg.Batch.Include)
	assert.Equal(t, "json", cfg.Output.Format)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"log level", func(c *Config) { c.LogLevel = "trace" }, "invalid log level"},
		{"output format", func(c *Config) { c.Output.Format = "xml" }, "invalid output format"},
		{"threshold range", func(c *Config) { c.Pipeline.Thresholds.Accept = 1.5 }, "invalid pipeline config"},
		{"threshold order", func(c *Config) { c.Pipeline.Thresholds.Warn = 0.9 }, "invalid pipeline config"},
		{"document budget", func(c *Config) { c.Pipeline.DocumentBudget = 0 }, "document_budget"},
		{"bad pattern", func(c *Config) { c.Pipeline.ExpectedPatterns = []string{"("} }, "invalid pipeline config"},
		{"scorer", func(c *Config) { c.Pipeline.Scorer.CharsPerPage = 0 }, "chars_per_page"},
		{"direct min confidence", func(c *Config) { c.Pipeline.DirectText.MinConfidence = -0.1 }, "direct_text.min_confidence"},
		{"local min confidence", func(c *Config) { c.Pipeline.LocalOCR.MinConfidence = 1.1 }, "local_ocr.min_confidence"},
		{"remote min confidence", func(c *Config) { c.Pipeline.RemoteOCR.MinConfidence = 2 }, "remote_ocr.min_confidence"},
		{"direct budget", func(c *Config) { c.Pipeline.DirectText.Budget = 0 }, "direct_text.budget"},
		{"local budget", func(c *Config) { c.Pipeline.LocalOCR.Budget = -time.Second }, "local_ocr.budget"},
		{"remote budget", func(c *Config) { c.Pipeline.RemoteOCR.Budget = 0 }, "remote_ocr.budget"},
		{"workers", func(c *Config) { c.Pipeline.LocalOCR.Workers = -1 }, "local_ocr workers"},
		{"dpi", func(c *Config) { c.Pipeline.LocalOCR.DPI = 0 }, "dpi"},
		{"rasterizer", func(c *Config) { c.Pipeline.LocalOCR.Rasterizer = "ghostscript" }, "rasterizer"},
		{"batch mode", func(c *Config) { c.Pipeline.RemoteOCR.BatchMode = "chunk" }, "batch_mode"},
		{"remote endpoint", func(c *Config) { c.Pipeline.RemoteOCR.Enabled = true }, "endpoint is empty"},
		{"negative cost", func(c *Config) { c.Pipeline.RemoteOCR.CostPerPageUSD = -1 }, "cost_per_page_usd"},
		{"no strategy", func(c *Config) {
			c.Pipeline.DirectText.Enabled = false
			c.Pipeline.LocalOCR.Enabled = false
		}, "at least one"},
		{"cache backend", func(c *Config) { c.Cache.Backend = "memcached" }, "invalid cache config"},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"upload size", func(c *Config) { c.Server.MaxUploadMB = 0 }, "max upload size"},
		{"timeout", func(c *Config) { c.Server.TimeoutSec = 0 }, "invalid timeout"},
		{"batch workers", func(c *Config) { c.Batch.Workers = -2 }, "batch workers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_RemoteWithEndpoint(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.RemoteOCR.Enabled = true
	cfg.Pipeline.RemoteOCR.Endpoint = "https://ocr.example.com"
	cfg.Pipeline.RemoteOCR.BatchMode = "PAGE"
	assert.NoError(t, cfg.Validate())
}

func TestToPipelineConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.DocumentBudget = time.Minute
	cfg.Pipeline.ExpectedPatterns = []string{`Schedule [A-J]`}

	pc := cfg.ToPipelineConfig()
	assert.Equal(t, time.Minute, pc.DocumentBudget)
	assert.Equal(t, cfg.Pipeline.Thresholds, pc.Thresholds)
	assert.Equal(t, cfg.Pipeline.Scorer, pc.Scorer)
	assert.Equal(t, []string{`Schedule [A-J]`}, pc.ExpectedPatterns)
	assert.NoError(t, pc.Validate())
}

func TestStrategyConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.DirectText.UserPassword = "open"
	cfg.Pipeline.DirectText.OwnerPassword = "owner"
	cfg.Pipeline.LocalOCR.Workers = 3
	cfg.Pipeline.Preprocess.Deskew = false
	cfg.Pipeline.RemoteOCR.BatchMode = "page"
	cfg.Pipeline.RemoteOCR.CostPerPageUSD = 0.01

	direct := cfg.ToDirectTextConfig()
	assert.Equal(t, "open", direct.Credentials.UserPassword)
	assert.Equal(t, "owner", direct.Credentials.OwnerPassword)
	assert.Equal(t, cfg.Pipeline.Scorer.MinPageChars, direct.MinPageChars)
	assert.Equal(t, 30*time.Second, direct.Budget)

	local := cfg.ToLocalOCRConfig()
	assert.Equal(t, 3, local.Workers)
	assert.False(t, local.Preprocess.Deskew)
	assert.True(t, local.Preprocess.Binarize)

	remoteOCR := cfg.ToRemoteOCRConfig()
	assert.Equal(t, strategy.BatchPage, remoteOCR.BatchMode)
	assert.InDelta(t, 0.01, remoteOCR.CostPerPageUSD, 1e-9)

	cfg.Pipeline.RemoteOCR.BatchMode = "bogus"
	assert.Equal(t, strategy.BatchDocument, cfg.ToRemoteOCRConfig().BatchMode)
}

func TestToRemoteClientConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.RemoteOCR.Endpoint = "https://ocr.example.com"
	cfg.Pipeline.RemoteOCR.APIKey = "secret"

	rc := cfg.ToRemoteClientConfig()
	assert.Equal(t, "https://ocr.example.com", rc.Endpoint)
	assert.Equal(t, "secret", rc.APIKey)
	assert.Equal(t, 4, rc.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, rc.InitialBackoff)
	assert.Equal(t, 60*time.Second, rc.RequestTimeout)
	assert.Equal(t, []string{"TABLES", "FORMS"}, rc.Features)
}

func TestRasterizerKind(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, raster.KindFitz, cfg.RasterizerKind())

	cfg.Pipeline.LocalOCR.Rasterizer = "Embedded"
	assert.Equal(t, raster.KindEmbedded, cfg.RasterizerKind())

	cfg.Pipeline.LocalOCR.Rasterizer = ""
	assert.Equal(t, raster.KindFitz, cfg.RasterizerKind())
}

func TestToServerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Server.MaxUploadMB = 20
	cfg.Server.RateLimit.Enabled = true

	sc := cfg.ToServerConfig()
	assert.Equal(t, "*", sc.CORSOrigin)
	assert.Equal(t, int64(20), sc.MaxUploadMB)
	assert.Equal(t, 300, sc.TimeoutSec)
	assert.True(t, sc.RateLimit.Enabled)
	assert.Equal(t, 60, sc.RateLimit.RequestsPerMinute)

	assert.Equal(t, "localhost:8080", cfg.Server.Addr())
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Pipeline.RemoteOCR.APIKey = "sk-123"
	cfg.Cache.RedisPassword = "hunter2"

	r := cfg.Redacted()
	assert.Equal(t, redacted, r.Pipeline.RemoteOCR.APIKey)
	assert.Equal(t, redacted, r.Cache.RedisPassword)
	assert.Empty(t, r.Pipeline.DirectText.UserPassword, "empty secrets stay empty")
	assert.Equal(t, "sk-123", cfg.Pipeline.RemoteOCR.APIKey, "original untouched")
}

func TestContains(t *testing.T) {
	assert.True(t, contains([]string{"a", "b"}, "b"))
	assert.False(t, contains([]string{"a", "b"}, "c"))
	assert.False(t, contains(nil, "a"))
}

func TestValidateThreshold(t *testing.T) {
	assert.NoError(t, validateThreshold(0, "x"))
	assert.NoError(t, validateThreshold(1, "x"))
	assert.Error(t, validateThreshold(-0.01, "x"))
	assert.Error(t, validateThreshold(1.01, "x"))
}
