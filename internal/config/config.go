package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/cache"
	"github.com/MeKo-Tech/filingocr/internal/pdf"
	"github.com/MeKo-Tech/filingocr/internal/pipeline"
	"github.com/MeKo-Tech/filingocr/internal/preprocess"
	"github.com/MeKo-Tech/filingocr/internal/quality"
	"github.com/MeKo-Tech/filingocr/internal/raster"
	"github.com/MeKo-Tech/filingocr/internal/remote"
	"github.com/MeKo-Tech/filingocr/internal/server"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
)

const redacted = "[redacted]"

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	direct := strategy.DefaultDirectTextConfig()
	local := strategy.DefaultLocalOCRConfig()
	remoteOCR := strategy.DefaultRemoteOCRConfig()
	client := remote.DefaultConfig()

	return Config{
		LogLevel: "info",
		Verbose:  false,
		Pipeline: PipelineConfig{
			DocumentBudget:   pipeline.DefaultConfig().DocumentBudget,
			Thresholds:       pipeline.DefaultThresholds(),
			Scorer:           quality.DefaultConfig(),
			ExpectedPatterns: []string{},
			DirectText: DirectTextConfig{
				Enabled:       true,
				MinConfidence: direct.MinConfidence,
				Budget:        direct.Budget,
			},
			LocalOCR: LocalOCRConfig{
				Enabled:       true,
				MinConfidence: local.MinConfidence,
				Budget:        local.Budget,
				Workers:       0,
				DPI:           300,
				Languages:     []string{"eng"},
				Rasterizer:    string(raster.KindFitz),
			},
			RemoteOCR: RemoteOCRConfig{
				Enabled:        false,
				MinConfidence:  remoteOCR.MinConfidence,
				Budget:         remoteOCR.Budget,
				CostPerPageUSD: remoteOCR.CostPerPageUSD,
				BatchMode:      string(remoteOCR.BatchMode),
				MaxRetries:     client.MaxRetries,
				InitialBackoff: client.InitialBackoff,
				MaxBackoff:     client.MaxBackoff,
				Multiplier:     client.Multiplier,
				RequestTimeout: client.RequestTimeout,
				Features:       client.Features,
			},
			Preprocess: preprocess.DefaultConfig(),
		},
		Cache: cache.DefaultConfig(),
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     50,
			TimeoutSec:      300,
			ShutdownTimeout: 10,
			RateLimit: server.RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				MaxRequestsPerDay: 5000,
				MaxDataPerDay:     100 * 1024 * 1024,
			},
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: true,
			Include:         []string{"*.pdf"},
			Exclude:         []string{},
		},
		Output: OutputConfig{
			Format: "json",
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	validFormats := []string{"text", "json", "csv"}
	if c.Output.Format != "" && !contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if err := c.ToPipelineConfig().Validate(); err != nil {
		return fmt.Errorf("invalid pipeline config: %w", err)
	}

	p := c.Pipeline
	if err := validateThreshold(p.DirectText.MinConfidence, "pipeline.direct_text.min_confidence"); err != nil {
		return err
	}
	if err := validateThreshold(p.LocalOCR.MinConfidence, "pipeline.local_ocr.min_confidence"); err != nil {
		return err
	}
	if err := validateThreshold(p.RemoteOCR.MinConfidence, "pipeline.remote_ocr.min_confidence"); err != nil {
		return err
	}
	if err := validateBudget(p.DirectText.Budget, "pipeline.direct_text.budget"); err != nil {
		return err
	}
	if err := validateBudget(p.LocalOCR.Budget, "pipeline.local_ocr.budget"); err != nil {
		return err
	}
	if err := validateBudget(p.RemoteOCR.Budget, "pipeline.remote_ocr.budget"); err != nil {
		return err
	}

	if p.LocalOCR.Workers < 0 {
		return fmt.Errorf("invalid local_ocr workers: %d (must not be negative)", p.LocalOCR.Workers)
	}
	if p.LocalOCR.DPI <= 0 {
		return fmt.Errorf("invalid local_ocr dpi: %d (must be positive)", p.LocalOCR.DPI)
	}
	if _, err := raster.ParseKind(p.LocalOCR.Rasterizer); err != nil {
		return fmt.Errorf("invalid local_ocr rasterizer: %w", err)
	}

	if _, err := strategy.ParseBatchMode(p.RemoteOCR.BatchMode); err != nil {
		return fmt.Errorf("invalid remote_ocr batch_mode: %w", err)
	}
	if p.RemoteOCR.Enabled && strings.TrimSpace(p.RemoteOCR.Endpoint) == "" {
		return fmt.Errorf("remote_ocr is enabled but pipeline.remote_ocr.endpoint is empty")
	}
	if p.RemoteOCR.CostPerPageUSD < 0 {
		return fmt.Errorf("invalid remote_ocr cost_per_page_usd: %v (must not be negative)", p.RemoteOCR.CostPerPageUSD)
	}
	if p.RemoteOCR.MaxRetries < 0 {
		return fmt.Errorf("invalid remote_ocr max_retries: %d (must not be negative)", p.RemoteOCR.MaxRetries)
	}
	if !p.DirectText.Enabled && !p.LocalOCR.Enabled && !p.RemoteOCR.Enabled {
		return fmt.Errorf("at least one extraction strategy must be enabled")
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("invalid cache config: %w", err)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("invalid batch workers: %d (must not be negative)", c.Batch.Workers)
	}

	return nil
}

// ToPipelineConfig converts the config to the orchestrator configuration.
func (c *Config) ToPipelineConfig() pipeline.Config {
	return pipeline.Config{
		DocumentBudget:   c.Pipeline.DocumentBudget,
		Thresholds:       c.Pipeline.Thresholds,
		Scorer:           c.Pipeline.Scorer,
		ExpectedPatterns: c.Pipeline.ExpectedPatterns,
	}
}

// ToDirectTextConfig converts to strategy.DirectTextConfig.
func (c *Config) ToDirectTextConfig() strategy.DirectTextConfig {
	return strategy.DirectTextConfig{
		MinConfidence: c.Pipeline.DirectText.MinConfidence,
		Budget:        c.Pipeline.DirectText.Budget,
		MinPageChars:  c.Pipeline.Scorer.MinPageChars,
		Credentials: pdf.PasswordCredentials{
			UserPassword:  c.Pipeline.DirectText.UserPassword,
			OwnerPassword: c.Pipeline.DirectText.OwnerPassword,
		},
	}
}

// ToLocalOCRConfig converts to strategy.LocalOCRConfig.
func (c *Config) ToLocalOCRConfig() strategy.LocalOCRConfig {
	return strategy.LocalOCRConfig{
		MinConfidence: c.Pipeline.LocalOCR.MinConfidence,
		Budget:        c.Pipeline.LocalOCR.Budget,
		Workers:       c.Pipeline.LocalOCR.Workers,
		Preprocess:    c.Pipeline.Preprocess,
	}
}

// ToRemoteOCRConfig converts to strategy.RemoteOCRConfig. An invalid batch
// mode falls back to document; Validate reports it.
func (c *Config) ToRemoteOCRConfig() strategy.RemoteOCRConfig {
	mode, err := strategy.ParseBatchMode(c.Pipeline.RemoteOCR.BatchMode)
	if err != nil {
		mode = strategy.BatchDocument
	}
	return strategy.RemoteOCRConfig{
		MinConfidence:  c.Pipeline.RemoteOCR.MinConfidence,
		Budget:         c.Pipeline.RemoteOCR.Budget,
		CostPerPageUSD: c.Pipeline.RemoteOCR.CostPerPageUSD,
		BatchMode:      mode,
	}
}

// ToRemoteClientConfig converts to remote.Config.
func (c *Config) ToRemoteClientConfig() remote.Config {
	r := c.Pipeline.RemoteOCR
	return remote.Config{
		Endpoint:       r.Endpoint,
		APIKey:         r.APIKey,
		RequestTimeout: r.RequestTimeout,
		MaxRetries:     r.MaxRetries,
		InitialBackoff: r.InitialBackoff,
		MaxBackoff:     r.MaxBackoff,
		Multiplier:     r.Multiplier,
		Features:       r.Features,
	}
}

// RasterizerKind returns the configured rasterizer, fitz when unset.
func (c *Config) RasterizerKind() raster.Kind {
	kind, err := raster.ParseKind(c.Pipeline.LocalOCR.Rasterizer)
	if err != nil {
		return raster.KindFitz
	}
	return kind
}

// ToServerConfig converts to server.Config.
func (c *Config) ToServerConfig() server.Config {
	return server.Config{
		CORSOrigin:  c.Server.CORSOrigin,
		MaxUploadMB: int64(c.Server.MaxUploadMB),
		TimeoutSec:  c.Server.TimeoutSec,
		RateLimit:   c.Server.RateLimit,
	}
}

// Addr returns the host:port the server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Redacted returns a copy with secrets masked, for display.
func (c Config) Redacted() Config {
	out := c
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&out.Pipeline.DirectText.UserPassword)
	mask(&out.Pipeline.DirectText.OwnerPassword)
	mask(&out.Pipeline.RemoteOCR.APIKey)
	mask(&out.Cache.RedisPassword)
	return out
}

// contains checks if a slice contains a specific string.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// validateThreshold validates that a threshold value is between 0.0 and 1.0.
func validateThreshold(value float64, name string) error {
	if value < 0.0 || value > 1.0 {
		return fmt.Errorf("invalid %s: %f (must be between 0.0 and 1.0)", name, value)
	}
	return nil
}

func validateBudget(value time.Duration, name string) error {
	if value <= 0 {
		return fmt.Errorf("invalid %s: %s (must be positive)", name, value)
	}
	return nil
}
