//nolint:lll
package config

import (
	"time"

	"github.com/MeKo-Tech/filingocr/internal/cache"
	"github.com/MeKo-Tech/filingocr/internal/pipeline"
	"github.com/MeKo-Tech/filingocr/internal/preprocess"
	"github.com/MeKo-Tech/filingocr/internal/quality"
	"github.com/MeKo-Tech/filingocr/internal/server"
)

// Config represents the complete configuration for the filingocr application.
// It includes settings for all commands (extract, batch, serve) and
// supports loading from configuration files, environment variables, and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Extraction pipeline and its strategies
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Result cache
	Cache cache.Config `mapstructure:"cache" yaml:"cache" json:"cache"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`
}

// PipelineConfig contains orchestrator and strategy settings.
type PipelineConfig struct {
	DocumentBudget   time.Duration       `mapstructure:"document_budget" yaml:"document_budget" json:"document_budget"`
	Thresholds       pipeline.Thresholds `mapstructure:"thresholds" yaml:"thresholds" json:"thresholds"`
	Scorer           quality.Config      `mapstructure:"scorer" yaml:"scorer" json:"scorer"`
	ExpectedPatterns []string            `mapstructure:"expected_patterns" yaml:"expected_patterns" json:"expected_patterns"`

	DirectText DirectTextConfig  `mapstructure:"direct_text" yaml:"direct_text" json:"direct_text"`
	LocalOCR   LocalOCRConfig    `mapstructure:"local_ocr" yaml:"local_ocr" json:"local_ocr"`
	RemoteOCR  RemoteOCRConfig   `mapstructure:"remote_ocr" yaml:"remote_ocr" json:"remote_ocr"`
	Preprocess preprocess.Config `mapstructure:"preprocess" yaml:"preprocess" json:"preprocess"`
}

// DirectTextConfig contains text-layer strategy settings.
type DirectTextConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MinConfidence float64       `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	Budget        time.Duration `mapstructure:"budget" yaml:"budget" json:"budget"`
	UserPassword  string        `mapstructure:"user_password" yaml:"user_password" json:"-"`
	OwnerPassword string        `mapstructure:"owner_password" yaml:"owner_password" json:"-"`
}

// LocalOCRConfig contains local recognition settings.
type LocalOCRConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MinConfidence float64       `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	Budget        time.Duration `mapstructure:"budget" yaml:"budget" json:"budget"`
	Workers       int           `mapstructure:"workers" yaml:"workers" json:"workers"`
	DPI           int           `mapstructure:"dpi" yaml:"dpi" json:"dpi"`
	Languages     []string      `mapstructure:"languages" yaml:"languages" json:"languages"`
	Rasterizer    string        `mapstructure:"rasterizer" yaml:"rasterizer" json:"rasterizer"`
}

// RemoteOCRConfig contains remote recognition settings.
type RemoteOCRConfig struct {
	Enabled        bool          `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	MinConfidence  float64       `mapstructure:"min_confidence" yaml:"min_confidence" json:"min_confidence"`
	Budget         time.Duration `mapstructure:"budget" yaml:"budget" json:"budget"`
	Endpoint       string        `mapstructure:"endpoint" yaml:"endpoint" json:"endpoint"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key" json:"-"`
	CostPerPageUSD float64       `mapstructure:"cost_per_page_usd" yaml:"cost_per_page_usd" json:"cost_per_page_usd"`
	BatchMode      string        `mapstructure:"batch_mode" yaml:"batch_mode" json:"batch_mode"`
	MaxRetries     int           `mapstructure:"max_retries" yaml:"max_retries" json:"max_retries"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff" json:"max_backoff"`
	Multiplier     float64       `mapstructure:"multiplier" yaml:"multiplier" json:"multiplier"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout" json:"request_timeout"`
	Features       []string      `mapstructure:"features" yaml:"features" json:"features"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string                 `mapstructure:"host" yaml:"host" json:"host"`
	Port            int                    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string                 `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int                    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int                    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int                    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       server.RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	OutputDir       string   `mapstructure:"output_dir" yaml:"output_dir" json:"output_dir"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}
