// Package server exposes the extraction pipeline over HTTP.
package server

import (
	"context"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// Extractor is the part of the pipeline the server needs.
type Extractor interface {
	Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error)
}

// RateLimitConfig holds per-client request limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool  `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int   `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int   `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	MaxRequestsPerDay int   `mapstructure:"max_requests_per_day" yaml:"max_requests_per_day" json:"max_requests_per_day"`
	MaxDataPerDay     int64 `mapstructure:"max_data_per_day" yaml:"max_data_per_day" json:"max_data_per_day"`
}

// Config holds server configuration.
type Config struct {
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	RateLimit   RateLimitConfig
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status     string   `json:"status"`
	Version    string   `json:"version,omitempty"`
	Time       string   `json:"time"`
	Strategies []string `json:"strategies,omitempty"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error      string                       `json:"error"`
	Message    string                       `json:"message,omitempty"`
	DocumentID string                       `json:"document_id,omitempty"`
	Failures   []extraction.StrategyFailure `json:"failures,omitempty"`
}

// Error codes carried in ErrorResponse.Error.
const (
	codeBadRequest    = "bad_request"
	codeTooLarge      = "document_too_large"
	codeUnextractable = "document_unextractable"
	codeInternal      = "internal_error"
	codeUnavailable   = "pipeline_unavailable"
	codeMethod        = "method_not_allowed"
	codeRateLimited   = "rate_limit_exceeded"
	codeQuotaExceeded = "quota_exceeded"
)
