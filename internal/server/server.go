package server

import (
	"net/http"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/metrics"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	extractor   Extractor
	corsOrigin  string
	maxUploadMB int64
	timeout     time.Duration
	rateLimiter *RateLimiter
	strategies  []string
}

// Option configures a Server.
type Option func(*Server)

// WithStrategies lists the configured strategies in /health.
func WithStrategies(names ...string) Option {
	return func(s *Server) { s.strategies = names }
}

// NewServer creates a server around an extractor.
func NewServer(extractor Extractor, config Config, opts ...Option) *Server {
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 50
	}
	s := &Server{
		extractor:   extractor,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeout:     time.Duration(config.TimeoutSec) * time.Second,
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/v1/extract", s.corsMiddleware(s.rateLimitMiddleware(s.extractHandler)))
	mux.Handle("/metrics", metrics.Handler())
}

// Handler returns a mux with every route installed.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}
