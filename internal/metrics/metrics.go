// Package metrics exposes Prometheus collectors for the extraction pipeline
// and the HTTP server.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

var (
	documentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingocr_documents_total",
			Help: "Documents extracted, by winning method and band",
		},
		[]string{"method", "band"},
	)

	documentsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingocr_documents_failed_total",
			Help: "Documents no strategy could extract",
		},
		[]string{"reason"}, // reason: unextractable, canceled
	)

	strategyAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingocr_strategy_attempts_total",
			Help: "Strategy attempts by outcome",
		},
		[]string{"method", "outcome"},
	)

	strategyDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filingocr_strategy_duration_seconds",
			Help:    "Wall-clock time of one strategy attempt",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"method"},
	)

	confidenceScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filingocr_confidence_score",
			Help:    "Final confidence score by winning method",
			Buckets: []float64{.1, .2, .3, .4, .5, .6, .7, .8, .85, .9, .95, 1},
		},
		[]string{"method"},
	)

	estimatedCost = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingocr_estimated_cost_usd_total",
			Help: "Estimated spend of strategy attempts in USD",
		},
		[]string{"method"},
	)

	processingDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filingocr_processing_duration_seconds",
			Help:    "Wall-clock time per document",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 25, 50, 100, 300},
		},
	)

	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingocr_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "filingocr_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "filingocr_upload_size_bytes",
			Help:    "Size of uploaded documents in bytes",
			Buckets: []float64{1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024, 50 * 1024 * 1024, 100 * 1024 * 1024},
		},
	)

	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "filingocr_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"},
	)
)

// Recorder feeds pipeline activity into the collectors. It satisfies
// pipeline.Recorder.
type Recorder struct{}

// NewRecorder returns a Recorder.
func NewRecorder() *Recorder { return &Recorder{} }

// RecordAttempt counts one strategy attempt.
func (*Recorder) RecordAttempt(a extraction.Attempt) {
	method := a.Method.String()
	strategyAttempts.WithLabelValues(method, a.Outcome).Inc()
	if a.Outcome == "skipped" {
		return
	}
	strategyDuration.WithLabelValues(method).Observe(float64(a.ProcessingTimeMs) / 1000)
	if a.EstimatedCostUSD > 0 {
		estimatedCost.WithLabelValues(method).Add(a.EstimatedCostUSD)
	}
}

// RecordDocument counts a finished document.
func (*Recorder) RecordDocument(r *extraction.Result, elapsed time.Duration) {
	method := r.Method.String()
	documentsTotal.WithLabelValues(method, r.Band).Inc()
	confidenceScore.WithLabelValues(method).Observe(r.Score())
	processingDuration.Observe(elapsed.Seconds())
}

// RecordFailure counts a document that produced no result.
func (*Recorder) RecordFailure(_ string, err error, elapsed time.Duration) {
	documentsFailed.WithLabelValues(failureReason(err)).Inc()
	processingDuration.Observe(elapsed.Seconds())
}

func failureReason(err error) string {
	if _, ok := extraction.AsUnextractable(err); ok {
		return "unextractable"
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return "canceled"
	}
	return "error"
}

// ObserveHTTP records one served request.
func ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, endpoint).Observe(elapsed.Seconds())
}

// ObserveUpload records the size of an uploaded document.
func ObserveUpload(bytes int64) {
	uploadSizeBytes.Observe(float64(bytes))
}

// RateLimited counts a rejected request by limit type.
func RateLimited(limitType string) {
	rateLimitHits.WithLabelValues(limitType).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
