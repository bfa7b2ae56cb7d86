package batch

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Parallel processing settings
	Workers int

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Document metadata applied to every discovered file
	FilingType extraction.FilingType

	// Output settings
	Format          string
	OutputFile      string
	OutputDir       string
	ReportFile      string
	ContinueOnError bool

	// Progress settings
	ShowProgress   bool
	Quiet          bool
	ProgressWriter io.Writer

	Logger *slog.Logger
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() *Config {
	return &Config{
		Workers:         4,
		IncludePatterns: []string{"*.pdf"},
		Format:          "json",
		ContinueOnError: true,
	}
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

func (c *Config) workers() int {
	if c.Workers <= 0 {
		return 1
	}
	return c.Workers
}

// Item is the outcome for one discovered file.
type Item struct {
	File       string             `json:"file"`
	DocumentID string             `json:"document_id"`
	Result     *extraction.Result `json:"result,omitempty"`
	Error      string             `json:"error,omitempty"`
	// Failures lists per-strategy reasons when no strategy produced output.
	Failures []extraction.StrategyFailure `json:"failures,omitempty"`
	Err      error                        `json:"-"`
	Duration time.Duration                `json:"-"`
}

// OK reports whether the document produced a result.
func (i Item) OK() bool { return i.Err == nil && i.Result != nil }

// Result holds the result of batch processing.
type Result struct {
	Items       []Item
	Duration    time.Duration
	WorkerCount int
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// SaveResults writes the formatted results to outputFile, or to w when no
// file is given.
func (r *Result) SaveResults(w io.Writer, format, outputFile string, quiet bool) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		if !quiet {
			_, _ = fmt.Fprintf(w, "Results written to %s\n", outputFile)
		}
	} else {
		_, _ = fmt.Fprint(w, output)
	}

	return nil
}

// Stats summarizes a batch run.
type Stats struct {
	Total           int            `json:"total"`
	Succeeded       int            `json:"succeeded"`
	Failed          int            `json:"failed"`
	ByMethod        map[string]int `json:"by_method"`
	ByBand          map[string]int `json:"by_band"`
	TotalPages      int            `json:"total_pages"`
	TotalCostUSD    float64        `json:"total_cost_usd"`
	MeanConfidence  float64        `json:"mean_confidence"`
	Workers         int            `json:"workers"`
	DurationMs      int64          `json:"duration_ms"`
	DocumentsPerSec float64        `json:"documents_per_sec"`
}

// Stats calculates processing statistics.
func (r *Result) Stats() Stats {
	s := Stats{
		Total:      len(r.Items),
		ByMethod:   map[string]int{},
		ByBand:     map[string]int{},
		Workers:    r.WorkerCount,
		DurationMs: r.Duration.Milliseconds(),
	}
	var confSum float64
	for _, it := range r.Items {
		if !it.OK() {
			s.Failed++
			continue
		}
		s.Succeeded++
		s.ByMethod[string(it.Result.Method)]++
		s.ByBand[it.Result.Band]++
		s.TotalPages += it.Result.PageCount
		s.TotalCostUSD += it.Result.EstimatedCostUSD
		confSum += it.Result.Score()
	}
	if s.Succeeded > 0 {
		s.MeanConfidence = confSum / float64(s.Succeeded)
	}
	if secs := r.Duration.Seconds(); secs > 0 {
		s.DocumentsPerSec = float64(s.Total) / secs
	}
	return s
}

// PrintStats prints processing statistics.
func (r *Result) PrintStats(w io.Writer, quiet bool) {
	if quiet {
		return
	}
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total documents: %d\n", stats.Total)
	_, _ = fmt.Fprintf(w, "  Extracted: %d\n", stats.Succeeded)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.Failed)
	for _, m := range sortedKeys(stats.ByMethod) {
		_, _ = fmt.Fprintf(w, "  Method %s: %d\n", m, stats.ByMethod[m])
	}
	for _, b := range sortedKeys(stats.ByBand) {
		_, _ = fmt.Fprintf(w, "  Band %s: %d\n", b, stats.ByBand[b])
	}
	_, _ = fmt.Fprintf(w, "  Mean confidence: %.4f\n", stats.MeanConfidence)
	_, _ = fmt.Fprintf(w, "  Estimated cost: $%.4f\n", stats.TotalCostUSD)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.Workers)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.2f documents/sec\n", stats.DocumentsPerSec)
}
