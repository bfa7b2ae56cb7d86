// Package batch provides batch processing of filing documents.
package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// Extractor is the pipeline entry point the batch runner drives.
type Extractor interface {
	Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error)
}

// ProcessBatch discovers documents under paths and extracts each one.
// A partial result is returned together with the error when the run stops
// early.
func ProcessBatch(ctx context.Context, ex Extractor, paths []string, config *Config) (*Result, error) {
	files, err := discoverDocuments(paths, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover documents: %w", err)
	}

	if len(files) == 0 {
		return nil, errors.New("no documents found")
	}

	progress := newProgress(config, len(files))

	startTime := time.Now()
	items, err := processDocumentsParallel(ctx, ex, files, config, progress)
	result := &Result{
		Items:       items,
		Duration:    time.Since(startTime),
		WorkerCount: config.workers(),
	}

	if config.ReportFile != "" {
		if rerr := WriteReport(config.ReportFile, result); rerr != nil {
			return result, fmt.Errorf("failed to write report: %w", rerr)
		}
	}

	if err != nil {
		return result, fmt.Errorf("batch processing failed: %w", err)
	}
	return result, nil
}
