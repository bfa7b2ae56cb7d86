package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

var errStopped = errors.New("skipped: batch stopped after an earlier failure")

// processSingleDocument loads one file and runs it through the extractor.
func processSingleDocument(ctx context.Context, ex Extractor, path string, cfg *Config) Item {
	start := time.Now()
	item := Item{File: path, DocumentID: documentID(path)}

	doc, err := extraction.LoadDocument(path)
	if err != nil {
		return item.failed(err, start)
	}
	doc.ID = item.DocumentID
	doc.FilingType = cfg.FilingType

	res, err := ex.Extract(ctx, doc)
	if err != nil {
		item = item.failed(err, start)
		if u, ok := extraction.AsUnextractable(err); ok {
			item.Failures = u.Failures
		}
		return item
	}
	item.Result = res
	item.Duration = time.Since(start)

	if cfg.OutputDir != "" {
		if err := writeDocumentJSON(cfg.OutputDir, item.DocumentID, res); err != nil {
			return item.failed(err, start)
		}
	}
	return item
}

func (i Item) failed(err error, start time.Time) Item {
	i.Err = err
	i.Error = err.Error()
	i.Duration = time.Since(start)
	return i
}

// writeDocumentJSON stores one result as <dir>/<id>.json.
func writeDocumentJSON(dir, id string, res *extraction.Result) error {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	path := filepath.Join(dir, id+".json")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// processDocumentsParallel runs up to cfg.Workers documents at once. Items
// keep the order of paths. Without ContinueOnError the first failure stops
// scheduling and the remaining items are marked as skipped.
func processDocumentsParallel(ctx context.Context, ex Extractor, paths []string, cfg *Config,
	progress Progress) ([]Item, error) {
	items := make([]Item, len(paths))
	logger := cfg.logger()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers())

	for i, path := range paths {
		g.Go(func() error {
			if gctx.Err() != nil {
				items[i] = Item{File: path, DocumentID: documentID(path), Err: errStopped, Error: errStopped.Error()}
				return nil
			}

			item := processSingleDocument(gctx, ex, path, cfg)
			items[i] = item
			progress.Add(1)

			if item.Err != nil {
				logger.Warn("Document failed", "file", path, "document_id", item.DocumentID, "error", item.Err)
				if !cfg.ContinueOnError {
					return fmt.Errorf("%s: %w", path, item.Err)
				}
				return nil
			}
			logger.Info("Document processed",
				"file", path,
				"document_id", item.DocumentID,
				"method", item.Result.Method,
				"band", item.Result.Band,
				"elapsed_ms", item.Duration.Milliseconds())
			return nil
		})
	}

	err := g.Wait()
	progress.Finish()
	return items, err
}
