package batch

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeExtractor returns the document content as text, and fails for ids
// listed in fail.
type fakeExtractor struct {
	mu   sync.Mutex
	seen []*extraction.Document
	fail map[string]error
}

func (f *fakeExtractor) Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	f.mu.Lock()
	f.seen = append(f.seen, doc)
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := f.fail[doc.ID]; err != nil {
		return nil, err
	}
	res := extraction.NewResult(extraction.MethodDirectText, []extraction.PageText{
		{Number: 1, Text: strings.TrimSpace(string(doc.Content)), Confidence: 1, Processed: true},
	})
	res.DocumentID = doc.ID
	res.FilingType = doc.FilingType
	res.SetScore(0.9)
	res.Band = "accept"
	return res, nil
}

func (f *fakeExtractor) ids() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.seen))
	for _, d := range f.seen {
		out = append(out, d.ID)
	}
	return out
}

func unextractable(id string) error {
	return &extraction.DocumentUnextractable{
		DocumentID: id,
		Failures:   []extraction.StrategyFailure{{Method: extraction.MethodDirectText, Reason: "corrupt document"}},
	}
}

var errBoom = errors.New("boom")

func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Logger = quietLogger()
	return cfg
}
