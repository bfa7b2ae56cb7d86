package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

func TestProcessBatch(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "10001.pdf", "first filing")
	writeDoc(t, dir, "10002.pdf", "second filing")
	writeDoc(t, dir, "ignore.txt", "nope")

	ex := &fakeExtractor{}
	cfg := testConfig()
	cfg.FilingType = extraction.FilingAnnual

	result, err := ProcessBatch(context.Background(), ex, []string{dir}, cfg)
	require.NoError(t, err)
	require.Len(t, result.Items, 2)
	assert.Equal(t, 4, result.WorkerCount)

	assert.Equal(t, "10001", result.Items[0].DocumentID)
	assert.Equal(t, "first filing", result.Items[0].Result.Text)
	assert.Equal(t, "10002", result.Items[1].DocumentID)
	assert.ElementsMatch(t, []string{"10001", "10002"}, ex.ids())
	for _, d := range ex.seen {
		assert.Equal(t, extraction.FilingAnnual, d.FilingType)
	}

	stats := result.Stats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Succeeded)
	assert.Equal(t, 2, stats.ByMethod["direct_text"])
	assert.Equal(t, 2, stats.ByBand["accept"])
	assert.InDelta(t, 0.9, stats.MeanConfidence, 1e-9)
}

func TestProcessBatch_NoDocuments(t *testing.T) {
	_, err := ProcessBatch(context.Background(), &fakeExtractor{}, []string{t.TempDir()}, testConfig())
	assert.EqualError(t, err, "no documents found")
}

func TestProcessBatch_ContinueOnError(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.pdf", "a")
	writeDoc(t, dir, "b.pdf", "b")
	writeDoc(t, dir, "c.pdf", "c")

	ex := &fakeExtractor{fail: map[string]error{"b": unextractable("b")}}
	result, err := ProcessBatch(context.Background(), ex, []string{dir}, testConfig())
	require.NoError(t, err)

	require.Len(t, result.Items, 3)
	assert.True(t, result.Items[0].OK())
	assert.False(t, result.Items[1].OK())
	assert.Contains(t, result.Items[1].Error, "corrupt document")
	require.Len(t, result.Items[1].Failures, 1)
	assert.Equal(t, extraction.MethodDirectText, result.Items[1].Failures[0].Method)
	assert.True(t, result.Items[2].OK())
	assert.Equal(t, 1, result.Stats().Failed)
}

func TestProcessBatch_StopOnError(t *testing.T) {
	dir := t.TempDir()
	for _, n := range []string{"a", "b", "c", "d"} {
		writeDoc(t, dir, n+".pdf", n)
	}

	ex := &fakeExtractor{fail: map[string]error{"a": errBoom}}
	cfg := testConfig()
	cfg.Workers = 1
	cfg.ContinueOnError = false

	result, err := ProcessBatch(context.Background(), ex, []string{dir}, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBoom)
	require.NotNil(t, result, "partial result is returned")
	assert.Equal(t, []string{"a"}, ex.ids())
	for _, it := range result.Items[1:] {
		assert.ErrorIs(t, it.Err, errStopped)
	}
}

func TestProcessBatch_OutputDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(t.TempDir(), "results")
	writeDoc(t, dir, "20240001.pdf", "Schedule A")

	cfg := testConfig()
	cfg.OutputDir = out
	_, err := ProcessBatch(context.Background(), &fakeExtractor{}, []string{dir}, cfg)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(out, "20240001.json"))
	require.NoError(t, err)
	var res extraction.Result
	require.NoError(t, json.Unmarshal(data, &res))
	assert.Equal(t, "20240001", res.DocumentID)
	assert.Equal(t, "Schedule A", res.Text)
}

func TestProcessBatch_Report(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.pdf", "alpha")
	writeDoc(t, dir, "b.pdf", "beta")
	report := filepath.Join(t.TempDir(), "report.xlsx")

	cfg := testConfig()
	cfg.ReportFile = report
	ex := &fakeExtractor{fail: map[string]error{"b": errBoom}}
	_, err := ProcessBatch(context.Background(), ex, []string{dir}, cfg)
	require.NoError(t, err)

	f, err := excelize.OpenFile(report)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	docRows, err := f.GetRows(documentsSheet)
	require.NoError(t, err)
	require.Len(t, docRows, 3)
	assert.Equal(t, csvHeader, docRows[0])
	assert.Equal(t, "a", docRows[1][1])
	assert.Equal(t, "direct_text", docRows[1][2])
	assert.Equal(t, "boom", docRows[2][len(docRows[2])-1])

	total, err := f.GetCellValue(summarySheet, "B1")
	require.NoError(t, err)
	assert.Equal(t, "2", total)
}

func TestWriteReport_RejectsExtension(t *testing.T) {
	err := WriteReport(filepath.Join(t.TempDir(), "report.csv"), &Result{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ".xlsx")
}

func TestProcessBatch_Progress(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.pdf", "alpha")

	var buf bytes.Buffer
	cfg := testConfig()
	cfg.ShowProgress = true
	cfg.ProgressWriter = &buf
	_, err := ProcessBatch(context.Background(), &fakeExtractor{}, []string{dir}, cfg)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Extracting")
	assert.Contains(t, buf.String(), "1/1")
}

func TestProcessBatch_CanceledContext(t *testing.T) {
	dir := t.TempDir()
	writeDoc(t, dir, "a.pdf", "alpha")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := ProcessBatch(ctx, &fakeExtractor{}, []string{dir}, testConfig())
	require.NoError(t, err, "continue_on_error records the failure instead")
	assert.False(t, result.Items[0].OK())
}

func TestSaveResults(t *testing.T) {
	r := &Result{Items: []Item{okItem("a", "alpha")}}

	var buf bytes.Buffer
	require.NoError(t, r.SaveResults(&buf, "text", "", false))
	assert.Contains(t, buf.String(), "alpha")

	path := filepath.Join(t.TempDir(), "out.json")
	buf.Reset()
	require.NoError(t, r.SaveResults(&buf, "json", path, false))
	assert.Contains(t, buf.String(), "Results written to")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "{"))

	assert.Error(t, r.SaveResults(&buf, "yaml", "", true))
}

func TestPrintStats(t *testing.T) {
	r := &Result{Items: []Item{okItem("a", "alpha"), {File: "b.pdf", DocumentID: "b", Err: errBoom, Error: "boom"}}, WorkerCount: 2}

	var buf bytes.Buffer
	r.PrintStats(&buf, false)
	out := buf.String()
	assert.Contains(t, out, "Total documents: 2")
	assert.Contains(t, out, "Extracted: 1")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Method direct_text: 1")

	buf.Reset()
	r.PrintStats(&buf, true)
	assert.Empty(t, buf.String())
}
