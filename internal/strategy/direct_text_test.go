package strategy

import (
	"context"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/testutil"
)

func newDirectText() *DirectText {
	return NewDirectText(DefaultDirectTextConfig(), WithLogger(quietLogger()))
}

func TestDirectText_Descriptor(t *testing.T) {
	d := newDirectText().Descriptor()
	assert.Equal(t, extraction.MethodDirectText, d.Method)
	assert.Equal(t, PriorityDirectText, d.Priority)
	assert.InDelta(t, 0.5, d.MinConfidenceToAccept, 1e-9)

	custom := NewDirectText(DirectTextConfig{MinConfidence: 2}, WithPriority(5))
	assert.Equal(t, 5, custom.Descriptor().Priority)
	assert.InDelta(t, DefaultMinConfidence, custom.Descriptor().MinConfidenceToAccept, 1e-9)
}

func TestDirectText_Applicable(t *testing.T) {
	s := newDirectText()

	ok, _ := s.Applicable(pdfDoc("a", testutil.DisclosurePDF(1)))
	assert.True(t, ok)

	ok, reason := s.Applicable(pdfDoc("b", []byte("hello")))
	assert.False(t, ok)
	assert.Equal(t, "not a PDF document", reason)

	ok, reason = s.Applicable(pdfDoc("c", nil))
	assert.False(t, ok)
	assert.Equal(t, "empty document", reason)
}

func TestDirectText_TextLayer(t *testing.T) {
	doc := pdfDoc("doc-3p", testutil.DisclosurePDF(3))

	result, err := newDirectText().Extract(context.Background(), doc)
	require.NoError(t, err)
	require.NoError(t, result.Validate())

	assert.Equal(t, extraction.MethodDirectText, result.Method)
	assert.Equal(t, "doc-3p", result.DocumentID)
	assert.Equal(t, extraction.FilingPeriodicTransaction, result.FilingType)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, []float64{1, 1, 1}, result.PerPageConfidence)
	assert.Equal(t, utf8.RuneCountInString(result.Text), result.CharacterCount)
	assert.Contains(t, result.Text, "Schedule B: Transactions")
	assert.Contains(t, result.Text, extraction.PageBreak)
	assert.Empty(t, result.Warnings)
	assert.Zero(t, result.EstimatedCostUSD)
	assert.False(t, result.Scored(), "scoring belongs to the pipeline")
}

func TestDirectText_NoTextLayer(t *testing.T) {
	result, err := newDirectText().Extract(context.Background(), pdfDoc("scan", testutil.ScannedPDF(1)))
	require.NoError(t, err)

	assert.Empty(t, result.Text)
	assert.Equal(t, 0, result.CharacterCount)
	assert.Equal(t, 1, result.PageCount)
	require.True(t, result.Scored())
	assert.Zero(t, result.Score())
	assert.Contains(t, result.Warnings, extraction.WarnNoTextLayer)
	assert.Contains(t, result.Warnings, "page 1 below minimum character threshold")
}

func TestDirectText_MixedPages(t *testing.T) {
	content := testutil.NewPDFBuilder().
		AddTextPage(testutil.DisclosurePageText(1)).
		AddTextPage("Page Two").
		AddBlankPage().
		Bytes()

	result, err := newDirectText().Extract(context.Background(), pdfDoc("mixed", content))
	require.NoError(t, err)
	assert.Equal(t, 3, result.PageCount)
	assert.InDelta(t, 1.0, result.PerPageConfidence[0], 1e-9)
	assert.Less(t, result.PerPageConfidence[1], 1.0)
	assert.Zero(t, result.PerPageConfidence[2])
	assert.Equal(t, []string{
		"page 2 below minimum character threshold",
		"page 3 below minimum character threshold",
	}, result.Warnings)
}

func TestDirectText_ZeroPages(t *testing.T) {
	result, err := newDirectText().Extract(context.Background(), pdfDoc("empty", testutil.NewPDFBuilder().Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 0, result.PageCount)
	assert.Empty(t, result.Text)
	assert.Zero(t, result.Score())
}

func TestDirectText_Corrupt(t *testing.T) {
	_, err := newDirectText().Extract(context.Background(), pdfDoc("bad", testutil.CorruptPDF()))
	require.Error(t, err)

	var ee *extraction.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, extraction.MethodDirectText, ee.Method)
	assert.ErrorIs(t, err, extraction.ErrCorruptDocument)
}

func TestDirectText_BudgetExhausted(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newDirectText().Extract(ctx, pdfDoc("late", testutil.DisclosurePDF(2)))
	require.Error(t, err)
	assert.True(t, extraction.IsExtractionError(err))
	assert.ErrorIs(t, err, extraction.ErrTimeBudgetExhausted)
}

func TestDirectText_GeneratedFixture(t *testing.T) {
	path := testutil.FixturePath(t, testutil.FilingsDir, "annual_text.pdf")
	doc, err := extraction.LoadDocument(path)
	require.NoError(t, err)

	result, err := newDirectText().Extract(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, 3, result.PageCount)
	assert.Equal(t, utf8.RuneCountInString(result.Text), result.CharacterCount)
}
