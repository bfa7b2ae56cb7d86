package extraction

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"unicode/utf8"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewResult(t *testing.T) {
	pages := []PageText{
		{Text: "  Schedule A: Assets  ", Confidence: 0.9, Processed: true},
		{Text: "Café Holdings LLC", Confidence: 0.8, Processed: true},
	}

	res := NewResult(MethodLocalOCR, pages)

	assert.Equal(t, MethodLocalOCR, res.Method)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, "Schedule A: Assets"+PageBreak+"Café Holdings LLC", res.Text)
	assert.Equal(t, utf8.RuneCountInString(res.Text), res.CharacterCount)
	assert.Equal(t, []float64{0.9, 0.8}, res.PerPageConfidence)
	assert.Equal(t, 1, res.Pages[0].Number)
	assert.Equal(t, 2, res.Pages[1].Number)
	assert.False(t, res.Scored())
	assert.NotNil(t, res.Warnings)
	require.NoError(t, res.Validate())
}

func TestNewResult_NormalizesToNFC(t *testing.T) {
	decomposed := "Cafe\u0301"
	res := NewResult(MethodDirectText, []PageText{{Text: decomposed}})
	assert.Equal(t, "Caf\u00e9", res.Text)
	assert.Equal(t, 4, res.CharacterCount)
}

func TestEmpty(t *testing.T) {
	res := Empty(MethodDirectText, 3)
	assert.Equal(t, "", res.Text)
	assert.Equal(t, 0, res.CharacterCount)
	assert.Len(t, res.PageTexts(), 3)
	assert.Equal(t, 3, res.PageCount)
	assert.True(t, res.Scored())
	assert.InDelta(t, 0.0, res.Score(), 1e-9)
	require.NoError(t, res.Validate())

	zero := Empty(MethodDirectText, 0)
	assert.Equal(t, "", zero.Text)
	assert.Equal(t, 0, zero.CharacterCount)
}

func TestResult_Warnings(t *testing.T) {
	res := NewResult(MethodDirectText, nil)
	res.AddWarning(WarnLowConfidenceFinal)
	res.AddWarning(WarnLowConfidenceFinal)
	res.AddWarning(PageBelowThreshold(3))

	assert.Equal(t, []string{"low_confidence_final", "page 3 below minimum character threshold"}, res.Warnings)
	assert.True(t, res.HasWarning(WarnLowConfidenceFinal))
	assert.False(t, res.HasWarning(WarnTimeBudgetExceeded))
}

func TestResult_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(r *Result)
		wantErr string
	}{
		{name: "valid", mutate: func(r *Result) {}},
		{name: "bad method", mutate: func(r *Result) { r.Method = "magic" }, wantErr: "unknown method"},
		{name: "count drift", mutate: func(r *Result) { r.CharacterCount++ }, wantErr: "character_count"},
		{name: "score out of range", mutate: func(r *Result) { r.SetScore(1.5) }, wantErr: "out of range"},
		{name: "negative pages", mutate: func(r *Result) { r.PageCount = -1 }, wantErr: "negative page_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewResult(MethodDirectText, []PageText{{Text: "hello"}})
			tt.mutate(res)
			err := res.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	var nilResult *Result
	require.Error(t, nilResult.Validate())
}

func TestResult_CloneIsDeep(t *testing.T) {
	res := NewResult(MethodRemoteOCR, []PageText{{Text: "a", Confidence: 0.5}})
	res.SetScore(0.7)
	res.Tables = []Table{{Page: 1, Rows: [][]string{{"asset", "value"}}}}
	res.AddWarning("x")

	c := res.Clone()
	c.SetScore(0.1)
	c.PerPageConfidence[0] = 0
	c.Tables[0].Rows[0][0] = "changed"
	c.Warnings[0] = "y"

	assert.InDelta(t, 0.7, res.Score(), 1e-9)
	assert.InDelta(t, 0.5, res.PerPageConfidence[0], 1e-9)
	assert.Equal(t, "asset", res.Tables[0].Rows[0][0])
	assert.Equal(t, "x", res.Warnings[0])
}

func TestResult_PageTexts(t *testing.T) {
	res := NewResult(MethodDirectText, []PageText{{Text: "one"}, {Text: "two"}})
	assert.Equal(t, []string{"one", "two"}, res.PageTexts())

	decoded := &Result{Text: "one" + PageBreak + "two"}
	assert.Equal(t, []string{"one", "two"}, decoded.PageTexts())

	assert.Nil(t, (&Result{}).PageTexts())
}

func TestResult_JSONShape(t *testing.T) {
	res := NewResult(MethodDirectText, []PageText{{Text: "text"}})
	res.SetScore(0.9)
	res.DocumentID = "doc-1"
	res.FilingType = FilingAnnual

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(data, &m))
	for _, key := range []string{
		"text", "method", "confidence_score", "page_count", "character_count",
		"per_page_confidence", "warnings", "processing_time_ms", "estimated_cost_usd",
	} {
		assert.Contains(t, m, key)
	}
	assert.NotContains(t, m, "Pages")
	assert.Equal(t, "direct_text", m["method"])
	assert.Equal(t, "A", m["filing_type"])
}

func TestMethod(t *testing.T) {
	assert.True(t, MethodDirectText.Valid())
	assert.False(t, Method("x").Valid())
	assert.Less(t, MethodDirectText.CostRank(), MethodLocalOCR.CostRank())
	assert.Less(t, MethodLocalOCR.CostRank(), MethodRemoteOCR.CostRank())
	assert.Equal(t, "remote_ocr", MethodRemoteOCR.String())
}

func TestCharacterCountMatchesText(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("character_count equals rune count", prop.ForAll(
		func(texts []string) bool {
			pages := make([]PageText, len(texts))
			for i, s := range texts {
				pages[i] = PageText{Text: s}
			}
			res := NewResult(MethodLocalOCR, pages)
			return res.CharacterCount == utf8.RuneCountInString(res.Text) && res.Validate() == nil
		},
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}

func TestErrors(t *testing.T) {
	base := fmt.Errorf("xref: %w", ErrCorruptDocument)
	err := NewExtractionError(MethodDirectText, "open", base)

	assert.Equal(t, "direct_text extraction failed in open: xref: corrupt document", err.Error())
	assert.True(t, errors.Is(err, ErrCorruptDocument))
	assert.True(t, IsExtractionError(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsExtractionError(base))

	noOp := &ExtractionError{Method: MethodRemoteOCR, Err: ErrRetriesExhausted}
	assert.Equal(t, "remote_ocr extraction failed: retries exhausted", noOp.Error())

	un := &DocumentUnextractable{
		DocumentID: "doc-9",
		Failures: []StrategyFailure{
			{Method: MethodDirectText, Reason: "corrupt"},
			{Method: MethodLocalOCR, Reason: "cannot rasterize"},
		},
	}
	assert.Equal(t, "document doc-9 unextractable: direct_text: corrupt; local_ocr: cannot rasterize", un.Error())

	got, ok := AsUnextractable(fmt.Errorf("ctx: %w", un))
	require.True(t, ok)
	assert.Len(t, got.Failures, 2)

	_, ok = AsUnextractable(base)
	assert.False(t, ok)
}
