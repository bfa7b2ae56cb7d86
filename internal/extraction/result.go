// Package extraction defines the uniform output contract shared by every
// text-extraction strategy and the orchestrator that selects between them.
package extraction

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Method identifies the strategy that produced a result.
type Method string

const (
	MethodDirectText Method = "direct_text"
	MethodLocalOCR   Method = "local_ocr"
	MethodRemoteOCR  Method = "remote_ocr"
)

// PageBreak separates page texts inside Result.Text.
const PageBreak = "\f"

// Warning annotations attached to results.
const (
	WarnLowConfidenceFinal    = "low_confidence_final"
	WarnTimeBudgetExceeded    = "time_budget_exceeded"
	WarnSpotCheckRecommended  = "spot_check_recommended"
	WarnLowConfidenceAccepted = "low_confidence_accepted"
	WarnRemoteRetriesExceeded = "remote_retries_exhausted"
	WarnPageCountMismatch     = "page_count_mismatch"
	WarnNoTextLayer           = "no_text_layer"
)

// String returns the wire name of the method.
func (m Method) String() string { return string(m) }

// Valid reports whether m is one of the known methods.
func (m Method) Valid() bool {
	switch m {
	case MethodDirectText, MethodLocalOCR, MethodRemoteOCR:
		return true
	}
	return false
}

// CostRank orders methods from cheapest (0) to most expensive.
func (m Method) CostRank() int {
	switch m {
	case MethodDirectText:
		return 0
	case MethodLocalOCR:
		return 1
	case MethodRemoteOCR:
		return 2
	default:
		return 99
	}
}

// PageText is the text recovered from one page.
type PageText struct {
	Number     int     `json:"page_number"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Processed  bool    `json:"processed"`
}

// Table is layout structure returned by layout-aware recognition.
// The core passes it through untouched.
type Table struct {
	Page int        `json:"page_number"`
	Rows [][]string `json:"rows"`
}

// Attempt records one strategy considered for a document.
type Attempt struct {
	Method           Method   `json:"method"`
	Outcome          string   `json:"outcome"`
	Score            *float64 `json:"score,omitempty"`
	Reason           string   `json:"reason,omitempty"`
	ProcessingTimeMs int64    `json:"processing_time_ms"`
	EstimatedCostUSD float64  `json:"estimated_cost_usd"`
}

// Result is the uniform output of any strategy and of the pipeline.
type Result struct {
	DocumentID        string     `json:"document_id,omitempty"`
	FilingType        FilingType `json:"filing_type,omitempty"`
	Text              string     `json:"text"`
	Method            Method     `json:"method"`
	ConfidenceScore   *float64   `json:"confidence_score"`
	Band              string     `json:"band,omitempty"`
	PageCount         int        `json:"page_count"`
	CharacterCount    int        `json:"character_count"`
	PerPageConfidence []float64  `json:"per_page_confidence"`
	Pages             []PageText `json:"-"`
	Tables            []Table    `json:"tables,omitempty"`
	Warnings          []string   `json:"warnings"`
	ProcessingTimeMs  int64      `json:"processing_time_ms"`
	EstimatedCostUSD  float64    `json:"estimated_cost_usd"`
	Attempts          []Attempt  `json:"attempts,omitempty"`
}

// NewResult assembles a result from per-page text. Page texts are NFC
// normalized and joined with PageBreak; CharacterCount is the rune count of
// the joined text.
func NewResult(method Method, pages []PageText) *Result {
	r := &Result{
		Method:            method,
		PageCount:         len(pages),
		Pages:             make([]PageText, len(pages)),
		PerPageConfidence: make([]float64, len(pages)),
		Warnings:          []string{},
	}
	texts := make([]string, len(pages))
	for i, p := range pages {
		p.Text = norm.NFC.String(strings.TrimSpace(p.Text))
		if p.Number == 0 {
			p.Number = i + 1
		}
		r.Pages[i] = p
		r.PerPageConfidence[i] = p.Confidence
		texts[i] = p.Text
	}
	r.Text = strings.Join(texts, PageBreak)
	if strings.Trim(r.Text, PageBreak) == "" {
		r.Text = ""
	}
	r.CharacterCount = utf8.RuneCountInString(r.Text)
	return r
}

// Empty returns a result with no text and a zero confidence score, used when
// a strategy ran cleanly but found nothing to read.
func Empty(method Method, pageCount int) *Result {
	pages := make([]PageText, pageCount)
	for i := range pages {
		pages[i] = PageText{Number: i + 1, Processed: true}
	}
	r := NewResult(method, pages)
	r.SetScore(0)
	return r
}

// SetScore records the confidence score.
func (r *Result) SetScore(score float64) {
	s := score
	r.ConfidenceScore = &s
}

// Score returns the confidence score, or 0 when it has not been set.
func (r *Result) Score() float64 {
	if r == nil || r.ConfidenceScore == nil {
		return 0
	}
	return *r.ConfidenceScore
}

// Scored reports whether the confidence score has been set.
func (r *Result) Scored() bool { return r != nil && r.ConfidenceScore != nil }

// AddWarning appends a warning unless it is already present.
func (r *Result) AddWarning(w string) {
	if r.HasWarning(w) {
		return
	}
	r.Warnings = append(r.Warnings, w)
}

// HasWarning reports whether w was recorded.
func (r *Result) HasWarning(w string) bool {
	for _, existing := range r.Warnings {
		if existing == w {
			return true
		}
	}
	return false
}

// PageTexts returns the per-page texts in page order.
func (r *Result) PageTexts() []string {
	if len(r.Pages) == 0 {
		if r.Text == "" {
			return nil
		}
		return strings.Split(r.Text, PageBreak)
	}
	out := make([]string, len(r.Pages))
	for i, p := range r.Pages {
		out[i] = p.Text
	}
	return out
}

// Validate checks the invariants every returned result must hold.
func (r *Result) Validate() error {
	if r == nil {
		return errors.New("nil result")
	}
	if !r.Method.Valid() {
		return fmt.Errorf("unknown method %q", r.Method)
	}
	if n := utf8.RuneCountInString(r.Text); n != r.CharacterCount {
		return fmt.Errorf("character_count %d does not match text length %d", r.CharacterCount, n)
	}
	if r.PageCount < 0 {
		return fmt.Errorf("negative page_count %d", r.PageCount)
	}
	if r.ConfidenceScore != nil && (*r.ConfidenceScore < 0 || *r.ConfidenceScore > 1) {
		return fmt.Errorf("confidence_score %.4f out of range", *r.ConfidenceScore)
	}
	return nil
}

// Clone returns a deep copy.
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	c := *r
	if r.ConfidenceScore != nil {
		s := *r.ConfidenceScore
		c.ConfidenceScore = &s
	}
	c.PerPageConfidence = append([]float64(nil), r.PerPageConfidence...)
	c.Pages = append([]PageText(nil), r.Pages...)
	c.Warnings = append([]string{}, r.Warnings...)
	c.Attempts = append([]Attempt(nil), r.Attempts...)
	if r.Tables != nil {
		c.Tables = make([]Table, len(r.Tables))
		for i, t := range r.Tables {
			rows := make([][]string, len(t.Rows))
			for j, row := range t.Rows {
				rows[j] = append([]string(nil), row...)
			}
			c.Tables[i] = Table{Page: t.Page, Rows: rows}
		}
	}
	return &c
}

// PageBelowThreshold formats the warning for a page whose text is too short.
func PageBelowThreshold(page int) string {
	return fmt.Sprintf("page %d below minimum character threshold", page)
}
