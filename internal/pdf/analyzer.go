package pdf

import (
	"fmt"
	"unicode"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// PageClass is the text-layer classification of a page.
type PageClass int

const (
	// PageText has enough embedded text to be read directly.
	PageText PageClass = iota
	// PageSparse has some embedded text, below the minimum.
	PageSparse
	// PageEmpty has no embedded text; typically a scanned image.
	PageEmpty
)

// String returns the string representation of the page class.
func (c PageClass) String() string {
	switch c {
	case PageText:
		return "text"
	case PageSparse:
		return "sparse"
	case PageEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// MarshalText encodes the class by name.
func (c PageClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// PageAnalysis contains the analysis results for a PDF page.
type PageAnalysis struct {
	PageNumber int       `json:"page_number"`
	Class      PageClass `json:"class"`
	Characters int       `json:"characters"`
	Reasoning  string    `json:"reasoning"`
}

// Analysis summarizes a document's text layer.
type Analysis struct {
	Pages       []PageAnalysis `json:"pages"`
	TextPages   int            `json:"text_pages"`
	SparsePages int            `json:"sparse_pages"`
	EmptyPages  int            `json:"empty_pages"`
}

// AnalyzePages classifies every page of layer. Pages with at least minChars
// non-space characters are text pages.
func AnalyzePages(layer *TextLayer, minChars int) *Analysis {
	a := &Analysis{}
	if layer == nil {
		return a
	}
	if minChars < 1 {
		minChars = 1
	}

	for _, p := range layer.Pages {
		n := visibleRunes(p.Text)
		pa := PageAnalysis{PageNumber: p.Number, Characters: n}
		switch {
		case n == 0:
			pa.Class = PageEmpty
			pa.Reasoning = "No embedded text - page is likely a scanned image"
			a.EmptyPages++
		case n < minChars:
			pa.Class = PageSparse
			pa.Reasoning = fmt.Sprintf("Only %d characters of embedded text, below %d", n, minChars)
			a.SparsePages++
		default:
			pa.Class = PageText
			pa.Reasoning = "Embedded text present"
			a.TextPages++
		}
		a.Pages = append(a.Pages, pa)
	}
	return a
}

// HasTextLayer reports whether any page has embedded text.
func (a *Analysis) HasTextLayer() bool {
	return a != nil && a.TextPages+a.SparsePages > 0
}

// Warnings returns the per-page warnings for pages below the threshold.
func (a *Analysis) Warnings() []string {
	if a == nil {
		return nil
	}
	var out []string
	for _, p := range a.Pages {
		if p.Class != PageText {
			out = append(out, extraction.PageBelowThreshold(p.PageNumber))
		}
	}
	return out
}

// NeedsOCR reports whether any page would benefit from recognition.
func (a *Analysis) NeedsOCR() bool {
	return a != nil && a.SparsePages+a.EmptyPages > 0
}

func visibleRunes(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
