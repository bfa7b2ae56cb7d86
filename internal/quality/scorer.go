// Package quality scores extracted text for trustworthiness. The score is a
// pure function of the text, the page count and the expected patterns.
package quality

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Signal weights. They sum to 1.0.
const (
	LengthWeight   = 0.3
	DensityWeight  = 0.3
	PatternWeight  = 0.3
	CoverageWeight = 0.1
)

// Config holds the scorer tuning parameters.
type Config struct {
	// CharsPerPage is where the length signal saturates.
	CharsPerPage int `mapstructure:"chars_per_page" yaml:"chars_per_page" json:"chars_per_page"`
	// MinPageChars is the per-page threshold for the coverage signal.
	MinPageChars int `mapstructure:"min_page_chars" yaml:"min_page_chars" json:"min_page_chars"`
	// DensityFloor is where a single page's density saturates.
	DensityFloor int `mapstructure:"density_floor" yaml:"density_floor" json:"density_floor"`
	// PatternSaturation is the match count at which a pattern category is full.
	PatternSaturation int `mapstructure:"pattern_saturation" yaml:"pattern_saturation" json:"pattern_saturation"`
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		CharsPerPage:      500,
		MinPageChars:      50,
		DensityFloor:      200,
		PatternSaturation: 3,
	}
}

// Validate checks that every parameter is positive.
func (c Config) Validate() error {
	if c.CharsPerPage <= 0 {
		return fmt.Errorf("chars_per_page must be positive, got %d", c.CharsPerPage)
	}
	if c.MinPageChars <= 0 {
		return fmt.Errorf("min_page_chars must be positive, got %d", c.MinPageChars)
	}
	if c.DensityFloor <= 0 {
		return fmt.Errorf("density_floor must be positive, got %d", c.DensityFloor)
	}
	if c.PatternSaturation <= 0 {
		return fmt.Errorf("pattern_saturation must be positive, got %d", c.PatternSaturation)
	}
	return nil
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.CharsPerPage <= 0 {
		c.CharsPerPage = d.CharsPerPage
	}
	if c.MinPageChars <= 0 {
		c.MinPageChars = d.MinPageChars
	}
	if c.DensityFloor <= 0 {
		c.DensityFloor = d.DensityFloor
	}
	if c.PatternSaturation <= 0 {
		c.PatternSaturation = d.PatternSaturation
	}
	return c
}

// Input is what the scorer looks at.
type Input struct {
	Text      string
	PageCount int
	// PageTexts are the per-page texts when the strategy kept page boundaries.
	// When empty, the text is treated as evenly spread over PageCount pages.
	PageTexts        []string
	ExpectedPatterns []*regexp.Regexp
}

// PatternHit is the match count of one pattern category.
type PatternHit struct {
	Name    string `json:"name"`
	Matches int    `json:"matches"`
}

// Breakdown exposes every signal behind a score.
type Breakdown struct {
	Length         float64      `json:"length"`
	Density        float64      `json:"density"`
	Pattern        float64      `json:"pattern"`
	Coverage       float64      `json:"coverage"`
	Total          float64      `json:"total"`
	Characters     int          `json:"characters"`
	PageCount      int          `json:"page_count"`
	PagesCovered   int          `json:"pages_covered"`
	PrintableRatio float64      `json:"printable_ratio"`
	Patterns       []PatternHit `json:"patterns"`
}

// Scorer computes confidence scores. It holds no mutable state and is safe
// for concurrent use.
type Scorer struct {
	cfg Config
}

// NewScorer creates a scorer. Non-positive parameters fall back to defaults.
func NewScorer(cfg Config) *Scorer {
	return &Scorer{cfg: cfg.withDefaults()}
}

// Config returns the effective configuration.
func (s *Scorer) Config() Config { return s.cfg }

// Score returns the confidence in [0,1].
func (s *Scorer) Score(in Input) float64 {
	return s.Explain(in).Total
}

// Explain computes the score together with its signals.
func (s *Scorer) Explain(in Input) Breakdown {
	b := Breakdown{PageCount: in.PageCount, PrintableRatio: 1}
	if in.PageCount <= 0 {
		return b
	}

	counts := pageRuneCounts(in)
	for _, n := range counts {
		b.Characters += n
	}
	if b.Characters == 0 {
		return b
	}

	pages := float64(in.PageCount)
	cfg := s.cfg

	b.Length = LengthWeight * saturate(float64(b.Characters), pages*float64(cfg.CharsPerPage))

	var densitySum float64
	for _, n := range counts {
		densitySum += saturate(float64(n), float64(cfg.DensityFloor))
		if n >= cfg.MinPageChars {
			b.PagesCovered++
		}
	}
	b.PrintableRatio = printableRatio(in.Text, in.PageTexts)
	b.Density = DensityWeight * (densitySum / pages) * b.PrintableRatio

	b.Patterns = matchPatterns(in)
	b.Pattern = PatternWeight * patternCredit(b.Patterns, float64(cfg.PatternSaturation))

	b.Coverage = CoverageWeight * float64(b.PagesCovered) / pages

	b.Length = round4(b.Length)
	b.Density = round4(b.Density)
	b.Pattern = round4(b.Pattern)
	b.Coverage = round4(b.Coverage)
	b.Total = round4(clamp01(b.Length + b.Density + b.Pattern + b.Coverage))
	return b
}

// Score scores text with the default configuration.
func Score(text string, pageCount int, expected []*regexp.Regexp) float64 {
	return NewScorer(DefaultConfig()).Score(Input{
		Text:             text,
		PageCount:        pageCount,
		ExpectedPatterns: expected,
	})
}

// pageRuneCounts returns one rune count per page. Without page texts the
// total is spread evenly; with fewer page texts than pages the missing pages
// count as empty.
func pageRuneCounts(in Input) []int {
	counts := make([]int, in.PageCount)
	if len(in.PageTexts) > 0 {
		for i := 0; i < in.PageCount && i < len(in.PageTexts); i++ {
			counts[i] = utf8.RuneCountInString(strings.TrimSpace(in.PageTexts[i]))
		}
		return counts
	}

	total := utf8.RuneCountInString(strings.TrimSpace(in.Text))
	per, rem := total/in.PageCount, total%in.PageCount
	for i := range counts {
		counts[i] = per
		if i < rem {
			counts[i]++
		}
	}
	return counts
}

// printableRatio is the fraction of runes that are printable. Private use
// runes, U+FFFD and control characters other than whitespace count against it.
func printableRatio(text string, pages []string) float64 {
	if len(pages) > 0 {
		text = strings.Join(pages, "\n")
	}
	total, printable := 0, 0
	for _, r := range text {
		total++
		if isGarbageRune(r) {
			continue
		}
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			printable++
		}
	}
	if total == 0 {
		return 1
	}
	return float64(printable) / float64(total)
}

func isGarbageRune(r rune) bool {
	if r >= 0xE000 && r <= 0xF8FF {
		return true
	}
	if r == utf8.RuneError {
		return true
	}
	return r < 0x20 && !unicode.IsSpace(r)
}

func saturate(v, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return math.Min(1, v/limit)
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
