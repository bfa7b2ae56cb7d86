package quality

import (
	"regexp"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/testutil"
)

func TestScore_ZeroInputs(t *testing.T) {
	s := NewScorer(DefaultConfig())

	assert.InDelta(t, 0.0, s.Score(Input{Text: "", PageCount: 3}), 1e-9)
	assert.InDelta(t, 0.0, s.Score(Input{Text: "some text", PageCount: 0}), 1e-9)
	assert.InDelta(t, 0.0, s.Score(Input{Text: "some text", PageCount: -2}), 1e-9)
	assert.InDelta(t, 0.0, s.Score(Input{Text: "   \n\t ", PageCount: 1}), 1e-9)
	assert.InDelta(t, 0.0, Score("", 0, nil), 1e-9)
}

func TestScore_FullDisclosure(t *testing.T) {
	pages := testutil.DisclosurePages(3)
	s := NewScorer(DefaultConfig())

	b := s.Explain(Input{Text: strings.Join(pages, "\f"), PageCount: 3, PageTexts: pages})

	assert.InDelta(t, LengthWeight, b.Length, 1e-9)
	assert.InDelta(t, DensityWeight, b.Density, 1e-9)
	assert.InDelta(t, CoverageWeight, b.Coverage, 1e-9)
	assert.InDelta(t, PatternWeight, b.Pattern, 1e-9)
	assert.InDelta(t, 1.0, b.Total, 1e-9)
	assert.Equal(t, 3, b.PagesCovered)
	assert.Greater(t, b.Total, 0.85)
}

func TestScore_EmptyPagesPenalized(t *testing.T) {
	s := NewScorer(DefaultConfig())
	page := testutil.DisclosurePageText(1)

	full := s.Score(Input{Text: page + page, PageCount: 2, PageTexts: []string{page, page}})
	half := s.Score(Input{Text: page + page, PageCount: 2, PageTexts: []string{page + page, ""}})

	assert.Greater(t, full, half)
}

func TestScore_PageTextsFallbackSpreadsEvenly(t *testing.T) {
	s := NewScorer(DefaultConfig())
	text := strings.Repeat("word ", 200)

	b := s.Explain(Input{Text: text, PageCount: 4})
	assert.Equal(t, 4, b.PagesCovered)
	assert.Equal(t, len(strings.TrimSpace(text)), b.Characters)
}

func TestScore_ShortText(t *testing.T) {
	s := NewScorer(DefaultConfig())
	b := s.Explain(Input{Text: "illegible", PageCount: 1})

	assert.Less(t, b.Total, 0.5)
	assert.Equal(t, 0, b.PagesCovered)
	assert.InDelta(t, 0.0, b.Coverage, 1e-9)
}

func TestScore_GarbageLowersDensity(t *testing.T) {
	s := NewScorer(DefaultConfig())
	clean := strings.Repeat("abcdefghij", 60)
	garbled := strings.Repeat("ab\x01\x02\uFFFDij", 60)

	cleanB := s.Explain(Input{Text: clean, PageCount: 1})
	garbledB := s.Explain(Input{Text: garbled, PageCount: 1})

	assert.InDelta(t, 1.0, cleanB.PrintableRatio, 1e-9)
	assert.Less(t, garbledB.PrintableRatio, 0.6)
	assert.Less(t, garbledB.Density, cleanB.Density)
}

func TestScore_ExpectedPatterns(t *testing.T) {
	s := NewScorer(DefaultConfig())
	text := strings.Repeat("Asset holdings listed in this report. ", 20)

	base := s.Explain(Input{Text: text, PageCount: 1})
	require.Len(t, base.Patterns, 3)

	patterns, err := CompilePatterns([]string{`holdings`, ""})
	require.NoError(t, err)
	require.Len(t, patterns, 1)

	withExpected := s.Explain(Input{Text: text, PageCount: 1, ExpectedPatterns: patterns})
	require.Len(t, withExpected.Patterns, 4)
	assert.Equal(t, "holdings", withExpected.Patterns[3].Name)
	assert.Equal(t, 20, withExpected.Patterns[3].Matches)
	assert.Greater(t, withExpected.Pattern, base.Pattern)

	missing := s.Explain(Input{Text: text, PageCount: 1, ExpectedPatterns: []*regexp.Regexp{regexp.MustCompile(`Schedule C`)}})
	assert.Less(t, missing.Pattern, withExpected.Pattern)
}

func TestScore_NamesWithoutDatesOrAmounts(t *testing.T) {
	s := NewScorer(DefaultConfig())
	page := strings.Repeat("Jane Doe reports a spousal interest held with Acme Holdings in Springfield County. ", 8)
	pages := []string{page, page, page}

	b := s.Explain(Input{Text: strings.Join(pages, "\f"), PageCount: 3, PageTexts: pages})
	require.Len(t, b.Patterns, 3)
	assert.Zero(t, b.Patterns[0].Matches)
	assert.Zero(t, b.Patterns[1].Matches)
	assert.InDelta(t, PatternWeight, b.Pattern, 1e-9)
	assert.Greater(t, b.Total, 0.85)
}

func TestPatternCredit(t *testing.T) {
	hits := func(m ...int) []PatternHit {
		out := make([]PatternHit, len(m))
		for i, n := range m {
			out[i].Matches = n
		}
		return out
	}

	assert.InDelta(t, 0.0, patternCredit(nil, 3), 1e-9)
	assert.InDelta(t, 0.0, patternCredit(hits(0, 0, 0), 3), 1e-9)
	assert.InDelta(t, 1.0/3, patternCredit(hits(0, 1, 0), 3), 1e-9)
	assert.InDelta(t, 1.0, patternCredit(hits(1, 1, 1), 3), 1e-9)
	assert.InDelta(t, 1.0, patternCredit(hits(0, 0, 9), 3), 1e-9)
	assert.InDelta(t, 0.5, patternCredit(hits(0, 0, 3, 0), 3), 1e-9)
	assert.InDelta(t, 1.0, patternCredit(hits(3, 0, 0, 5), 3), 1e-9)
}

func TestCompilePatterns_Invalid(t *testing.T) {
	_, err := CompilePatterns([]string{"("})
	assert.Error(t, err)
}

func TestBuiltinCategories(t *testing.T) {
	tests := []struct {
		name     string
		category string
		text     string
		want     int
	}{
		{name: "slash dates", category: "dates", text: "on 03/14/2023 and 4/2/23", want: 2},
		{name: "iso date", category: "dates", text: "filed 2023-06-21", want: 1},
		{name: "month name", category: "dates", text: "signed May 9, 2023 and Sept. 12 2022", want: 2},
		{name: "dollar amounts", category: "currency", text: "$1,001 - $15,000 and $12.87", want: 3},
		{name: "bare thousands", category: "currency", text: "value 250,000.00", want: 1},
		{name: "proper nouns", category: "proper_nouns", text: "Jane Quincy Doe owns Exxon Mobil Corporation", want: 2},
		{name: "ampersand names", category: "proper_nouns", text: "shares of Johnson & Johnson", want: 1},
		{name: "single capital", category: "proper_nouns", text: "Assets are listed", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hits := matchPatterns(Input{Text: tt.text})
			var got = -1
			for _, h := range hits {
				if h.Name == tt.category {
					got = h.Matches
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewScorer_DefaultsForInvalidConfig(t *testing.T) {
	s := NewScorer(Config{})
	assert.Equal(t, DefaultConfig(), s.Config())
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := DefaultConfig()
	bad.CharsPerPage = 0
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.PatternSaturation = -1
	assert.Error(t, bad.Validate())

	bad = DefaultConfig()
	bad.MinPageChars = 0
	assert.ErrorContains(t, bad.Validate(), "min_page_chars must be positive")
}

func TestScoreProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)
	s := NewScorer(DefaultConfig())

	properties.Property("score stays within [0,1]", prop.ForAll(
		func(text string, pages int) bool {
			score := s.Score(Input{Text: text, PageCount: pages})
			return score >= 0 && score <= 1
		},
		gen.AnyString(),
		gen.IntRange(-2, 50),
	))

	properties.Property("score is deterministic", prop.ForAll(
		func(text string, pages int) bool {
			in := Input{Text: text, PageCount: pages}
			return s.Score(in) == s.Score(in)
		},
		gen.AnyString(),
		gen.IntRange(0, 20),
	))

	properties.Property("zero pages always scores zero", prop.ForAll(
		func(text string) bool {
			return s.Score(Input{Text: text, PageCount: 0}) == 0
		},
		gen.AnyString(),
	))

	properties.Property("more text never lowers the length signal", prop.ForAll(
		func(n, extra, pages int) bool {
			short := s.Explain(Input{Text: strings.Repeat("a", n), PageCount: pages})
			long := s.Explain(Input{Text: strings.Repeat("a", n+extra), PageCount: pages})
			return long.Length >= short.Length
		},
		gen.IntRange(0, 3000),
		gen.IntRange(0, 3000),
		gen.IntRange(1, 6),
	))

	properties.TestingRun(t)
}
