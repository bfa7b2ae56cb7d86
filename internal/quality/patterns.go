package quality

import (
	"fmt"
	"regexp"
	"strings"
)

type category struct {
	name string
	re   *regexp.Regexp
}

// Built-in pattern categories found on any disclosure form.
var builtinCategories = []category{
	{
		name: "dates",
		re: regexp.MustCompile(`\b\d{1,2}/\d{1,2}/\d{2,4}\b|\b\d{4}-\d{2}-\d{2}\b|` +
			`\b(?:Jan|Feb|Mar|Apr|May|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec)[a-z]*\.? \d{1,2},? \d{4}\b`),
	},
	{
		name: "currency",
		re:   regexp.MustCompile(`\$ ?\d{1,3}(?:,\d{3})*(?:\.\d{2})?|\b\d{1,3}(?:,\d{3})+(?:\.\d{2})?\b|\b\d+\.\d{2} ?USD\b`),
	},
	{
		name: "proper_nouns",
		re:   regexp.MustCompile(`\b[A-Z][a-z]+(?:[ \t]+(?:&[ \t]+)?[A-Z][a-z]+)+\b`),
	},
}

// CompilePatterns compiles expected-pattern expressions from configuration.
func CompilePatterns(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		if strings.TrimSpace(expr) == "" {
			continue
		}
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid expected pattern %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func matchPatterns(in Input) []PatternHit {
	text := in.Text
	if text == "" && len(in.PageTexts) > 0 {
		text = strings.Join(in.PageTexts, "\n")
	}
	hits := make([]PatternHit, 0, len(builtinCategories)+len(in.ExpectedPatterns))
	for _, c := range builtinCategories {
		hits = append(hits, PatternHit{Name: c.name, Matches: len(c.re.FindAllStringIndex(text, -1))})
	}
	for _, re := range in.ExpectedPatterns {
		if re == nil {
			continue
		}
		hits = append(hits, PatternHit{Name: re.String(), Matches: len(re.FindAllStringIndex(text, -1))})
	}
	return hits
}

// patternCredit returns the pattern signal in [0,1]. The built-in categories
// count as one group saturated on their combined matches, so a form with
// names but no dates still earns full credit. Each expected pattern is its
// own group. The first len(builtinCategories) hits must be the built-ins.
func patternCredit(hits []PatternHit, saturation float64) float64 {
	if len(hits) == 0 {
		return 0
	}
	n := min(len(hits), len(builtinCategories))
	var builtin int
	for _, h := range hits[:n] {
		builtin += h.Matches
	}
	sum := saturate(float64(builtin), saturation)
	for _, h := range hits[n:] {
		sum += saturate(float64(h.Matches), saturation)
	}
	return sum / float64(1+len(hits)-n)
}
