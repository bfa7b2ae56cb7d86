package support

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// RegisterResultSteps registers assertions on the extraction outcome.
func (testCtx *TestContext) RegisterResultSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the result method should be "([^"]*)"$`, testCtx.theResultMethodShouldBe)
	sc.Step(`^the result band should be "([^"]*)"$`, testCtx.theResultBandShouldBe)
	sc.Step(`^the confidence score should be ([\d.]+)$`, testCtx.theConfidenceScoreShouldBe)
	sc.Step(`^the confidence score should be above ([\d.]+)$`, testCtx.theConfidenceScoreShouldBeAbove)
	sc.Step(`^the result should carry the warning "([^"]*)"$`, testCtx.theResultShouldCarryTheWarning)
	sc.Step(`^the result should not carry the warning "([^"]*)"$`, testCtx.theResultShouldNotCarryTheWarning)
	sc.Step(`^the result should carry no warnings$`, testCtx.theResultShouldCarryNoWarnings)
	sc.Step(`^the estimated cost should be ([\d.]+) USD$`, testCtx.theEstimatedCostShouldBe)
	sc.Step(`^the result should have (\d+) pages?$`, testCtx.theResultShouldHavePages)
	sc.Step(`^the result should keep document id "([^"]*)" and filing type "([^"]*)"$`, testCtx.theResultShouldKeepIdentity)
	sc.Step(`^the "([^"]*)" strategy should have run (\d+) times?$`, testCtx.theStrategyShouldHaveRun)
	sc.Step(`^the attempts should be "([^"]*)"$`, testCtx.theAttemptsShouldBe)
	sc.Step(`^extraction should fail as unextractable$`, testCtx.extractionShouldFailAsUnextractable)
	sc.Step(`^the failure reason for "([^"]*)" should contain "([^"]*)"$`, testCtx.theFailureReasonShouldContain)
}

func (testCtx *TestContext) result() (*extraction.Result, error) {
	if testCtx.Err != nil {
		return nil, fmt.Errorf("extraction failed: %w", testCtx.Err)
	}
	if testCtx.Result == nil {
		return nil, errors.New("no result recorded")
	}
	return testCtx.Result, nil
}

func (testCtx *TestContext) theResultMethodShouldBe(method string) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if string(r.Method) != method {
		return fmt.Errorf("expected method %q, got %q", method, r.Method)
	}
	return nil
}

func (testCtx *TestContext) theResultBandShouldBe(band string) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if r.Band != band {
		return fmt.Errorf("expected band %q, got %q (score %.4f)", band, r.Band, r.Score())
	}
	return nil
}

func (testCtx *TestContext) theConfidenceScoreShouldBe(score float64) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if math.Abs(r.Score()-score) > 1e-6 {
		return fmt.Errorf("expected confidence %.4f, got %.4f", score, r.Score())
	}
	return nil
}

func (testCtx *TestContext) theConfidenceScoreShouldBeAbove(floor float64) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if r.Score() <= floor {
		return fmt.Errorf("expected confidence above %.4f, got %.4f", floor, r.Score())
	}
	return nil
}

func (testCtx *TestContext) theResultShouldCarryTheWarning(w string) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if !r.HasWarning(w) {
		return fmt.Errorf("expected warning %q in %v", w, r.Warnings)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldNotCarryTheWarning(w string) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if r.HasWarning(w) {
		return fmt.Errorf("unexpected warning %q in %v", w, r.Warnings)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldCarryNoWarnings() error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if len(r.Warnings) > 0 {
		return fmt.Errorf("expected no warnings, got %v", r.Warnings)
	}
	return nil
}

func (testCtx *TestContext) theEstimatedCostShouldBe(cost float64) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if math.Abs(r.EstimatedCostUSD-cost) > 1e-9 {
		return fmt.Errorf("expected cost %.6f, got %.6f", cost, r.EstimatedCostUSD)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldHavePages(n int) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if r.PageCount != n {
		return fmt.Errorf("expected %d pages, got %d", n, r.PageCount)
	}
	return nil
}

func (testCtx *TestContext) theResultShouldKeepIdentity(id, filingType string) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	if r.DocumentID != id || string(r.FilingType) != filingType {
		return fmt.Errorf("expected %s/%s, got %s/%s", id, filingType, r.DocumentID, r.FilingType)
	}
	return nil
}

func (testCtx *TestContext) theStrategyShouldHaveRun(name string, n int) error {
	s, err := testCtx.scripted(name)
	if err != nil {
		return err
	}
	if s.Calls() != n {
		return fmt.Errorf("expected %s to run %d time(s), ran %d", name, n, s.Calls())
	}
	return nil
}

// theAttemptsShouldBe compares "method:outcome, ..." against the attempt log.
func (testCtx *TestContext) theAttemptsShouldBe(expected string) error {
	r, err := testCtx.result()
	if err != nil {
		return err
	}
	got := make([]string, len(r.Attempts))
	for i, a := range r.Attempts {
		got[i] = string(a.Method) + ":" + a.Outcome
	}
	want := strings.Split(expected, ",")
	for i := range want {
		want[i] = strings.TrimSpace(want[i])
	}
	if !slices.Equal(got, want) {
		return fmt.Errorf("expected attempts %v, got %v", want, got)
	}
	return nil
}

func (testCtx *TestContext) extractionShouldFailAsUnextractable() error {
	if testCtx.Err == nil {
		return fmt.Errorf("expected extraction to fail, got method %s", testCtx.Result.Method)
	}
	if _, ok := extraction.AsUnextractable(testCtx.Err); !ok {
		return fmt.Errorf("expected DocumentUnextractable, got %w", testCtx.Err)
	}
	return nil
}

func (testCtx *TestContext) theFailureReasonShouldContain(name, fragment string) error {
	u, ok := extraction.AsUnextractable(testCtx.Err)
	if !ok {
		return fmt.Errorf("expected DocumentUnextractable, got %v", testCtx.Err)
	}
	for _, f := range u.Failures {
		if string(f.Method) == name {
			if !strings.Contains(f.Reason, fragment) {
				return fmt.Errorf("reason for %s is %q, want it to contain %q", name, f.Reason, fragment)
			}
			return nil
		}
	}
	return fmt.Errorf("no failure recorded for %s in %v", name, u.Failures)
}
