package support

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/strategy"
	"github.com/MeKo-Tech/filingocr/internal/strategy/mock"
	"github.com/MeKo-Tech/filingocr/internal/testutil"
)

var priorities = map[extraction.Method]int{
	extraction.MethodDirectText: strategy.PriorityDirectText,
	extraction.MethodLocalOCR:   strategy.PriorityLocalOCR,
	extraction.MethodRemoteOCR:  strategy.PriorityRemoteOCR,
}

func parseMethod(name string) (extraction.Method, error) {
	m := extraction.Method(name)
	if !m.Valid() {
		return "", fmt.Errorf("unknown method %q", name)
	}
	return m, nil
}

// RegisterPipelineSteps registers the steps that set up and run a pipeline.
func (testCtx *TestContext) RegisterPipelineSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the document time budget is (\d+) milliseconds$`, testCtx.theDocumentTimeBudgetIs)
	sc.Step(`^the band thresholds are accept ([\d.]+), spot check ([\d.]+) and warn ([\d.]+)$`, testCtx.theBandThresholdsAre)
	sc.Step(`^a "([^"]*)" strategy whose output scores ([\d.]+)$`, testCtx.aStrategyWhoseOutputScores)
	sc.Step(`^a "([^"]*)" strategy whose output scores ([\d.]+) after (\d+) milliseconds$`, testCtx.aSlowStrategy)
	sc.Step(`^a "([^"]*)" strategy that fails with "([^"]*)"$`, testCtx.aStrategyThatFailsWith)
	sc.Step(`^a "([^"]*)" strategy that is not applicable because "([^"]*)"$`, testCtx.aStrategyThatIsNotApplicable)
	sc.Step(`^the "([^"]*)" strategy costs ([\d.]+) USD$`, testCtx.theStrategyCosts)
	sc.Step(`^the "([^"]*)" strategy accepts scores from ([\d.]+)$`, testCtx.theStrategyAcceptsFrom)
	sc.Step(`^the direct text strategy$`, testCtx.theDirectTextStrategy)
	sc.Step(`^a (\d+)-page text filing "([^"]*)"$`, testCtx.aTextFiling)
	sc.Step(`^a scanned filing "([^"]*)"$`, testCtx.aScannedFiling)
	sc.Step(`^a corrupt filing "([^"]*)"$`, testCtx.aCorruptFiling)
	sc.Step(`^a filing "([^"]*)" of type "([^"]*)"$`, testCtx.aFilingOfType)
	sc.Step(`^the filing is expected to have (\d+) pages$`, testCtx.theFilingIsExpectedToHavePages)
	sc.Step(`^the filing is extracted$`, testCtx.theFilingIsExtracted)
}

func (testCtx *TestContext) theDocumentTimeBudgetIs(ms int) error {
	testCtx.Config.DocumentBudget = time.Duration(ms) * time.Millisecond
	return nil
}

func (testCtx *TestContext) theBandThresholdsAre(accept, spotCheck, warn float64) error {
	testCtx.Config.Thresholds.Accept = accept
	testCtx.Config.Thresholds.SpotCheck = spotCheck
	testCtx.Config.Thresholds.Warn = warn
	return testCtx.Config.Thresholds.Validate()
}

func (testCtx *TestContext) addScripted(name string, s *mock.Strategy) error {
	if _, ok := testCtx.Scripted[s.Desc.Method]; ok {
		return fmt.Errorf("strategy %q declared twice", name)
	}
	testCtx.Scripting = true
	testCtx.Scripted[s.Desc.Method] = s
	testCtx.Strategies = append(testCtx.Strategies, s)
	return nil
}

func (testCtx *TestContext) aStrategyWhoseOutputScores(name string, score float64) error {
	m, err := parseMethod(name)
	if err != nil {
		return err
	}
	return testCtx.addScripted(name, mock.Scoring(m, priorities[m], score))
}

func (testCtx *TestContext) aSlowStrategy(name string, score float64, ms int) error {
	m, err := parseMethod(name)
	if err != nil {
		return err
	}
	s := mock.Scoring(m, priorities[m], score)
	s.Delay = time.Duration(ms) * time.Millisecond
	return testCtx.addScripted(name, s)
}

func (testCtx *TestContext) aStrategyThatFailsWith(name, reason string) error {
	m, err := parseMethod(name)
	if err != nil {
		return err
	}
	return testCtx.addScripted(name, mock.Failing(m, priorities[m], errors.New(reason)))
}

func (testCtx *TestContext) aStrategyThatIsNotApplicable(name, reason string) error {
	m, err := parseMethod(name)
	if err != nil {
		return err
	}
	s := mock.Scoring(m, priorities[m], 1)
	s.NotApplicable = reason
	return testCtx.addScripted(name, s)
}

func (testCtx *TestContext) scripted(name string) (*mock.Strategy, error) {
	s, ok := testCtx.Scripted[extraction.Method(name)]
	if !ok {
		return nil, fmt.Errorf("no scripted %q strategy declared", name)
	}
	return s, nil
}

func (testCtx *TestContext) theStrategyCosts(name string, cost float64) error {
	s, err := testCtx.scripted(name)
	if err != nil {
		return err
	}
	s.Cost = cost
	return nil
}

func (testCtx *TestContext) theStrategyAcceptsFrom(name string, floor float64) error {
	s, err := testCtx.scripted(name)
	if err != nil {
		return err
	}
	s.Desc.MinConfidenceToAccept = floor
	return nil
}

func (testCtx *TestContext) theDirectTextStrategy() error {
	testCtx.Strategies = append(testCtx.Strategies,
		strategy.NewDirectText(strategy.DefaultDirectTextConfig(), strategy.WithLogger(quietLogger())))
	return nil
}

func (testCtx *TestContext) setDocument(id string, content []byte) {
	testCtx.Document = &extraction.Document{
		ID:         id,
		FilingType: extraction.FilingAnnual,
		Filename:   id + ".pdf",
		Content:    content,
	}
}

func (testCtx *TestContext) aTextFiling(pages int, id string) error {
	testCtx.setDocument(id, testutil.DisclosurePDF(pages))
	return nil
}

func (testCtx *TestContext) aScannedFiling(id string) error {
	testCtx.setDocument(id, testutil.ScannedPDF(1))
	return nil
}

func (testCtx *TestContext) aCorruptFiling(id string) error {
	testCtx.setDocument(id, testutil.CorruptPDF())
	return nil
}

func (testCtx *TestContext) aFilingOfType(id, filingType string) error {
	testCtx.setDocument(id, []byte("%PDF-1.4 scripted"))
	testCtx.Document.FilingType = extraction.ParseFilingType(filingType)
	return nil
}

func (testCtx *TestContext) theFilingIsExpectedToHavePages(n int) error {
	if testCtx.Document == nil {
		return errors.New("no filing declared")
	}
	testCtx.Document.ExpectedPageCount = n
	return nil
}

func (testCtx *TestContext) theFilingIsExtracted() error {
	if testCtx.Document == nil {
		return errors.New("no filing declared")
	}
	p, err := testCtx.build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	testCtx.Result, testCtx.Err = p.Extract(context.Background(), testCtx.Document)
	return nil
}
