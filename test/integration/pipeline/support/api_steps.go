package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/filingocr/internal/server"
)

// RegisterAPISteps registers the HTTP API steps.
func (testCtx *TestContext) RegisterAPISteps(sc *godog.ScenarioContext) {
	sc.Step(`^the extraction API is running$`, testCtx.theExtractionAPIIsRunning)
	sc.Step(`^the extraction API is running with a limit of (\d+) requests? per minute$`, testCtx.theExtractionAPIIsRunningWithLimit)
	sc.Step(`^I upload the filing$`, testCtx.iUploadTheFiling)
	sc.Step(`^I upload the filing as "([^"]*)" with filing type "([^"]*)"$`, testCtx.iUploadTheFilingAs)
	sc.Step(`^I upload the filing requesting the "([^"]*)" format$`, testCtx.iUploadTheFilingRequestingFormat)
	sc.Step(`^I post to "([^"]*)" without a document$`, testCtx.iPostWithoutADocument)
	sc.Step(`^I request "([^"]*)"$`, testCtx.iRequest)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
}

func (testCtx *TestContext) startServer(cfg server.Config) error {
	p, err := testCtx.build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	names := make([]string, 0, len(p.Descriptors()))
	for _, d := range p.Descriptors() {
		names = append(names, string(d.Method))
	}
	api := server.NewServer(p, cfg, server.WithStrategies(names...))
	testCtx.Server = httptest.NewServer(api.Handler())
	return nil
}

func (testCtx *TestContext) theExtractionAPIIsRunning() error {
	return testCtx.startServer(server.Config{CORSOrigin: "*", MaxUploadMB: 5, TimeoutSec: 30})
}

func (testCtx *TestContext) theExtractionAPIIsRunningWithLimit(perMinute int) error {
	return testCtx.startServer(server.Config{
		CORSOrigin:  "*",
		MaxUploadMB: 5,
		TimeoutSec:  30,
		RateLimit:   server.RateLimitConfig{Enabled: true, RequestsPerMinute: perMinute},
	})
}

func (testCtx *TestContext) upload(fields map[string]string) error {
	if testCtx.Server == nil {
		return errors.New("extraction API is not running")
	}
	if testCtx.Document == nil {
		return errors.New("no filing declared")
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("document", testCtx.Document.Filename)
	if err != nil {
		return err
	}
	if _, err := part.Write(testCtx.Document.Content); err != nil {
		return err
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := mw.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, testCtx.Server.URL+"/v1/extract", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadTheFiling() error {
	return testCtx.upload(nil)
}

func (testCtx *TestContext) iUploadTheFilingAs(id, filingType string) error {
	return testCtx.upload(map[string]string{"document_id": id, "filing_type": filingType})
}

func (testCtx *TestContext) iUploadTheFilingRequestingFormat(format string) error {
	return testCtx.upload(map[string]string{"format": format})
}

func (testCtx *TestContext) iPostWithoutADocument(path string) error {
	if testCtx.Server == nil {
		return errors.New("extraction API is not running")
	}
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("document_id", "empty"); err != nil {
		return err
	}
	if err := mw.Close(); err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, testCtx.Server.URL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iRequest(path string) error {
	if testCtx.Server == nil {
		return errors.New("extraction API is not running")
	}
	req, err := http.NewRequest(http.MethodGet, testCtx.Server.URL+path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

func (testCtx *TestContext) do(req *http.Request) error {
	resp, err := testCtx.Server.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse, err = io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPHeaders = map[string]string{}
	for k := range resp.Header {
		testCtx.LastHTTPHeaders[k] = resp.Header.Get(k)
	}
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(status int) error {
	if testCtx.LastHTTPStatusCode != status {
		return fmt.Errorf("expected status %d, got %d: %s", status, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var body map[string]any
	if err := json.Unmarshal(testCtx.LastHTTPResponse, &body); err != nil {
		return fmt.Errorf("response is not JSON: %w", err)
	}
	v, ok := body[field]
	if !ok {
		return fmt.Errorf("field %q missing from %s", field, testCtx.LastHTTPResponse)
	}
	if got := fmt.Sprint(v); got != expected {
		return fmt.Errorf("expected %s=%q, got %q", field, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, expected string) error {
	got := testCtx.LastHTTPHeaders[http.CanonicalHeaderKey(name)]
	if got != expected {
		return fmt.Errorf("expected header %s=%q, got %q", name, expected, got)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(fragment string) error {
	if !strings.Contains(string(testCtx.LastHTTPResponse), fragment) {
		return fmt.Errorf("response does not contain %q: %s", fragment, testCtx.LastHTTPResponse)
	}
	return nil
}
