// Package remote is the HTTP client for the managed layout-aware recognition
// service used by remote OCR.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

const (
	analyzePath  = "/v1/documents:analyze"
	maxErrorBody = 4 << 10
	maxBody      = 64 << 20

	// MaxPages bounds page numbers when the caller cannot say how many pages
	// the document has.
	MaxPages = 10000
)

// Feature names understood by the service.
const (
	FeatureTables = "TABLES"
	FeatureForms  = "FORMS"
)

// Config holds connection and retry settings.
type Config struct {
	Endpoint       string
	APIKey         string
	RequestTimeout time.Duration
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	Multiplier     float64
	Features       []string
}

// DefaultConfig returns the default client settings without an endpoint.
func DefaultConfig() Config {
	return Config{
		RequestTimeout: 60 * time.Second,
		MaxRetries:     4,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     10 * time.Second,
		Multiplier:     2.0,
		Features:       []string{FeatureTables, FeatureForms},
	}
}

// Request is one analyze call. PageNumber is set when a single page image is
// sent instead of the whole document. PageCount, when known, is the highest
// page number an answer may carry; it is not sent.
type Request struct {
	RequestID  string   `json:"request_id"`
	DocumentID string   `json:"document_id"`
	MimeType   string   `json:"mime_type"`
	Content    []byte   `json:"content"`
	PageNumber int      `json:"page_number,omitempty"`
	Features   []string `json:"features,omitempty"`
	PageCount  int      `json:"-"`
}

// Table is a recognized table as rows of cell text.
type Table struct {
	Rows [][]string `json:"rows"`
}

// Page is the service output for one page.
type Page struct {
	PageNumber int      `json:"page_number"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
	Tables     []Table  `json:"tables,omitempty"`
}

// Response is a decoded analyze answer.
type Response struct {
	DocumentID   string `json:"document_id"`
	ModelVersion string `json:"model_version"`
	BilledPages  *int   `json:"billed_pages,omitempty"`
	Pages        []Page `json:"pages"`

	// Attempts is how many requests it took.
	Attempts int `json:"-"`
}

// CheckPageNumbers rejects answers that name a page beyond pageCount, or
// beyond MaxPages when pageCount is zero.
func (r *Response) CheckPageNumbers(pageCount int) error {
	limit := pageCount
	if limit <= 0 {
		limit = MaxPages
	}
	for _, p := range r.Pages {
		if p.PageNumber < 1 || p.PageNumber > limit {
			return fmt.Errorf("%w: page_number %d outside 1..%d", ErrMalformedResponse, p.PageNumber, limit)
		}
	}
	return nil
}

// Billed returns the pages the service charges for: billed_pages when
// reported, else the number of pages returned.
func (r *Response) Billed() int {
	if r == nil {
		return 0
	}
	if r.BilledPages != nil {
		return *r.BilledPages
	}
	return len(r.Pages)
}

// Client calls the analyze endpoint with bounded retries.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for retry diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a client. Zero values in cfg fall back to DefaultConfig.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		return nil, errors.New("remote endpoint is required")
	}
	if u, err := url.Parse(cfg.Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid remote endpoint %q", cfg.Endpoint)
	}
	def := DefaultConfig()
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = def.RequestTimeout
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff < cfg.InitialBackoff {
		cfg.MaxBackoff = cfg.InitialBackoff
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = def.Multiplier
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	c := &Client{cfg: cfg, httpClient: &http.Client{}, logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Fingerprint identifies the service and the features requested from it.
// The API key is not part of it.
func (c *Client) Fingerprint() string {
	return fmt.Sprintf("remote %s %v", c.cfg.Endpoint, c.cfg.Features)
}

// Config returns the effective configuration.
func (c *Client) Config() Config { return c.cfg }

// Analyze sends req, retrying rate limits, timeouts, server errors and
// malformed bodies with exponential backoff. When every attempt fails the
// error wraps extraction.ErrRetriesExhausted and the last failure.
func (c *Client) Analyze(ctx context.Context, req Request) (*Response, error) {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.Features == nil {
		req.Features = c.cfg.Features
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	attempts := 0
	var resp *Response
	operation := func() error {
		attempts++
		r, err := c.do(ctx, req.RequestID, body)
		if err == nil {
			err = r.CheckPageNumbers(req.PageCount)
		}
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			if !IsRetryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("Remote request failed, retrying",
			"request_id", req.RequestID,
			"document_id", req.DocumentID,
			"attempt", attempts,
			"backoff", wait,
			"error", err)
	}

	err = backoff.RetryNotify(operation, c.newBackOff(ctx), notify)
	if err != nil {
		if IsRetryable(err) && ctx.Err() == nil {
			return nil, fmt.Errorf("%w after %d attempts: %w", extraction.ErrRetriesExhausted, attempts, err)
		}
		return nil, err
	}
	resp.Attempts = attempts
	return resp, nil
}

func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.cfg.InitialBackoff
	exp.MaxInterval = c.cfg.MaxBackoff
	exp.Multiplier = c.cfg.Multiplier
	// Attempts are bounded by MaxRetries and the caller's deadline.
	exp.MaxElapsedTime = 0
	exp.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.cfg.MaxRetries)), ctx)
}

// do performs a single request under the per-request timeout.
func (c *Client) do(ctx context.Context, requestID string, body []byte) (*Response, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.cfg.Endpoint+analyzePath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	if httpResp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(httpResp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: httpResp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return decodeResponse(data)
}
