package server

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

type extractorFunc func(ctx context.Context, doc *extraction.Document) (*extraction.Result, error)

func (f extractorFunc) Extract(ctx context.Context, doc *extraction.Document) (*extraction.Result, error) {
	return f(ctx, doc)
}

func okExtractor(got **extraction.Document) Extractor {
	return extractorFunc(func(_ context.Context, doc *extraction.Document) (*extraction.Result, error) {
		if got != nil {
			*got = doc
		}
		r := extraction.NewResult(extraction.MethodDirectText, []extraction.PageText{{Text: "Schedule A", Confidence: 1, Processed: true}})
		r.DocumentID = doc.ID
		r.SetScore(0.91)
		r.Band = "accept"
		return r, nil
	})
}

func newTestServer(e Extractor) *Server {
	return NewServer(e, Config{CORSOrigin: "*", MaxUploadMB: 1, TimeoutSec: 5})
}

// uploadRequest builds a multipart POST to /v1/extract.
func uploadRequest(t *testing.T, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if content != nil {
		fw, err := mw.CreateFormFile("document", "filing.pdf")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}
