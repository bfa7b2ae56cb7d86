package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/metrics"
	"github.com/MeKo-Tech/filingocr/internal/version"
)

const formatText = "text"

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: codeMethod})
		return
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "healthy",
		Version:    version.Version,
		Time:       time.Now().UTC().Format(time.RFC3339),
		Strategies: s.strategies,
	})
}

// extractHandler runs the pipeline on one uploaded document.
func (s *Server) extractHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: codeMethod})
		return
	}
	if s.extractor == nil {
		s.writeError(w, http.StatusServiceUnavailable, ErrorResponse{Error: codeUnavailable, Message: "pipeline not initialized"})
		return
	}

	doc, status, err := s.readDocument(w, r)
	if err != nil {
		code := codeBadRequest
		if status == http.StatusRequestEntityTooLarge {
			code = codeTooLarge
		}
		s.writeError(w, status, ErrorResponse{Error: code, Message: err.Error()})
		return
	}
	metrics.ObserveUpload(int64(doc.Size()))

	ctx := r.Context()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	result, err := s.extractor.Extract(ctx, doc)
	if err != nil {
		if du, ok := extraction.AsUnextractable(err); ok {
			s.writeError(w, http.StatusUnprocessableEntity, ErrorResponse{
				Error:      codeUnextractable,
				Message:    du.Error(),
				DocumentID: du.DocumentID,
				Failures:   du.Failures,
			})
			return
		}
		slog.Error("Extraction failed", "document_id", doc.ID, "error", err)
		s.writeError(w, http.StatusInternalServerError, ErrorResponse{Error: codeInternal, Message: err.Error(), DocumentID: doc.ID})
		return
	}

	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	if format == formatText {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("X-Document-ID", result.DocumentID)
		w.Header().Set("X-Extraction-Method", result.Method.String())
		w.Header().Set("X-Confidence-Score", strconv.FormatFloat(result.Score(), 'f', 4, 64))
		_, _ = io.WriteString(w, result.Text)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

// readDocument parses the multipart upload. The returned status is the one
// to answer with when err is set.
func (s *Server) readDocument(w http.ResponseWriter, r *http.Request) (*extraction.Document, int, error) {
	limit := s.maxUploadBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("document exceeds %d MB", s.maxUploadMB)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to parse form data: %w", err)
	}

	file, header, err := r.FormFile("document")
	if err != nil {
		return nil, http.StatusBadRequest, errors.New("no document file provided")
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("document exceeds %d MB", s.maxUploadMB)
	}
	content, err := io.ReadAll(file)
	if err != nil {
		if isTooLarge(err) {
			return nil, http.StatusRequestEntityTooLarge, fmt.Errorf("document exceeds %d MB", s.maxUploadMB)
		}
		return nil, http.StatusBadRequest, fmt.Errorf("failed to read document: %w", err)
	}
	if len(content) == 0 {
		return nil, http.StatusBadRequest, errors.New("document is empty")
	}

	doc := &extraction.Document{
		ID:         strings.TrimSpace(r.FormValue("document_id")),
		FilingType: extraction.ParseFilingType(r.FormValue("filing_type")),
		Filename:   header.Filename,
		Content:    content,
	}
	if v := strings.TrimSpace(r.FormValue("expected_page_count")); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, http.StatusBadRequest, fmt.Errorf("invalid expected_page_count %q", v)
		}
		doc.ExpectedPageCount = n
	}
	return doc, http.StatusOK, nil
}

func isTooLarge(err error) bool {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "request body too large")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, resp ErrorResponse) {
	s.writeJSON(w, status, resp)
}
