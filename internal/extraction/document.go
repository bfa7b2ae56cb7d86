package extraction

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

var pdfMagic = []byte("%PDF-")

// Document is one source document handed to the pipeline together with the
// metadata the surrounding system knows about it.
type Document struct {
	ID                string
	FilingType        FilingType
	ExpectedPageCount int
	Filename          string
	Content           []byte
}

// LoadDocument reads a document from disk. The document id defaults to the
// file name without extension.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: reading user-provided document path is expected
	if err != nil {
		return nil, fmt.Errorf("failed to read document %q: %w", path, err)
	}
	base := filepath.Base(path)
	return &Document{
		ID:       strings.TrimSuffix(base, filepath.Ext(base)),
		Filename: base,
		Content:  data,
	}, nil
}

// IsPDF reports whether the content starts with a PDF header. A few bytes of
// leading garbage are tolerated, as PDF readers do.
func (d *Document) IsPDF() bool {
	if d == nil || len(d.Content) == 0 {
		return false
	}
	head := d.Content
	if len(head) > 1024 {
		head = head[:1024]
	}
	return bytes.Contains(head, pdfMagic)
}

// Fingerprint returns the hex SHA-256 of the content.
func (d *Document) Fingerprint() string {
	sum := sha256.Sum256(d.Content)
	return hex.EncodeToString(sum[:])
}

// Size returns the content length in bytes.
func (d *Document) Size() int { return len(d.Content) }
