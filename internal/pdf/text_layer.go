// Package pdf reads the parts of a PDF the extraction strategies need: the
// embedded text layer, page classification, decryption and embedded scan
// images.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dslipak/pdf"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
)

// PageLayer is the embedded text of one page.
type PageLayer struct {
	Number int    `json:"page_number"`
	Text   string `json:"text"`
	// Items is the number of text show operations found on the page.
	Items int `json:"items"`
}

// TextLayer is the text layer of a whole document.
type TextLayer struct {
	Pages     []PageLayer `json:"pages"`
	Encrypted bool        `json:"encrypted"`
	// Truncated is set when reading stopped before the last page.
	Truncated bool `json:"truncated"`
}

// NumPages returns the number of pages read.
func (l *TextLayer) NumPages() int {
	if l == nil {
		return 0
	}
	return len(l.Pages)
}

// HasText reports whether any page carries non-blank text.
func (l *TextLayer) HasText() bool {
	if l == nil {
		return false
	}
	for _, p := range l.Pages {
		if strings.TrimSpace(p.Text) != "" {
			return true
		}
	}
	return false
}

// PageTexts converts the layer to result pages with zero confidence.
func (l *TextLayer) PageTexts() []extraction.PageText {
	if l == nil {
		return nil
	}
	out := make([]extraction.PageText, len(l.Pages))
	for i, p := range l.Pages {
		out[i] = extraction.PageText{Number: p.Number, Text: p.Text, Processed: true}
	}
	return out
}

// TextLayerReader reads embedded text page by page.
type TextLayerReader struct {
	credentials PasswordCredentials
	logger      *slog.Logger
}

// NewTextLayerReader creates a reader that decrypts with creds when needed.
func NewTextLayerReader(creds PasswordCredentials) *TextLayerReader {
	return &TextLayerReader{credentials: creds, logger: slog.Default()}
}

// WithLogger sets the logger used for per-page diagnostics.
func (r *TextLayerReader) WithLogger(logger *slog.Logger) *TextLayerReader {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Read reads every page of content.
func (r *TextLayerReader) Read(content []byte) (*TextLayer, error) {
	return r.ReadContext(context.Background(), content)
}

// ReadContext reads pages until done or until ctx ends. On cancellation the
// pages read so far are returned, marked Truncated, together with ctx.Err().
func (r *TextLayerReader) ReadContext(ctx context.Context, content []byte) (*TextLayer, error) {
	if !bytes.Contains(head(content), []byte("%PDF-")) {
		return nil, extraction.ErrUnsupportedFormat
	}

	layer := &TextLayer{}
	if IsEncrypted(content) {
		decrypted, err := Decrypt(content, r.credentials)
		if err != nil {
			return nil, err
		}
		content = decrypted
		layer.Encrypted = true
	}

	reader, err := openReader(content)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("%w: %v", extraction.ErrCorruptDocument, err)
	}

	total := reader.NumPage()
	layer.Pages = make([]PageLayer, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			layer.Truncated = true
			return layer, err
		}
		text, items := r.readPage(reader, i)
		layer.Pages = append(layer.Pages, PageLayer{Number: i, Text: text, Items: items})
	}
	return layer, nil
}

func openReader(content []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			reader, err = nil, fmt.Errorf("pdf parser panic: %v", rec)
		}
	}()
	return pdf.NewReader(bytes.NewReader(content), int64(len(content)))
}

// readPage returns the page text with one line per text row. A page the
// parser cannot handle yields no text instead of failing the document.
func (r *TextLayerReader) readPage(reader *pdf.Reader, num int) (text string, items int) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Debug("Text layer page unreadable", "page", num, "panic", rec)
			text, items = "", 0
		}
	}()

	page := reader.Page(num)
	if page.V.IsNull() {
		return "", 0
	}

	rows, err := page.GetTextByRow()
	if err == nil && len(rows) > 0 {
		var sb strings.Builder
		for _, row := range rows {
			parts := make([]string, 0, len(row.Content))
			for _, t := range row.Content {
				if s := strings.TrimSpace(t.S); s != "" {
					parts = append(parts, s)
				}
			}
			items += len(row.Content)
			if len(parts) == 0 {
				continue
			}
			sb.WriteString(strings.Join(parts, " "))
			sb.WriteByte('\n')
		}
		return strings.TrimRight(sb.String(), "\n"), items
	}

	fonts := make(map[string]*pdf.Font)
	for _, name := range page.Fonts() {
		f := page.Font(name)
		fonts[name] = &f
	}
	plain, err := page.GetPlainText(fonts)
	if err != nil {
		r.logger.Debug("Plain text fallback failed", "page", num, "error", err)
		return "", 0
	}
	if strings.TrimSpace(plain) == "" {
		return "", 0
	}
	return plain, 1
}

func head(content []byte) []byte {
	if len(content) > 1024 {
		return content[:1024]
	}
	return content
}
