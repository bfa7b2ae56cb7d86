package testutil

import (
	"bytes"
	"compress/zlib"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// Page geometry of generated documents, in points.
const (
	PageWidth   = 612
	PageHeight  = 792
	lineSpacing = 14
	marginLeft  = 50
	marginTop   = 60
)

type pdfPage struct {
	lines []string
	img   *image.Gray
}

// PDFBuilder writes small, well-formed PDF files: text pages use the
// standard Helvetica font, image pages embed one grayscale raster the way a
// scanner would.
type PDFBuilder struct {
	pages []pdfPage
}

// NewPDFBuilder creates an empty builder.
func NewPDFBuilder() *PDFBuilder {
	return &PDFBuilder{}
}

// AddTextPage adds a page with one text line per element. Text must be ASCII.
func (b *PDFBuilder) AddTextPage(text string) *PDFBuilder {
	b.pages = append(b.pages, pdfPage{lines: strings.Split(strings.TrimRight(text, "\n"), "\n")})
	return b
}

// AddBlankPage adds a page without any content.
func (b *PDFBuilder) AddBlankPage() *PDFBuilder {
	b.pages = append(b.pages, pdfPage{})
	return b
}

// AddImagePage adds a page whose only content is a full-page image.
func (b *PDFBuilder) AddImagePage(img *image.Gray) *PDFBuilder {
	b.pages = append(b.pages, pdfPage{img: img})
	return b
}

// Bytes renders the document.
func (b *PDFBuilder) Bytes() []byte {
	w := &pdfWriter{}
	w.buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")

	// Object layout: 1 catalog, 2 page tree, 3 font, then per page a page
	// object, a content stream and optionally an image XObject.
	pageRefs := make([]string, len(b.pages))
	next := 4
	type ids struct{ page, content, image int }
	layout := make([]ids, len(b.pages))
	for i, p := range b.pages {
		layout[i] = ids{page: next, content: next + 1}
		next += 2
		if p.img != nil {
			layout[i].image = next
			next++
		}
		pageRefs[i] = fmt.Sprintf("%d 0 R", layout[i].page)
	}

	w.object(1, "<< /Type /Catalog /Pages 2 0 R >>")
	w.object(2, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(pageRefs, " "), len(b.pages)))
	w.object(3, "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, p := range b.pages {
		id := layout[i]
		resources := "<< /Font << /F1 3 0 R >> >>"
		if p.img != nil {
			resources = fmt.Sprintf("<< /XObject << /Im1 %d 0 R >> >>", id.image)
		}
		w.object(id.page, fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 %d %d] /Resources %s /Contents %d 0 R >>",
			PageWidth, PageHeight, resources, id.content))

		if p.img != nil {
			w.stream(id.content, "", []byte(fmt.Sprintf("q %d 0 0 %d 0 0 cm /Im1 Do Q", PageWidth, PageHeight)))
			bounds := p.img.Bounds()
			w.stream(id.image, fmt.Sprintf(
				"/Type /XObject /Subtype /Image /Width %d /Height %d /ColorSpace /DeviceGray /BitsPerComponent 8 /Filter /FlateDecode",
				bounds.Dx(), bounds.Dy()), deflate(grayRows(p.img)))
			continue
		}
		w.stream(id.content, "", textContent(p.lines))
	}

	w.finish(next)
	return w.buf.Bytes()
}

// WriteFile renders the document into dir and returns its path.
func (b *PDFBuilder) WriteFile(t *testing.T, dir, name string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(dir))
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o600))
	return path
}

// TextPDF builds a document with one text page per element.
func TextPDF(pages ...string) []byte {
	b := NewPDFBuilder()
	for _, p := range pages {
		b.AddTextPage(p)
	}
	return b.Bytes()
}

// DisclosurePDF builds an n-page text-layer disclosure.
func DisclosurePDF(n int) []byte {
	return TextPDF(DisclosurePages(n)...)
}

// ScannedPDF builds a document whose pages are images without a text layer.
func ScannedPDF(pages int) []byte {
	b := NewPDFBuilder()
	for i := 0; i < pages; i++ {
		b.AddImagePage(ScanPage(ScanLines(), SmallSize))
	}
	return b.Bytes()
}

// CorruptPDF has a PDF header followed by bytes no reader can parse.
func CorruptPDF() []byte {
	return []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog /Pages 9 0 R\nthis is not a pdf\n")
}

type pdfWriter struct {
	buf     bytes.Buffer
	offsets map[int]int
}

func (w *pdfWriter) object(id int, body string) {
	if w.offsets == nil {
		w.offsets = make(map[int]int)
	}
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n%s\nendobj\n", id, body)
}

func (w *pdfWriter) stream(id int, dict string, data []byte) {
	if w.offsets == nil {
		w.offsets = make(map[int]int)
	}
	w.offsets[id] = w.buf.Len()
	fmt.Fprintf(&w.buf, "%d 0 obj\n<< %s /Length %d >>\nstream\n", id, dict, len(data))
	w.buf.Write(data)
	w.buf.WriteString("\nendstream\nendobj\n")
}

func (w *pdfWriter) finish(size int) {
	xref := w.buf.Len()
	fmt.Fprintf(&w.buf, "xref\n0 %d\n", size)
	w.buf.WriteString("0000000000 65535 f \n")
	for id := 1; id < size; id++ {
		fmt.Fprintf(&w.buf, "%010d 00000 n \n", w.offsets[id])
	}
	fmt.Fprintf(&w.buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", size, xref)
}

func textContent(lines []string) []byte {
	var b bytes.Buffer
	if len(lines) == 1 && lines[0] == "" {
		return b.Bytes()
	}
	b.WriteString("BT\n/F1 9 Tf\n")
	y := PageHeight - marginTop
	for _, line := range lines {
		fmt.Fprintf(&b, "1 0 0 1 %d %d Tm\n(%s) Tj\n", marginLeft, y, escapePDFString(line))
		y -= lineSpacing
	}
	b.WriteString("ET")
	return b.Bytes()
}

func escapePDFString(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func grayRows(img *image.Gray) []byte {
	bounds := img.Bounds()
	out := make([]byte, 0, bounds.Dx()*bounds.Dy())
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		start := img.PixOffset(bounds.Min.X, y)
		out = append(out, img.Pix[start:start+bounds.Dx()]...)
	}
	return out
}

func deflate(data []byte) []byte {
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, _ = zw.Write(data)
	_ = zw.Close()
	return buf.Bytes()
}
