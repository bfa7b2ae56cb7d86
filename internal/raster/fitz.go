package raster

import (
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// Fitz renders pages with MuPDF through go-fitz.
type Fitz struct {
	DPI float64
}

// Fingerprint identifies the renderer and its resolution.
func (f Fitz) Fingerprint() string { return fmt.Sprintf("fitz dpi=%g", f.DPI) }

// NewFitz creates a MuPDF rasterizer; non-positive dpi means DefaultDPI.
func NewFitz(dpi float64) Fitz {
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return Fitz{DPI: dpi}
}

// Open parses content with MuPDF.
func (f Fitz) Open(content []byte) (pages Pages, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			pages, err = nil, fmt.Errorf("mupdf panic: %v", rec)
		}
	}()

	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, fmt.Errorf("failed to open document: %w", err)
	}
	dpi := f.DPI
	if dpi <= 0 {
		dpi = DefaultDPI
	}
	return &fitzPages{doc: doc, dpi: dpi, total: doc.NumPage()}, nil
}

// fitzPages serializes access to the MuPDF document, which is not safe for
// concurrent use.
type fitzPages struct {
	mu     sync.Mutex
	doc    *fitz.Document
	dpi    float64
	total  int
	closed bool
}

func (p *fitzPages) NumPage() int { return p.total }

func (p *fitzPages) Render(page int) (img image.Image, err error) {
	if err := checkPage(page, p.total); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil, fmt.Errorf("render page %d: document closed", page)
	}

	defer func() {
		if rec := recover(); rec != nil {
			img, err = nil, fmt.Errorf("render page %d: mupdf panic: %v", page, rec)
		}
	}()

	rgba, err := p.doc.ImageDPI(page-1, p.dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", page, err)
	}
	return rgba, nil
}

func (p *fitzPages) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	return p.doc.Close()
}
