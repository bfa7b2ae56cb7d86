package raster

import (
	"fmt"
	"image"

	"github.com/MeKo-Tech/filingocr/internal/pdf"
)

// Embedded uses the largest image embedded in each page instead of
// rendering. It needs no MuPDF and suits scanner output, where every page is a
// single full-page image.
type Embedded struct{}

// Fingerprint identifies the rasterizer.
func (Embedded) Fingerprint() string { return "embedded" }

// Open extracts all page images up front.
func (Embedded) Open(content []byte) (Pages, error) {
	total, err := pdf.PageCount(content)
	if err != nil {
		return nil, fmt.Errorf("failed to read page count: %w", err)
	}
	images, err := pdf.ExtractImages(content, nil)
	if err != nil {
		return nil, err
	}

	pages := &embeddedPages{total: total, images: make(map[int]image.Image, len(images))}
	for page, imgs := range images {
		if best := pdf.LargestImage(imgs); best != nil {
			pages.images[page] = best
		}
	}
	return pages, nil
}

type embeddedPages struct {
	total  int
	images map[int]image.Image
}

func (p *embeddedPages) NumPage() int { return p.total }

func (p *embeddedPages) Render(page int) (image.Image, error) {
	if err := checkPage(page, p.total); err != nil {
		return nil, err
	}
	img, ok := p.images[page]
	if !ok {
		return nil, fmt.Errorf("%w: page %d", ErrNoImage, page)
	}
	return img, nil
}

func (p *embeddedPages) Close() error {
	p.images = nil
	return nil
}
