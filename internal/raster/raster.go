// Package raster turns PDF pages into images for recognition.
package raster

import (
	"errors"
	"fmt"
	"image"
	"strings"
)

// Kind selects a rasterizer implementation.
type Kind string

const (
	// KindFitz renders pages with MuPDF.
	KindFitz Kind = "fitz"
	// KindEmbedded uses the scan images embedded in each page.
	KindEmbedded Kind = "embedded"
)

// DefaultDPI is the render resolution used when none is configured.
const DefaultDPI = 300

var (
	// ErrPageOutOfRange is returned for page numbers outside 1..NumPage.
	ErrPageOutOfRange = errors.New("page out of range")
	// ErrNoImage is returned when a page has nothing to render.
	ErrNoImage = errors.New("page has no image")
)

// Pages is an opened document. Page numbers are 1-based.
type Pages interface {
	NumPage() int
	Render(page int) (image.Image, error)
	Close() error
}

// Rasterizer opens documents for rendering.
type Rasterizer interface {
	Open(content []byte) (Pages, error)
}

// ParseKind parses a rasterizer name; the empty string means fitz.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case "", KindFitz:
		return KindFitz, nil
	case KindEmbedded:
		return KindEmbedded, nil
	default:
		return "", fmt.Errorf("unknown rasterizer %q (want fitz or embedded)", s)
	}
}

// New returns the rasterizer for kind.
func New(kind Kind, dpi float64) (Rasterizer, error) {
	switch kind {
	case "", KindFitz:
		return NewFitz(dpi), nil
	case KindEmbedded:
		return Embedded{}, nil
	default:
		return nil, fmt.Errorf("unknown rasterizer %q", kind)
	}
}

func checkPage(page, total int) error {
	if page < 1 || page > total {
		return fmt.Errorf("%w: %d of %d", ErrPageOutOfRange, page, total)
	}
	return nil
}
