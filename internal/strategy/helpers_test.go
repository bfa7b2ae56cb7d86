package strategy

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"

	"github.com/MeKo-Tech/filingocr/internal/extraction"
	"github.com/MeKo-Tech/filingocr/internal/ocr"
	"github.com/MeKo-Tech/filingocr/internal/preprocess"
	"github.com/MeKo-Tech/filingocr/internal/raster"
	"github.com/MeKo-Tech/filingocr/internal/remote"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func pdfDoc(id string, content []byte) *extraction.Document {
	return &extraction.Document{ID: id, FilingType: extraction.FilingPeriodicTransaction, Content: content}
}

// fakeRaster serves page images whose width encodes the page number, so
// engines can tell pages apart without shared state.
type fakeRaster struct {
	pages   int
	openErr error
	failOn  map[int]bool
}

func pageWidth(page int) int { return 20 + page }

func pageFromImage(img image.Image) int { return img.Bounds().Dx() - 20 }

func (f fakeRaster) Open([]byte) (raster.Pages, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return &fakePages{f: f}, nil
}

type fakePages struct {
	f      fakeRaster
	closed bool
}

func (p *fakePages) NumPage() int { return p.f.pages }

func (p *fakePages) Render(page int) (image.Image, error) {
	if page < 1 || page > p.f.pages {
		return nil, raster.ErrPageOutOfRange
	}
	if p.f.failOn[page] {
		return nil, errors.New("render failed")
	}
	return image.NewGray(image.Rect(0, 0, pageWidth(page), 10)), nil
}

func (p *fakePages) Close() error {
	p.closed = true
	return nil
}

// noPreprocessing keeps page images untouched so widths survive.
func noPreprocessing() preprocess.Config {
	return preprocess.DefaultConfig().Without(preprocess.Stages()...)
}

func wordsEngine(text func(page int) string, conf float64) ocr.Engine {
	return ocr.EngineFunc(func(ctx context.Context, img image.Image) (ocr.Page, error) {
		if err := ctx.Err(); err != nil {
			return ocr.Page{}, err
		}
		t := text(pageFromImage(img))
		return ocr.NewPage(t, []ocr.Word{{Text: t, Confidence: conf}}), nil
	})
}

type analyzerFunc func(ctx context.Context, req remote.Request) (*remote.Response, error)

func (f analyzerFunc) Analyze(ctx context.Context, req remote.Request) (*remote.Response, error) {
	return f(ctx, req)
}

func confidence(v float64) *float64 { return &v }
