// Package tesseract implements ocr.Engine with Tesseract through gosseract.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strconv"

	"github.com/otiai10/gosseract/v2"

	"github.com/MeKo-Tech/filingocr/internal/ocr"
)

// Config holds Tesseract settings.
type Config struct {
	Languages []string
	DPI       int
	// Variables are passed to SetVariable verbatim.
	Variables map[string]string
}

// Engine is a Tesseract-backed ocr.Engine. A client is created per call
// since gosseract clients are not goroutine-safe.
type Engine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

// New constructs an engine; no languages means "eng".
func New(cfg Config) *Engine {
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"eng"}
	}
	return &Engine{cfg: cfg, clientFactory: gosseract.NewClient}
}

// Name implements ocr.Engine.
func (e *Engine) Name() string { return "tesseract" }

// Fingerprint identifies the languages, resolution and variables in use.
func (e *Engine) Fingerprint() string {
	return fmt.Sprintf("tesseract langs=%v dpi=%d vars=%v", e.cfg.Languages, e.cfg.DPI, e.cfg.Variables)
}

// Recognize implements ocr.Engine. Tesseract cannot be interrupted, so ctx is
// checked before and after the call.
func (e *Engine) Recognize(ctx context.Context, img image.Image) (ocr.Page, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Page{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.Page{}, fmt.Errorf("encode image: %w", err)
	}

	c := e.clientFactory()
	defer func() { _ = c.Close() }()

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return ocr.Page{}, fmt.Errorf("set image: %w", err)
	}
	if err := c.SetLanguage(e.cfg.Languages...); err != nil {
		return ocr.Page{}, fmt.Errorf("set languages: %w", err)
	}
	if e.cfg.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), strconv.Itoa(e.cfg.DPI)); err != nil {
			return ocr.Page{}, fmt.Errorf("set dpi: %w", err)
		}
	}
	for k, v := range e.cfg.Variables {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Page{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Page{}, fmt.Errorf("recognize text: %w", err)
	}
	words := extractWords(c)

	if err := ctx.Err(); err != nil {
		return ocr.Page{}, err
	}
	return ocr.NewPage(text, words), nil
}

func extractWords(c *gosseract.Client) []ocr.Word {
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return nil
	}
	words := make([]ocr.Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.Word{
			Text:       b.Word,
			Confidence: b.Confidence / 100.0,
			Box:        b.Box,
		})
	}
	return words
}
