package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// ImageSize represents common image dimensions.
type ImageSize struct {
	Width  int
	Height int
}

var (
	// Common test page sizes.
	SmallSize  = ImageSize{320, 240}
	MediumSize = ImageSize{640, 480}
	LargeSize  = ImageSize{1024, 768}
)

// PageImageConfig holds configuration for generating synthetic scanned pages.
type PageImageConfig struct {
	Lines      []string
	Size       ImageSize
	Background color.Color
	Foreground color.Color
	FontFace   font.Face
	Rotation   float64 // rotation in degrees, counter-clockwise
	Noise      float64 // fraction of pixels flipped to simulate speckle
	Border     int     // width of a black scanner border, in pixels
}

// DefaultPageImageConfig returns a clean white page with a few lines.
func DefaultPageImageConfig() PageImageConfig {
	return PageImageConfig{
		Lines:      []string{"Sample Text"},
		Size:       MediumSize,
		Background: color.White,
		Foreground: color.Black,
		FontFace:   basicfont.Face7x13,
	}
}

// GeneratePageImage renders a synthetic page.
func GeneratePageImage(config PageImageConfig) (*image.RGBA, error) {
	if config.Size.Width <= 0 || config.Size.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", config.Size.Width, config.Size.Height)
	}
	if config.FontFace == nil {
		config.FontFace = basicfont.Face7x13
	}

	img := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{config.Background}, image.Point{}, draw.Src)

	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{config.Foreground},
		Face: config.FontFace,
	}

	// Lines are left aligned from a margin, the way forms are laid out.
	lineHeight := config.FontFace.Metrics().Height.Ceil() + 4
	startY := (config.Size.Height - len(config.Lines)*lineHeight) / 2
	marginX := config.Size.Width / 16
	for i, line := range config.Lines {
		drawer.Dot = fixed.P(marginX, startY+(i+1)*lineHeight)
		drawer.DrawString(line)
	}

	var out image.Image = img
	if config.Rotation != 0 {
		rotated := imaging.Rotate(img, config.Rotation, config.Background)
		out = imaging.CropCenter(rotated, config.Size.Width, config.Size.Height)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, config.Size.Width, config.Size.Height))
	draw.Draw(rgba, rgba.Bounds(), out, out.Bounds().Min, draw.Src)

	if config.Noise > 0 {
		addNoise(rgba, config.Noise)
	}
	if config.Border > 0 {
		addBorder(rgba, config.Border)
	}
	return rgba, nil
}

// ScanPage renders lines onto a grayscale page the way a flatbed scan looks.
func ScanPage(lines []string, size ImageSize) *image.Gray {
	config := DefaultPageImageConfig()
	config.Lines = lines
	config.Size = size
	img, err := GeneratePageImage(config)
	if err != nil {
		return image.NewGray(image.Rect(0, 0, size.Width, size.Height))
	}
	return ToGray(img)
}

// ToGray converts any image to *image.Gray.
func ToGray(img image.Image) *image.Gray {
	bounds := img.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(gray, gray.Bounds(), img, bounds.Min, draw.Src)
	return gray
}

// EncodePNG encodes an image as PNG bytes.
func EncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// SaveImage saves an image to the specified path.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	img, err := LoadImageFile(path)
	require.NoError(t, err)
	return img
}

// LoadImageFile loads an image from the specified path (non-testing version).
func LoadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: Opening user-provided image file is expected
	if err != nil {
		return nil, fmt.Errorf("failed to open image file %s: %w", path, err)
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return img, nil
}

// CompareImages compares two images and returns true if they are similar.
func CompareImages(img1, img2 image.Image, tolerance float64) bool {
	bounds1 := img1.Bounds()
	bounds2 := img2.Bounds()
	if bounds1.Dx() != bounds2.Dx() || bounds1.Dy() != bounds2.Dy() {
		return false
	}

	var totalDiff, pixelCount float64
	for y := 0; y < bounds1.Dy(); y++ {
		for x := 0; x < bounds1.Dx(); x++ {
			r1, g1, b1, a1 := img1.At(bounds1.Min.X+x, bounds1.Min.Y+y).RGBA()
			r2, g2, b2, a2 := img2.At(bounds2.Min.X+x, bounds2.Min.Y+y).RGBA()

			dr := float64(r1) - float64(r2)
			dg := float64(g1) - float64(g2)
			db := float64(b1) - float64(b2)
			da := float64(a1) - float64(a2)

			totalDiff += math.Sqrt(dr*dr + dg*dg + db*db + da*da)
			pixelCount++
		}
	}
	if pixelCount == 0 {
		return true
	}

	avgDiff := totalDiff / pixelCount
	maxDiff := math.Sqrt(4 * 65535 * 65535)
	return (avgDiff / maxDiff) <= tolerance
}

// CreateTestImage creates a uniform image with the specified dimensions and color.
func CreateTestImage(width, height int, backgroundColor color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{backgroundColor}, image.Point{}, draw.Src)
	return img
}

// addNoise flips a deterministic sample of pixels to simulate scanning speckle.
func addNoise(img *image.RGBA, noiseLevel float64) {
	bounds := img.Bounds()
	period := int(math.Max(1, math.Round(1/noiseLevel)))
	n := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			n++
			if (n*7919)%period != 0 {
				continue
			}
			c := img.RGBAAt(x, y)
			img.SetRGBA(x, y, color.RGBA{255 - c.R, 255 - c.G, 255 - c.B, c.A})
		}
	}
}

func addBorder(img *image.RGBA, width int) {
	bounds := img.Bounds()
	black := &image.Uniform{color.Black}
	draw.Draw(img, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Min.Y+width), black, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(bounds.Min.X, bounds.Max.Y-width, bounds.Max.X, bounds.Max.Y), black, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(bounds.Min.X, bounds.Min.Y, bounds.Min.X+width, bounds.Max.Y), black, image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(bounds.Max.X-width, bounds.Min.Y, bounds.Max.X, bounds.Max.Y), black, image.Point{}, draw.Src)
}
