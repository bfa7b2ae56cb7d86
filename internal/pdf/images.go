package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// ExtractImages extracts the embedded images of content grouped by page
// number. With no pages given, every page is extracted. pdfcpu works on files,
// so the document is staged in a temporary directory that is removed after.
func ExtractImages(content []byte, pages []int) (map[int][]image.Image, error) {
	tempDir, err := os.MkdirTemp("", "filingocr-images-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	src := filepath.Join(tempDir, "document.pdf")
	if err := os.WriteFile(src, content, 0o600); err != nil {
		return nil, fmt.Errorf("failed to stage document: %w", err)
	}
	outDir := filepath.Join(tempDir, "images")
	if err := os.Mkdir(outDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}

	var pageStrings []string
	for _, p := range pages {
		pageStrings = append(pageStrings, strconv.Itoa(p))
	}

	if err := api.ExtractImagesFile(src, outDir, pageStrings, nil); err != nil {
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	result, err := collectExtractedImages(outDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

// PageCount returns the page count pdfcpu reports for content.
func PageCount(content []byte) (int, error) {
	return api.PageCount(bytes.NewReader(content), model.NewDefaultConfiguration())
}

// LargestImage returns the image with the biggest pixel area, or nil.
func LargestImage(images []image.Image) image.Image {
	var best image.Image
	bestArea := -1
	for _, img := range images {
		if img == nil {
			continue
		}
		b := img.Bounds()
		if area := b.Dx() * b.Dy(); area > bestArea {
			best, bestArea = img, area
		}
	}
	return best
}

// loadImageFile loads an image from a file path.
func loadImageFile(path string) (image.Image, error) {
	file, err := os.Open(path) //nolint:gosec // G304: path comes from our own temp dir
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	return img, err
}

// collectExtractedImages walks dir and groups images by page number. Files
// are visited in name order so the per-page order is stable.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	result := make(map[int][]image.Image)

	var names []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			names = append(names, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)

	for _, path := range names {
		pageNum, err := parsePageFromFilename(filepath.Base(path))
		if err != nil {
			continue
		}
		img, err := loadImageFile(path)
		if err != nil || img == nil {
			continue
		}
		result[pageNum] = append(result[pageNum], img)
	}
	return result, nil
}

// parsePageFromFilename extracts the page number from an extracted image
// name. Both page_<n>_image_<i>.<ext> and <base>_<n>_<obj>.<ext> are
// understood.
func parsePageFromFilename(filename string) (int, error) {
	name := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(name, "_")
	if len(parts) < 2 {
		return 0, errors.New("invalid filename format")
	}

	field := parts[len(parts)-2]
	if parts[0] == "page" {
		field = parts[1]
	}
	pageNum, err := strconv.Atoi(field)
	if err != nil || pageNum < 1 {
		return 0, errors.New("invalid page number")
	}
	return pageNum, nil
}
