package pdf

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/testutil"
)

func TestParsePageFromFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected int
		wantErr  bool
	}{
		{"page prefix", "page_3_image_1.png", 3, false},
		{"pdfcpu naming", "document_2_Im1.png", 2, false},
		{"underscored base", "my_scan_12_7.jpg", 12, false},
		{"no separators", "image.png", 0, true},
		{"non numeric", "page_x_image_1.png", 0, true},
		{"zero page", "document_0_Im1.png", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parsePageFromFilename(tt.filename)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestCollectExtractedImages(t *testing.T) {
	dir := t.TempDir()
	small := testutil.CreateTestImage(10, 10, color.White)
	large := testutil.CreateTestImage(40, 30, color.Black)
	testutil.SaveImage(t, small, filepath.Join(dir, "document_1_Im1.png"))
	testutil.SaveImage(t, large, filepath.Join(dir, "document_1_Im2.png"))
	testutil.SaveImage(t, small, filepath.Join(dir, "document_3_Im1.png"))
	testutil.WriteFile(t, dir, "document_2_Im1.png", []byte("not an image"))
	testutil.WriteFile(t, dir, "notes.txt", []byte("ignored"))

	got, err := collectExtractedImages(dir)
	require.NoError(t, err)
	assert.Len(t, got[1], 2)
	assert.Len(t, got[3], 1)
	assert.NotContains(t, got, 2)

	best := LargestImage(got[1])
	require.NotNil(t, best)
	assert.Equal(t, image.Rect(0, 0, 40, 30), best.Bounds())
}

func TestLargestImage_Empty(t *testing.T) {
	assert.Nil(t, LargestImage(nil))
	assert.Nil(t, LargestImage([]image.Image{nil}))
}

func TestExtractImages_ScannedDocument(t *testing.T) {
	images, err := ExtractImages(testutil.ScannedPDF(2), nil)
	require.NoError(t, err)
	require.Len(t, images, 2)
	for page := 1; page <= 2; page++ {
		img := LargestImage(images[page])
		require.NotNil(t, img, "page %d", page)
		assert.Equal(t, testutil.SmallSize.Width, img.Bounds().Dx())
	}
}

func TestPageCount(t *testing.T) {
	n, err := PageCount(testutil.DisclosurePDF(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = PageCount(testutil.CorruptPDF())
	assert.Error(t, err)
}
