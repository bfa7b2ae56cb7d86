package raster

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/filingocr/internal/testutil"
)

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"", KindFitz, false},
		{"fitz", KindFitz, false},
		{" Embedded ", KindEmbedded, false},
		{"ghostscript", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNew(t *testing.T) {
	r, err := New(KindFitz, 0)
	require.NoError(t, err)
	assert.Equal(t, Fitz{DPI: DefaultDPI}, r)

	r, err = New(KindEmbedded, 150)
	require.NoError(t, err)
	assert.IsType(t, Embedded{}, r)

	_, err = New("other", 150)
	assert.Error(t, err)
}

func TestEmbedded(t *testing.T) {
	pages, err := Embedded{}.Open(testutil.ScannedPDF(2))
	require.NoError(t, err)
	defer func() { _ = pages.Close() }()

	assert.Equal(t, 2, pages.NumPage())
	img, err := pages.Render(1)
	require.NoError(t, err)
	assert.Equal(t, testutil.SmallSize.Width, img.Bounds().Dx())
	assert.Equal(t, testutil.SmallSize.Height, img.Bounds().Dy())

	_, err = pages.Render(3)
	assert.ErrorIs(t, err, ErrPageOutOfRange)
}

func TestEmbedded_TextOnlyPage(t *testing.T) {
	pages, err := Embedded{}.Open(testutil.DisclosurePDF(1))
	require.NoError(t, err)
	_, err = pages.Render(1)
	assert.ErrorIs(t, err, ErrNoImage)
}

func TestFitz_Render(t *testing.T) {
	pages, err := NewFitz(72).Open(testutil.ScannedPDF(2))
	require.NoError(t, err)
	defer func() { _ = pages.Close() }()

	require.Equal(t, 2, pages.NumPage())

	// Concurrent renders are serialized internally.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			img, err := pages.Render(i + 1)
			if err == nil {
				assert.InDelta(t, testutil.PageWidth, img.Bounds().Dx(), 1)
				assert.InDelta(t, testutil.PageHeight, img.Bounds().Dy(), 1)
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	_, err = pages.Render(0)
	assert.ErrorIs(t, err, ErrPageOutOfRange)

	require.NoError(t, pages.Close())
	require.NoError(t, pages.Close())
	_, err = pages.Render(1)
	assert.Error(t, err)
}

func TestFitz_OpenGarbage(t *testing.T) {
	_, err := NewFitz(72).Open([]byte("definitely not a document"))
	assert.Error(t, err)
}
