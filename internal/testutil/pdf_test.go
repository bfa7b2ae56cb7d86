package testutil

import (
	"bytes"
	"regexp"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPDFBuilder_XrefOffsets(t *testing.T) {
	data := NewPDFBuilder().
		AddTextPage("Schedule A (Assets)\nSecond line").
		AddBlankPage().
		AddImagePage(ScanPage(ScanLines(), SmallSize)).
		Bytes()

	require.True(t, bytes.HasPrefix(data, []byte("%PDF-1.4")))
	require.True(t, bytes.HasSuffix(data, []byte("%%EOF\n")))

	m := regexp.MustCompile(`startxref\n(\d+)\n`).FindSubmatch(data)
	require.NotNil(t, m)
	off, err := strconv.Atoi(string(m[1]))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data[off:], []byte("xref\n")))

	entries := regexp.MustCompile(`(\d{10}) 00000 n `).FindAllSubmatch(data, -1)
	// catalog, pages, font, 3 page objects, 3 content streams, 1 image
	require.Len(t, entries, 10)
	for i, e := range entries {
		pos, err := strconv.Atoi(string(e[1]))
		require.NoError(t, err)
		want := []byte(strconv.Itoa(i+1) + " 0 obj")
		assert.True(t, bytes.HasPrefix(data[pos:], want), "object %d offset", i+1)
	}

	assert.Contains(t, string(data), `(Schedule A \(Assets\)) Tj`)
	assert.Contains(t, string(data), "/Count 3")
}

func TestDisclosurePDF(t *testing.T) {
	data := DisclosurePDF(3)
	assert.Contains(t, string(data), "/Count 3")
	assert.Contains(t, string(data), "Financial Disclosure Statement")

	assert.Contains(t, string(NewPDFBuilder().Bytes()), "/Count 0")
}

func TestDisclosurePageText(t *testing.T) {
	for page := 1; page <= 5; page++ {
		text := DisclosurePageText(page)
		assert.Greater(t, len(text), 500)
		for _, r := range text {
			require.Less(t, r, rune(128), "page text must stay ASCII")
		}
	}
	assert.NotEqual(t, DisclosurePageText(1), DisclosurePageText(2))
}

func TestCorruptPDF(t *testing.T) {
	data := CorruptPDF()
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF-")))
	assert.NotContains(t, string(data), "startxref")
}
