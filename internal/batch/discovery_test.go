package batch

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoverDocuments_EmptyArgs(t *testing.T) {
	files, err := discoverDocuments([]string{}, false, []string{"*.pdf"}, nil)
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestDiscoverDocuments_Directory(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.pdf", "x")
	b := writeDoc(t, dir, "B.PDF", "x")
	writeDoc(t, dir, "notes.txt", "x")
	writeDoc(t, dir, "sub/c.pdf", "x")

	files, err := discoverDocuments([]string{dir}, false, []string{"*.pdf"}, nil)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, files)
}

func TestDiscoverDocuments_Recursive(t *testing.T) {
	dir := t.TempDir()
	a := writeDoc(t, dir, "a.pdf", "x")
	c := writeDoc(t, dir, "sub/deeper/c.pdf", "x")
	writeDoc(t, dir, ".cache/d.pdf", "x")

	files, err := discoverDocuments([]string{dir}, true, []string{"*.pdf"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{a, c}, files, "sorted, hidden directories skipped")
}

func TestDiscoverDocuments_Exclude(t *testing.T) {
	dir := t.TempDir()
	keep := writeDoc(t, dir, "2024_annual.pdf", "x")
	writeDoc(t, dir, "2024_draft.pdf", "x")

	files, err := discoverDocuments([]string{dir}, false, []string{"*.pdf"}, []string{"*draft*"})
	require.NoError(t, err)
	assert.Equal(t, []string{keep}, files)
}

func TestDiscoverDocuments_ExplicitFiles(t *testing.T) {
	dir := t.TempDir()
	odd := writeDoc(t, dir, "filing.bin", "x")
	skipped := writeDoc(t, dir, "skip.pdf", "x")

	files, err := discoverDocuments([]string{odd, skipped, odd}, false, []string{"*.pdf"}, []string{"skip*"})
	require.NoError(t, err)
	assert.Equal(t, []string{odd}, files, "explicit files bypass include patterns and are deduplicated")
}

func TestDiscoverDocuments_Missing(t *testing.T) {
	_, err := discoverDocuments([]string{filepath.Join(t.TempDir(), "nope")}, false, nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot access")
}

func TestShouldIncludeFile(t *testing.T) {
	tests := []struct {
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{"a.pdf", nil, nil, true},
		{"a.pdf", []string{"*.pdf"}, nil, true},
		{"A.Pdf", []string{"*.pdf"}, nil, true},
		{"a.txt", []string{"*.pdf"}, nil, false},
		{"a.pdf", []string{"*.pdf"}, []string{"a.*"}, false},
		{"dir/a.pdf", []string{"*.pdf"}, nil, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, shouldIncludeFile(tt.path, tt.include, tt.exclude), tt.path)
	}
}

func TestDocumentID(t *testing.T) {
	assert.Equal(t, "10012345", documentID("/data/2024/10012345.pdf"))
	assert.Equal(t, "report.v2", documentID("report.v2.pdf"))
	assert.Equal(t, "noext", documentID("noext"))
}
