package ingest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bookabooks/booka/pkg/epub"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileHash(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	a := filepath.Join(dir, "a.epub")
	b := filepath.Join(dir, "b.epub")
	c := filepath.Join(dir, "c.epub")
	require.NoError(t, os.WriteFile(a, []byte("same bytes"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("same bytes"), 0o644))
	require.NoError(t, os.WriteFile(c, []byte("different bytes"), 0o644))

	hashA, err := FileHash(a)
	require.NoError(t, err)
	hashB, err := FileHash(b)
	require.NoError(t, err)
	hashC, err := FileHash(c)
	require.NoError(t, err)

	// Filename doesn't matter, bytes do.
	assert.Equal(t, hashA, hashB)
	assert.NotEqual(t, hashA, hashC)
}

func TestFileHashMissingFile(t *testing.T) {
	t.Parallel()
	_, err := FileHash(filepath.Join(t.TempDir(), "nope.epub"))
	assert.Error(t, err)
}

func TestContentHashIgnoresMetadata(t *testing.T) {
	t.Parallel()
	chapters := []epub.Chapter{
		{Title: "One", Paragraphs: []string{"Call me Ishmael."}},
	}

	plain := &epub.Book{
		Meta:     epub.Meta{Title: "Moby Dick"},
		Chapters: chapters,
	}
	decorated := &epub.Book{
		Meta: epub.Meta{
			Title:         "Moby Dick (Annotated)",
			Author:        "Herman Melville",
			Cover:         []byte{0x89, 0x50, 0x4e, 0x47},
			CoverMimeType: "image/png",
		},
		Tags:     []string{"Whaling"},
		Chapters: chapters,
	}

	assert.Equal(t, ContentHash(plain), ContentHash(decorated))
}

func TestContentHashDiffersByText(t *testing.T) {
	t.Parallel()
	a := &epub.Book{Chapters: []epub.Chapter{{Paragraphs: []string{"One text."}}}}
	b := &epub.Book{Chapters: []epub.Chapter{{Paragraphs: []string{"Other text."}}}}

	assert.NotEqual(t, ContentHash(a), ContentHash(b))
}
