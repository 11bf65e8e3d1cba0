package epub

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bookabooks/booka/internal/testgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Metadata(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := testgen.GenerateEPUB(t, dir, "moby.epub", testgen.EPUBOptions{
		Title:    "Moby Dick",
		Author:   "Herman Melville",
		Rights:   "Public domain in the USA.",
		Subjects: []string{"Whaling", "Sea stories"},
		HasCover: true,
		Chapters: []testgen.ChapterOptions{
			{Title: "Loomings", Paragraphs: []string{"Call me Ishmael.", "Some years ago."}},
			{Title: "The Carpet-Bag", Paragraphs: []string{"I stuffed a shirt or two."}},
		},
	})

	book, err := Parse(path)
	require.NoError(t, err)

	assert.Equal(t, "Moby Dick", book.Meta.Title)
	assert.Equal(t, "Herman Melville", book.Meta.Author)
	assert.Equal(t, LicensePublicDomain, book.Meta.License)
	assert.Equal(t, []string{"Whaling", "Sea stories"}, book.Tags)
	assert.NotEmpty(t, book.Meta.Cover)
	assert.Equal(t, "image/png", book.Meta.CoverMimeType)

	require.Len(t, book.Chapters, 2)
	assert.Equal(t, "Loomings", book.Chapters[0].Title)
	assert.Equal(t, []string{"Loomings", "Call me Ishmael.", "Some years ago."}, book.Chapters[0].Paragraphs)
}

func TestParse_UnknownLicenseWithoutRights(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "Some Book"})

	book, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, LicenseUnknown, book.Meta.License)
	assert.Empty(t, book.Meta.Cover)
}

func TestParse_InvalidFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	path := filepath.Join(dir, "broken.epub")
	require.NoError(t, os.WriteFile(path, []byte("not a zip"), 0600))

	_, err := Parse(path)
	assert.Error(t, err)
}

func TestBook_TextAndTOC(t *testing.T) {
	t.Parallel()

	book := &Book{
		Chapters: []Chapter{
			{Title: "One", Paragraphs: []string{"a", "b"}},
			{Paragraphs: []string{"c"}},
			{Title: "Three", Paragraphs: []string{"d"}},
		},
	}

	assert.Equal(t, "a\nb\nc\nd", book.Text())
	assert.Equal(t, 7, book.TextLength())
	assert.Equal(t, []TOCEntry{
		{Title: "One", Chapter: 0},
		{Title: "Three", Chapter: 2},
	}, book.TOC())
}

func TestBook_TextIgnoresCoverAndTags(t *testing.T) {
	t.Parallel()

	plain := &Book{Chapters: []Chapter{{Paragraphs: []string{"same text"}}}}
	decorated := &Book{
		Meta:     Meta{Cover: []byte{1, 2, 3}, CoverMimeType: "image/png"},
		Tags:     []string{"fiction"},
		Chapters: []Chapter{{Paragraphs: []string{"same text"}}},
	}

	assert.Equal(t, plain.Text(), decorated.Text())
}
