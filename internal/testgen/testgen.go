// Package testgen generates EPUB files with configurable metadata for
// exercising the parser and the ingestion pipeline in tests.
package testgen

// EPUBOptions configures the generated EPUB file.
type EPUBOptions struct {
	Title         string
	Author        string
	Rights        string   // dc:rights text, e.g. "Public domain in the USA."
	Subjects      []string // dc:subject entries
	Chapters      []ChapterOptions
	HasCover      bool
	CoverMimeType string // "image/jpeg" or "image/png", defaults to "image/png"
}

// ChapterOptions configures one spine document.
type ChapterOptions struct {
	Title      string
	Paragraphs []string
}

// DefaultChapters is the spine used when EPUBOptions.Chapters is empty.
var DefaultChapters = []ChapterOptions{
	{Title: "Chapter 1", Paragraphs: []string{"This is a test chapter."}},
}
