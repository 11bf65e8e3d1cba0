package epub

import (
	"strings"
	"unicode/utf8"
)

// License values carried on parsed and stored books. Parsing yields either
// PublicDomain (the package rights assert it) or Unknown; Unknown is stamped
// to one of the Marked values during ingestion based on the uploader's claim.
const (
	LicensePublicDomain          = "public-domain"
	LicenseUnknown               = "unknown"
	LicenseMarkedPublicDomain    = "marked-public-domain"
	LicenseNotMarkedPublicDomain = "not-marked-public-domain"
)

type Meta struct {
	Title   string `json:"title,omitempty"`
	Author  string `json:"author,omitempty"`
	License string `json:"license"`

	// Cover holds the embedded cover image bytes; encoding/json stores it
	// base64-encoded. CoverURL is set instead when the source references an
	// external image.
	Cover         []byte `json:"cover,omitempty"`
	CoverMimeType string `json:"coverMimeType,omitempty"`
	CoverURL      string `json:"coverUrl,omitempty"`
}

type Chapter struct {
	Title      string   `json:"title,omitempty"`
	Paragraphs []string `json:"paragraphs"`
}

type TOCEntry struct {
	Title   string `json:"title"`
	Chapter int    `json:"chapter"`
}

// Book is the parsed representation of an EPUB. Its JSON encoding is the
// stored book asset.
type Book struct {
	Meta     Meta      `json:"meta"`
	Tags     []string  `json:"tags"`
	Chapters []Chapter `json:"chapters"`
}

// Text returns the normalized text content of the book: every paragraph of
// every chapter, newline-separated. It is independent of covers, tags, and
// other metadata, so two packagings of the same work produce the same text.
func (b *Book) Text() string {
	var sb strings.Builder
	for _, chapter := range b.Chapters {
		for _, paragraph := range chapter.Paragraphs {
			if sb.Len() > 0 {
				sb.WriteByte('\n')
			}
			sb.WriteString(paragraph)
		}
	}
	return sb.String()
}

// TextLength returns the length of the book text in characters.
func (b *Book) TextLength() int {
	return utf8.RuneCountInString(b.Text())
}

// TOC returns the table of contents: one entry per chapter that has a title.
func (b *Book) TOC() []TOCEntry {
	entries := []TOCEntry{}
	for i, chapter := range b.Chapters {
		if chapter.Title == "" {
			continue
		}
		entries = append(entries, TOCEntry{Title: chapter.Title, Chapter: i})
	}
	return entries
}
