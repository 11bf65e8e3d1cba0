package main

import (
	"fmt"
	"os"

	"github.com/bookabooks/booka/pkg/epub"
	"github.com/bookabooks/booka/pkg/ingest"
	"github.com/robinjoseph08/golib/logger"
)

// Parses an EPUB the way the ingestion pipeline would and prints what it
// found: metadata, hashes, and the first few alias candidates.
func main() {
	log := logger.New()

	if len(os.Args) != 2 {
		fmt.Println("go run ./cmd/scripts/debug/parse-epub <path/to/file.epub>")
		os.Exit(1)
	}
	path := os.Args[1]

	fileHash, err := ingest.FileHash(path)
	if err != nil {
		log.Err(err).Fatal("file hash error")
	}

	book, err := epub.Parse(path)
	if err != nil {
		log.Err(err).Fatal("epub parse error")
	}

	fmt.Printf("Title: %s\n", book.Meta.Title)
	fmt.Printf("Author: %s\n", book.Meta.Author)
	fmt.Printf("License: %s\n", book.Meta.License)
	fmt.Printf("Tags: %v\n", book.Tags)
	fmt.Printf("Chapters: %d\n", len(book.Chapters))
	fmt.Printf("Text length: %d\n", book.TextLength())
	fmt.Printf("Has cover: %v (%s)\n", len(book.Meta.Cover) > 0, book.Meta.CoverMimeType)
	fmt.Printf("File hash: %s\n", fileHash)
	fmt.Printf("Content hash: %s\n", ingest.ContentHash(book))

	candidates := ingest.NewCandidates(book.Meta.Title, book.Meta.Author)
	fmt.Printf("Alias candidates: %s, %s, %s, ...\n", candidates.Next(), candidates.Next(), candidates.Next())
}
