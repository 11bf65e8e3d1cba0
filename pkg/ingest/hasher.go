package ingest

import (
	"crypto/sha1"
	"encoding/base64"
	"os"

	"github.com/bookabooks/booka/pkg/epub"
	"github.com/pkg/errors"
)

// FileHash hashes the raw bytes of the file at path. Two byte-identical
// uploads always produce the same hash regardless of filename.
func FileHash(path string) (string, error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read file for hashing: %s", path)
	}
	return hashBytes(body), nil
}

// ContentHash hashes the normalized text of a parsed book. It ignores
// covers, tags, and packaging, so two different files of the same work
// hash the same.
func ContentHash(book *epub.Book) string {
	return hashBytes([]byte(book.Text()))
}

func hashBytes(body []byte) string {
	sum := sha1.Sum(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}
