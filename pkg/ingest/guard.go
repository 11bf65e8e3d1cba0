package ingest

import (
	"context"

	"github.com/bookabooks/booka/pkg/books"
	"github.com/bookabooks/booka/pkg/epub"
	"github.com/bookabooks/booka/pkg/errcodes"
	"github.com/pkg/errors"
)

// DuplicateGuard answers whether an upload matches an already-stored book,
// by file hash or by content hash. On a match where the uploader asserts
// public domain, a stored not-marked-public-domain license is upgraded in
// place. The upgrade never runs in the other direction.
type DuplicateGuard struct {
	books *books.Service
}

func NewDuplicateGuard(bookService *books.Service) *DuplicateGuard {
	return &DuplicateGuard{books: bookService}
}

func (g *DuplicateGuard) CheckByFileHash(ctx context.Context, hash string, publicDomain bool) (*books.Book, error) {
	return g.check(ctx, books.RetrieveBookOptions{FileHash: &hash}, publicDomain)
}

func (g *DuplicateGuard) CheckByContentHash(ctx context.Context, hash string, publicDomain bool) (*books.Book, error) {
	return g.check(ctx, books.RetrieveBookOptions{ContentHash: &hash}, publicDomain)
}

func (g *DuplicateGuard) check(ctx context.Context, opts books.RetrieveBookOptions, publicDomain bool) (*books.Book, error) {
	book, err := g.books.RetrieveBook(ctx, opts)
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Book")) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	if publicDomain && book.License == epub.LicenseNotMarkedPublicDomain {
		book.License = epub.LicenseMarkedPublicDomain
		err = g.books.UpdateBook(ctx, book, books.UpdateBookOptions{Columns: []string{"license"}})
		if err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return book, nil
}
