// Package ingest implements the upload pipeline: hash the file, detect
// duplicates by file and by content hash, parse, stamp the license, allocate
// a unique alias, fan the assets out to storage, and persist the record.
// Either a book identifier comes back (new or pre-existing) or an explicit
// error does; no partial record is ever persisted.
package ingest

import (
	"context"

	"github.com/bookabooks/booka/pkg/books"
	"github.com/bookabooks/booka/pkg/config"
	"github.com/bookabooks/booka/pkg/epub"
	"github.com/bookabooks/booka/pkg/errcodes"
	"github.com/bookabooks/booka/pkg/uploads"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
)

// insertAttempts bounds how many times an insert is retried when a
// concurrent ingestion claims the allocated alias first.
const insertAttempts = 3

type IngestOptions struct {
	Path         string
	PublicDomain bool
	AccountID    string
}

// Result reports where an upload ended up. Duplicate is true when the book
// already existed and no new record was created.
type Result struct {
	BookID      string       `json:"bookId"`
	Alias       string       `json:"alias"`
	Duplicate   bool         `json:"duplicate"`
	Diagnostics []Diagnostic `json:"diagnostics,omitempty"`
}

type Ingester struct {
	cfg           *config.Config
	bookService   *books.Service
	uploadService *uploads.Service
	guard         *DuplicateGuard
	uploader      *AssetUploader
}

func NewIngester(cfg *config.Config, bookService *books.Service, uploadService *uploads.Service, uploader *AssetUploader) *Ingester {
	return &Ingester{
		cfg:           cfg,
		bookService:   bookService,
		uploadService: uploadService,
		guard:         NewDuplicateGuard(bookService),
		uploader:      uploader,
	}
}

func (i *Ingester) Ingest(ctx context.Context, opts IngestOptions) (*Result, error) {
	result, err := i.parseAndInsert(ctx, opts)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	if opts.AccountID != "" {
		if _, err := i.uploadService.AddUpload(ctx, opts.AccountID, result.BookID); err != nil {
			return nil, errors.WithStack(err)
		}
	}

	return result, nil
}

func (i *Ingester) parseAndInsert(ctx context.Context, opts IngestOptions) (*Result, error) {
	log := logger.FromContext(ctx)

	fileHash, err := FileHash(opts.Path)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	// Byte-identical re-upload: skip parsing entirely.
	if existing, err := i.guard.CheckByFileHash(ctx, fileHash, opts.PublicDomain); err != nil {
		return nil, errors.WithStack(err)
	} else if existing != nil {
		return duplicateResult(existing), nil
	}

	book, err := epub.Parse(opts.Path)
	if err != nil {
		log.Warn("failed to parse uploaded book", logger.Data{"path": opts.Path, "error": err.Error()})
		return nil, errcodes.ParseFailed(opts.Path)
	}

	contentHash := ContentHash(book)

	// Same text repackaged into a different file.
	if existing, err := i.guard.CheckByContentHash(ctx, contentHash, opts.PublicDomain); err != nil {
		return nil, errors.WithStack(err)
	} else if existing != nil {
		return duplicateResult(existing), nil
	}

	// Stamp an unknown license with the uploader's claim. This happens
	// exactly once, on the non-duplicate path, before anything persists.
	if book.Meta.License == epub.LicenseUnknown {
		if opts.PublicDomain {
			book.Meta.License = epub.LicenseMarkedPublicDomain
		} else {
			book.Meta.License = epub.LicenseNotMarkedPublicDomain
		}
	}

	allocator := &Allocator{Exists: i.aliasExists}

	for attempt := 0; attempt < insertAttempts; attempt++ {
		alias, err := allocator.Allocate(ctx, book.Meta.Title, book.Meta.Author)
		if err != nil {
			return nil, errors.WithStack(err)
		}

		outcome := i.uploader.UploadAssets(ctx, book, alias, opts.Path)
		for _, diag := range outcome.Diagnostics {
			log.Warn("book asset upload diagnostic", logger.Data{"alias": alias, "message": diag.Message, "cause": diag.Cause})
		}
		if !outcome.Success {
			return nil, errors.Errorf("couldn't upload book json: %q", alias)
		}

		record := i.buildRecord(book, alias, fileHash, contentHash, outcome)

		err = i.bookService.CreateBook(ctx, record)
		if err == nil {
			log.Info("inserted book", logger.Data{"alias": alias, "id": record.ID})
			return &Result{
				BookID:      record.ID,
				Alias:       alias,
				Diagnostics: outcome.Diagnostics,
			}, nil
		}
		if !errors.Is(err, errcodes.Conflict("Book")) {
			return nil, errors.WithStack(err)
		}

		// A concurrent ingestion got there first. If it was the same book,
		// report the existing record; otherwise only the alias collided and
		// allocation restarts.
		if existing, err := i.guard.CheckByFileHash(ctx, fileHash, opts.PublicDomain); err != nil {
			return nil, errors.WithStack(err)
		} else if existing != nil {
			return duplicateResult(existing), nil
		}
		if existing, err := i.guard.CheckByContentHash(ctx, contentHash, opts.PublicDomain); err != nil {
			return nil, errors.WithStack(err)
		} else if existing != nil {
			return duplicateResult(existing), nil
		}
	}

	return nil, errors.Errorf("couldn't insert book: %q", opts.Path)
}

func (i *Ingester) aliasExists(ctx context.Context, alias string) (bool, error) {
	_, err := i.bookService.RetrieveBook(ctx, books.RetrieveBookOptions{Alias: &alias})
	if err != nil {
		if errors.Is(err, errcodes.NotFound("Book")) {
			return false, nil
		}
		return false, errors.WithStack(err)
	}
	return true, nil
}

func (i *Ingester) buildRecord(book *epub.Book, alias, fileHash, contentHash string, outcome *Outcome) *books.Book {
	record := &books.Book{
		Alias:       alias,
		License:     book.Meta.License,
		JSONBucket:  i.cfg.JSONBucket,
		JSONAssetID: outcome.JSONKey,
		FileHash:    fileHash,
		ContentHash: contentHash,
		Tags:        books.StringList(book.Tags),
		TextLength:  book.TextLength(),
		Private:     true,
		Source:      books.SourceUpload,
	}
	if book.Meta.Title != "" {
		title := book.Meta.Title
		record.Title = &title
	}
	if book.Meta.Author != "" {
		author := book.Meta.Author
		record.Author = &author
	}
	if outcome.OriginalKey != nil {
		bucket := i.cfg.OriginalBucket
		record.OriginalBucket = &bucket
		record.OriginalAssetID = outcome.OriginalKey
	}

	// An externally referenced cover wins only when no embedded cover was
	// stored.
	switch {
	case outcome.LargeCoverURL != nil:
		record.CoverURL = outcome.LargeCoverURL
	case book.Meta.CoverURL != "":
		url := book.Meta.CoverURL
		record.CoverURL = &url
	}
	record.SmallCoverURL = outcome.SmallCoverURL

	return record
}

func duplicateResult(existing *books.Book) *Result {
	return &Result{
		BookID:    existing.ID,
		Alias:     existing.Alias,
		Duplicate: true,
	}
}
