package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE books (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				alias TEXT NOT NULL,
				title TEXT,
				author TEXT,
				license TEXT NOT NULL,
				cover_url TEXT,
				small_cover_url TEXT,
				json_bucket TEXT NOT NULL,
				json_asset_id TEXT NOT NULL,
				original_bucket TEXT,
				original_asset_id TEXT,
				file_hash TEXT NOT NULL,
				content_hash TEXT NOT NULL,
				tags TEXT NOT NULL DEFAULT '[]',
				text_length INTEGER NOT NULL,
				private BOOLEAN NOT NULL DEFAULT TRUE,
				source TEXT NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Aliases are immutable public identifiers; hashes drive duplicate
		// detection. All three must be unique at the database level so that
		// concurrent check-then-insert sequences can't race past each other.
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_books_alias ON books (alias)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_books_file_hash ON books (file_hash)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_books_content_hash ON books (content_hash)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_title ON books (title)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_author ON books (author)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE uploads (
				id TEXT PRIMARY KEY,
				account_id TEXT NOT NULL,
				book_id TEXT REFERENCES books (id) NOT NULL,
				upload_date TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_uploads_account_id ON uploads (account_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_uploads_book_id ON uploads (book_id)`)
		if err != nil {
			return errors.WithStack(err)
		}

		// Blob storage for the database asset backend (development).
		_, err = db.Exec(`
			CREATE TABLE asset_blobs (
				id TEXT PRIMARY KEY,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				bucket TEXT NOT NULL,
				key TEXT NOT NULL,
				content_type TEXT,
				body BLOB NOT NULL
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE UNIQUE INDEX ux_asset_blobs_bucket_key ON asset_blobs (bucket, key)`)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		for _, table := range []string{"asset_blobs", "uploads", "books"} {
			_, err := db.Exec(`DROP TABLE IF EXISTS ` + table)
			if err != nil {
				return errors.WithStack(err)
			}
		}
		return nil
	}

	Migrations.MustRegister(up, down)
}
