package ingest

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/bookabooks/booka/internal/testgen"
	"github.com/bookabooks/booka/pkg/assets"
	"github.com/bookabooks/booka/pkg/books"
	"github.com/bookabooks/booka/pkg/config"
	"github.com/bookabooks/booka/pkg/epub"
	"github.com/bookabooks/booka/pkg/migrations"
	"github.com/bookabooks/booka/pkg/uploads"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func setupTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// fakeStore is an in-memory assets.Store with per-bucket failure injection.
type fakeStore struct {
	objects     map[string][]byte
	failBuckets map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		objects:     map[string][]byte{},
		failBuckets: map[string]bool{},
	}
}

func (s *fakeStore) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) (*assets.UploadResult, error) {
	if s.failBuckets[bucket] {
		return nil, errors.Errorf("bucket %s is unavailable", bucket)
	}
	s.objects[bucket+"/"+key] = body
	return &assets.UploadResult{URL: "test://" + bucket + "/" + key, Key: key}, nil
}

func (s *fakeStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	body, ok := s.objects[bucket+"/"+key]
	if !ok {
		return nil, assets.ErrNotFound
	}
	return body, nil
}

func (s *fakeStore) Delete(ctx context.Context, bucket, key string) error {
	delete(s.objects, bucket+"/"+key)
	return nil
}

type testEnv struct {
	db       *bun.DB
	store    *fakeStore
	cfg      *config.Config
	books    *books.Service
	uploads  *uploads.Service
	ingester *Ingester
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := setupTestDB(t)
	store := newFakeStore()
	cfg := &config.Config{
		JSONBucket:     "booka-lib-json",
		OriginalBucket: "booka-lib-epub",
		ImagesBucket:   "booka-lib-images",
	}
	bookService := books.NewService(db)
	uploadService := uploads.NewService(db)
	uploader := NewAssetUploader(cfg, store)

	return &testEnv{
		db:       db,
		store:    store,
		cfg:      cfg,
		books:    bookService,
		uploads:  uploadService,
		ingester: NewIngester(cfg, bookService, uploadService, uploader),
	}
}

func countBooks(t *testing.T, db *bun.DB) int {
	t.Helper()
	count, err := db.NewSelect().Model((*books.Book)(nil)).Count(context.Background())
	require.NoError(t, err)
	return count
}

func TestIngestInsertsBook(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	path := testgen.GenerateEPUB(t, t.TempDir(), "moby-dick.epub", testgen.EPUBOptions{
		Title:    "Moby Dick",
		Author:   "Herman Melville",
		Rights:   "Public domain in the USA.",
		Subjects: []string{"Whaling", "Fiction"},
		HasCover: true,
		Chapters: []testgen.ChapterOptions{
			{Title: "Loomings", Paragraphs: []string{"Call me Ishmael.", "Some years ago."}},
		},
	})

	result, err := env.ingester.Ingest(ctx, IngestOptions{Path: path, AccountID: "account-1"})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.Equal(t, "moby-dick", result.Alias)
	assert.NotEmpty(t, result.BookID)

	book, err := env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &result.BookID})
	require.NoError(t, err)
	require.NotNil(t, book.Title)
	assert.Equal(t, "Moby Dick", *book.Title)
	require.NotNil(t, book.Author)
	assert.Equal(t, "Herman Melville", *book.Author)
	assert.Equal(t, epub.LicensePublicDomain, book.License)
	assert.Equal(t, []string{"Whaling", "Fiction"}, []string(book.Tags))
	assert.True(t, book.Private)
	assert.Equal(t, books.SourceUpload, book.Source)
	assert.NotEmpty(t, book.FileHash)
	assert.NotEmpty(t, book.ContentHash)
	assert.Positive(t, book.TextLength)

	// The JSON asset is always retrievable after a success.
	assert.Equal(t, "booka-lib-json", book.JSONBucket)
	assert.Equal(t, "moby-dick.booka", book.JSONAssetID)
	body, err := env.store.Download(ctx, book.JSONBucket, book.JSONAssetID)
	require.NoError(t, err)
	stored := &epub.Book{}
	require.NoError(t, json.Unmarshal(body, stored))
	assert.Equal(t, "Moby Dick", stored.Meta.Title)
	assert.Equal(t, "Loomings\nCall me Ishmael.\nSome years ago.", stored.Text())

	// Original file and both covers landed too.
	require.NotNil(t, book.OriginalAssetID)
	assert.Equal(t, "moby-dick", *book.OriginalAssetID)
	require.NotNil(t, book.CoverURL)
	assert.Equal(t, "test://booka-lib-images/@cover@large@moby-dick", *book.CoverURL)
	require.NotNil(t, book.SmallCoverURL)
	assert.Equal(t, "test://booka-lib-images/@cover@small@moby-dick", *book.SmallCoverURL)

	// And the upload was audited.
	count, err := env.uploads.CountByBook(ctx, result.BookID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestIngestDuplicateFile(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	dir := t.TempDir()
	path := testgen.GenerateEPUB(t, dir, "book.epub", testgen.EPUBOptions{Title: "Walden"})

	first, err := env.ingester.Ingest(ctx, IngestOptions{Path: path, AccountID: "account-1"})
	require.NoError(t, err)

	second, err := env.ingester.Ingest(ctx, IngestOptions{Path: path, AccountID: "account-2"})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.BookID, second.BookID)
	assert.Equal(t, first.Alias, second.Alias)
	assert.Equal(t, 1, countBooks(t, env.db))

	// The duplicate upload is still audited for its account.
	list, err := env.uploads.ListAccountUploads(ctx, "account-2")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, first.BookID, list[0].BookID)
}

func TestIngestDuplicateContent(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	chapters := []testgen.ChapterOptions{
		{Title: "One", Paragraphs: []string{"Same text either way."}},
	}
	dir := t.TempDir()
	// Same text, different packaging: the second file carries a cover and
	// different subjects, so its bytes (and file hash) differ.
	first := testgen.GenerateEPUB(t, dir, "plain.epub", testgen.EPUBOptions{
		Title: "Walden", Chapters: chapters,
	})
	second := testgen.GenerateEPUB(t, dir, "repackaged.epub", testgen.EPUBOptions{
		Title: "Walden", Chapters: chapters, HasCover: true, Subjects: []string{"Nature"},
	})

	firstResult, err := env.ingester.Ingest(ctx, IngestOptions{Path: first})
	require.NoError(t, err)

	secondResult, err := env.ingester.Ingest(ctx, IngestOptions{Path: second})
	require.NoError(t, err)
	assert.True(t, secondResult.Duplicate)
	assert.Equal(t, firstResult.BookID, secondResult.BookID)
	assert.Equal(t, 1, countBooks(t, env.db))
}

func TestIngestAliasSequence(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	dir := t.TempDir()
	aliases := []string{}
	for i, text := range []string{"First edition text.", "Second edition text.", "Third edition text.", "Fourth edition text."} {
		path := testgen.GenerateEPUB(t, dir, "book"+string(rune('a'+i))+".epub", testgen.EPUBOptions{
			Title: "Moby Dick",
			Chapters: []testgen.ChapterOptions{
				{Title: "One", Paragraphs: []string{text}},
			},
		})
		result, err := env.ingester.Ingest(ctx, IngestOptions{Path: path})
		require.NoError(t, err)
		aliases = append(aliases, result.Alias)
	}

	assert.Equal(t, []string{"moby-dick", "moby-dick-0", "moby-dick-1", "moby-dick-2"}, aliases)
}

func TestIngestAliasUsesAuthor(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	dir := t.TempDir()
	paths := []string{}
	for i, text := range []string{"One text.", "Another text.", "Yet another text."} {
		paths = append(paths, testgen.GenerateEPUB(t, dir, "book"+string(rune('a'+i))+".epub", testgen.EPUBOptions{
			Title:  "Moby Dick",
			Author: "Herman Melville",
			Chapters: []testgen.ChapterOptions{
				{Title: "One", Paragraphs: []string{text}},
			},
		}))
	}

	aliases := []string{}
	for _, path := range paths {
		result, err := env.ingester.Ingest(ctx, IngestOptions{Path: path})
		require.NoError(t, err)
		aliases = append(aliases, result.Alias)
	}

	assert.Equal(t, []string{"moby-dick", "moby-dick-herman-melville", "moby-dick-herman-melville-0"}, aliases)
}

func TestIngestCoverFailureTolerated(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	env.store.failBuckets["booka-lib-images"] = true
	ctx := context.Background()

	path := testgen.GenerateEPUB(t, t.TempDir(), "book.epub", testgen.EPUBOptions{
		Title:    "Walden",
		HasCover: true,
	})

	result, err := env.ingester.Ingest(ctx, IngestOptions{Path: path})
	require.NoError(t, err)
	assert.False(t, result.Duplicate)
	assert.NotEmpty(t, result.Diagnostics)

	book, err := env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &result.BookID})
	require.NoError(t, err)
	assert.Nil(t, book.CoverURL)
	assert.Nil(t, book.SmallCoverURL)
	assert.NotEmpty(t, book.JSONAssetID)
}

func TestIngestOriginalFailureTolerated(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	env.store.failBuckets["booka-lib-epub"] = true
	ctx := context.Background()

	path := testgen.GenerateEPUB(t, t.TempDir(), "book.epub", testgen.EPUBOptions{Title: "Walden"})

	result, err := env.ingester.Ingest(ctx, IngestOptions{Path: path})
	require.NoError(t, err)
	assert.NotEmpty(t, result.Diagnostics)

	book, err := env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &result.BookID})
	require.NoError(t, err)
	assert.Nil(t, book.OriginalBucket)
	assert.Nil(t, book.OriginalAssetID)
	assert.NotEmpty(t, book.JSONAssetID)
}

func TestIngestJSONFailureFatal(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	env.store.failBuckets["booka-lib-json"] = true
	ctx := context.Background()

	path := testgen.GenerateEPUB(t, t.TempDir(), "book.epub", testgen.EPUBOptions{Title: "Walden"})

	_, err := env.ingester.Ingest(ctx, IngestOptions{Path: path})
	require.Error(t, err)
	assert.Equal(t, 0, countBooks(t, env.db))
}

func TestIngestUnparsableFile(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "not-an-epub.epub")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip archive"), 0o644))

	_, err := env.ingester.Ingest(ctx, IngestOptions{Path: path})
	require.Error(t, err)
	assert.Equal(t, 0, countBooks(t, env.db))
}

func TestIngestLicenseStamping(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	dir := t.TempDir()
	marked := testgen.GenerateEPUB(t, dir, "marked.epub", testgen.EPUBOptions{
		Title: "Book A",
		Chapters: []testgen.ChapterOptions{
			{Title: "One", Paragraphs: []string{"Text of book a."}},
		},
	})
	unmarked := testgen.GenerateEPUB(t, dir, "unmarked.epub", testgen.EPUBOptions{
		Title: "Book B",
		Chapters: []testgen.ChapterOptions{
			{Title: "One", Paragraphs: []string{"Text of book b."}},
		},
	})

	markedResult, err := env.ingester.Ingest(ctx, IngestOptions{Path: marked, PublicDomain: true})
	require.NoError(t, err)
	book, err := env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &markedResult.BookID})
	require.NoError(t, err)
	assert.Equal(t, epub.LicenseMarkedPublicDomain, book.License)

	unmarkedResult, err := env.ingester.Ingest(ctx, IngestOptions{Path: unmarked})
	require.NoError(t, err)
	book, err = env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &unmarkedResult.BookID})
	require.NoError(t, err)
	assert.Equal(t, epub.LicenseNotMarkedPublicDomain, book.License)
}

func TestIngestLicenseUpgradeIdempotent(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	path := testgen.GenerateEPUB(t, t.TempDir(), "book.epub", testgen.EPUBOptions{Title: "Walden"})

	first, err := env.ingester.Ingest(ctx, IngestOptions{Path: path, PublicDomain: false})
	require.NoError(t, err)
	book, err := env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &first.BookID})
	require.NoError(t, err)
	assert.Equal(t, epub.LicenseNotMarkedPublicDomain, book.License)

	// A duplicate upload asserting public domain upgrades the license.
	second, err := env.ingester.Ingest(ctx, IngestOptions{Path: path, PublicDomain: true})
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	book, err = env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &first.BookID})
	require.NoError(t, err)
	assert.Equal(t, epub.LicenseMarkedPublicDomain, book.License)

	// A third identical upload changes nothing.
	third, err := env.ingester.Ingest(ctx, IngestOptions{Path: path, PublicDomain: true})
	require.NoError(t, err)
	assert.True(t, third.Duplicate)
	book, err = env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &first.BookID})
	require.NoError(t, err)
	assert.Equal(t, epub.LicenseMarkedPublicDomain, book.License)

	// And a duplicate without the claim never downgrades.
	fourth, err := env.ingester.Ingest(ctx, IngestOptions{Path: path, PublicDomain: false})
	require.NoError(t, err)
	assert.True(t, fourth.Duplicate)
	book, err = env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &first.BookID})
	require.NoError(t, err)
	assert.Equal(t, epub.LicenseMarkedPublicDomain, book.License)
}

func TestIngestMissingTitle(t *testing.T) {
	t.Parallel()
	env := setupTestEnv(t)
	ctx := context.Background()

	path := testgen.GenerateEPUB(t, t.TempDir(), "untitled.epub", testgen.EPUBOptions{})

	result, err := env.ingester.Ingest(ctx, IngestOptions{Path: path})
	require.NoError(t, err)
	assert.Equal(t, "no-title", result.Alias)

	book, err := env.books.RetrieveBook(ctx, books.RetrieveBookOptions{ID: &result.BookID})
	require.NoError(t, err)
	assert.Nil(t, book.Title)
	assert.Equal(t, "no-title", book.Card().Title)
}
