package uploads

import (
	"context"
	"database/sql"
	"testing"

	"github.com/bookabooks/booka/pkg/migrations"
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

func TestAddUpload(t *testing.T) {
	t.Parallel()
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	upload, err := svc.AddUpload(ctx, "account-1", "book-1")
	require.NoError(t, err)
	assert.NotEmpty(t, upload.ID)
	assert.Equal(t, "account-1", upload.AccountID)
	assert.Equal(t, "book-1", upload.BookID)
	assert.False(t, upload.UploadDate.IsZero())
}

func TestListAccountUploads(t *testing.T) {
	t.Parallel()
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	_, err := svc.AddUpload(ctx, "account-1", "book-1")
	require.NoError(t, err)
	_, err = svc.AddUpload(ctx, "account-1", "book-2")
	require.NoError(t, err)
	_, err = svc.AddUpload(ctx, "account-2", "book-1")
	require.NoError(t, err)

	list, err := svc.ListAccountUploads(ctx, "account-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	for _, upload := range list {
		assert.Equal(t, "account-1", upload.AccountID)
	}
}

func TestCountByBook(t *testing.T) {
	t.Parallel()
	svc := NewService(setupTestDB(t))
	ctx := context.Background()

	_, err := svc.AddUpload(ctx, "account-1", "book-1")
	require.NoError(t, err)
	_, err = svc.AddUpload(ctx, "account-2", "book-1")
	require.NoError(t, err)

	count, err := svc.CountByBook(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.CountByBook(ctx, "book-2")
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
