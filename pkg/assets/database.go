package assets

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// AssetBlob is a stored asset body for the database backend.
type AssetBlob struct {
	bun.BaseModel `bun:"table:asset_blobs,alias:ab"`

	ID          string    `bun:",pk,nullzero"`
	CreatedAt   time.Time `bun:",nullzero"`
	Bucket      string    `bun:",nullzero"`
	Key         string    `bun:",nullzero"`
	ContentType *string
	Body        []byte
}

// DatabaseStore implements Store on the primary database. It is the
// development backend; production uses MinioStore.
type DatabaseStore struct {
	db *bun.DB
}

func NewDatabaseStore(db *bun.DB) *DatabaseStore {
	return &DatabaseStore{db}
}

func (s *DatabaseStore) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) (*UploadResult, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return nil, errors.WithStack(err)
	}

	blob := &AssetBlob{
		ID:        id.String(),
		CreatedAt: time.Now(),
		Bucket:    bucket,
		Key:       key,
		Body:      body,
	}
	if contentType != "" {
		blob.ContentType = &contentType
	}

	_, err = s.db.
		NewInsert().
		Model(blob).
		On("CONFLICT (bucket, key) DO UPDATE").
		Set("body = EXCLUDED.body, content_type = EXCLUDED.content_type").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return &UploadResult{
		URL: "db://" + bucket + "/" + key,
		Key: key,
	}, nil
}

func (s *DatabaseStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	blob := &AssetBlob{}

	err := s.db.
		NewSelect().
		Model(blob).
		Where("ab.bucket = ?", bucket).
		Where("ab.key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, errors.WithStack(err)
	}

	return blob.Body, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.db.
		NewDelete().
		Model((*AssetBlob)(nil)).
		Where("bucket = ?", bucket).
		Where("key = ?", key).
		Exec(ctx)
	return errors.WithStack(err)
}
