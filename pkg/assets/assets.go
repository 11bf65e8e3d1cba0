// Package assets stores and retrieves book assets (JSON representations,
// original files, cover images) in logical buckets. Two backends implement
// the Store interface: an S3-compatible object store for production and a
// database blob table for development, selected at startup via config.
package assets

import (
	"context"

	"github.com/bookabooks/booka/pkg/config"
	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

// ErrNotFound is returned by Download when the asset does not exist.
var ErrNotFound = errors.New("asset not found")

// UploadResult identifies a stored asset.
type UploadResult struct {
	URL string
	Key string
}

type Store interface {
	Upload(ctx context.Context, bucket, key string, body []byte, contentType string) (*UploadResult, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
	Delete(ctx context.Context, bucket, key string) error
}

// New selects and initializes the asset backend configured at startup.
func New(cfg *config.Config, db *bun.DB) (Store, error) {
	switch cfg.AssetBackend {
	case config.AssetBackendS3:
		store, err := NewMinioStore(cfg)
		return store, errors.WithStack(err)
	case config.AssetBackendDatabase:
		return NewDatabaseStore(db), nil
	default:
		return nil, errors.Errorf("unknown asset backend: %q", cfg.AssetBackend)
	}
}
