package assets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/bookabooks/booka/pkg/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"
)

// MinioStore implements Store on a MinIO/S3-compatible object store.
type MinioStore struct {
	client  *minio.Client
	baseURL string
}

// NewMinioStore connects to the object store and ensures the configured
// buckets exist.
func NewMinioStore(cfg *config.Config) (*MinioStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to init minio client")
	}

	scheme := "http"
	if cfg.MinioUseSSL {
		scheme = "https"
	}
	store := &MinioStore{
		client:  client,
		baseURL: fmt.Sprintf("%s://%s", scheme, cfg.MinioEndpoint),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	buckets := []string{cfg.JSONBucket, cfg.OriginalBucket, cfg.ImagesBucket}
	for _, bucket := range buckets {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to check bucket: %s", bucket)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, errors.Wrapf(err, "failed to create bucket: %s", bucket)
			}
		}
	}

	return store, nil
}

func (s *MinioStore) Upload(ctx context.Context, bucket, key string, body []byte, contentType string) (*UploadResult, error) {
	opts := minio.PutObjectOptions{ContentType: contentType}
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), opts)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to upload %s/%s", bucket, key)
	}

	return &UploadResult{
		URL: fmt.Sprintf("%s/%s/%s", s.baseURL, bucket, key),
		Key: key,
	}, nil
}

func (s *MinioStore) Download(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get %s/%s", bucket, key)
	}
	defer obj.Close()

	body, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, ErrNotFound
		}
		return nil, errors.Wrapf(err, "failed to read %s/%s", bucket, key)
	}

	return body, nil
}

func (s *MinioStore) Delete(ctx context.Context, bucket, key string) error {
	err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	return errors.Wrapf(err, "failed to delete %s/%s", bucket, key)
}
