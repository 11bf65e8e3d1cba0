// Package bookcache keeps recently served book objects in memory so that
// repeated reads of the same book don't re-download and re-decode the JSON
// asset on every request. The cache is bounded; least recently used entries
// are evicted once the configured size is reached.
package bookcache

import (
	"context"

	"github.com/bookabooks/booka/pkg/assets"
	"github.com/bookabooks/booka/pkg/epub"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

type Cache struct {
	store assets.Store
	lru   *lru.Cache[string, *epub.Book]
}

func New(store assets.Store, size int) (*Cache, error) {
	l, err := lru.New[string, *epub.Book](size)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &Cache{
		store: store,
		lru:   l,
	}, nil
}

// Get returns the decoded book for the given asset, downloading it on a
// cache miss. assets.ErrNotFound passes through unchanged.
func (c *Cache) Get(ctx context.Context, bucket, assetID string) (*epub.Book, error) {
	key := bucket + "/" + assetID

	if book, ok := c.lru.Get(key); ok {
		return book, nil
	}

	body, err := c.store.Download(ctx, bucket, assetID)
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			return nil, err
		}
		return nil, errors.WithStack(err)
	}

	book := &epub.Book{}
	if err := json.Unmarshal(body, book); err != nil {
		return nil, errors.Wrapf(err, "failed to decode book asset %s/%s", bucket, assetID)
	}

	c.lru.Add(key, book)

	return book, nil
}

// Invalidate drops the cached entry for an asset, if present.
func (c *Cache) Invalidate(bucket, assetID string) {
	c.lru.Remove(bucket + "/" + assetID)
}

func (c *Cache) Len() int {
	return c.lru.Len()
}
