// Package blobstore persists small documents, such as the shopping cart, in a
// gocloud.dev blob bucket. A file:// bucket gives the CLI browser-like local
// storage that survives restarts.
package blobstore

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/fileblob" // file:// buckets
	_ "gocloud.dev/blob/memblob"  // mem:// buckets
	"gocloud.dev/gcerrors"

	"github.com/xenking/storefront/internal/domain/cart"
)

var _ cart.Storage = (*Store)(nil)

// Store implements cart.Storage on top of a blob bucket.
type Store struct {
	bucket *blob.Bucket
}

// Open opens the bucket at url, e.g. "file:///home/me/.storefront?create_dir=true"
// or "mem://".
func Open(ctx context.Context, url string) (*Store, error) {
	b, err := blob.OpenBucket(ctx, url)
	if err != nil {
		return nil, errors.Wrapf(err, "open bucket %q", url)
	}
	return &Store{bucket: b}, nil
}

// New wraps an already opened bucket.
func New(b *blob.Bucket) *Store {
	return &Store{bucket: b}
}

// Read returns the document stored under key, or cart.ErrNotExist.
func (s *Store) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := s.bucket.ReadAll(ctx, objectName(key))
	if err != nil {
		if gcerrors.Code(err) == gcerrors.NotFound {
			return nil, cart.ErrNotExist
		}
		return nil, errors.Wrapf(err, "read %q", key)
	}
	return data, nil
}

// Write replaces the document stored under key.
func (s *Store) Write(ctx context.Context, key string, data []byte) error {
	opts := &blob.WriterOptions{ContentType: "application/json"}
	if err := s.bucket.WriteAll(ctx, objectName(key), data, opts); err != nil {
		return errors.Wrapf(err, "write %q", key)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	err := s.bucket.Delete(ctx, objectName(key))
	if err != nil && gcerrors.Code(err) != gcerrors.NotFound {
		return errors.Wrapf(err, "delete %q", key)
	}
	return nil
}

// Close releases the bucket.
func (s *Store) Close() error {
	return s.bucket.Close()
}

// objectName maps a namespaced key like "storefront:cart:v1" to a portable
// object name.
func objectName(key string) string {
	return strings.ReplaceAll(key, ":", "/") + ".json"
}
