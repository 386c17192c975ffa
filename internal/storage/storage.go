// Package storage defines the interfaces for a blob storage provider.
// This abstraction allows the application to be independent of a specific storage
// implementation (e.g., Google Cloud Storage or an in-memory store for tests).
package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by GetText when the requested object does not exist.
var ErrNotFound = errors.New("object not found")

// BlobStore is the key/value blob store the pipelines persist through.
// Keys are hierarchical strings like "craigslist/<run_id>/txt/<name>.txt".
type BlobStore interface {
	// Put uploads data under key with the given content type and returns a URI.
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)

	// GetText downloads the object at key and decodes it as UTF-8 text.
	GetText(ctx context.Context, key string) (string, error)

	// Exists reports whether an object is present at key.
	Exists(ctx context.Context, key string) (bool, error)

	// List returns the keys of all objects under the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// NoOpStore is a BlobStore that discards writes and holds no objects.
// It is useful for dry runs where pages are fetched but not saved.
type NoOpStore struct{}

// Put discards the data and returns a placeholder URI.
func (NoOpStore) Put(_ context.Context, key string, _ []byte, _ string) (string, error) {
	return "noop://" + key, nil
}

// GetText always reports the object as missing.
func (NoOpStore) GetText(_ context.Context, _ string) (string, error) {
	return "", ErrNotFound
}

// Exists always returns false.
func (NoOpStore) Exists(_ context.Context, _ string) (bool, error) {
	return false, nil
}

// List returns no keys.
func (NoOpStore) List(_ context.Context, _ string) ([]string, error) {
	return nil, nil
}
