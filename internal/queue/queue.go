// Package queue defines the interfaces for a message queue provider.
// This abstraction allows the application to be independent of a specific
// message queue implementation (e.g., GCP Pub/Sub).
package queue

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Publisher announces each finalized detail-record object so the extraction
// pipeline can pick it up.
type Publisher interface {
	// Publish sends a message carrying the storage object key.
	Publish(ctx context.Context, objectKey string) error

	// Close cleans up any client connections and resources.
	Close() error
}

// NoOpPublisher is a Publisher that performs no operations. It is useful
// for testing or running the crawler without a real message queue.
type NoOpPublisher struct{}

// Publish for NoOpPublisher does nothing and returns nil.
func (NoOpPublisher) Publish(_ context.Context, _ string) error { return nil }

// Close for NoOpPublisher does nothing and returns nil.
func (NoOpPublisher) Close() error { return nil }

// MockPublisher is a mock implementation of the Publisher interface for testing.
type MockPublisher struct {
	mock.Mock
}

// Publish is the mock implementation of the Publish method.
func (m *MockPublisher) Publish(ctx context.Context, objectKey string) error {
	args := m.Called(ctx, objectKey)
	return args.Error(0) //nolint:wrapcheck
}

// Close is the mock implementation of the Close method.
func (m *MockPublisher) Close() error {
	args := m.Called()
	return args.Error(0) //nolint:wrapcheck
}
