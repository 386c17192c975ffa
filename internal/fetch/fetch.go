// Package fetch defines the HTTP transport collaborator used by both pipelines.
package fetch

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// Response is the result of fetching one URL.
type Response struct {
	StatusCode int
	Body       []byte
}

// OK reports whether the response carries a usable 2xx body.
func (r Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Fetcher fetches a single URL and returns the status and body.
// Implementations identify themselves with a fixed user agent and apply a
// bounded per-call timeout; transport failures are returned as errors.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Response, error)
}

// MockFetcher is a mock implementation of the Fetcher interface for testing.
type MockFetcher struct {
	mock.Mock
}

// Fetch is the mock implementation of the Fetch method.
func (m *MockFetcher) Fetch(ctx context.Context, url string) (Response, error) {
	args := m.Called(ctx, url)
	resp, _ := args.Get(0).(Response)
	return resp, args.Error(1) //nolint:wrapcheck
}
