package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollyFetcherReturnsBody(t *testing.T) {
	t.Parallel()

	var gotUA string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.UserAgent()
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("<html><body>listings</body></html>"))
	}))
	defer server.Close()

	f := NewCollyFetcher(CollyConfig{UserAgent: "test-scraper/1.0", Timeout: 5 * time.Second})

	resp, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.True(t, resp.OK())
	assert.Contains(t, string(resp.Body), "listings")
	assert.Equal(t, "test-scraper/1.0", gotUA)
}

func TestCollyFetcherSurfacesNon2xxStatus(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	f := NewCollyFetcher(CollyConfig{Timeout: 5 * time.Second})

	resp, err := f.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.False(t, resp.OK())
}

func TestCollyFetcherTransportError(t *testing.T) {
	t.Parallel()

	f := NewCollyFetcher(CollyConfig{Timeout: time.Second})

	// Closed port: connection refused is a transport error, not a status.
	_, err := f.Fetch(context.Background(), "http://127.0.0.1:1/unreachable")
	require.Error(t, err)
}
