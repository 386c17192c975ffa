package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/api"
	"github.com/drdave-teaching/craigslist-scraper/internal/config"
	"github.com/drdave-teaching/craigslist-scraper/internal/crawl"
	"github.com/drdave-teaching/craigslist-scraper/internal/database"
	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
)

type stubRunner struct {
	gotMaxPages int
	gotPrefix   string
	summary     crawl.RunSummary
	err         error
}

func (s *stubRunner) Run(_ context.Context, maxPages int, prefix string) (crawl.RunSummary, error) {
	s.gotMaxPages = maxPages
	s.gotPrefix = prefix
	return s.summary, s.err
}

type stubExtractor struct {
	listing extract.Listing
	err     error
}

func (s *stubExtractor) ProcessObject(context.Context, string) (extract.Listing, error) {
	return s.listing, s.err
}

func testConfig() config.Config {
	return config.Config{
		Crawler: config.CrawlerConfig{MaxPagesDefault: 3},
		Storage: config.StorageConfig{Prefix: "craigslist"},
	}
}

func newTestServer(runner api.Runner, extractor api.Extractor) *api.Server {
	return api.NewServer(runner, extractor, database.NoOpStore{}, testConfig(), zap.NewNop())
}

func TestStartRun(t *testing.T) {
	runner := &stubRunner{summary: crawl.RunSummary{RunID: "20240101T000000Z", Rows: 5, Saved: 4, Skipped: 1}}
	srv := newTestServer(runner, &stubExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{"max_pages": 2}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, runner.gotMaxPages)
	assert.Equal(t, "craigslist", runner.gotPrefix)

	var summary crawl.RunSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, "20240101T000000Z", summary.RunID)
	assert.Equal(t, 4, summary.Saved)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestStartRunAppliesDefaults(t *testing.T) {
	runner := &stubRunner{}
	srv := newTestServer(runner, &stubExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 3, runner.gotMaxPages)
	assert.Equal(t, "craigslist", runner.gotPrefix)
}

func TestStartRunBadJSON(t *testing.T) {
	srv := newTestServer(&stubRunner{}, &stubExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStartRunNoStore(t *testing.T) {
	srv := newTestServer(&stubRunner{err: crawl.ErrNoStore}, &stubExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/v1/runs", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestExtractObject(t *testing.T) {
	extractor := &stubExtractor{listing: extract.Listing{PostID: "7001234567"}}
	srv := newTestServer(&stubRunner{}, extractor)

	req := httptest.NewRequest(http.MethodPost, "/v1/extract",
		strings.NewReader(`{"object_key": "craigslist/20240101T000000Z/txt/a.txt"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var listing extract.Listing
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	assert.Equal(t, "7001234567", listing.PostID)
}

func TestExtractObjectIneligibleIsIgnored(t *testing.T) {
	srv := newTestServer(&stubRunner{}, &stubExtractor{err: extract.ErrNotEligible})

	req := httptest.NewRequest(http.MethodPost, "/v1/extract",
		strings.NewReader(`{"object_key": "craigslist/20240101T000000Z/index.csv"}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ignored")
}

func TestExtractObjectMissingKey(t *testing.T) {
	srv := newTestServer(&stubRunner{}, &stubExtractor{})

	req := httptest.NewRequest(http.MethodPost, "/v1/extract", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthEndpoints(t *testing.T) {
	srv := newTestServer(&stubRunner{}, &stubExtractor{})

	for _, path := range []string{"/healthz", "/readyz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}
