package extract_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/clock"
	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
	"github.com/drdave-teaching/craigslist-scraper/internal/storage/memory"
)

const reuploadRecord = `Title: test reupload
Price:
Neighborhood:
URL: https://example.org/cto/7001234567.html
Posted:
----------------------------------------
BODY:
selling again, asking $3,200`

func newTestPipeline(store *memory.BlobStore, model extract.Model) *extract.Pipeline {
	p := extract.NewPipeline(store, model, nil, "craigslist", zap.NewNop())
	p.Clock = clock.Fixed{T: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)}
	return p
}

func TestProcessObjectReparsePath(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()
	key := "craigslist/20240101T000000Z/txt/test-reupload.txt"
	_, err := store.Put(ctx, key, []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)

	pipeline := newTestPipeline(store, nil)
	listing, err := pipeline.ProcessObject(ctx, key)
	require.NoError(t, err)

	assert.Equal(t, "7001234567", listing.PostID)
	assert.Equal(t, "20240101T000000Z", listing.RunID)
	require.NotNil(t, listing.Price)
	assert.Equal(t, 3200, *listing.Price)

	stored, err := store.GetText(ctx, "craigslist/20240101T000000Z/structured/json/7001234567.json")
	require.NoError(t, err)
	var roundTrip extract.Listing
	require.NoError(t, json.Unmarshal([]byte(stored), &roundTrip))
	assert.Equal(t, "7001234567", roundTrip.PostID)
}

func TestProcessObjectIgnoresForeignPaths(t *testing.T) {
	ctx := context.Background()
	pipeline := newTestPipeline(memory.NewBlobStore(), nil)

	for _, key := range []string{
		"craigslist/20240101T000000Z/index.csv",
		"craigslist/20240101T000000Z/structured/json/7001234567.json",
		"other/20240101T000000Z/txt/a.txt",
		"craigslist/20240101T000000Z/txt/nested/a.txt",
		"craigslist/20240101T000000Z/txt/a.html",
	} {
		_, err := pipeline.ProcessObject(ctx, key)
		assert.ErrorIs(t, err, extract.ErrNotEligible, "key %s", key)
	}
}

func TestProcessObjectModelOutputIsNormalized(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()
	key := "craigslist/20240101T000000Z/txt/listing-7001234567.txt"
	_, err := store.Put(ctx, key, []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)

	model := new(extract.MockModel)
	model.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"post_id":"ignored","title":"test","transmission":"Hybrid"}`), nil)

	pipeline := newTestPipeline(store, model)
	_, err = pipeline.ProcessObject(ctx, key)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transmission")
	model.AssertExpectations(t)
}

func TestProcessObjectResolvedIDOverridesModel(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()
	key := "craigslist/20240101T000000Z/txt/listing-7001234567.txt"
	_, err := store.Put(ctx, key, []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)

	model := new(extract.MockModel)
	model.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"post_id":"9998887776","title":"test","price":1200}`), nil)

	pipeline := newTestPipeline(store, model)
	listing, err := pipeline.ProcessObject(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "7001234567", listing.PostID)
}

func TestProcessObjectNullModelPriceUsesFallback(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()
	key := "craigslist/20240101T000000Z/txt/listing-7001234567.txt"
	_, err := store.Put(ctx, key, []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)

	// The model reports an unknown price as null, not by omitting the key.
	model := new(extract.MockModel)
	model.On("Extract", mock.Anything, mock.Anything, mock.Anything).
		Return(json.RawMessage(`{"post_id":"7001234567","title":"test reupload","price":null}`), nil)

	pipeline := newTestPipeline(store, model)
	listing, err := pipeline.ProcessObject(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, listing.Price)
	assert.Equal(t, 3200, *listing.Price)
	model.AssertExpectations(t)
}

func TestProcessObjectMissingRecord(t *testing.T) {
	ctx := context.Background()
	pipeline := newTestPipeline(memory.NewBlobStore(), nil)
	_, err := pipeline.ProcessObject(ctx, "craigslist/20240101T000000Z/txt/gone.txt")
	require.Error(t, err)
}

type captureRecorder struct {
	listings []extract.Listing
}

func (r *captureRecorder) RecordListing(_ context.Context, listing extract.Listing) error {
	r.listings = append(r.listings, listing)
	return nil
}

func TestProcessObjectRecordsListing(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()
	key := "craigslist/20240101T000000Z/txt/test-reupload.txt"
	_, err := store.Put(ctx, key, []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)

	recorder := &captureRecorder{}
	pipeline := newTestPipeline(store, nil)
	pipeline.Recorder = recorder

	_, err = pipeline.ProcessObject(ctx, key)
	require.NoError(t, err)
	require.Len(t, recorder.listings, 1)
	assert.Equal(t, "7001234567", recorder.listings[0].PostID)
}

func TestBackfillSkipsExistingOutputs(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()

	_, err := store.Put(ctx, "craigslist/20240101T000000Z/txt/test-reupload.txt", []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)

	second := `Title: second listing
Price: $1,500
Neighborhood:
URL: https://example.org/cto/7009998887.html
Posted:
----------------------------------------
BODY:
needs work`
	_, err = store.Put(ctx, "craigslist/20240102T000000Z/txt/second-7009998887.txt", []byte(second), "text/plain")
	require.NoError(t, err)

	// Pre-existing structured output for the first record.
	_, err = store.Put(ctx, "craigslist/20240101T000000Z/structured/json/7001234567.json", []byte(`{"post_id":"7001234567"}`), "application/json")
	require.NoError(t, err)

	pipeline := newTestPipeline(store, nil)
	processed, skipped, err := pipeline.Backfill(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	assert.Equal(t, 1, skipped)

	exists, err := store.Exists(ctx, "craigslist/20240102T000000Z/structured/json/7009998887.json")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestBackfillSingleRun(t *testing.T) {
	ctx := context.Background()
	store := memory.NewBlobStore()

	_, err := store.Put(ctx, "craigslist/20240101T000000Z/txt/test-reupload.txt", []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)
	_, err = store.Put(ctx, "craigslist/20240102T000000Z/txt/other-7009998887.txt", []byte(reuploadRecord), "text/plain")
	require.NoError(t, err)

	pipeline := newTestPipeline(store, nil)
	processed, _, err := pipeline.Backfill(ctx, "20240101T000000Z")
	require.NoError(t, err)
	assert.Equal(t, 1, processed)
}
