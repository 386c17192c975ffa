package extract_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
)

func TestNormalizeFullRecord(t *testing.T) {
	raw := map[string]any{
		"post_id":      "7001234567",
		"url":          "https://newhaven.craigslist.org/cto/7001234567.html",
		"title":        "2015 Honda Civic LX",
		"price":        float64(8500),
		"year":         float64(2015),
		"make":         "Honda",
		"model":        "Civic",
		"trim":         "LX",
		"mileage":      "92,000",
		"vin":          "2hgfb2f5xfh012345",
		"color":        "silver",
		"transmission": "automatic",
		"condition":    "good",
		"location":     "East Rock",
		"posted_iso":   "2024-01-01T12:00:00-0500",
		"body":         "clean title, runs great",
		"attrs_json":   map[string]any{"fuel": "gas"},
	}

	listing, err := extract.Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, "7001234567", listing.PostID)
	require.NotNil(t, listing.Price)
	assert.Equal(t, 8500, *listing.Price)
	require.NotNil(t, listing.Year)
	assert.Equal(t, 2015, *listing.Year)
	require.NotNil(t, listing.Mileage)
	assert.Equal(t, 92000, *listing.Mileage)
	assert.Equal(t, "2HGFB2F5XFH012345", listing.VIN)
	assert.Equal(t, "Automatic", listing.Transmission)
	assert.Equal(t, map[string]any{"fuel": "gas"}, listing.Attrs)
}

func TestNormalizeRejectsNegativePrice(t *testing.T) {
	_, err := extract.Normalize(map[string]any{"post_id": "7001234567", "price": -5})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price")
}

func TestNormalizeRejectsNegativeMileage(t *testing.T) {
	_, err := extract.Normalize(map[string]any{"post_id": "7001234567", "mileage": -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mileage")
}

func TestNormalizeRejectsYearOutOfRange(t *testing.T) {
	for _, year := range []int{1949, 2101} {
		_, err := extract.Normalize(map[string]any{"post_id": "7001234567", "year": year})
		require.Error(t, err, "year %d", year)
	}
	for _, year := range []int{1950, 2100} {
		_, err := extract.Normalize(map[string]any{"post_id": "7001234567", "year": year})
		require.NoError(t, err, "year %d", year)
	}
}

func TestNormalizeRejectsUnknownTransmission(t *testing.T) {
	_, err := extract.Normalize(map[string]any{"post_id": "7001234567", "transmission": "Hybrid"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "transmission")
}

func TestNormalizeCanonicalizesTransmissionCase(t *testing.T) {
	listing, err := extract.Normalize(map[string]any{"post_id": "7001234567", "transmission": "cvt"})
	require.NoError(t, err)
	assert.Equal(t, "CVT", listing.Transmission)
}

func TestNormalizeVIN(t *testing.T) {
	listing, err := extract.Normalize(map[string]any{"post_id": "7001234567", "vin": "1 ab-23"})
	require.NoError(t, err)
	assert.Equal(t, "1AB23", listing.VIN)
}

func TestNormalizeRequiresPostID(t *testing.T) {
	_, err := extract.Normalize(map[string]any{"title": "2015 Honda Civic"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "post_id")
}

func TestNormalizeRejectsFractionalNumbers(t *testing.T) {
	_, err := extract.Normalize(map[string]any{"post_id": "7001234567", "price": 8500.5})
	require.Error(t, err)
}

func TestNormalizeNilFieldsStayUnset(t *testing.T) {
	listing, err := extract.Normalize(map[string]any{
		"post_id": "7001234567",
		"price":   nil,
		"year":    nil,
	})
	require.NoError(t, err)
	assert.Nil(t, listing.Price)
	assert.Nil(t, listing.Year)
}
