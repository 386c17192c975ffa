package extract_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
)

const sampleRecord = `Title: 2015 Honda Civic LX
Price: $8,500
Neighborhood: East Rock
URL: https://newhaven.craigslist.org/cto/7001234567.html
Posted: 2024-01-01T12:00:00-0500
Attributes:
  - odometer: 92,000
  - transmission: automatic
  - paint color: silver
  - condition: good
  - VIN: 2HGFB2F5XFH012345
  - fuel: gas
----------------------------------------
BODY:
Clean title, runs great. One owner.`

func TestReparseRecord(t *testing.T) {
	raw := extract.Reparse(sampleRecord)

	assert.Equal(t, "2015 Honda Civic LX", raw["title"])
	assert.Equal(t, "8500", raw["price"])
	assert.Equal(t, "East Rock", raw["location"])
	assert.Equal(t, "https://newhaven.craigslist.org/cto/7001234567.html", raw["url"])
	assert.Equal(t, "2024-01-01T12:00:00-0500", raw["posted_iso"])
	assert.Equal(t, "92000", raw["mileage"])
	assert.Equal(t, "automatic", raw["transmission"])
	assert.Equal(t, "silver", raw["color"])
	assert.Equal(t, "good", raw["condition"])
	assert.Equal(t, "2HGFB2F5XFH012345", raw["vin"])
	assert.Equal(t, "Clean title, runs great. One owner.", raw["body"])

	assert.Equal(t, 2015, raw["year"])
	assert.Equal(t, "Honda", raw["make"])
	assert.Equal(t, "Civic Lx", raw["model"])

	attrs, ok := raw["attrs_json"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "gas", attrs["fuel"])
}

func TestReparseFeedsNormalize(t *testing.T) {
	raw := extract.Reparse(sampleRecord)
	raw["post_id"] = "7001234567"

	listing, err := extract.Normalize(raw)
	require.NoError(t, err)
	require.NotNil(t, listing.Price)
	assert.Equal(t, 8500, *listing.Price)
	require.NotNil(t, listing.Mileage)
	assert.Equal(t, 92000, *listing.Mileage)
	assert.Equal(t, "Automatic", listing.Transmission)
}

func TestReparseBlankPriceOmitted(t *testing.T) {
	text := strings.Replace(sampleRecord, "Price: $8,500", "Price: ", 1)
	raw := extract.Reparse(text)
	_, present := raw["price"]
	assert.False(t, present)
}

func TestReparseFoldsOddTransmissionToOther(t *testing.T) {
	text := strings.Replace(sampleRecord, "transmission: automatic", "transmission: 6 speed", 1)
	raw := extract.Reparse(text)
	assert.Equal(t, "Other", raw["transmission"])
}

func TestReparseNoAttributesBlock(t *testing.T) {
	raw := extract.Reparse("Title: old bike\nPrice: \nNeighborhood: \nURL: \nPosted: \n" +
		strings.Repeat("-", 40) + "\nBODY:\nstill rides")
	assert.Equal(t, "still rides", raw["body"])
	_, present := raw["attrs_json"]
	assert.False(t, present)
}

func TestFallbackPrice(t *testing.T) {
	price := extract.FallbackPrice("asking $8,500 obo, call 2035551234")
	require.NotNil(t, price)
	assert.Equal(t, 8500, *price)
}

func TestFallbackPriceSkipsOutOfBand(t *testing.T) {
	assert.Nil(t, extract.FallbackPrice("only $50 down"))
	assert.Nil(t, extract.FallbackPrice("nothing for sale"))
}
