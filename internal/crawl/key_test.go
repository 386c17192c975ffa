package crawl

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/drdave-teaching/craigslist-scraper/internal/scrape"
)

func TestDeriveKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	year := 2015
	row := scrape.SearchResult{
		Title:       "2015 Honda Civic LX",
		YearInTitle: &year,
		MakeGuess:   "Honda",
		ModelGuess:  "Civic Lx",
		URL:         "https://newhaven.craigslist.org/cto/7001234567.html",
	}

	first := DeriveKey(row)
	second := DeriveKey(row)
	assert.Equal(t, first, second)
	assert.Equal(t, "2015-Honda-Civic_Lx-7001234567", first)
}

func TestDeriveKeyFallsBackToTitle(t *testing.T) {
	t.Parallel()

	key := DeriveKey(scrape.SearchResult{Title: "old project car!"})
	assert.Equal(t, "old_project_car", key)
}

func TestDeriveKeyFallsBackToPlaceholder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "listing", DeriveKey(scrape.SearchResult{}))
	assert.Equal(t, "listing", DeriveKey(scrape.SearchResult{Title: "!!!"}))
}

func TestSanitizeKeyClosure(t *testing.T) {
	t.Parallel()

	allowed := regexp.MustCompile(`^[\w.\-]+$`)
	inputs := []string{
		"2015 Honda Civic LX",
		"price: $9,900 (West Haven)",
		"///slashes///",
		strings.Repeat("x", 300),
		"ünïcode tïtle",
		"  spaces  ",
	}
	for _, in := range inputs {
		got := SanitizeKey(in)
		assert.True(t, allowed.MatchString(got), "input %q produced %q", in, got)
		assert.LessOrEqual(t, len(got), maxKeyLength, "input %q", in)
		assert.False(t, strings.HasPrefix(got, "_"), "input %q", in)
		assert.False(t, strings.HasSuffix(got, "_"), "input %q", in)
	}
}

func TestPostIDFromURL(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "7001234567", PostIDFromURL("https://x.org/cto/7001234567.html"))
	assert.Equal(t, "7001234567", PostIDFromURL("https://x.org/cto/7001234567.html?lang=en"))
	assert.Empty(t, PostIDFromURL("https://x.org/cto/about.html"))
	assert.Empty(t, PostIDFromURL(""))
}
