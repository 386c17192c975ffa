package crawl

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/drdave-teaching/craigslist-scraper/internal/scrape"
)

const (
	// maxKeyLength bounds the sanitized object key stem.
	maxKeyLength = 140
	// fallbackKey is used when no component survives sanitization.
	fallbackKey = "listing"
)

var (
	postIDRE          = regexp.MustCompile(`/(\d{8,12})\.html(?:\?.*)?$`)
	invalidKeyCharsRE = regexp.MustCompile(`[^\w.\-]+`)
)

// PostIDFromURL extracts the numeric post id preceding the .html suffix.
func PostIDFromURL(url string) string {
	if url == "" {
		return ""
	}
	m := postIDRE.FindStringSubmatch(url)
	if m == nil {
		return ""
	}
	return m[1]
}

// DeriveKey builds the deterministic object key stem for a search result.
// Identical inputs always produce identical keys, which is what makes the
// skip-if-exists write idempotent.
func DeriveKey(row scrape.SearchResult) string {
	parts := make([]string, 0, 4)
	if row.YearInTitle != nil {
		parts = append(parts, strconv.Itoa(*row.YearInTitle))
	}
	if row.MakeGuess != "" {
		parts = append(parts, row.MakeGuess)
	}
	if row.ModelGuess != "" {
		parts = append(parts, row.ModelGuess)
	}
	if pid := PostIDFromURL(row.URL); pid != "" {
		parts = append(parts, pid)
	}

	base := strings.Trim(strings.Join(parts, "-"), "-")
	if base == "" {
		base = row.Title
	}
	if base == "" {
		base = fallbackKey
	}
	return SanitizeKey(base)
}

// SanitizeKey replaces every character outside [A-Za-z0-9_.-] with an
// underscore, truncates to maxKeyLength and trims leading/trailing
// underscores. An empty result falls back to the placeholder.
func SanitizeKey(s string) string {
	safe := invalidKeyCharsRE.ReplaceAllString(s, "_")
	if len(safe) > maxKeyLength {
		safe = safe[:maxKeyLength]
	}
	safe = strings.Trim(safe, "_")
	if safe == "" {
		return fallbackKey
	}
	return safe
}
