package extract

import (
	"errors"
	"regexp"
)

// ErrNoPostID means no candidate source yielded a numeric post id. Records
// without an identity are skipped, never written under a synthetic name.
var ErrNoPostID = errors.New("no post id found in object key, url, or body")

var postIDPatterns = []*regexp.Regexp{
	regexp.MustCompile(`([0-9]{8,12})`),
	regexp.MustCompile(`/([0-9]{8,12})\.html`),
}

// ResolvePostID extracts the numeric post id for a detail record. Sources are
// tried in a fixed order of reliability: the storage object key first, then
// the listing URL, then the raw body text. Within each source the patterns
// are tried in order and the first capture wins.
func ResolvePostID(objectKey, url, body string) (string, error) {
	for _, source := range []string{objectKey, url, body} {
		if source == "" {
			continue
		}
		for _, pattern := range postIDPatterns {
			if m := pattern.FindStringSubmatch(source); m != nil {
				return m[1], nil
			}
		}
	}
	return "", ErrNoPostID
}
