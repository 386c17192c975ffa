// Package scrape extracts listing fields from search and detail pages.
//
// Extraction is best-effort: every field is selected through an ordered
// fallback chain of selectors, and a miss yields an absent field rather
// than an error. Classifieds templates vary across regions and ages, so
// tolerating markup drift beats failing the whole page.
package scrape

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	yearRE     = regexp.MustCompile(`\b(19|20)\d{2}\b`)
	nonDigitRE = regexp.MustCompile(`[^\d]`)
	spaceRE    = regexp.MustCompile(`\s+`)
)

// SearchResult is one row of a search results page.
// URL is absolute when present; rows without a resolvable URL are retained
// but cannot be fetched in detail.
type SearchResult struct {
	Title       string
	Price       *int
	YearInTitle *int
	Hood        string
	URL         string
	MakeGuess   string
	ModelGuess  string
}

// Attr is one labeled attribute from a detail page.
type Attr struct {
	Key   string
	Value string
}

// DetailRecord is the full detail extracted from one listing page.
type DetailRecord struct {
	BodyText string
	Attrs    []Attr
	Misc     []string
	Posted   string
}

// rowSelectors, titleSelectors, priceSelectors and bodySelectors are the
// ordered fallback chains; first selector with a match wins.
var (
	rowSelectors = []string{
		"li.result-row",
		"li.cl-static-search-result",
		"li[class*=result]",
	}
	titleSelectors = []string{
		"a.result-title",
		"a.posting-title",
		`a[href*='/cto/']`,
		`a[href*='/ctd/']`,
		`a[href*='/cto?']`,
	}
	priceSelectors = []string{
		"span.result-price",
		"span.price",
	}
	bodySelectors = []string{
		"#postingbody",
		"section#postingbody",
		"div[id*=postingbody]",
	}
)

// ParseSearchPage extracts all listing rows from a search results page.
// Relative links are resolved against baseURL.
func ParseSearchPage(html []byte, baseURL string) ([]SearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse search page: %w", err)
	}

	rows := firstMatch(doc.Selection, rowSelectors)
	if rows == nil {
		return nil, nil
	}

	results := make([]SearchResult, 0, rows.Length())
	rows.Each(func(_ int, row *goquery.Selection) {
		results = append(results, parseListing(row, baseURL))
	})
	return results, nil
}

// parseListing extracts one SearchResult from a result row.
func parseListing(row *goquery.Selection, baseURL string) SearchResult {
	var result SearchResult

	if titleEl := firstMatch(row, titleSelectors); titleEl != nil {
		result.Title = strings.TrimSpace(titleEl.Text())
		if href, ok := titleEl.Attr("href"); ok {
			result.URL = resolveLink(href, baseURL)
		}
	}

	if priceEl := firstMatch(row, priceSelectors); priceEl != nil {
		if p, ok := parsePrice(priceEl.Text()); ok {
			result.Price = &p
		}
	}

	if hoodEl := row.Find("span.result-hood").First(); hoodEl.Length() > 0 {
		hood := strings.TrimSpace(hoodEl.Text())
		result.Hood = strings.Trim(hood, "()")
	}

	if result.Title != "" {
		if y, ok := YearFromTitle(result.Title); ok {
			result.YearInTitle = &y
		}
	}

	return result
}

// ParseDetailPage extracts the body text, attributes and posted timestamp
// from a listing detail page.
func ParseDetailPage(html []byte) (DetailRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return DetailRecord{}, fmt.Errorf("parse detail page: %w", err)
	}

	var record DetailRecord

	if bodyEl := firstMatch(doc.Selection, bodySelectors); bodyEl != nil {
		record.BodyText = stripBoilerplate(blockText(bodyEl))
	} else if meta := doc.Find("meta[name='description']").First(); meta.Length() > 0 {
		if content, ok := meta.Attr("content"); ok {
			record.BodyText = strings.TrimSpace(content)
		}
	}

	doc.Find("p.attrgroup span").Each(func(_ int, s *goquery.Selection) {
		txt := strings.TrimSpace(spaceRE.ReplaceAllString(s.Text(), " "))
		if txt == "" {
			return
		}
		if k, v, found := strings.Cut(txt, ":"); found {
			record.Attrs = append(record.Attrs, Attr{
				Key:   strings.ToLower(strings.TrimSpace(k)),
				Value: strings.TrimSpace(v),
			})
		} else {
			record.Misc = append(record.Misc, txt)
		}
	})

	if t := doc.Find("time[datetime]").First(); t.Length() > 0 {
		if dt, ok := t.Attr("datetime"); ok {
			record.Posted = dt
		}
	}

	return record, nil
}

// SplitMakeModel derives make/model guesses from a listing title: the year
// token is removed, the first remaining token becomes the make and the next
// one-to-two tokens become the model. Heuristic only; the schema-normalized
// make/model come from the extraction pipeline.
func SplitMakeModel(title string) (makeGuess, modelGuess string) {
	if title == "" {
		return "", ""
	}
	stripped := strings.TrimSpace(yearRE.ReplaceAllString(title, ""))
	parts := spaceRE.Split(stripped, -1)
	if len(parts) == 0 || parts[0] == "" {
		return "", ""
	}
	makeGuess = titleCaseToken(parts[0])
	if len(parts) > 1 {
		end := len(parts)
		if end > 3 {
			end = 3
		}
		modelTokens := make([]string, 0, end-1)
		for _, tok := range parts[1:end] {
			modelTokens = append(modelTokens, titleCaseToken(tok))
		}
		modelGuess = strings.Join(modelTokens, " ")
	}
	return makeGuess, modelGuess
}

// YearFromTitle returns the first four-digit year in title.
func YearFromTitle(title string) (int, bool) {
	m := yearRE.FindString(title)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return y, true
}

// firstMatch returns the first non-empty selection from an ordered list of
// selectors, or nil when none match.
func firstMatch(s *goquery.Selection, selectors []string) *goquery.Selection {
	for _, sel := range selectors {
		if found := s.Find(sel); found.Length() > 0 {
			return found
		}
	}
	return nil
}

// parsePrice strips every non-digit character and parses the remainder.
func parsePrice(text string) (int, bool) {
	digits := nonDigitRE.ReplaceAllString(text, "")
	if digits == "" {
		return 0, false
	}
	p, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return p, true
}

// resolveLink makes a site-relative href absolute against the base origin.
func resolveLink(href, baseURL string) string {
	if strings.HasPrefix(href, "/") {
		return strings.TrimRight(baseURL, "/") + href
	}
	return href
}

var boilerplateRE = regexp.MustCompile(`(?i)^\s*QR Code Link to This Post\s*\n?`)

// stripBoilerplate removes the known boilerplate prefix line from body text.
func stripBoilerplate(text string) string {
	return boilerplateRE.ReplaceAllString(text, "")
}

// blockText renders a selection as newline-separated trimmed lines, the way
// the body region reads when each child block becomes one line.
func blockText(s *goquery.Selection) string {
	raw := s.Text()
	lines := strings.Split(raw, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}

// titleCaseToken uppercases the first rune and lowercases the rest.
func titleCaseToken(tok string) string {
	if tok == "" {
		return ""
	}
	runes := []rune(strings.ToLower(tok))
	runes[0] = []rune(strings.ToUpper(string(runes[0])))[0]
	return string(runes)
}
