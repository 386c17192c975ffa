package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/drdave-teaching/craigslist-scraper/internal/scrape"
)

// attrFields maps attribute-block keys to top-level schema fields. Anything
// not listed stays in attrs_json.
var attrFields = map[string]string{
	"odometer":     "mileage",
	"vin":          "vin",
	"transmission": "transmission",
	"paint color":  "color",
	"condition":    "condition",
}

var (
	digitsRE = regexp.MustCompile(`[0-9]+`)
	// priceFallbackRE matches dollar amounts in free text, with or without
	// separators, capped at six digits to avoid phone numbers and VINs.
	priceFallbackRE = regexp.MustCompile(`\$?\s*([0-9]{1,3}(?:[, ]?[0-9]{3})+|[0-9]{3,6})\b`)
)

const (
	minFallbackPrice = 500
	maxFallbackPrice = 150000
)

// Reparse recovers a raw extraction object from a serialized detail record
// without calling a model. The record layout is fixed, so header lines,
// attribute lines, and the body split deterministically; year, make, and
// model come from the title the same way the crawler guesses them.
func Reparse(text string) map[string]any {
	raw := map[string]any{}
	attrs := map[string]any{}

	header, body := splitRecord(text)
	raw["body"] = body

	inAttrs := false
	for _, line := range strings.Split(header, "\n") {
		switch {
		case strings.HasPrefix(line, "Title: "):
			raw["title"] = strings.TrimSpace(strings.TrimPrefix(line, "Title: "))
		case strings.HasPrefix(line, "Price:"):
			if p := digitsOnly(strings.TrimPrefix(line, "Price:")); p != "" {
				raw["price"] = p
			}
		case strings.HasPrefix(line, "Neighborhood: "):
			raw["location"] = strings.TrimSpace(strings.TrimPrefix(line, "Neighborhood: "))
		case strings.HasPrefix(line, "URL: "):
			raw["url"] = strings.TrimSpace(strings.TrimPrefix(line, "URL: "))
		case strings.HasPrefix(line, "Posted: "):
			raw["posted_iso"] = strings.TrimSpace(strings.TrimPrefix(line, "Posted: "))
		case line == "Attributes:":
			inAttrs = true
		case inAttrs && strings.HasPrefix(line, "  - "):
			key, value, ok := strings.Cut(strings.TrimPrefix(line, "  - "), ": ")
			if !ok {
				continue
			}
			if field, mapped := attrFields[strings.ToLower(key)]; mapped {
				if field == "mileage" {
					if m := digitsOnly(value); m != "" {
						raw[field] = m
					}
					continue
				}
				raw[field] = strings.TrimSpace(value)
				continue
			}
			attrs[key] = strings.TrimSpace(value)
		}
	}

	if title, _ := raw["title"].(string); title != "" {
		if year, ok := scrape.YearFromTitle(title); ok {
			raw["year"] = year
		}
		mk, model := scrape.SplitMakeModel(title)
		if mk != "" {
			raw["make"] = mk
		}
		if model != "" {
			raw["model"] = model
		}
	}

	if trans, _ := raw["transmission"].(string); trans != "" {
		if _, ok := canonicalTransmission(trans); !ok {
			raw["transmission"] = "Other"
		}
	}

	if len(attrs) > 0 {
		raw["attrs_json"] = attrs
	}
	return raw
}

// splitRecord separates the header from the body at the dashed divider.
func splitRecord(text string) (header, body string) {
	for _, divider := range []string{"\n" + strings.Repeat("-", 40) + "\nBODY:\n", "\nBODY:\n"} {
		if head, rest, ok := strings.Cut(text, divider); ok {
			return head, strings.TrimSpace(rest)
		}
	}
	return text, ""
}

func digitsOnly(s string) string {
	return strings.Join(digitsRE.FindAllString(s, -1), "")
}

// FallbackPrice scans free text for a plausible asking price when the
// extracted record has none. Matches outside a sane price band are ignored.
func FallbackPrice(text string) *int {
	for _, m := range priceFallbackRE.FindAllStringSubmatch(text, -1) {
		digits := strings.NewReplacer(",", "", " ", "").Replace(m[1])
		n, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if n >= minFallbackPrice && n <= maxFallbackPrice {
			return &n
		}
	}
	return nil
}
