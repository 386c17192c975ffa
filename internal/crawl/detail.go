package crawl

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/fetch"
	"github.com/drdave-teaching/craigslist-scraper/internal/scrape"
)

// ErrSkipped marks a detail row that was not fetched: no URL, or a fetch
// failure. Skips are counted, never retried within a run.
var ErrSkipped = errors.New("listing skipped")

// Detailer fetches detail pages and serializes them into text records.
type Detailer struct {
	fetcher fetch.Fetcher
	delay   time.Duration
	pause   pauser
	logger  *zap.Logger
}

// NewDetailer builds a Detailer.
func NewDetailer(fetcher fetch.Fetcher, delay time.Duration, logger *zap.Logger) *Detailer {
	return &Detailer{
		fetcher: fetcher,
		delay:   delay,
		pause:   timerPauser{},
		logger:  logger,
	}
}

// FetchAndSerialize fetches one listing's detail page and returns the
// derived object key stem and the serialized record body. Rows without a
// URL and failed fetches return an error wrapping ErrSkipped.
func (d *Detailer) FetchAndSerialize(ctx context.Context, row scrape.SearchResult) (string, string, error) {
	if row.URL == "" {
		return "", "", fmt.Errorf("no url for %q: %w", row.Title, ErrSkipped)
	}

	resp, err := d.fetcher.Fetch(ctx, row.URL)
	if err != nil || !resp.OK() {
		d.logger.Warn("detail fetch failed",
			zap.String("url", row.URL),
			zap.Int("status", resp.StatusCode),
			zap.Error(err),
		)
		return "", "", fmt.Errorf("fetch %s: %w", row.URL, ErrSkipped)
	}

	detail, err := scrape.ParseDetailPage(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("parse %s: %w", row.URL, ErrSkipped)
	}

	key := DeriveKey(row)
	text := RenderRecord(row, detail)

	d.pause.Pause(ctx, d.delay)
	return key, text, nil
}

// RenderRecord serializes a search row plus its detail into the fixed
// human-readable record layout. This text is the sole persisted
// representation of a detail record.
func RenderRecord(row scrape.SearchResult, detail scrape.DetailRecord) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Title: %s\n", row.Title)
	if row.Price != nil {
		fmt.Fprintf(&b, "Price: $%s\n", formatThousands(*row.Price))
	} else {
		b.WriteString("Price: \n")
	}
	fmt.Fprintf(&b, "Neighborhood: %s\n", row.Hood)
	fmt.Fprintf(&b, "URL: %s\n", row.URL)
	fmt.Fprintf(&b, "Posted: %s\n", detail.Posted)

	if len(detail.Attrs) > 0 || len(detail.Misc) > 0 {
		b.WriteString("Attributes:\n")
		for _, attr := range detail.Attrs {
			fmt.Fprintf(&b, "  - %s: %s\n", attr.Key, attr.Value)
		}
		if len(detail.Misc) > 0 {
			fmt.Fprintf(&b, "  - misc: %s\n", strings.Join(detail.Misc, ", "))
		}
	}

	b.WriteString(strings.Repeat("-", 40))
	b.WriteString("\nBODY:\n")
	b.WriteString(detail.BodyText)

	return b.String()
}

// formatThousands renders n with comma separators.
func formatThousands(n int) string {
	if n < 0 {
		return "-" + formatThousands(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var out []byte
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
