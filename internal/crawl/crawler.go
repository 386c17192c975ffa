package crawl

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/fetch"
	"github.com/drdave-teaching/craigslist-scraper/internal/metrics"
	"github.com/drdave-teaching/craigslist-scraper/internal/scrape"
)

// SiteParams identifies the search endpoint and its fixed query parameters.
type SiteParams struct {
	BaseURL        string
	SearchPath     string
	ResultsPerPage int
	HasPic         string
	MinAutoYear    string
	SearchType     string
}

// SearchURL builds the paginated search URL for the given result offset.
func (p SiteParams) SearchURL(start int) string {
	q := url.Values{}
	if p.HasPic != "" {
		q.Set("hasPic", p.HasPic)
	}
	if p.MinAutoYear != "" {
		q.Set("min_auto_year", p.MinAutoYear)
	}
	if p.SearchType != "" {
		q.Set("srchType", p.SearchType)
	}
	if start > 0 {
		q.Set("s", strconv.Itoa(start))
	}
	return fmt.Sprintf("%s%s?%s", p.BaseURL, p.SearchPath, q.Encode())
}

// Crawler drives pagination against the search endpoint.
type Crawler struct {
	fetcher fetch.Fetcher
	site    SiteParams
	delay   time.Duration
	pause   pauser
	logger  *zap.Logger
}

// NewCrawler builds a Crawler.
func NewCrawler(fetcher fetch.Fetcher, site SiteParams, delay time.Duration, logger *zap.Logger) *Crawler {
	return &Crawler{
		fetcher: fetcher,
		site:    site,
		delay:   delay,
		pause:   timerPauser{},
		logger:  logger,
	}
}

// Crawl iterates pages 0..maxPages-1 and returns the deduplicated, enriched
// RunIndex. The whole crawl stops early on the first failed fetch or the
// first page yielding zero rows; results are assumed monotonically
// paginated, so an empty page means there is nothing past it.
func (c *Crawler) Crawl(ctx context.Context, maxPages int) RunIndex {
	var all []scrape.SearchResult

	for page := 0; page < maxPages; page++ {
		start := page * c.site.ResultsPerPage
		pageURL := c.site.SearchURL(start)
		c.logger.Info("fetching search page",
			zap.Int("page", page+1),
			zap.String("url", pageURL),
		)

		resp, err := c.fetcher.Fetch(ctx, pageURL)
		if err != nil || !resp.OK() {
			metrics.ObserveSearchPage("failed")
			c.logger.Warn("search page fetch failed; stopping crawl",
				zap.Int("page", page+1),
				zap.Int("status", resp.StatusCode),
				zap.Error(err),
			)
			break
		}

		rows, err := scrape.ParseSearchPage(resp.Body, c.site.BaseURL)
		if err != nil {
			metrics.ObserveSearchPage("failed")
			c.logger.Warn("search page parse failed; stopping crawl", zap.Error(err))
			break
		}
		if len(rows) == 0 {
			metrics.ObserveSearchPage("empty")
			c.logger.Info("no rows found; stopping crawl", zap.Int("page", page+1))
			break
		}

		metrics.ObserveSearchPage("ok")
		all = append(all, rows...)
		c.pause.Pause(ctx, c.delay)
	}

	deduped := Dedup(all)
	for i := range deduped {
		deduped[i].MakeGuess, deduped[i].ModelGuess = scrape.SplitMakeModel(deduped[i].Title)
	}
	return RunIndex{Rows: deduped}
}
