// Package crawl implements the search crawl pipeline: paginated search
// traversal, detail fetch and serialization, and the run orchestrator.
package crawl

import (
	"github.com/drdave-teaching/craigslist-scraper/internal/scrape"
)

// RunIndex is the deduplicated, enriched collection of search results for
// one run. It is owned by the orchestrator and persisted once as an
// immutable snapshot.
type RunIndex struct {
	Rows []scrape.SearchResult
}

// RunSummary is returned by the orchestrator for each run.
type RunSummary struct {
	RunID         string `json:"run_id"`
	Bucket        string `json:"bucket,omitempty"`
	IndexLocation string `json:"index_csv"`
	Saved         int    `json:"txt_saved"`
	Skipped       int    `json:"txt_skipped"`
	Rows          int    `json:"rows"`
}

// Dedup removes rows with duplicate URLs, first occurrence wins, preserving
// order. Rows without a URL are all retained.
func Dedup(rows []scrape.SearchResult) []scrape.SearchResult {
	seen := make(map[string]struct{}, len(rows))
	out := make([]scrape.SearchResult, 0, len(rows))
	for _, row := range rows {
		if row.URL != "" {
			if _, dup := seen[row.URL]; dup {
				continue
			}
			seen[row.URL] = struct{}{}
		}
		out = append(out, row)
	}
	return out
}
