// Package metrics exposes Prometheus collectors for the scraper service.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	searchPagesTotal       *prometheus.CounterVec
	listingsTotal          *prometheus.CounterVec
	runsTotal              *prometheus.CounterVec
	extractionsTotal       *prometheus.CounterVec
	politenessDelaySeconds prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		searchPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_search_pages_total",
				Help: "Total number of search pages fetched, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		listingsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_listings_total",
				Help: "Total number of detail listings processed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		runsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_runs_total",
				Help: "Total number of crawl runs, labeled by status.",
			},
			[]string{"status"},
		)

		extractionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "scraper_extractions_total",
				Help: "Total number of extraction pipeline invocations, labeled by result.",
			},
			[]string{"result"},
		)

		politenessDelaySeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "scraper_politeness_delay_seconds",
				Help:    "Histogram of politeness pause durations.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5},
			},
		)
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveSearchPage counts one search page fetch outcome ("ok", "failed", "empty").
func ObserveSearchPage(outcome string) {
	Init()
	searchPagesTotal.WithLabelValues(outcome).Inc()
}

// ObserveListing counts one detail listing outcome ("saved", "skipped", "exists").
func ObserveListing(outcome string) {
	Init()
	listingsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun counts one run with its final status ("ok", "error").
func ObserveRun(status string) {
	Init()
	runsTotal.WithLabelValues(status).Inc()
}

// ObserveExtraction counts one extraction result ("ok", "ineligible",
// "no_post_id", "model_error", "rejected", "load_error", "store_error").
func ObserveExtraction(result string) {
	Init()
	extractionsTotal.WithLabelValues(result).Inc()
}

// ObservePolitenessDelay records one politeness pause.
func ObservePolitenessDelay(d time.Duration) {
	Init()
	politenessDelaySeconds.Observe(d.Seconds())
}
