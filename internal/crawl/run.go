package crawl

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path"
	"strconv"

	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/clock"
	"github.com/drdave-teaching/craigslist-scraper/internal/metrics"
	"github.com/drdave-teaching/craigslist-scraper/internal/queue"
	"github.com/drdave-teaching/craigslist-scraper/internal/storage"
)

// ErrNoStore means the orchestrator was invoked without a storage
// destination. This fails the run before any fetch happens.
var ErrNoStore = errors.New("no storage destination configured")

const runIDLayout = "20060102T150405Z"

// Orchestrator sequences one run: crawl the search pages, persist the index,
// then fetch and persist each listing's detail record.
type Orchestrator struct {
	Crawler      *Crawler
	Detailer     *Detailer
	Store        storage.BlobStore
	Publisher    queue.Publisher
	Clock        clock.Clock
	Logger       *zap.Logger
	SkipExisting bool
	// Bucket names the store's destination in run summaries. Empty for
	// stores without one, such as the in-memory store.
	Bucket string
}

// NewOrchestrator builds an Orchestrator with a system clock and a no-op
// publisher unless one is set afterwards.
func NewOrchestrator(crawler *Crawler, detailer *Detailer, store storage.BlobStore, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		Crawler:   crawler,
		Detailer:  detailer,
		Store:     store,
		Publisher: queue.NoOpPublisher{},
		Clock:     clock.System{},
		Logger:    logger,
	}
}

// Run executes one crawl under `<prefix>/<run_id>/`. The run id is the
// current UTC time in compact sortable form. Detail records that fail to
// fetch, or whose key already exists when SkipExisting is set, are counted
// as skips; the run itself only fails on storage errors.
func (o *Orchestrator) Run(ctx context.Context, maxPages int, prefix string) (RunSummary, error) {
	if o.Store == nil {
		metrics.ObserveRun("error")
		return RunSummary{}, ErrNoStore
	}

	runID := o.Clock.Now().UTC().Format(runIDLayout)
	logger := o.Logger.With(zap.String("run_id", runID))
	logger.Info("run started", zap.Int("max_pages", maxPages), zap.String("prefix", prefix))

	index := o.Crawler.Crawl(ctx, maxPages)

	indexKey := path.Join(prefix, runID, "index.csv")
	indexLocation, err := o.Store.Put(ctx, indexKey, renderIndexCSV(index), "text/csv")
	if err != nil {
		metrics.ObserveRun("error")
		return RunSummary{}, fmt.Errorf("store index %s: %w", indexKey, err)
	}

	summary := RunSummary{
		RunID:         runID,
		Bucket:        o.Bucket,
		IndexLocation: indexLocation,
		Rows:          len(index.Rows),
	}

	for _, row := range index.Rows {
		key, text, err := o.Detailer.FetchAndSerialize(ctx, row)
		if err != nil {
			if errors.Is(err, ErrSkipped) {
				metrics.ObserveListing("skipped")
				summary.Skipped++
				continue
			}
			metrics.ObserveRun("error")
			return RunSummary{}, err
		}

		objectKey := path.Join(prefix, runID, "txt", key+".txt")
		if o.SkipExisting {
			exists, err := o.Store.Exists(ctx, objectKey)
			if err != nil {
				metrics.ObserveRun("error")
				return RunSummary{}, fmt.Errorf("check %s: %w", objectKey, err)
			}
			if exists {
				metrics.ObserveListing("exists")
				summary.Skipped++
				continue
			}
		}

		if _, err := o.Store.Put(ctx, objectKey, []byte(text), "text/plain; charset=utf-8"); err != nil {
			metrics.ObserveRun("error")
			return RunSummary{}, fmt.Errorf("store record %s: %w", objectKey, err)
		}

		if err := o.Publisher.Publish(ctx, objectKey); err != nil {
			// The record is persisted; a missed notification is recoverable
			// through a backfill.
			logger.Warn("publish failed", zap.String("object", objectKey), zap.Error(err))
		}

		metrics.ObserveListing("saved")
		summary.Saved++
	}

	metrics.ObserveRun("ok")
	logger.Info("run finished",
		zap.Int("rows", summary.Rows),
		zap.Int("saved", summary.Saved),
		zap.Int("skipped", summary.Skipped),
		zap.String("index", summary.IndexLocation),
	)
	return summary, nil
}

// renderIndexCSV serializes the run index as the tabular artifact persisted
// alongside the detail records.
func renderIndexCSV(index RunIndex) []byte {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	w.Write([]string{"title", "price", "year_in_title", "hood", "url", "make_guess", "model_guess"}) //nolint:errcheck
	for _, row := range index.Rows {
		w.Write([]string{ //nolint:errcheck
			row.Title,
			intOrEmpty(row.Price),
			intOrEmpty(row.YearInTitle),
			row.Hood,
			row.URL,
			row.MakeGuess,
			row.ModelGuess,
		})
	}
	w.Flush()
	return buf.Bytes()
}

func intOrEmpty(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
