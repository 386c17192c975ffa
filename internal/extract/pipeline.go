package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/clock"
	"github.com/drdave-teaching/craigslist-scraper/internal/metrics"
	"github.com/drdave-teaching/craigslist-scraper/internal/storage"
)

// ErrNotEligible marks an object key outside the pipeline's input shape.
// Index files, structured outputs, and foreign prefixes are acked and
// dropped, never treated as failures.
var ErrNotEligible = errors.New("object key is not an eligible detail record")

// Pipeline consumes serialized detail records from the blob store and writes
// normalized listings next to them.
type Pipeline struct {
	Store    storage.BlobStore
	Model    Model
	Recorder Recorder
	Prefix   string
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Recorder persists normalized listings outside the blob store. The pipeline
// treats recording as best-effort; the JSON object in the bucket is the
// source of truth.
type Recorder interface {
	RecordListing(ctx context.Context, listing Listing) error
}

// NewPipeline builds a Pipeline. Model and recorder may be nil: without a
// model the record text is reparsed deterministically, and without a
// recorder listings live only in the blob store.
func NewPipeline(store storage.BlobStore, model Model, recorder Recorder, prefix string, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		Store:    store,
		Model:    model,
		Recorder: recorder,
		Prefix:   prefix,
		Clock:    clock.System{},
		Logger:   logger,
	}
}

// ProcessObject runs one object key through the pipeline: gate on the path
// shape, load the record text, resolve the post id, extract, normalize, and
// write `<prefix>/<run_id>/structured/json/<post_id>.json`. It returns the
// normalized Listing on success.
func (p *Pipeline) ProcessObject(ctx context.Context, objectKey string) (Listing, error) {
	runID, ok := p.eligible(objectKey)
	if !ok {
		metrics.ObserveExtraction("ineligible")
		return Listing{}, fmt.Errorf("%s: %w", objectKey, ErrNotEligible)
	}

	text, err := p.Store.GetText(ctx, objectKey)
	if err != nil {
		metrics.ObserveExtraction("load_error")
		return Listing{}, fmt.Errorf("load record %s: %w", objectKey, err)
	}

	listing, err := p.extractRecord(ctx, objectKey, text)
	if err != nil {
		return Listing{}, err
	}
	listing.RunID = runID
	listing.ScrapedAt = p.Clock.Now()

	payload, err := json.Marshal(listing)
	if err != nil {
		metrics.ObserveExtraction("marshal_error")
		return Listing{}, fmt.Errorf("marshal listing %s: %w", listing.PostID, err)
	}

	outKey := path.Join(p.Prefix, runID, "structured", "json", listing.PostID+".json")
	if _, err := p.Store.Put(ctx, outKey, payload, "application/json"); err != nil {
		metrics.ObserveExtraction("store_error")
		return Listing{}, fmt.Errorf("store listing %s: %w", outKey, err)
	}

	if p.Recorder != nil {
		if err := p.Recorder.RecordListing(ctx, listing); err != nil {
			p.Logger.Warn("record listing failed",
				zap.String("post_id", listing.PostID),
				zap.Error(err),
			)
		}
	}

	metrics.ObserveExtraction("ok")
	p.Logger.Info("listing extracted",
		zap.String("post_id", listing.PostID),
		zap.String("object", outKey),
	)
	return listing, nil
}

// extractRecord turns record text into a validated Listing. The resolved
// post id always overrides whatever the model claims.
func (p *Pipeline) extractRecord(ctx context.Context, objectKey, text string) (Listing, error) {
	reparsed := Reparse(text)
	url, _ := reparsed["url"].(string)

	// The leaf name, not the full path: the run id's date digits would
	// otherwise satisfy the bare-digits pattern.
	postID, err := ResolvePostID(path.Base(objectKey), url, text)
	if err != nil {
		metrics.ObserveExtraction("no_post_id")
		return Listing{}, fmt.Errorf("resolve %s: %w", objectKey, err)
	}

	raw := reparsed
	if p.Model != nil {
		out, err := p.Model.Extract(ctx, text, SchemaDescriptor())
		if err != nil {
			metrics.ObserveExtraction("model_error")
			return Listing{}, fmt.Errorf("model extract %s: %w", objectKey, err)
		}
		raw = map[string]any{}
		if err := json.Unmarshal(out, &raw); err != nil {
			metrics.ObserveExtraction("model_error")
			return Listing{}, fmt.Errorf("decode model output for %s: %w", objectKey, err)
		}
	}
	raw["post_id"] = postID
	if u, _ := raw["url"].(string); u == "" && url != "" {
		raw["url"] = url
	}

	// A model that cannot find a price reports it as null, which decodes to
	// a present key with a nil value. Both shapes mean "no price".
	if v, ok := raw["price"]; !ok || v == nil {
		title, _ := raw["title"].(string)
		if price := FallbackPrice(title + "\n" + text); price != nil {
			raw["price"] = *price
		}
	}

	listing, err := Normalize(raw)
	if err != nil {
		metrics.ObserveExtraction("rejected")
		return Listing{}, fmt.Errorf("normalize %s: %w", objectKey, err)
	}
	return listing, nil
}

// eligible reports whether the key is `<prefix>/<run_id>/txt/<name>.txt`
// under the pipeline's prefix, returning the run id when it is.
func (p *Pipeline) eligible(objectKey string) (string, bool) {
	rest, found := strings.CutPrefix(objectKey, p.Prefix+"/")
	if !found {
		return "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 3 || parts[1] != "txt" {
		return "", false
	}
	if parts[0] == "" || !strings.HasSuffix(parts[2], ".txt") || parts[2] == ".txt" {
		return "", false
	}
	return parts[0], true
}

// Backfill reprocesses every detail record under the prefix (or one run when
// runID is set), skipping records whose structured output already exists.
// It returns the number of records processed and the number skipped.
func (p *Pipeline) Backfill(ctx context.Context, runID string) (processed, skipped int, err error) {
	listPrefix := p.Prefix + "/"
	if runID != "" {
		listPrefix = path.Join(p.Prefix, runID, "txt") + "/"
	}

	keys, err := p.Store.List(ctx, listPrefix)
	if err != nil {
		return 0, 0, fmt.Errorf("list %s: %w", listPrefix, err)
	}

	for _, key := range keys {
		run, ok := p.eligible(key)
		if !ok {
			continue
		}

		text, err := p.Store.GetText(ctx, key)
		if err != nil {
			p.Logger.Warn("backfill load failed", zap.String("object", key), zap.Error(err))
			skipped++
			continue
		}
		url := Reparse(text)["url"]
		urlStr, _ := url.(string)
		postID, err := ResolvePostID(path.Base(key), urlStr, text)
		if err != nil {
			skipped++
			continue
		}

		outKey := path.Join(p.Prefix, run, "structured", "json", postID+".json")
		exists, err := p.Store.Exists(ctx, outKey)
		if err != nil {
			return processed, skipped, fmt.Errorf("check %s: %w", outKey, err)
		}
		if exists {
			skipped++
			continue
		}

		if _, err := p.ProcessObject(ctx, key); err != nil {
			p.Logger.Warn("backfill extract failed", zap.String("object", key), zap.Error(err))
			skipped++
			continue
		}
		processed++
	}

	p.Logger.Info("backfill complete",
		zap.String("run_id", runID),
		zap.Int("processed", processed),
		zap.Int("skipped", skipped),
	)
	return processed, skipped, nil
}
