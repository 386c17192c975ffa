// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/drdave-teaching/craigslist-scraper/internal/config"
	"github.com/drdave-teaching/craigslist-scraper/internal/crawl"
	"github.com/drdave-teaching/craigslist-scraper/internal/database"
	"github.com/drdave-teaching/craigslist-scraper/internal/extract"
	"github.com/drdave-teaching/craigslist-scraper/internal/fetch"
	"github.com/drdave-teaching/craigslist-scraper/internal/logging"
	"github.com/drdave-teaching/craigslist-scraper/internal/queue"
	"github.com/drdave-teaching/craigslist-scraper/internal/storage"
	"github.com/drdave-teaching/craigslist-scraper/internal/storage/memory"
)

// App holds the shared, long-lived services for both pipelines. It is
// initialized once at startup and passed to the components that need it.
type App struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     storage.BlobStore
	Fetcher   fetch.Fetcher
	Publisher queue.Publisher
	Database  database.Store

	closers []func()
}

// New builds the App from configuration, failing fast when any configured
// service cannot be initialized.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	a := &App{Config: cfg, Logger: logger}

	if err := a.initStore(ctx); err != nil {
		return nil, err
	}
	a.initFetcher()
	if err := a.initPublisher(ctx); err != nil {
		return nil, err
	}
	if err := a.initDatabase(ctx); err != nil {
		return nil, err
	}

	logger.Info("application services initialized",
		zap.String("storage", cfg.Storage.Provider),
		zap.Bool("headless", cfg.Crawler.Headless),
		zap.Bool("pubsub", cfg.PubSub.TopicID != ""),
		zap.Bool("database", cfg.DB.DSN != ""),
	)
	return a, nil
}

func (a *App) initStore(ctx context.Context) error {
	cfg := a.Config.Storage
	switch cfg.Provider {
	case "gcs":
		if cfg.Bucket == "" {
			return fmt.Errorf("storage provider is gcs but storage.bucket is not set")
		}
		a.Logger.Info("using GCS storage", zap.String("bucket", cfg.Bucket))
		store, err := storage.NewGCSStore(ctx, cfg.Bucket)
		if err != nil {
			return fmt.Errorf("init gcs storage: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, func() {
			if err := store.Close(); err != nil {
				a.Logger.Warn("close gcs client", zap.Error(err))
			}
		})
	case "memory":
		a.Logger.Info("using in-memory storage; artifacts are lost on exit")
		a.Store = memory.NewBlobStore()
	case "noop":
		a.Logger.Info("using no-op storage; artifacts are discarded")
		a.Store = storage.NoOpStore{}
	default:
		return fmt.Errorf("unknown storage provider: %s", cfg.Provider)
	}
	return nil
}

func (a *App) initFetcher() {
	cfg := a.Config
	if cfg.Crawler.Headless {
		a.Logger.Info("using headless browser fetcher")
		headless := fetch.NewHeadlessFetcher(fetch.HeadlessConfig{
			UserAgent:         cfg.Crawler.UserAgent,
			NavigationTimeout: time.Duration(cfg.Crawler.HeadlessNavSecs) * time.Second,
		})
		a.Fetcher = headless
		a.closers = append(a.closers, headless.Close)
		return
	}
	a.Fetcher = fetch.NewCollyFetcher(fetch.CollyConfig{
		UserAgent: cfg.Crawler.UserAgent,
		Timeout:   cfg.FetchTimeout(),
	})
}

func (a *App) initPublisher(ctx context.Context) error {
	cfg := a.Config.PubSub
	if cfg.TopicID == "" {
		a.Publisher = queue.NoOpPublisher{}
		return nil
	}
	if cfg.ProjectID == "" {
		return fmt.Errorf("pubsub.topic_id is set but pubsub.project_id is not")
	}
	a.Logger.Info("connecting to pub/sub", zap.String("topic", cfg.TopicID))
	pub, err := queue.NewPubSubPublisher(ctx, cfg.ProjectID, cfg.TopicID)
	if err != nil {
		return fmt.Errorf("init pubsub: %w", err)
	}
	a.Publisher = pub
	a.closers = append(a.closers, func() {
		if err := pub.Close(); err != nil {
			a.Logger.Warn("close pubsub client", zap.Error(err))
		}
	})
	return nil
}

func (a *App) initDatabase(ctx context.Context) error {
	cfg := a.Config.DB
	if cfg.DSN == "" {
		a.Database = database.NoOpStore{}
		return nil
	}
	a.Logger.Info("connecting to postgres")
	store, err := database.NewPostgresStore(ctx, database.Config{
		DSN:           cfg.DSN,
		RunsTable:     cfg.RunsTable,
		ListingsTable: cfg.ListingsTable,
	})
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	a.Database = store
	a.closers = append(a.closers, store.Close)
	return nil
}

// NewOrchestrator wires the crawl pipeline from the app's services.
func (a *App) NewOrchestrator() *crawl.Orchestrator {
	cfg := a.Config
	site := crawl.SiteParams{
		BaseURL:        cfg.Site.BaseURL,
		SearchPath:     cfg.Site.SearchPath,
		ResultsPerPage: cfg.Site.ResultsPerPage,
		HasPic:         cfg.Site.HasPic,
		MinAutoYear:    cfg.Site.MinAutoYear,
		SearchType:     cfg.Site.SearchType,
	}

	o := crawl.NewOrchestrator(
		crawl.NewCrawler(a.Fetcher, site, cfg.PageDelay(), a.Logger),
		crawl.NewDetailer(a.Fetcher, cfg.DetailDelay(), a.Logger),
		a.Store,
		a.Logger,
	)
	o.Publisher = a.Publisher
	o.SkipExisting = cfg.Crawler.SkipExistingKeys
	o.Bucket = cfg.Storage.Bucket
	return o
}

// NewExtractPipeline wires the extraction pipeline from the app's services.
// Without a configured model endpoint, records are reparsed deterministically.
func (a *App) NewExtractPipeline() *extract.Pipeline {
	cfg := a.Config
	var model extract.Model
	if cfg.Extractor.ModelEndpoint != "" {
		model = extract.NewHTTPModel(
			cfg.Extractor.ModelEndpoint,
			time.Duration(cfg.Extractor.TimeoutSeconds)*time.Second,
		)
	}
	return extract.NewPipeline(a.Store, model, a.Database, cfg.Storage.Prefix, a.Logger)
}

// Close gracefully shuts down all services, newest first.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	_ = a.Logger.Sync() //nolint:errcheck
}
