// Package app builds the crawler's long-lived services from configuration and
// owns their lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/JakeFAU/jobcrawler/internal/api"
	"github.com/JakeFAU/jobcrawler/internal/config"
	"github.com/JakeFAU/jobcrawler/internal/crawler"
	"github.com/JakeFAU/jobcrawler/internal/dedup"
	collyfetcher "github.com/JakeFAU/jobcrawler/internal/fetcher/colly"
	headlessfetcher "github.com/JakeFAU/jobcrawler/internal/fetcher/headless"
	"github.com/JakeFAU/jobcrawler/internal/id/uuid"
	memorylock "github.com/JakeFAU/jobcrawler/internal/lock/memory"
	redislock "github.com/JakeFAU/jobcrawler/internal/lock/redis"
	"github.com/JakeFAU/jobcrawler/internal/logging"
	"github.com/JakeFAU/jobcrawler/internal/manager"
	"github.com/JakeFAU/jobcrawler/internal/policy/ratelimit"
	memorypublisher "github.com/JakeFAU/jobcrawler/internal/publisher/memory"
	gcppublisher "github.com/JakeFAU/jobcrawler/internal/publisher/pubsub"
	"github.com/JakeFAU/jobcrawler/internal/source"
	"github.com/JakeFAU/jobcrawler/internal/source/domestika"
	"github.com/JakeFAU/jobcrawler/internal/source/linkedin"
	gcsstorage "github.com/JakeFAU/jobcrawler/internal/storage/gcs"
	localstorage "github.com/JakeFAU/jobcrawler/internal/storage/local"
	memorystorage "github.com/JakeFAU/jobcrawler/internal/storage/memory"
	pgstore "github.com/JakeFAU/jobcrawler/internal/storage/postgres"
	"github.com/JakeFAU/jobcrawler/internal/telemetry"
)

// siteFactories maps configured source names to their constructors.
var siteFactories = map[string]func(source.SiteConfig) source.Site{
	linkedin.Name:  func(cfg source.SiteConfig) source.Site { return linkedin.New(cfg) },
	domestika.Name: func(cfg source.SiteConfig) source.Site { return domestika.New(cfg) },
}

// App contains the application's dependencies.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	manager   *manager.Manager
	apiServer *api.Server
	checkers  map[string]api.Checker

	jobStore        crawler.JobStore
	pgStore         *pgstore.JobStore
	redisClient     *redis.Client
	pubsubPublisher *gcppublisher.Publisher
	gcsClient       *storage.Client
	headless        []*headlessfetcher.Fetcher
	tracerShutdown  func(context.Context) error
}

// Option customizes Build.
type Option func(*App)

// WithLogger skips building a logger from config.
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// Build creates the application's dependencies. On error everything built so
// far is closed.
func Build(ctx context.Context, cfg config.Config, opts ...Option) (app *App, err error) {
	app = &App{cfg: cfg, checkers: map[string]api.Checker{}}
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger, err = logging.New(logging.Config{Development: cfg.Logging.Development, Level: cfg.Logging.Level})
		if err != nil {
			return nil, fmt.Errorf("logger init failed: %w", err)
		}
		zap.ReplaceGlobals(app.logger)
	}
	defer func() {
		if err != nil {
			_ = app.Close(context.Background())
			app = nil
		}
	}()

	tp, err := telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName: cfg.Telemetry.ServiceName,
		Environment: cfg.Telemetry.Environment,
		SampleRatio: cfg.Telemetry.SampleRatio,
		Exporter:    cfg.Telemetry.Exporter,
	})
	if err != nil {
		return app, fmt.Errorf("tracer init failed: %w", err)
	}
	app.tracerShutdown = tp.Shutdown

	app.logger.Info("building application dependencies",
		zap.Int("server_port", cfg.Server.Port),
		zap.Bool("auth_enabled", cfg.Auth.Enabled),
	)

	if err = app.setupDatabase(ctx); err != nil {
		return app, err
	}
	locker, err := app.setupLocker(ctx)
	if err != nil {
		return app, err
	}
	publisher, err := app.setupPublisher(ctx)
	if err != nil {
		return app, err
	}
	snapshots, err := app.setupSnapshots(ctx)
	if err != nil {
		return app, err
	}

	persister := dedup.New(app.jobStore, locker, publisher, dedup.Config{Topic: cfg.PubSub.TopicName}, app.logger)
	scrapers, err := app.setupSources(persister, snapshots)
	if err != nil {
		return app, err
	}

	app.manager = manager.New(scrapers, uuid.New(), manager.Config{
		MaxParallelSources: cfg.Crawler.MaxParallelSources,
	}, app.logger)
	app.apiServer = api.NewServer(app.manager, app.checkers, api.Config{
		AuthEnabled:    cfg.Auth.Enabled,
		APIKey:         cfg.Auth.APIKey,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeoutSeconds) * time.Second,
	}, app.logger)
	return app, nil
}

// Manager exposes the crawl manager.
func (a *App) Manager() *manager.Manager {
	return a.manager
}

// Logger returns the application logger.
func (a *App) Logger() *zap.Logger {
	return a.logger
}

// Handler returns the HTTP API handler.
func (a *App) Handler() http.Handler {
	return a.apiServer.Handler()
}

// Crawl runs every enabled source once.
func (a *App) Crawl(ctx context.Context) (crawler.RunSummary, error) {
	summary, err := a.manager.Run(ctx)
	if err != nil {
		return summary, fmt.Errorf("crawl: %w", err)
	}
	return summary, nil
}

// Serve runs the HTTP API until ctx is canceled, then shuts it down
// gracefully.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:           a.apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("http server started", zap.Int("port", a.cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	a.logger.Info("shutdown initiated")

	timeout := time.Duration(a.cfg.Server.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

// Close releases every client the app opened. It is safe on a partially
// built App.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for _, f := range a.headless {
		f.Close()
	}
	if a.pubsubPublisher != nil {
		if err := a.pubsubPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("pubsub close: %w", err))
		}
	}
	if a.gcsClient != nil {
		if err := a.gcsClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("gcs client close: %w", err))
		}
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if a.pgStore != nil {
		a.pgStore.Close()
	}
	if a.tracerShutdown != nil {
		if err := a.tracerShutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if a.logger != nil {
		a.logger.Info("shutdown complete")
		_ = a.logger.Sync()
	}
	return errors.Join(errs...)
}

func (a *App) setupDatabase(ctx context.Context) error {
	if a.cfg.DB.DSN == "" {
		a.logger.Warn("no DSN configured, using in-memory job store")
		a.jobStore = memorystorage.NewJobStore()
		return nil
	}
	store, err := pgstore.NewJobStore(ctx, pgstore.Config{
		DSN:             a.cfg.DB.DSN,
		MaxConns:        a.cfg.DB.MaxConns,
		MinConns:        a.cfg.DB.MinConns,
		MaxConnLifetime: time.Duration(a.cfg.DB.MaxConnLifetimeMinutes) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("job store init failed: %w", err)
	}
	a.pgStore = store
	a.jobStore = store
	a.checkers["postgres"] = store
	if a.cfg.DB.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	a.logger.Info("postgres job store initialized", zap.Int32("max_conns", a.cfg.DB.MaxConns))
	return nil
}

func (a *App) setupLocker(ctx context.Context) (crawler.Locker, error) {
	if a.cfg.Redis.URL == "" {
		a.logger.Info("using in-process dedup locks")
		return memorylock.New(), nil
	}
	client, err := redislock.NewClient(ctx, a.cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("redis init failed: %w", err)
	}
	a.redisClient = client
	a.checkers["redis"] = pingFunc(func(ctx context.Context) error { return client.Ping(ctx).Err() })
	a.logger.Info("using redis dedup locks", zap.String("key_prefix", a.cfg.Redis.KeyPrefix))
	return redislock.New(client, redislock.Config{
		KeyPrefix: a.cfg.Redis.KeyPrefix,
		TTL:       time.Duration(a.cfg.Redis.LockTTLSeconds) * time.Second,
	}, a.logger), nil
}

func (a *App) setupPublisher(ctx context.Context) (crawler.Publisher, error) {
	if a.cfg.PubSub.TopicName == "" || a.cfg.PubSub.ProjectID == "" {
		a.logger.Warn("no Pub/Sub topic configured, using in-memory publisher")
		return memorypublisher.New(), nil
	}
	client, err := gcppublisher.NewClient(ctx, a.cfg.PubSub.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("pubsub client init failed: %w", err)
	}
	a.pubsubPublisher = gcppublisher.New(client)
	a.logger.Info("Pub/Sub publisher initialized",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	return a.pubsubPublisher, nil
}

func (a *App) setupSnapshots(ctx context.Context) (crawler.BlobStore, error) {
	if !a.cfg.Snapshots.Enabled {
		a.logger.Info("listing snapshots disabled")
		return nil, nil
	}
	if a.cfg.Snapshots.GCSBucket == "" {
		if dir := a.cfg.Snapshots.LocalDir; dir != "" {
			store, err := localstorage.New(localstorage.Config{BaseDir: dir})
			if err != nil {
				return nil, fmt.Errorf("local snapshot store init failed: %w", err)
			}
			a.logger.Info("using local snapshot store", zap.String("dir", dir))
			return store, nil
		}
		a.logger.Info("using in-memory snapshot store")
		return memorystorage.NewBlobStore(), nil
	}
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client init failed: %w", err)
	}
	a.gcsClient = client
	store, err := gcsstorage.New(client, gcsstorage.Config{Bucket: a.cfg.Snapshots.GCSBucket})
	if err != nil {
		return nil, fmt.Errorf("gcs snapshot store init failed: %w", err)
	}
	a.logger.Info("using GCS snapshot store", zap.String("bucket", a.cfg.Snapshots.GCSBucket))
	return store, nil
}

func (a *App) setupSources(persister source.Persister, snapshots crawler.BlobStore) ([]crawler.SourceScraper, error) {
	limiter := ratelimit.New(ratelimit.Config{
		DefaultRPS:   a.cfg.Crawler.RequestsPerSecond,
		DefaultBurst: a.cfg.Crawler.Burst,
	})
	plain := collyfetcher.New(collyfetcher.Config{
		UserAgent:      a.cfg.Crawler.UserAgent,
		AcceptLanguage: a.cfg.Crawler.AcceptLanguage,
		RespectRobots:  a.cfg.Crawler.RespectRobots,
		Timeout:        a.cfg.Crawler.RequestTimeout(),
	}, limiter, a.logger)

	var scrapers []crawler.SourceScraper
	for _, srcCfg := range a.cfg.EnabledSources() {
		name := strings.ToLower(strings.TrimSpace(srcCfg.Name))
		factory, ok := siteFactories[name]
		if !ok {
			return nil, fmt.Errorf("unknown source %q", srcCfg.Name)
		}

		var listing crawler.Fetcher = plain
		if srcCfg.Headless {
			hf, err := headlessfetcher.NewChromedp(headlessfetcher.Config{
				MaxParallel:       a.cfg.Headless.MaxParallel,
				UserAgent:         a.cfg.Crawler.UserAgent,
				AcceptLanguage:    a.cfg.Crawler.AcceptLanguage,
				NavigationTimeout: time.Duration(a.cfg.Headless.NavTimeoutSeconds) * time.Second,
				WaitSelector:      a.cfg.Headless.WaitSelector,
				Settle:            time.Duration(a.cfg.Headless.SettleMs) * time.Millisecond,
			}, limiter, a.logger)
			if err != nil {
				return nil, fmt.Errorf("headless fetcher for %s: %w", name, err)
			}
			a.headless = append(a.headless, hf)
			listing = hf
		}

		siteCfg := source.SiteConfig{
			BaseURL:        srcCfg.BaseURL,
			Categories:     withSource(name, srcCfg.Categories),
			SearchLocation: srcCfg.SearchLocation,
			Policy:         a.cfg.Filter,
			ExcerptLength:  a.cfg.Crawler.ExcerptLength,
			Logger:         a.logger.With(zap.String("source", name)),
		}
		if a.cfg.Crawler.FetchDetails {
			siteCfg.Detail = plain
		}

		opts := []source.Option{source.WithLogger(a.logger)}
		if snapshots != nil {
			opts = append(opts, source.WithSnapshots(snapshots))
		}
		scrapers = append(scrapers, source.NewScraper(factory(siteCfg), listing, persister, source.Config{
			MaxPages:       a.cfg.Crawler.MaxPages,
			EntryDelay:     a.cfg.Crawler.EntryDelay(),
			PageDelay:      a.cfg.Crawler.PageDelay(),
			Policy:         a.cfg.Filter,
			SnapshotPrefix: a.cfg.Snapshots.Prefix,
		}, opts...))
		a.logger.Info("source registered", zap.String("source", name), zap.Bool("headless", srcCfg.Headless))
	}
	if len(scrapers) == 0 {
		a.logger.Warn("no sources enabled")
	}
	return scrapers, nil
}

func withSource(name string, cats []crawler.CategoryTarget) []crawler.CategoryTarget {
	if len(cats) == 0 {
		return nil
	}
	out := make([]crawler.CategoryTarget, len(cats))
	for i, cat := range cats {
		cat.Source = name
		if cat.Label == "" {
			cat.Label = cat.ID
		}
		out[i] = cat
	}
	return out
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
