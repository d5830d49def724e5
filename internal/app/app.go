// Package app wires configuration into the feedsync services. Both the
// HTTP server and the CLI build their dependency graph through New.
package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/vervegrand/feedsync/config"
	httpDelivery "github.com/vervegrand/feedsync/internal/delivery/http"
	"github.com/vervegrand/feedsync/internal/domain"
	"github.com/vervegrand/feedsync/internal/infrastructure/cache"
	"github.com/vervegrand/feedsync/internal/infrastructure/feed"
	"github.com/vervegrand/feedsync/internal/infrastructure/shopify"
	"github.com/vervegrand/feedsync/internal/infrastructure/store"
	"github.com/vervegrand/feedsync/internal/logging"
	"github.com/vervegrand/feedsync/internal/usecase"
)

// App holds the wired services
type App struct {
	Config   *config.Config
	Cache    *cache.MemoryCache
	Shopify  *shopify.Client
	Feed     *usecase.FeedService
	Sync     *usecase.SyncService
	Status   *usecase.StatusService
	Mapper   *usecase.CategoryMapper
	Schedule *usecase.Scheduler // nil when no schedule is configured

	db     *gorm.DB
	logger zerolog.Logger
}

// Options tweaks wiring for a particular entrypoint
type Options struct {
	// Sink receives sync progress in addition to the logger, e.g. a CLI printer
	Sink domain.LogSink
	// DisableSchedule skips the cron scheduler even when configured
	DisableSchedule bool
}

// New builds every service from cfg.
func New(cfg *config.Config, opts Options) (*App, error) {
	logger := logging.Component("app")

	mapper, err := usecase.LoadCategoryMapper(cfg.Sync.CategoryMapFile)
	if err != nil {
		return nil, err
	}

	var (
		db   *gorm.DB
		runs domain.RunRepository
	)
	if cfg.Store.Driver != "" {
		db, err = store.Open(cfg.Store.Driver, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		runs = store.NewRunRepository(db)
	}

	memoryCache := cache.NewMemoryCache(cfg.Cache.CleanupInterval)

	shopifyClient := shopify.NewClient(shopify.Config{
		StoreURL:    cfg.Shopify.StoreURL,
		AccessToken: cfg.Shopify.AccessToken,
		APIVersion:  cfg.Shopify.APIVersion,
		Timeout:     cfg.Shopify.Timeout,
		MaxRetries:  cfg.Shopify.MaxRetries,
		RateLimit:   cfg.Shopify.RateLimit,
		RateBurst:   cfg.Shopify.RateBurst,
	})
	if cfg.Server.Environment == "development" {
		shopifyClient.SetDebug(true)
		logger.Debug().Msg("Shopify client debug mode enabled")
	}

	feedService := usecase.NewFeedService(
		feed.NewSource(cfg.Feed.URL, cfg.Feed.Timeout),
		feed.NewParser(),
		memoryCache,
		usecase.FeedServiceConfig{StatsTTL: cfg.Cache.TTL},
	)

	syncService := usecase.NewSyncService(
		feedService,
		usecase.NewNormalizer(mapper),
		shopifyClient,
		usecase.SyncServiceConfig{
			ProductDelay: cfg.Sync.ProductDelay,
			CallTimeout:  cfg.Sync.CallTimeout,
			RunTimeout:   cfg.Sync.RunTimeout,
			Sink:         opts.Sink,
			Runs:         runs,
		},
	)

	restoreCtx, cancel := context.WithTimeout(context.Background(), cfg.Sync.CallTimeout)
	defer cancel()
	if err := syncService.Restore(restoreCtx); err != nil {
		logger.Warn().Err(err).Msg("Could not restore last sync run")
	}

	a := &App{
		Config:  cfg,
		Cache:   memoryCache,
		Shopify: shopifyClient,
		Feed:    feedService,
		Sync:    syncService,
		Status:  usecase.NewStatusService(feedService, shopifyClient, syncService, cfg.Feed.URL, cfg.Sync.CallTimeout),
		Mapper:  mapper,
		db:      db,
		logger:  logger,
	}

	if cfg.Sync.Schedule != "" && !opts.DisableSchedule {
		a.Schedule, err = usecase.NewScheduler(syncService, cfg.Sync.Schedule, cfg.Sync.DefaultOptions, cfg.Sync.RunTimeout)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("scheduler: %w", err)
		}
	}

	logger.Info().
		Str("feed_url", cfg.Feed.URL).
		Str("shop", cfg.Shopify.StoreURL).
		Str("api_version", cfg.Shopify.APIVersion).
		Int("category_keys", mapper.Len()).
		Str("schedule", cfg.Sync.Schedule).
		Str("store_driver", cfg.Store.Driver).
		Msg("Services initialized")

	return a, nil
}

// Handler builds the HTTP handler over the wired services
func (a *App) Handler() *httpDelivery.Handler {
	return httpDelivery.NewHandler(a.Sync, a.Feed, a.Status, a.Shopify, httpDelivery.HandlerConfig{
		DefaultOptions: a.Config.Sync.DefaultOptions,
	})
}

// Close stops background workers
func (a *App) Close() {
	if a.Schedule != nil {
		a.Schedule.Stop()
	}
	a.Cache.Close()
	if a.db != nil {
		if err := store.Close(a.db); err != nil {
			a.logger.Warn().Err(err).Msg("Failed to close run store")
		}
		a.db = nil
	}
}
