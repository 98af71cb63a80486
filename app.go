package main

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"chasopis/internal/analytics"
	"chasopis/internal/cache"
	"chasopis/internal/catalog"
	"chasopis/internal/config"
	"chasopis/internal/content"
	"chasopis/internal/geoip"
	"chasopis/internal/importer"
	"chasopis/internal/logger"
	"chasopis/internal/storage"
	"chasopis/internal/visits"
)

// app holds every wired component. Commands use the parts they need.
type app struct {
	cfg       *config.Config
	log       logger.Logger
	registry  *prometheus.Registry
	store     *storage.SQLStorage
	cache     *cache.Manager
	catalog   *catalog.Service
	analytics *analytics.Aggregator
	visits    *visits.Logger
	recorder  *visits.Recorder
	importer  *importer.Importer
	redis     redis.UniversalClient
}

func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.LogDevelopment,
	})
	if err != nil {
		return nil, err
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("invalid DASHBOARD_TIMEZONE: %w", err)
	}

	store, err := storage.NewStorage(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	a := &app{
		cfg:      cfg,
		log:      log,
		registry: prometheus.NewRegistry(),
		store:    store,
		cache:    cache.NewManager(cfg.CacheTTL),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	a.catalog = catalog.NewService(store, a.cache, log,
		catalog.WithFacetsTTL(cfg.CacheTTL),
		catalog.WithDetector(content.NewDetector()),
		catalog.WithMetrics(catalog.NewMetrics(a.registry)))

	a.analytics = analytics.NewAggregator(store, a.cache, log,
		analytics.WithLocation(loc),
		analytics.WithCacheTTL(cfg.DashboardCacheTTL))

	geoCache, err := a.geoCache(ctx)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	visitMetrics := visits.NewMetrics(a.registry)
	locator := geoip.NewClient(cfg.Geo.LookupURL, cfg.Geo.LookupTimeout, cfg.Geo.LookupRate, cfg.Geo.LookupBurst)
	a.visits = visits.NewLogger(store, geoCache, locator, log,
		visits.WithWindow(cfg.Geo.CacheWindow),
		visits.WithMetrics(visitMetrics))
	a.recorder = visits.NewRecorder(a.visits, cfg.Visits.QueueSize, cfg.Visits.Workers, visitMetrics, log)

	a.importer = importer.New(a.catalog, cfg.Feeds, cfg.ImportInterval, log,
		importer.WithMetrics(importer.NewMetrics(a.registry)))

	log.Info("Application initialized",
		logger.String("db_driver", cfg.DBDriver),
		logger.String("geo_cache", cfg.Geo.CacheBackend),
		logger.Int("feed_sections", len(cfg.Feeds)))
	return a, nil
}

// geoCache builds the configured geo-by-IP cache backend.
func (a *app) geoCache(ctx context.Context) (visits.GeoCache, error) {
	switch a.cfg.Geo.CacheBackend {
	case config.GeoBackendMemory:
		return visits.NewMemoryCache(a.cfg.Geo.CacheWindow), nil
	case config.GeoBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.Redis.Addr, err)
		}
		a.redis = client
		return visits.NewRedisCache(client, a.cfg.Geo.CacheWindow), nil
	default:
		return visits.NewStoreCache(a.store), nil
	}
}

func (a *app) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("Failed to close redis client", logger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.log.Warn("Failed to close storage", logger.Error(err))
	}
	_ = a.log.Sync()
}
