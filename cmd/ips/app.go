package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-ips/internal/cache"
	"github.com/irfndi/celebrum-ips/internal/capture"
	"github.com/irfndi/celebrum-ips/internal/config"
	"github.com/irfndi/celebrum-ips/internal/database"
	"github.com/irfndi/celebrum-ips/internal/logging"
	"github.com/irfndi/celebrum-ips/internal/market"
	"github.com/irfndi/celebrum-ips/internal/metrics"
	"github.com/irfndi/celebrum-ips/internal/services"
	"github.com/irfndi/celebrum-ips/internal/telemetry"
	"github.com/irfndi/celebrum-ips/pkg/ccxt"
)

// app holds the wired components for one CLI invocation.
type app struct {
	cfg           *config.Config
	logger        *logrus.Logger
	store         services.RecordStore
	migrate       func(context.Context) error
	stats         *services.StatsService
	engine        *services.IPSEngine
	snapshotCache *market.CachedProvider
	closers       []func() error
}

func newApp(ctx context.Context, configPath string) (*app, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// stdout is reserved for command output
	logger := logging.NewLoggerWithOutput(os.Stderr, cfg.LogLevel, cfg.LogFormat, cfg.Environment)
	a := &app{cfg: cfg, logger: logger}

	if err := a.wire(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	cfg := a.cfg

	tp, err := telemetry.InitTelemetry(ctx, telemetry.FromConfig(cfg.Telemetry, cfg.Environment), a.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	a.onClose(func() error { return tp.Shutdown(context.Background()) })

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(registry)
	if cfg.Metrics.Enabled {
		a.serveMetrics(registry, cfg.Metrics.Addr)
	}

	if err := a.openStore(ctx, tp); err != nil {
		return err
	}

	redisClient := a.openRedis(ctx)

	var statsCache services.ActorStatsStore = cache.NewMemoryActorStatsCache()
	if redisClient != nil {
		statsCache = cache.NewRedisActorStatsCache(redisClient, cache.DefaultRetention)
	}

	client := ccxt.NewClient(&cfg.CCXT, a.logger)
	a.onClose(client.Close)

	var provider market.Provider = market.NewGuardedProvider("ccxt",
		market.NewOHLCVProvider(client, cfg.CCXT, a.logger), cfg.MarketData, a.logger)
	if redisClient != nil {
		a.snapshotCache = market.NewCachedProvider(provider, redisClient, cfg.MarketData.CacheTTLDuration(), a.logger, m)
		provider = a.snapshotCache
	}

	statsCfg := services.StatsConfigFrom(cfg.Scoring)
	tracer := telemetry.NewBusinessTracer(tp.TracerProvider)

	a.stats = services.NewStatsService(a.store, statsCache, statsCfg, a.logger).
		WithMetrics(m).
		WithTracer(tracer)

	a.engine = services.NewIPSEngine(provider, a.store, a.stats, a.logger).
		WithExtractor(capture.NewExtractor(cfg.Scoring.KnownTickers)).
		WithHistoryProvider(services.NewStoreHistoryProvider(a.store, statsCfg.ActorSampleSize)).
		WithMetrics(m).
		WithTracer(tracer)

	return nil
}

func (a *app) openStore(ctx context.Context, tp *telemetry.Provider) error {
	switch a.cfg.Database.Driver {
	case "sqlite":
		repo, err := database.OpenSQLite(a.cfg.Database.SQLitePath)
		if err != nil {
			return fmt.Errorf("failed to open sqlite store: %w", err)
		}
		a.onClose(repo.Close)
		a.store = repo
		a.migrate = repo.Migrate
	default:
		db, err := database.NewPostgresConnection(ctx, a.cfg.Database, a.logger)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		a.onClose(func() error {
			db.Close()
			return nil
		})
		pool := database.NewTracedPool(db.Pool, tp.TracerProvider)
		a.store = database.NewRecordRepository(pool)
		a.migrate = func(ctx context.Context) error {
			return database.EnsureSchema(ctx, pool)
		}
	}
	return nil
}

// openRedis returns nil when Redis is disabled or unreachable. Both caches
// have in-process or pass-through fallbacks.
func (a *app) openRedis(ctx context.Context) *redis.Client {
	if !a.cfg.Redis.Enabled {
		return nil
	}
	rc, err := database.NewRedisConnection(ctx, a.cfg.Redis, a.logger)
	if err != nil {
		a.logger.WithError(err).Warn("Redis unavailable, using in-memory actor stats cache")
		return nil
	}
	a.onClose(rc.Close)
	return rc.Client
}

func (a *app) serveMetrics(registry *prometheus.Registry, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		a.logger.WithField("addr", addr).Info("Metrics endpoint listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.WithError(err).Error("Metrics endpoint failed")
		}
	}()

	a.onClose(func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	})
}

func (a *app) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	if a.snapshotCache != nil {
		a.snapshotCache.LogStats()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
