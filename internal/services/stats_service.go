package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-ips/internal/cache"
	"github.com/irfndi/celebrum-ips/internal/capture"
	"github.com/irfndi/celebrum-ips/internal/config"
	"github.com/irfndi/celebrum-ips/internal/metrics"
	"github.com/irfndi/celebrum-ips/internal/models"
	"github.com/irfndi/celebrum-ips/internal/scoring"
	"github.com/irfndi/celebrum-ips/internal/telemetry"
)

// StatsConfig bounds the record samples behind each aggregate.
type StatsConfig struct {
	ActorStatsTTL        time.Duration
	ActorSampleSize      int
	AssetSampleSize      int
	TimelineDefaultLimit int
	TimelineMaxLimit     int
	TopActors            int
}

// DefaultStatsConfig returns the standard sample sizes.
func DefaultStatsConfig() StatsConfig {
	return StatsConfig{
		ActorStatsTTL:        5 * time.Minute,
		ActorSampleSize:      100,
		AssetSampleSize:      500,
		TimelineDefaultLimit: 100,
		TimelineMaxLimit:     500,
		TopActors:            10,
	}
}

// StatsConfigFrom maps the scoring config section, keeping defaults for unset values.
func StatsConfigFrom(cfg config.ScoringConfig) StatsConfig {
	sc := DefaultStatsConfig()
	if ttl := cfg.ActorStatsTTLDuration(); ttl > 0 {
		sc.ActorStatsTTL = ttl
	}
	if cfg.ActorSampleSize > 0 {
		sc.ActorSampleSize = cfg.ActorSampleSize
	}
	if cfg.AssetSampleSize > 0 {
		sc.AssetSampleSize = cfg.AssetSampleSize
	}
	if cfg.TimelineDefaultLimit > 0 {
		sc.TimelineDefaultLimit = cfg.TimelineDefaultLimit
	}
	if cfg.TimelineMaxLimit > 0 {
		sc.TimelineMaxLimit = cfg.TimelineMaxLimit
	}
	if cfg.TopActors > 0 {
		sc.TopActors = cfg.TopActors
	}
	return sc
}

// StatsService answers aggregate and timeline queries over stored records.
type StatsService struct {
	store   RecordStore
	cache   ActorStatsStore
	config  StatsConfig
	logger  *logrus.Logger
	metrics *metrics.Metrics
	tracer  *telemetry.BusinessTracer
	now     func() time.Time
}

// NewStatsService creates a stats service. A nil cache disables actor stats caching.
func NewStatsService(store RecordStore, statsCache ActorStatsStore, cfg StatsConfig, logger *logrus.Logger) *StatsService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &StatsService{
		store:  store,
		cache:  statsCache,
		config: cfg,
		logger: logger,
		tracer: telemetry.NewBusinessTracer(nil),
		now:    time.Now,
	}
}

// WithClock replaces the clock used for freshness checks and LastUpdated.
func (s *StatsService) WithClock(now func() time.Time) *StatsService {
	s.now = now
	return s
}

func (s *StatsService) WithMetrics(m *metrics.Metrics) *StatsService {
	s.metrics = m
	return s
}

func (s *StatsService) WithTracer(t *telemetry.BusinessTracer) *StatsService {
	s.tracer = t
	return s
}

// GetActorStats returns cached stats younger than the TTL, otherwise recomputes
// them. Cache failures are logged and fall through to recomputation.
func (s *StatsService) GetActorStats(ctx context.Context, actorID string) (*models.ActorIPSStats, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, actorID)
		switch {
		case err == nil && s.now().Sub(cached.LastUpdated) < s.config.ActorStatsTTL:
			s.metrics.ObserveActorStatsCache(metrics.CacheHit)
			return cached, nil
		case err == nil, errors.Is(err, cache.ErrCacheMiss):
			s.metrics.ObserveActorStatsCache(metrics.CacheMiss)
		default:
			s.metrics.ObserveActorStatsCache(metrics.CacheError)
			s.logger.WithFields(logrus.Fields{
				"actor_id": actorID,
				"error":    err.Error(),
			}).Warn("Failed to read cached actor stats")
		}
	}

	return s.RecalculateActorStats(ctx, actorID)
}

// RecalculateActorStats recomputes actor stats from the latest records and
// overwrites the cache, regardless of freshness.
func (s *StatsService) RecalculateActorStats(ctx context.Context, actorID string) (*models.ActorIPSStats, error) {
	ctx, span := s.tracer.TraceStatsRecompute(ctx, "actor", actorID)
	defer span.End()

	records, err := s.store.ListByActor(ctx, actorID, s.config.ActorSampleSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load records for actor %s: %w", actorID, err)
	}

	stats := BuildActorStats(actorID, records, s.now())

	if s.cache != nil {
		if err := s.cache.Save(ctx, stats); err != nil {
			s.logger.WithFields(logrus.Fields{
				"actor_id": actorID,
				"error":    err.Error(),
			}).Warn("Failed to cache actor stats")
		}
	}

	return stats, nil
}

// GetAssetStats always recomputes from the asset's latest records.
func (s *StatsService) GetAssetStats(ctx context.Context, asset string) (*models.AssetIPSStats, error) {
	asset = capture.NormalizeAsset(asset)

	ctx, span := s.tracer.TraceStatsRecompute(ctx, "asset", asset)
	defer span.End()

	records, err := s.store.ListByAsset(ctx, asset, s.config.AssetSampleSize)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to load records for asset %s: %w", asset, err)
	}

	return BuildAssetStats(asset, records, s.config.TopActors), nil
}

// GetTimeline returns records matching filter, newest first. The asset is
// normalised and the limit defaulted and capped.
func (s *StatsService) GetTimeline(ctx context.Context, filter models.TimelineFilter) ([]models.IPSEventRecord, error) {
	records, err := s.store.Query(ctx, s.normalizeFilter(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to query timeline: %w", err)
	}
	return records, nil
}

// GetTimelineStats summarises the IPS distribution of the capped timeline result.
func (s *StatsService) GetTimelineStats(ctx context.Context, filter models.TimelineFilter) (*models.TimelineStats, error) {
	records, err := s.GetTimeline(ctx, filter)
	if err != nil {
		return nil, err
	}

	scores := make([]float64, len(records))
	for i, rec := range records {
		scores[i] = rec.IPS
	}
	d := scoring.Describe(scores)

	return &models.TimelineStats{N: d.N, AvgIPS: d.Avg, P50: d.P50, P90: d.P90}, nil
}

// GetWindowStats counts stored windows by whether they had closed when scored.
// Due counts the open ones whose window has ended since.
func (s *StatsService) GetWindowStats(ctx context.Context) (models.WindowStats, error) {
	stats, err := s.store.CountWindows(ctx, s.now().UnixMilli())
	if err != nil {
		return models.WindowStats{}, fmt.Errorf("failed to load window stats: %w", err)
	}
	return stats, nil
}

func (s *StatsService) normalizeFilter(filter models.TimelineFilter) models.TimelineFilter {
	if filter.Asset != "" {
		filter.Asset = capture.NormalizeAsset(filter.Asset)
	}
	switch {
	case filter.Limit <= 0:
		filter.Limit = s.config.TimelineDefaultLimit
	case filter.Limit > s.config.TimelineMaxLimit:
		filter.Limit = s.config.TimelineMaxLimit
	}
	return filter
}
