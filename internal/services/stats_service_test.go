package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/celebrum-ips/internal/cache"
	"github.com/irfndi/celebrum-ips/internal/config"
	"github.com/irfndi/celebrum-ips/internal/logging"
	"github.com/irfndi/celebrum-ips/internal/metrics"
	"github.com/irfndi/celebrum-ips/internal/models"
)

func newTestStatsService(store RecordStore, statsCache ActorStatsStore, now *time.Time) *StatsService {
	return NewStatsService(store, statsCache, DefaultStatsConfig(), logging.Discard()).
		WithClock(func() time.Time { return *now })
}

func actorSample() []models.IPSEventRecord {
	return []models.IPSEventRecord{
		record("e1", models.Window1H, "alice", "BTC", 3, 0.7, models.OutcomePositiveMove),
		record("e2", models.Window1H, "alice", "BTC", 2, 0.8, models.OutcomePositiveMove),
		record("e3", models.Window1H, "alice", "BTC", 1, 0.9, models.OutcomePositiveMove),
	}
}

func TestStatsConfigFrom(t *testing.T) {
	sc := StatsConfigFrom(config.ScoringConfig{
		ActorStatsTTL:   "10m",
		ActorSampleSize: 50,
		TopActors:       3,
	})

	assert.Equal(t, 10*time.Minute, sc.ActorStatsTTL)
	assert.Equal(t, 50, sc.ActorSampleSize)
	assert.Equal(t, 500, sc.AssetSampleSize)
	assert.Equal(t, 100, sc.TimelineDefaultLimit)
	assert.Equal(t, 500, sc.TimelineMaxLimit)
	assert.Equal(t, 3, sc.TopActors)
}

func TestGetActorStats(t *testing.T) {
	ctx := context.Background()

	t.Run("computes on miss and serves from cache while fresh", func(t *testing.T) {
		now := fixedNow
		store := new(MockRecordStore)
		store.On("ListByActor", mock.Anything, "alice", 100).Return(actorSample(), nil).Once()

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		svc := newTestStatsService(store, cache.NewMemoryActorStatsCache(), &now).WithMetrics(m)

		first, err := svc.GetActorStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 3, first.TotalEvents)
		assert.Equal(t, 0.8, first.AvgIPS)
		assert.Equal(t, models.VerdictInformed, first.Verdict)

		now = now.Add(4*time.Minute + 59*time.Second)
		second, err := svc.GetActorStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, first, second)

		store.AssertExpectations(t)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ActorStatsCache.WithLabelValues(metrics.CacheMiss)))
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ActorStatsCache.WithLabelValues(metrics.CacheHit)))
	})

	t.Run("recomputes when stale", func(t *testing.T) {
		now := fixedNow
		store := new(MockRecordStore)
		store.On("ListByActor", mock.Anything, "alice", 100).Return(actorSample(), nil).Twice()

		svc := newTestStatsService(store, cache.NewMemoryActorStatsCache(), &now)

		_, err := svc.GetActorStats(ctx, "alice")
		require.NoError(t, err)

		now = now.Add(5 * time.Minute)
		stats, err := svc.GetActorStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, now, stats.LastUpdated)

		store.AssertExpectations(t)
	})

	t.Run("cache errors degrade to recomputation", func(t *testing.T) {
		now := fixedNow
		store := new(MockRecordStore)
		store.On("ListByActor", mock.Anything, "alice", 100).Return(actorSample(), nil)

		statsCache := new(MockActorStatsStore)
		statsCache.On("Get", mock.Anything, "alice").Return(nil, errors.New("redis down"))
		statsCache.On("Save", mock.Anything, mock.AnythingOfType("*models.ActorIPSStats")).Return(errors.New("redis down"))

		reg := prometheus.NewRegistry()
		m := metrics.New(reg)
		svc := newTestStatsService(store, statsCache, &now).WithMetrics(m)

		stats, err := svc.GetActorStats(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalEvents)
		assert.Equal(t, 1.0, testutil.ToFloat64(m.ActorStatsCache.WithLabelValues(metrics.CacheError)))

		statsCache.AssertExpectations(t)
	})

	t.Run("store errors are returned", func(t *testing.T) {
		now := fixedNow
		store := new(MockRecordStore)
		store.On("ListByActor", mock.Anything, "alice", 100).Return(nil, errors.New("connection refused"))

		svc := newTestStatsService(store, nil, &now)

		_, err := svc.GetActorStats(ctx, "alice")
		assert.ErrorContains(t, err, "connection refused")
	})
}

func TestRecalculateActorStatsBypassesFreshness(t *testing.T) {
	ctx := context.Background()
	now := fixedNow

	store := new(MockRecordStore)
	store.On("ListByActor", mock.Anything, "alice", 100).Return(actorSample()[:1], nil).Once()
	store.On("ListByActor", mock.Anything, "alice", 100).Return(actorSample(), nil).Once()

	statsCache := cache.NewMemoryActorStatsCache()
	svc := newTestStatsService(store, statsCache, &now)

	first, err := svc.GetActorStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, first.TotalEvents)

	recalculated, err := svc.RecalculateActorStats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, recalculated.TotalEvents)

	cached, err := statsCache.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, recalculated, cached)
	store.AssertExpectations(t)
}

func TestGetAssetStats(t *testing.T) {
	ctx := context.Background()
	now := fixedNow

	store := new(MockRecordStore)
	store.On("ListByAsset", mock.Anything, "BTC", 500).Return([]models.IPSEventRecord{
		record("e1", models.Window1H, "alice", "BTC", 2, 0.8, models.OutcomePositiveMove),
		record("e2", models.Window1H, "bob", "BTC", 1, 0.4, models.OutcomeNoEffect),
	}, nil).Twice()

	svc := newTestStatsService(store, nil, &now)

	stats, err := svc.GetAssetStats(ctx, " btc ")
	require.NoError(t, err)
	assert.Equal(t, "BTC", stats.Asset)
	assert.Equal(t, 2, stats.TotalEvents)
	assert.Equal(t, 0.6, stats.AvgIPS)
	require.Len(t, stats.TopActors, 2)
	assert.Equal(t, "alice", stats.TopActors[0].ActorID)

	// never cached
	_, err = svc.GetAssetStats(ctx, "BTC")
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestGetTimelineNormalizesFilter(t *testing.T) {
	ctx := context.Background()
	now := fixedNow

	tests := []struct {
		name  string
		in    models.TimelineFilter
		limit int
		asset string
	}{
		{"default limit", models.TimelineFilter{Asset: "eth"}, 100, "ETH"},
		{"cap", models.TimelineFilter{Limit: 10_000}, 500, ""},
		{"within bounds", models.TimelineFilter{Limit: 25, Asset: "Sol"}, 25, "SOL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockRecordStore)
			store.On("Query", mock.Anything, mock.MatchedBy(func(f models.TimelineFilter) bool {
				return f.Limit == tt.limit && f.Asset == tt.asset
			})).Return([]models.IPSEventRecord{}, nil)

			svc := newTestStatsService(store, nil, &now)
			records, err := svc.GetTimeline(ctx, tt.in)
			require.NoError(t, err)
			assert.Empty(t, records)
			store.AssertExpectations(t)
		})
	}
}

func TestGetTimelineStats(t *testing.T) {
	ctx := context.Background()
	now := fixedNow

	records := []models.IPSEventRecord{
		record("e1", models.Window1H, "alice", "BTC", 4, 0.2, models.OutcomeNoEffect),
		record("e2", models.Window1H, "alice", "BTC", 3, 0.9, models.OutcomePositiveMove),
		record("e3", models.Window1H, "alice", "BTC", 2, 0.4, models.OutcomeNoEffect),
		record("e4", models.Window1H, "alice", "BTC", 1, 0.7, models.OutcomePositiveMove),
	}

	store := new(MockRecordStore)
	store.On("Query", mock.Anything, mock.Anything).Return(records, nil)

	svc := newTestStatsService(store, nil, &now)
	stats, err := svc.GetTimelineStats(ctx, models.TimelineFilter{ActorID: "alice"})
	require.NoError(t, err)

	assert.Equal(t, &models.TimelineStats{N: 4, AvgIPS: 0.55, P50: 0.7, P90: 0.9}, stats)
}

func TestGetTimelineStatsEmpty(t *testing.T) {
	now := fixedNow
	store := new(MockRecordStore)
	store.On("Query", mock.Anything, mock.Anything).Return(nil, nil)

	svc := newTestStatsService(store, nil, &now)
	stats, err := svc.GetTimelineStats(context.Background(), models.TimelineFilter{})
	require.NoError(t, err)
	assert.Equal(t, &models.TimelineStats{}, stats)
}

func TestGetWindowStats(t *testing.T) {
	ctx := context.Background()
	now := fixedNow

	store := new(MockRecordStore)
	store.On("CountWindows", mock.Anything, fixedNow.UnixMilli()).Return(models.WindowStats{Total: 5, Closed: 3, Open: 2, Due: 1}, nil).Once()
	svc := newTestStatsService(store, nil, &now)

	stats, err := svc.GetWindowStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.WindowStats{Total: 5, Closed: 3, Open: 2, Due: 1}, stats)

	store.On("CountWindows", mock.Anything, mock.Anything).Return(models.WindowStats{}, errors.New("timeout")).Once()
	_, err = svc.GetWindowStats(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load window stats")
	store.AssertExpectations(t)
}
