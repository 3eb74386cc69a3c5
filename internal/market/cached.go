package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-ips/internal/metrics"
	"github.com/irfndi/celebrum-ips/internal/models"
)

// snapshotCacheEntry is the JSON stored per interval.
type snapshotCacheEntry struct {
	Snapshot models.MarketSnapshot `json:"snapshot"`
	CachedAt time.Time             `json:"cached_at"`
}

// CacheStats tracks snapshot cache performance
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Sets   int64 `json:"sets"`
	Errors int64 `json:"errors"`
}

// HitRate returns hits as a percentage of lookups.
func (s CacheStats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total) * 100
}

// CachedProvider memoises snapshots of closed intervals in Redis. Open intervals
// always go to the wrapped provider since their candles are still changing.
// Redis failures fall through to the wrapped provider.
type CachedProvider struct {
	next    Provider
	redis   *redis.Client
	ttl     time.Duration
	prefix  string
	now     func() time.Time
	logger  *logrus.Logger
	metrics *metrics.Metrics

	mu    sync.Mutex
	stats CacheStats
}

func NewCachedProvider(next Provider, redisClient *redis.Client, ttl time.Duration, logger *logrus.Logger, m *metrics.Metrics) *CachedProvider {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedProvider{
		next:    next,
		redis:   redisClient,
		ttl:     ttl,
		prefix:  "ips:snapshot:",
		now:     time.Now,
		logger:  logger,
		metrics: m,
	}
}

// WithClock replaces the clock used to decide whether an interval is closed.
func (p *CachedProvider) WithClock(now func() time.Time) *CachedProvider {
	p.now = now
	return p
}

func (p *CachedProvider) key(asset string, from, to time.Time) string {
	return fmt.Sprintf("%s%s:%d:%d", p.prefix, asset, from.UnixMilli(), to.UnixMilli())
}

func (p *CachedProvider) Snapshot(ctx context.Context, asset string, from, to time.Time) (*models.MarketSnapshot, error) {
	if to.After(p.now()) {
		return p.next.Snapshot(ctx, asset, from, to)
	}

	key := p.key(asset, from, to)
	if snapshot, ok := p.get(ctx, key); ok {
		return snapshot, nil
	}

	snapshot, err := p.next.Snapshot(ctx, asset, from, to)
	if err != nil {
		return nil, err
	}
	p.set(ctx, key, snapshot)
	return snapshot, nil
}

func (p *CachedProvider) get(ctx context.Context, key string) (*models.MarketSnapshot, bool) {
	data, err := p.redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		p.record(metrics.CacheMiss)
		return nil, false
	}
	if err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Snapshot cache read failed")
		p.record(metrics.CacheError)
		return nil, false
	}

	var entry snapshotCacheEntry
	if err := json.Unmarshal([]byte(data), &entry); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable snapshot cache entry")
		p.record(metrics.CacheError)
		return nil, false
	}

	p.record(metrics.CacheHit)
	return &entry.Snapshot, true
}

func (p *CachedProvider) set(ctx context.Context, key string, snapshot *models.MarketSnapshot) {
	data, err := json.Marshal(snapshotCacheEntry{Snapshot: *snapshot, CachedAt: p.now()})
	if err != nil {
		p.logger.WithError(err).Warn("Failed to encode snapshot for cache")
		return
	}
	if err := p.redis.Set(ctx, key, data, p.ttl).Err(); err != nil {
		p.logger.WithError(err).WithField("key", key).Warn("Snapshot cache write failed")
		p.mu.Lock()
		p.stats.Errors++
		p.mu.Unlock()
		p.metrics.ObserveSnapshotCache(metrics.CacheError)
		return
	}

	p.mu.Lock()
	p.stats.Sets++
	p.mu.Unlock()
}

// record counts the outcome of a lookup.
func (p *CachedProvider) record(result string) {
	p.mu.Lock()
	switch result {
	case metrics.CacheHit:
		p.stats.Hits++
	case metrics.CacheMiss:
		p.stats.Misses++
	default:
		p.stats.Errors++
		// an unreadable entry is still a lookup that missed
		p.stats.Misses++
	}
	p.mu.Unlock()
	p.metrics.ObserveSnapshotCache(result)
}

// Stats returns a copy of the cache counters.
func (p *CachedProvider) Stats() CacheStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// LogStats logs current cache performance statistics
func (p *CachedProvider) LogStats() {
	stats := p.Stats()
	p.logger.WithFields(logrus.Fields{
		"hits":     stats.Hits,
		"misses":   stats.Misses,
		"sets":     stats.Sets,
		"errors":   stats.Errors,
		"hit_rate": fmt.Sprintf("%.2f%%", stats.HitRate()),
	}).Info("Snapshot cache stats")
}
