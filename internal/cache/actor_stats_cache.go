// Package cache stores derived actor aggregates. Entries are disposable:
// everything here can be rebuilt from persisted records.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// ErrCacheMiss is returned when no stats are cached for an actor.
var ErrCacheMiss = errors.New("actor stats not cached")

// DefaultRetention bounds how long Redis keeps an entry. Freshness is decided
// by the caller from LastUpdated; retention only reclaims memory.
const DefaultRetention = 24 * time.Hour

// actorStatsEntry is the JSON stored per actor.
type actorStatsEntry struct {
	Stats    models.ActorIPSStats `json:"stats"`
	CachedAt time.Time            `json:"cached_at"`
}

// RedisActorStatsCache keeps actor stats as JSON under ips:actor_stats:<actorId>.
type RedisActorStatsCache struct {
	redis     *redis.Client
	retention time.Duration
	prefix    string
}

func NewRedisActorStatsCache(redisClient *redis.Client, retention time.Duration) *RedisActorStatsCache {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &RedisActorStatsCache{
		redis:     redisClient,
		retention: retention,
		prefix:    "ips:actor_stats:",
	}
}

func (c *RedisActorStatsCache) key(actorID string) string {
	return c.prefix + actorID
}

func (c *RedisActorStatsCache) Get(ctx context.Context, actorID string) (*models.ActorIPSStats, error) {
	data, err := c.redis.Get(ctx, c.key(actorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read actor stats for %s: %w", actorID, err)
	}

	var entry actorStatsEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode actor stats for %s: %w", actorID, err)
	}
	return &entry.Stats, nil
}

func (c *RedisActorStatsCache) Save(ctx context.Context, stats *models.ActorIPSStats) error {
	data, err := json.Marshal(actorStatsEntry{Stats: *stats, CachedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode actor stats for %s: %w", stats.ActorID, err)
	}
	if err := c.redis.Set(ctx, c.key(stats.ActorID), data, c.retention).Err(); err != nil {
		return fmt.Errorf("failed to write actor stats for %s: %w", stats.ActorID, err)
	}
	return nil
}

func (c *RedisActorStatsCache) Delete(ctx context.Context, actorID string) error {
	if err := c.redis.Del(ctx, c.key(actorID)).Err(); err != nil {
		return fmt.Errorf("failed to delete actor stats for %s: %w", actorID, err)
	}
	return nil
}

// Clear removes every cached actor entry.
func (c *RedisActorStatsCache) Clear(ctx context.Context) error {
	var keys []string
	iter := c.redis.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("error scanning cache keys: %w", err)
	}
	if len(keys) == 0 {
		return nil
	}
	if err := c.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("error clearing cache: %w", err)
	}
	return nil
}

// MemoryActorStatsCache is an in-process cache for single-node deployments.
type MemoryActorStatsCache struct {
	mu      sync.RWMutex
	entries map[string]models.ActorIPSStats
}

func NewMemoryActorStatsCache() *MemoryActorStatsCache {
	return &MemoryActorStatsCache{entries: make(map[string]models.ActorIPSStats)}
}

func (c *MemoryActorStatsCache) Get(ctx context.Context, actorID string) (*models.ActorIPSStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats, ok := c.entries[actorID]
	if !ok {
		return nil, ErrCacheMiss
	}
	out := cloneStats(stats)
	return &out, nil
}

func (c *MemoryActorStatsCache) Save(ctx context.Context, stats *models.ActorIPSStats) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[stats.ActorID] = cloneStats(*stats)
	return nil
}

func (c *MemoryActorStatsCache) Delete(ctx context.Context, actorID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, actorID)
	return nil
}

// Len returns the number of cached actors.
func (c *MemoryActorStatsCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func cloneStats(s models.ActorIPSStats) models.ActorIPSStats {
	out := s
	if s.ByWindow != nil {
		out.ByWindow = make(map[models.Window]models.WindowBreakdown, len(s.ByWindow))
		for k, v := range s.ByWindow {
			out.ByWindow[k] = v
		}
	}
	if s.ByOutcome != nil {
		out.ByOutcome = make(map[models.Outcome]int, len(s.ByOutcome))
		for k, v := range s.ByOutcome {
			out.ByOutcome[k] = v
		}
	}
	return out
}
