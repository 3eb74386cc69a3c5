package services

import (
	"context"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// RecordStore persists scored records. Implementations must be safe for
// concurrent use and return records ordered by timestamp descending, except
// ListDue which orders by window end ascending.
type RecordStore interface {
	Upsert(ctx context.Context, rec *models.IPSEventRecord) error
	ListByActor(ctx context.Context, actorID string, limit int) ([]models.IPSEventRecord, error)
	ListByAsset(ctx context.Context, asset string, limit int) ([]models.IPSEventRecord, error)
	Query(ctx context.Context, filter models.TimelineFilter) ([]models.IPSEventRecord, error)
	// ListDue returns records scored over an open window that has ended by closedBy (epoch ms).
	ListDue(ctx context.Context, closedBy int64, limit int) ([]models.IPSEventRecord, error)
	CountWindows(ctx context.Context, now int64) (models.WindowStats, error)
}

// ActorStatsStore caches actor aggregates. Get returns cache.ErrCacheMiss when absent.
type ActorStatsStore interface {
	Get(ctx context.Context, actorID string) (*models.ActorIPSStats, error)
	Save(ctx context.Context, stats *models.ActorIPSStats) error
	Delete(ctx context.Context, actorID string) error
}

// HistoryProvider supplies an actor's track record ahead of scoring an event.
type HistoryProvider interface {
	History(ctx context.Context, event *models.Event) (*models.HistoricalContext, error)
}

// CrowdProvider supplies crowd activity around an event for one window.
type CrowdProvider interface {
	Crowd(ctx context.Context, event *models.Event, window models.Window) (*models.CrowdContext, error)
}
