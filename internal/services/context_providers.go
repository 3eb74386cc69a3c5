package services

import (
	"context"
	"fmt"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// neutralAccuracy is reported until a real accuracy signal exists.
const neutralAccuracy = 0.5

// StoreHistoryProvider derives history from the actor's stored records.
// EventCount is the number of distinct events among the actor's sampleSize
// most recent records strictly earlier than the event being scored, so the
// result does not depend on the order events were processed in.
type StoreHistoryProvider struct {
	store      RecordStore
	sampleSize int
}

// NewStoreHistoryProvider creates a history provider reading sampleSize records.
func NewStoreHistoryProvider(store RecordStore, sampleSize int) *StoreHistoryProvider {
	if sampleSize <= 0 {
		sampleSize = DefaultStatsConfig().ActorSampleSize
	}
	return &StoreHistoryProvider{store: store, sampleSize: sampleSize}
}

func (p *StoreHistoryProvider) History(ctx context.Context, event *models.Event) (*models.HistoricalContext, error) {
	// To is inclusive and 0 means unbounded
	if event.Timestamp <= 1 {
		return &models.HistoricalContext{Accuracy: neutralAccuracy}, nil
	}

	records, err := p.store.Query(ctx, models.TimelineFilter{
		ActorID: event.ActorID,
		To:      event.Timestamp - 1,
		Limit:   p.sampleSize,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load history for actor %s: %w", event.ActorID, err)
	}

	seen := make(map[string]struct{}, len(records))
	for _, rec := range records {
		if rec.EventID == event.ID {
			continue
		}
		seen[rec.EventID] = struct{}{}
	}

	return &models.HistoricalContext{
		EventCount: len(seen),
		Accuracy:   neutralAccuracy,
	}, nil
}

// ZeroCrowdProvider reports no crowd activity, which scores as neutral independence.
type ZeroCrowdProvider struct{}

func (ZeroCrowdProvider) Crowd(context.Context, *models.Event, models.Window) (*models.CrowdContext, error) {
	return &models.CrowdContext{}, nil
}
