package services

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// MockRecordStore implements RecordStore for testing within the services package
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) Upsert(ctx context.Context, rec *models.IPSEventRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockRecordStore) ListByActor(ctx context.Context, actorID string, limit int) ([]models.IPSEventRecord, error) {
	args := m.Called(ctx, actorID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IPSEventRecord), args.Error(1)
}

func (m *MockRecordStore) ListByAsset(ctx context.Context, asset string, limit int) ([]models.IPSEventRecord, error) {
	args := m.Called(ctx, asset, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IPSEventRecord), args.Error(1)
}

func (m *MockRecordStore) Query(ctx context.Context, filter models.TimelineFilter) ([]models.IPSEventRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IPSEventRecord), args.Error(1)
}

func (m *MockRecordStore) ListDue(ctx context.Context, closedBy int64, limit int) ([]models.IPSEventRecord, error) {
	args := m.Called(ctx, closedBy, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.IPSEventRecord), args.Error(1)
}

func (m *MockRecordStore) CountWindows(ctx context.Context, now int64) (models.WindowStats, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(models.WindowStats), args.Error(1)
}

// MockActorStatsStore implements ActorStatsStore for testing within the services package
type MockActorStatsStore struct {
	mock.Mock
}

func (m *MockActorStatsStore) Get(ctx context.Context, actorID string) (*models.ActorIPSStats, error) {
	args := m.Called(ctx, actorID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ActorIPSStats), args.Error(1)
}

func (m *MockActorStatsStore) Save(ctx context.Context, stats *models.ActorIPSStats) error {
	args := m.Called(ctx, stats)
	return args.Error(0)
}

func (m *MockActorStatsStore) Delete(ctx context.Context, actorID string) error {
	args := m.Called(ctx, actorID)
	return args.Error(0)
}

func record(eventID string, window models.Window, actor, asset string, ts int64, ips float64, outcome models.Outcome) models.IPSEventRecord {
	return models.IPSEventRecord{
		EventID:   eventID,
		Window:    window,
		ActorID:   actor,
		Asset:     asset,
		Timestamp: ts,
		Outcome:   outcome,
		IPS:       ips,
		Verdict:   models.VerdictMixed,
	}
}
