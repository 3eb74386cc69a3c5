package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/celebrum-ips/internal/capture"
	"github.com/irfndi/celebrum-ips/internal/market"
	"github.com/irfndi/celebrum-ips/internal/metrics"
	"github.com/irfndi/celebrum-ips/internal/models"
	"github.com/irfndi/celebrum-ips/internal/scoring"
	"github.com/irfndi/celebrum-ips/internal/telemetry"
)

// Record meta keys.
const (
	MetaEventType    = "eventType"
	MetaReach        = "reach"
	MetaContentHash  = "contentHash"
	MetaProjectID    = "projectId"
	MetaWindowMs     = "windowMs"
	MetaAuthority    = "authority"
	MetaHistoryCount = "historyCount"
)

// IPSEngine scores captured events against every window and persists the results.
type IPSEngine struct {
	extractor *capture.Extractor
	provider  market.Provider
	store     RecordStore
	stats     *StatsService
	history   HistoryProvider
	crowd     CrowdProvider
	windows   []models.Window
	logger    *logrus.Logger
	metrics   *metrics.Metrics
	tracer    *telemetry.BusinessTracer
	now       func() time.Time
}

// NewIPSEngine wires an engine with store-backed history and zero crowd context.
// stats may be nil, in which case actor stats are not refreshed after scoring.
func NewIPSEngine(provider market.Provider, store RecordStore, stats *StatsService, logger *logrus.Logger) *IPSEngine {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &IPSEngine{
		extractor: capture.NewExtractor(nil),
		provider:  provider,
		store:     store,
		stats:     stats,
		history:   NewStoreHistoryProvider(store, DefaultStatsConfig().ActorSampleSize),
		crowd:     ZeroCrowdProvider{},
		windows:   models.Windows,
		logger:    logger,
		tracer:    telemetry.NewBusinessTracer(nil),
		now:       time.Now,
	}
}

func (e *IPSEngine) WithExtractor(x *capture.Extractor) *IPSEngine {
	e.extractor = x
	return e
}

func (e *IPSEngine) WithHistoryProvider(h HistoryProvider) *IPSEngine {
	e.history = h
	return e
}

func (e *IPSEngine) WithCrowdProvider(c CrowdProvider) *IPSEngine {
	e.crowd = c
	return e
}

func (e *IPSEngine) WithMetrics(m *metrics.Metrics) *IPSEngine {
	e.metrics = m
	return e
}

func (e *IPSEngine) WithTracer(t *telemetry.BusinessTracer) *IPSEngine {
	e.tracer = t
	return e
}

// WithClock sets the clock used to decide whether a window had closed at scoring time.
func (e *IPSEngine) WithClock(now func() time.Time) *IPSEngine {
	e.now = now
	return e
}

// ProcessEvent captures post and scores it under every window.
//
// A filtered post returns nil records and a nil error without touching the
// store. Windows whose snapshot is unavailable are logged and skipped. Upsert
// failures are joined into the returned error next to the records that were
// persisted.
func (e *IPSEngine) ProcessEvent(ctx context.Context, post models.RawPost, reality *models.RealityContext) ([]models.IPSEventRecord, error) {
	event := e.captureEvent(post)
	if event == nil {
		return nil, nil
	}
	return e.process(ctx, event, reality)
}

func (e *IPSEngine) captureEvent(post models.RawPost) *models.Event {
	event, err := e.extractor.Extract(post)
	if err != nil {
		e.metrics.ObserveEvent(metrics.EventFiltered)
		e.logger.WithFields(logrus.Fields{
			"actor_id": post.ActorID,
			"reason":   err.Error(),
		}).Debug("Post filtered")
		return nil
	}
	return event
}

func (e *IPSEngine) process(ctx context.Context, event *models.Event, reality *models.RealityContext) ([]models.IPSEventRecord, error) {
	ctx, span := e.tracer.TraceEventScoring(ctx, event)
	defer span.End()

	history := e.loadHistory(ctx, event)

	results := make([]*models.IPSEventRecord, len(e.windows))
	errs := make([]error, len(e.windows))

	var g errgroup.Group
	for i, window := range e.windows {
		g.Go(func() error {
			results[i], errs[i] = e.evaluateWindow(ctx, event, window, reality, history)
			return nil
		})
	}
	_ = g.Wait()

	records := make([]models.IPSEventRecord, 0, len(e.windows))
	for _, rec := range results {
		if rec != nil {
			records = append(records, *rec)
		}
	}
	persistErr := errors.Join(errs...)
	telemetry.RecordError(span, persistErr)

	if len(records) > 0 {
		e.metrics.ObserveEvent(metrics.EventScored)
		e.refreshActorStats(ctx, event)
	} else {
		e.metrics.ObserveEvent(metrics.EventFailed)
	}

	return records, persistErr
}

// loadHistory returns nil when the history provider fails; scoring then uses neutral consistency.
func (e *IPSEngine) loadHistory(ctx context.Context, event *models.Event) *models.HistoricalContext {
	history, err := e.history.History(ctx, event)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"actor_id": event.ActorID,
			"error":    err.Error(),
		}).Warn("Failed to load actor history, scoring without it")
		return nil
	}
	return history
}

// evaluateWindow returns a nil record and nil error when the window is skipped.
// The only error it returns is a persistence failure.
func (e *IPSEngine) evaluateWindow(ctx context.Context, event *models.Event, window models.Window, reality *models.RealityContext, history *models.HistoricalContext) (*models.IPSEventRecord, error) {
	ctx, span := e.tracer.TraceWindowEvaluation(ctx, event, window)
	defer span.End()

	from := time.UnixMilli(event.Timestamp)
	to := from.Add(window.Duration())

	start := time.Now()
	snapshot, err := e.provider.Snapshot(ctx, event.Asset, from, to)
	e.metrics.ObserveSnapshot(string(window), time.Since(start))
	if err == nil && !snapshot.Usable() {
		err = market.ErrUnusableSnapshot
	}
	if err != nil {
		e.skipWindow(event, window, err)
		return nil, nil
	}

	crowd, err := e.crowd.Crowd(ctx, event, window)
	if err != nil {
		e.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"window":   window,
			"error":    err.Error(),
		}).Warn("Failed to load crowd context, scoring without it")
		crowd = nil
	}

	historyCount := 0
	if history != nil {
		historyCount = history.EventCount
	}

	result := scoring.Evaluate(scoring.FactorInput{
		EventType:      event.EventType,
		Snapshot:       *snapshot,
		EventTimestamp: event.Timestamp,
		WindowMs:       window.Millis(),
		Reality:        reality,
		Historical:     history,
		Crowd:          crowd,
	}, historyCount)

	rec := &models.IPSEventRecord{
		EventID:   event.ID,
		Window:    window,
		ActorID:   event.ActorID,
		Asset:     event.Asset,
		Timestamp: event.Timestamp,
		Outcome:   result.Outcome,
		IPS:       result.IPS,
		Verdict:   result.Verdict,
		Factors:   result.Factors,
		Snapshot:  *snapshot,
		Meta: map[string]interface{}{
			MetaEventType:    string(event.EventType),
			MetaReach:        event.Reach,
			MetaContentHash:  event.ContentHash,
			MetaWindowMs:     window.Millis(),
			MetaAuthority:    result.Authority,
			MetaHistoryCount: historyCount,
		},
		WindowClosed: !to.After(e.now()),
	}
	if event.ProjectID != "" {
		rec.Meta[MetaProjectID] = event.ProjectID
	}
	if reality != nil {
		r := *reality
		rec.Reality = &r
	}

	if err := e.store.Upsert(ctx, rec); err != nil {
		e.metrics.ObserveWindow(string(window), metrics.WindowFailed)
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to persist %s window for event %s: %w", window, event.ID, err)
	}

	e.metrics.ObserveWindow(string(window), metrics.WindowScored)
	e.metrics.ObserveScore(string(window), rec.IPS)
	e.tracer.RecordWindowResult(span, rec)

	return rec, nil
}

func (e *IPSEngine) skipWindow(event *models.Event, window models.Window, err error) {
	e.metrics.ObserveWindow(string(window), metrics.WindowSkipped)
	e.logger.WithFields(logrus.Fields{
		"event_id": event.ID,
		"window":   window,
		"asset":    event.Asset,
		"actor_id": event.ActorID,
		"error":    err.Error(),
	}).Warn("Skipping window: market snapshot unavailable")
}

// refreshActorStats recomputes stats after new records land. Failures are only logged.
func (e *IPSEngine) refreshActorStats(ctx context.Context, event *models.Event) {
	if e.stats == nil {
		return
	}
	if _, err := e.stats.RecalculateActorStats(ctx, event.ActorID); err != nil {
		e.logger.WithFields(logrus.Fields{
			"event_id": event.ID,
			"actor_id": event.ActorID,
			"error":    err.Error(),
		}).Warn("Failed to refresh actor stats")
	}
}
