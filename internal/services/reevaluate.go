package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-ips/internal/models"
	"github.com/irfndi/celebrum-ips/internal/telemetry"
)

// Re-evaluation batch bounds.
const (
	DefaultReevaluateLimit = 100
	MaxReevaluateLimit     = 500
)

// ReevaluationResult summarises one pass over windows that closed after they were scored.
type ReevaluationResult struct {
	Due      int                     `json:"due"`
	Skipped  int                     `json:"skipped"`
	Records  []models.IPSEventRecord `json:"records"`
	Failures []EventFailure          `json:"-"`
}

// Err joins the per-record failures, or returns nil.
func (r *ReevaluationResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// ReevaluateOpenWindows rescores up to limit records whose window was still
// running when they were scored and has since closed. Each record is
// overwritten in place with a full-window snapshot. Records whose snapshot is
// still unavailable stay open and are picked up by a later pass.
func (e *IPSEngine) ReevaluateOpenWindows(ctx context.Context, limit int) (*ReevaluationResult, error) {
	if limit <= 0 {
		limit = DefaultReevaluateLimit
	}
	if limit > MaxReevaluateLimit {
		limit = MaxReevaluateLimit
	}

	ctx, span := e.tracer.TraceReevaluation(ctx, limit)
	defer span.End()

	due, err := e.store.ListDue(ctx, e.now().UnixMilli(), limit)
	if err != nil {
		err = fmt.Errorf("failed to list open windows: %w", err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	result := &ReevaluationResult{
		Due:     len(due),
		Records: make([]models.IPSEventRecord, 0, len(due)),
	}
	histories := make(map[string]*models.HistoricalContext)
	var actors []*models.Event
	seenActors := make(map[string]struct{})

	for i := range due {
		rec := &due[i]
		if err := ctx.Err(); err != nil {
			result.Failures = append(result.Failures, EventFailure{EventID: rec.EventID, Err: err})
			break
		}

		event := EventFromRecord(rec)
		history, ok := histories[event.ID]
		if !ok {
			history = e.loadHistory(ctx, event)
			histories[event.ID] = history
		}

		updated, err := e.evaluateWindow(ctx, event, rec.Window, rec.Reality, history)
		switch {
		case err != nil:
			result.Failures = append(result.Failures, EventFailure{EventID: rec.EventID, Err: err})
		case updated == nil:
			result.Skipped++
		default:
			result.Records = append(result.Records, *updated)
			if _, ok := seenActors[event.ActorID]; !ok {
				seenActors[event.ActorID] = struct{}{}
				actors = append(actors, event)
			}
		}
	}

	for _, event := range actors {
		e.refreshActorStats(ctx, event)
	}

	e.logger.WithFields(logrus.Fields{
		"due":          result.Due,
		"reevaluated":  len(result.Records),
		"skipped":      result.Skipped,
		"failures":     len(result.Failures),
		"actors_fresh": len(actors),
	}).Info("Open windows re-evaluated")

	err = result.Err()
	telemetry.RecordError(span, err)
	return result, err
}

// EventFromRecord rebuilds the captured event a record was scored from.
// Fields that only live in Meta fall back to their capture defaults.
func EventFromRecord(rec *models.IPSEventRecord) *models.Event {
	eventType := models.EventType(metaString(rec.Meta, MetaEventType))
	if !eventType.IsValid() {
		eventType = models.EventTypeTweet
	}
	return &models.Event{
		ID:          rec.EventID,
		ActorID:     rec.ActorID,
		EventType:   eventType,
		Asset:       rec.Asset,
		ProjectID:   metaString(rec.Meta, MetaProjectID),
		Timestamp:   rec.Timestamp,
		ContentHash: metaString(rec.Meta, MetaContentHash),
		Reach:       metaInt64(rec.Meta, MetaReach),
	}
}

func metaString(meta map[string]interface{}, key string) string {
	s, _ := meta[key].(string)
	return s
}

// metaInt64 accepts both in-memory integers and numbers decoded from JSON.
func metaInt64(meta map[string]interface{}, key string) int64 {
	switch v := meta[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	}
	return 0
}
