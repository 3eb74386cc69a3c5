package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// EventFailure records why an event in a batch did not fully persist.
type EventFailure struct {
	EventID string `json:"event_id"`
	Err     error  `json:"-"`
}

func (f EventFailure) Error() string {
	return fmt.Sprintf("event %s: %v", f.EventID, f.Err)
}

func (f EventFailure) Unwrap() error {
	return f.Err
}

// BatchResult summarises ProcessEvents.
type BatchResult struct {
	Records   []models.IPSEventRecord `json:"records"`
	Processed int                     `json:"processed"`
	Filtered  int                     `json:"filtered"`
	Failures  []EventFailure          `json:"-"`
}

// Err joins every event failure, or returns nil.
func (r *BatchResult) Err() error {
	if len(r.Failures) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failures))
	for i, f := range r.Failures {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// ProcessEvents scores posts one at a time. There is no batch atomicity: an
// event's persisted records stay persisted when a later event fails. Reality
// contexts are looked up by captured event id. Cancellation stops the batch
// before the next event.
func (e *IPSEngine) ProcessEvents(ctx context.Context, posts []models.RawPost, realityByEventID map[string]*models.RealityContext) *BatchResult {
	result := &BatchResult{Records: make([]models.IPSEventRecord, 0, len(posts)*len(e.windows))}

	for _, post := range posts {
		if err := ctx.Err(); err != nil {
			e.logger.WithFields(logrus.Fields{
				"remaining": len(posts) - result.Processed - result.Filtered,
				"error":     err.Error(),
			}).Warn("Batch cancelled")
			result.Failures = append(result.Failures, EventFailure{EventID: post.ID, Err: err})
			break
		}

		event := e.captureEvent(post)
		if event == nil {
			result.Filtered++
			continue
		}

		records, err := e.process(ctx, event, realityByEventID[event.ID])
		result.Processed++
		result.Records = append(result.Records, records...)
		if err != nil {
			result.Failures = append(result.Failures, EventFailure{EventID: event.ID, Err: err})
		}
	}

	e.logger.WithFields(logrus.Fields{
		"processed": result.Processed,
		"filtered":  result.Filtered,
		"records":   len(result.Records),
		"failures":  len(result.Failures),
	}).Info("Batch processed")

	return result
}
