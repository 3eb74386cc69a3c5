package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/celebrum-ips/internal/models"
)

const businessTracerName = "github.com/irfndi/celebrum-ips/internal/services"

// BusinessTracer provides spans for scoring operations.
type BusinessTracer struct {
	tracer trace.Tracer
}

// NewBusinessTracer creates a BusinessTracer on tp, or on the global provider when tp is nil.
func NewBusinessTracer(tp trace.TracerProvider) *BusinessTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &BusinessTracer{tracer: tp.Tracer(businessTracerName)}
}

// TraceEventScoring starts the parent span for one captured event.
func (bt *BusinessTracer) TraceEventScoring(ctx context.Context, event *models.Event) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "ips.process_event",
		trace.WithAttributes(
			attribute.String("ips.event_id", event.ID),
			attribute.String("ips.actor_id", event.ActorID),
			attribute.String("ips.asset", event.Asset),
			attribute.String("ips.event_type", string(event.EventType)),
		),
	)
}

// TraceWindowEvaluation starts a child span for scoring one window.
func (bt *BusinessTracer) TraceWindowEvaluation(ctx context.Context, event *models.Event, window models.Window) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "ips.evaluate_window",
		trace.WithAttributes(
			attribute.String("ips.event_id", event.ID),
			attribute.String("ips.window", string(window)),
		),
	)
}

// TraceReevaluation starts the parent span for one pass over windows that closed after scoring.
func (bt *BusinessTracer) TraceReevaluation(ctx context.Context, limit int) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "ips.reevaluate_open_windows",
		trace.WithAttributes(attribute.Int("ips.limit", limit)),
	)
}

// RecordWindowResult attaches the scored values to a window span.
func (bt *BusinessTracer) RecordWindowResult(span trace.Span, rec *models.IPSEventRecord) {
	span.SetAttributes(
		attribute.String("ips.outcome", string(rec.Outcome)),
		attribute.Float64("ips.score", rec.IPS),
		attribute.String("ips.verdict", string(rec.Verdict)),
	)
}

// TraceStatsRecompute starts a span for rebuilding an aggregate. scope is "actor" or "asset".
func (bt *BusinessTracer) TraceStatsRecompute(ctx context.Context, scope, key string) (context.Context, trace.Span) {
	return bt.tracer.Start(ctx, "ips.recompute_"+scope+"_stats",
		trace.WithAttributes(attribute.String("ips.stats_key", key)),
	)
}
