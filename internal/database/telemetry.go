package database

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/irfndi/celebrum-ips/internal/telemetry"
)

const tracerName = "github.com/irfndi/celebrum-ips/internal/database"

// TracedPool wraps a DatabasePool and records a client span per statement.
type TracedPool struct {
	pool   DatabasePool
	tracer trace.Tracer
}

// NewTracedPool wraps pool using the global tracer provider when tp is nil.
func NewTracedPool(pool DatabasePool, tp trace.TracerProvider) *TracedPool {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &TracedPool{pool: pool, tracer: tp.Tracer(tracerName)}
}

func (p *TracedPool) start(ctx context.Context, op, sql string) (context.Context, trace.Span) {
	return p.tracer.Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", statementVerb(sql)),
			attribute.String("db.statement", strings.TrimSpace(sql)),
		),
	)
}

func (p *TracedPool) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := p.start(ctx, "query", sql)
	defer span.End()

	rows, err := p.pool.Query(ctx, sql, args...)
	telemetry.RecordError(span, err)
	return rows, err
}

// QueryRow ends its span when the returned row is scanned.
func (p *TracedPool) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := p.start(ctx, "query_row", sql)
	return &tracedRow{row: p.pool.QueryRow(ctx, sql, args...), span: span}
}

type tracedRow struct {
	row  pgx.Row
	span trace.Span
}

func (r *tracedRow) Scan(dest ...interface{}) error {
	defer r.span.End()
	err := r.row.Scan(dest...)
	if !errors.Is(err, pgx.ErrNoRows) {
		telemetry.RecordError(r.span, err)
	}
	return err
}

func (p *TracedPool) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := p.start(ctx, "exec", sql)
	defer span.End()

	tag, err := p.pool.Exec(ctx, sql, args...)
	if err == nil {
		span.SetAttributes(attribute.Int64("db.rows_affected", tag.RowsAffected()))
	}
	telemetry.RecordError(span, err)
	return tag, err
}

// statementVerb returns the upper-cased first keyword of a SQL statement.
func statementVerb(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
