package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/irfndi/celebrum-ips/internal/models"
)

// RecordRepository persists IPS event records in PostgreSQL.
type RecordRepository struct {
	pool DatabasePool
	now  func() time.Time
}

func NewRecordRepository(pool DatabasePool) *RecordRepository {
	return &RecordRepository{pool: pool, now: time.Now}
}

// WithClock overrides the clock used for created_at/updated_at.
func (r *RecordRepository) WithClock(now func() time.Time) *RecordRepository {
	r.now = now
	return r
}

// Upsert inserts rec or overwrites the row with the same (event_id, time_window).
// created_at survives overwrites; updated_at is refreshed. The stored timestamps
// are written back to rec.
func (r *RecordRepository) Upsert(ctx context.Context, rec *models.IPSEventRecord) error {
	enc, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ips_event_records (` + insertColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14, $15)
		ON CONFLICT (event_id, time_window)
		DO UPDATE SET
			actor_id = EXCLUDED.actor_id,
			asset = EXCLUDED.asset,
			occurred_at = EXCLUDED.occurred_at,
			outcome = EXCLUDED.outcome,
			ips = EXCLUDED.ips,
			verdict = EXCLUDED.verdict,
			factors = EXCLUDED.factors,
			snapshot = EXCLUDED.snapshot,
			reality = EXCLUDED.reality,
			meta = EXCLUDED.meta,
			window_closed = EXCLUDED.window_closed,
			window_end = EXCLUDED.window_end,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`

	now := r.now().UTC()
	var createdAt, updatedAt time.Time
	err = r.pool.QueryRow(ctx, query,
		rec.EventID,
		string(rec.Window),
		rec.ActorID,
		rec.Asset,
		rec.Timestamp,
		string(rec.Outcome),
		rec.IPS,
		string(rec.Verdict),
		enc.factors,
		enc.snapshot,
		enc.reality,
		enc.meta,
		rec.WindowClosed,
		now,
		windowEnd(rec),
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s/%s: %w", rec.EventID, rec.Window, err)
	}

	rec.CreatedAt = createdAt
	rec.UpdatedAt = updatedAt
	return nil
}

// ListByActor returns the actor's most recent records, newest first.
func (r *RecordRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]models.IPSEventRecord, error) {
	return r.Query(ctx, models.TimelineFilter{ActorID: actorID, Limit: limit})
}

// ListByAsset returns the asset's most recent records, newest first.
func (r *RecordRepository) ListByAsset(ctx context.Context, asset string, limit int) ([]models.IPSEventRecord, error) {
	return r.Query(ctx, models.TimelineFilter{Asset: asset, Limit: limit})
}

// Query returns records matching filter, newest first. A zero limit returns every match.
func (r *RecordRepository) Query(ctx context.Context, filter models.TimelineFilter) ([]models.IPSEventRecord, error) {
	clauses, args := buildFilter(filter, postgresPlaceholder)
	return r.queryRecords(ctx, clauses, args)
}

// ListDue returns records scored before their window closed whose window has
// ended by closedBy (epoch ms), oldest window end first.
func (r *RecordRepository) ListDue(ctx context.Context, closedBy int64, limit int) ([]models.IPSEventRecord, error) {
	clauses, args := dueClauses(closedBy, limit, postgresPlaceholder)
	return r.queryRecords(ctx, clauses, args)
}

// CountWindows reports how many records were scored over a closed window,
// how many are still open, and how many of those are due at now (epoch ms).
func (r *RecordRepository) CountWindows(ctx context.Context, now int64) (models.WindowStats, error) {
	var total, closed, due int64
	err := r.pool.QueryRow(ctx, fmt.Sprintf(countWindowsQuery, postgresPlaceholder(1)), now).Scan(&total, &closed, &due)
	if err != nil {
		return models.WindowStats{}, fmt.Errorf("failed to count windows: %w", err)
	}
	return windowStats(total, closed, due), nil
}

func (r *RecordRepository) queryRecords(ctx context.Context, clauses string, args []interface{}) ([]models.IPSEventRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM ips_event_records` + clauses

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.IPSEventRecord
	for rows.Next() {
		rec, err := scanPostgresRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func scanPostgresRecord(rows pgx.Rows) (models.IPSEventRecord, error) {
	var (
		rec                      models.IPSEventRecord
		window, outcome, verdict string
		enc                      encodedRecord
	)
	err := rows.Scan(
		&rec.EventID,
		&window,
		&rec.ActorID,
		&rec.Asset,
		&rec.Timestamp,
		&outcome,
		&rec.IPS,
		&verdict,
		&enc.factors,
		&enc.snapshot,
		&enc.reality,
		&enc.meta,
		&rec.WindowClosed,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	)
	if err != nil {
		return rec, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Window = models.Window(window)
	rec.Outcome = models.Outcome(outcome)
	rec.Verdict = models.Verdict(verdict)
	if err := enc.decodeInto(&rec); err != nil {
		return rec, err
	}
	return rec, nil
}
