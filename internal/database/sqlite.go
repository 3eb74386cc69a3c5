package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/irfndi/celebrum-ips/internal/models"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS ips_event_records (
		event_id     TEXT NOT NULL,
		time_window  TEXT NOT NULL,
		actor_id     TEXT NOT NULL,
		asset        TEXT NOT NULL,
		occurred_at  INTEGER NOT NULL,
		outcome      TEXT NOT NULL,
		ips          REAL NOT NULL,
		verdict      TEXT NOT NULL,
		factors      TEXT NOT NULL,
		snapshot     TEXT NOT NULL,
		reality      TEXT,
		meta         TEXT,
		window_closed INTEGER NOT NULL DEFAULT 0,
		window_end   INTEGER NOT NULL,
		created_at   INTEGER NOT NULL,
		updated_at   INTEGER NOT NULL,
		PRIMARY KEY (event_id, time_window)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_ips_event_records_actor_time ON ips_event_records (actor_id, occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ips_event_records_asset_time ON ips_event_records (asset, occurred_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_ips_event_records_open_windows ON ips_event_records (window_closed, window_end)`,
}

// SQLiteRecordRepository persists IPS event records in an embedded SQLite file.
// Timestamps are stored as unix nanoseconds.
type SQLiteRecordRepository struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func OpenSQLite(path string) (*SQLiteRecordRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer; also keeps :memory: on one connection

	if path != ":memory:" {
		if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set WAL mode: %w", err)
		}
	}

	repo := &SQLiteRecordRepository{db: db, now: time.Now}
	if err := repo.Migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return repo, nil
}

// WithClock overrides the clock used for created_at/updated_at.
func (r *SQLiteRecordRepository) WithClock(now func() time.Time) *SQLiteRecordRepository {
	r.now = now
	return r
}

// Migrate creates the records table and its indexes if missing.
func (r *SQLiteRecordRepository) Migrate(ctx context.Context) error {
	for _, stmt := range sqliteSchema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRecordRepository) Close() error {
	return r.db.Close()
}

// Upsert has the same semantics as RecordRepository.Upsert.
func (r *SQLiteRecordRepository) Upsert(ctx context.Context, rec *models.IPSEventRecord) error {
	enc, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO ips_event_records (` + insertColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (event_id, time_window)
		DO UPDATE SET
			actor_id = excluded.actor_id,
			asset = excluded.asset,
			occurred_at = excluded.occurred_at,
			outcome = excluded.outcome,
			ips = excluded.ips,
			verdict = excluded.verdict,
			factors = excluded.factors,
			snapshot = excluded.snapshot,
			reality = excluded.reality,
			meta = excluded.meta,
			window_closed = excluded.window_closed,
			window_end = excluded.window_end,
			updated_at = excluded.updated_at
		RETURNING created_at, updated_at
	`

	now := r.now().UTC().UnixNano()
	var createdAt, updatedAt int64
	err = r.db.QueryRowContext(ctx, query,
		rec.EventID,
		string(rec.Window),
		rec.ActorID,
		rec.Asset,
		rec.Timestamp,
		string(rec.Outcome),
		rec.IPS,
		string(rec.Verdict),
		string(enc.factors),
		string(enc.snapshot),
		nullableText(enc.reality),
		nullableText(enc.meta),
		rec.WindowClosed,
		now,
		now,
		windowEnd(rec),
	).Scan(&createdAt, &updatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert record %s/%s: %w", rec.EventID, rec.Window, err)
	}

	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	rec.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return nil
}

func (r *SQLiteRecordRepository) ListByActor(ctx context.Context, actorID string, limit int) ([]models.IPSEventRecord, error) {
	return r.Query(ctx, models.TimelineFilter{ActorID: actorID, Limit: limit})
}

func (r *SQLiteRecordRepository) ListByAsset(ctx context.Context, asset string, limit int) ([]models.IPSEventRecord, error) {
	return r.Query(ctx, models.TimelineFilter{Asset: asset, Limit: limit})
}

func (r *SQLiteRecordRepository) Query(ctx context.Context, filter models.TimelineFilter) ([]models.IPSEventRecord, error) {
	clauses, args := buildFilter(filter, sqlitePlaceholder)
	return r.queryRecords(ctx, clauses, args)
}

// ListDue has the same semantics as RecordRepository.ListDue.
func (r *SQLiteRecordRepository) ListDue(ctx context.Context, closedBy int64, limit int) ([]models.IPSEventRecord, error) {
	clauses, args := dueClauses(closedBy, limit, sqlitePlaceholder)
	return r.queryRecords(ctx, clauses, args)
}

func (r *SQLiteRecordRepository) CountWindows(ctx context.Context, now int64) (models.WindowStats, error) {
	var total, closed, due int64
	err := r.db.QueryRowContext(ctx, fmt.Sprintf(countWindowsQuery, sqlitePlaceholder(1)), now).Scan(&total, &closed, &due)
	if err != nil {
		return models.WindowStats{}, fmt.Errorf("failed to count windows: %w", err)
	}
	return windowStats(total, closed, due), nil
}

func (r *SQLiteRecordRepository) queryRecords(ctx context.Context, clauses string, args []interface{}) ([]models.IPSEventRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM ips_event_records`+clauses, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []models.IPSEventRecord
	for rows.Next() {
		var (
			rec                      models.IPSEventRecord
			window, outcome, verdict string
			factors, snapshot        string
			reality, meta            sql.NullString
			createdAt, updatedAt     int64
		)
		if err := rows.Scan(
			&rec.EventID, &window, &rec.ActorID, &rec.Asset, &rec.Timestamp,
			&outcome, &rec.IPS, &verdict, &factors, &snapshot, &reality, &meta,
			&rec.WindowClosed, &createdAt, &updatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		rec.Window = models.Window(window)
		rec.Outcome = models.Outcome(outcome)
		rec.Verdict = models.Verdict(verdict)
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		rec.UpdatedAt = time.Unix(0, updatedAt).UTC()

		enc := encodedRecord{factors: []byte(factors), snapshot: []byte(snapshot)}
		if reality.Valid {
			enc.reality = []byte(reality.String)
		}
		if meta.Valid {
			enc.meta = []byte(meta.String)
		}
		if err := enc.decodeInto(&rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

func nullableText(b []byte) interface{} {
	if b == nil {
		return nil
	}
	return string(b)
}
