package database

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/irfndi/celebrum-ips/internal/models"
)

const recordColumns = `event_id, time_window, actor_id, asset, occurred_at, outcome, ips, verdict,
	factors, snapshot, reality, meta, window_closed, created_at, updated_at`

// insertColumns adds window_end, which is derived on write and never read back.
const insertColumns = recordColumns + `, window_end`

// countWindowsQuery splits records by window state at the bound instant (epoch ms).
const countWindowsQuery = `SELECT
		COUNT(*),
		COALESCE(SUM(CASE WHEN window_closed = TRUE THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN window_closed = FALSE AND window_end <= %[1]s THEN 1 ELSE 0 END), 0)
	FROM ips_event_records`

// windowEnd is the epoch ms at which rec's window closes.
func windowEnd(rec *models.IPSEventRecord) int64 {
	return rec.Timestamp + rec.Window.Millis()
}

// dueClauses selects records scored while their window was open whose window
// has ended by closedBy, oldest window end first.
func dueClauses(closedBy int64, limit int, placeholder func(n int) string) (string, []interface{}) {
	args := []interface{}{closedBy}
	clauses := " WHERE window_closed = FALSE AND window_end <= " + placeholder(1) +
		" ORDER BY window_end ASC, event_id ASC, time_window ASC"
	if limit > 0 {
		args = append(args, limit)
		clauses += " LIMIT " + placeholder(2)
	}
	return clauses, args
}

func windowStats(total, closed, due int64) models.WindowStats {
	return models.WindowStats{
		Total:  int(total),
		Closed: int(closed),
		Open:   int(total - closed),
		Due:    int(due),
	}
}

// encodedRecord holds the JSON columns of a record.
type encodedRecord struct {
	factors  []byte
	snapshot []byte
	reality  []byte
	meta     []byte
}

func encodeRecord(rec *models.IPSEventRecord) (encodedRecord, error) {
	var (
		enc encodedRecord
		err error
	)
	if enc.factors, err = json.Marshal(rec.Factors); err != nil {
		return enc, fmt.Errorf("failed to encode factors: %w", err)
	}
	if enc.snapshot, err = json.Marshal(rec.Snapshot); err != nil {
		return enc, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if rec.Reality != nil {
		if enc.reality, err = json.Marshal(rec.Reality); err != nil {
			return enc, fmt.Errorf("failed to encode reality: %w", err)
		}
	}
	if rec.Meta != nil {
		if enc.meta, err = json.Marshal(rec.Meta); err != nil {
			return enc, fmt.Errorf("failed to encode meta: %w", err)
		}
	}
	return enc, nil
}

func (enc encodedRecord) decodeInto(rec *models.IPSEventRecord) error {
	if err := json.Unmarshal(enc.factors, &rec.Factors); err != nil {
		return fmt.Errorf("failed to decode factors: %w", err)
	}
	if err := json.Unmarshal(enc.snapshot, &rec.Snapshot); err != nil {
		return fmt.Errorf("failed to decode snapshot: %w", err)
	}
	if len(enc.reality) > 0 && string(enc.reality) != "null" {
		rec.Reality = &models.RealityContext{}
		if err := json.Unmarshal(enc.reality, rec.Reality); err != nil {
			return fmt.Errorf("failed to decode reality: %w", err)
		}
	}
	if len(enc.meta) > 0 && string(enc.meta) != "null" {
		if err := json.Unmarshal(enc.meta, &rec.Meta); err != nil {
			return fmt.Errorf("failed to decode meta: %w", err)
		}
	}
	return nil
}

// buildFilter renders the WHERE, ORDER BY and LIMIT clauses for a timeline filter.
// placeholder renders the n-th (1-based) bind parameter for the target dialect.
func buildFilter(f models.TimelineFilter, placeholder func(n int) string) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, placeholder(len(args))))
	}

	if f.ActorID != "" {
		add("actor_id = %s", f.ActorID)
	}
	if f.Asset != "" {
		add("asset = %s", f.Asset)
	}
	if f.Window != "" {
		add("time_window = %s", string(f.Window))
	}
	if f.Verdict != "" {
		add("verdict = %s", string(f.Verdict))
	}
	if f.MinIPS != nil {
		add("ips >= %s", *f.MinIPS)
	}
	if f.From > 0 {
		add("occurred_at >= %s", f.From)
	}
	if f.To > 0 {
		add("occurred_at <= %s", f.To)
	}

	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY occurred_at DESC, event_id ASC, time_window ASC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		b.WriteString(" LIMIT ")
		b.WriteString(placeholder(len(args)))
	}
	return b.String(), args
}

func postgresPlaceholder(n int) string { return fmt.Sprintf("$%d", n) }

func sqlitePlaceholder(int) string { return "?" }
