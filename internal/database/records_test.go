package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/celebrum-ips/internal/models"
)

func TestBuildFilter_Empty(t *testing.T) {
	clauses, args := buildFilter(models.TimelineFilter{}, postgresPlaceholder)
	assert.Equal(t, " ORDER BY occurred_at DESC, event_id ASC, time_window ASC", clauses)
	assert.Empty(t, args)
}

func TestBuildFilter_AllConstraints(t *testing.T) {
	minIPS := 0.5
	f := models.TimelineFilter{
		ActorID: "alice",
		Asset:   "BTC",
		Window:  models.Window4H,
		Verdict: models.VerdictInformed,
		MinIPS:  &minIPS,
		From:    10,
		To:      20,
		Limit:   50,
	}

	clauses, args := buildFilter(f, postgresPlaceholder)
	assert.Equal(t,
		" WHERE actor_id = $1 AND asset = $2 AND time_window = $3 AND verdict = $4"+
			" AND ips >= $5 AND occurred_at >= $6 AND occurred_at <= $7"+
			" ORDER BY occurred_at DESC, event_id ASC, time_window ASC LIMIT $8",
		clauses)
	assert.Equal(t, []interface{}{"alice", "BTC", "4h", "INFORMED", 0.5, int64(10), int64(20), 50}, args)

	clauses, _ = buildFilter(f, sqlitePlaceholder)
	assert.Contains(t, clauses, "actor_id = ? AND asset = ?")
	assert.Contains(t, clauses, "LIMIT ?")
}

func TestEncodeDecodeRecord(t *testing.T) {
	rec := sampleRecord("e1", models.Window1H, "alice", "BTC", 1, 0.7)
	rec.Reality = &models.RealityContext{Verdict: models.RealityConfirms, Score: 0.9}

	enc, err := encodeRecord(&rec)
	require.NoError(t, err)

	var out models.IPSEventRecord
	require.NoError(t, enc.decodeInto(&out))
	assert.Equal(t, rec.Factors, out.Factors)
	assert.Equal(t, rec.Snapshot, out.Snapshot)
	assert.Equal(t, rec.Reality, out.Reality)
	assert.Equal(t, rec.Meta, out.Meta)
}

func TestEncodeRecord_OptionalFieldsAreNull(t *testing.T) {
	rec := sampleRecord("e1", models.Window1H, "alice", "BTC", 1, 0.7)
	rec.Meta = nil

	enc, err := encodeRecord(&rec)
	require.NoError(t, err)
	assert.Nil(t, enc.reality)
	assert.Nil(t, enc.meta)

	var out models.IPSEventRecord
	require.NoError(t, enc.decodeInto(&out))
	assert.Nil(t, out.Reality)
	assert.Nil(t, out.Meta)
}

func TestDueClauses(t *testing.T) {
	clauses, args := dueClauses(5000, 25, postgresPlaceholder)
	assert.Equal(t,
		" WHERE window_closed = FALSE AND window_end <= $1 ORDER BY window_end ASC, event_id ASC, time_window ASC LIMIT $2",
		clauses)
	assert.Equal(t, []interface{}{int64(5000), 25}, args)

	clauses, args = dueClauses(5000, 0, sqlitePlaceholder)
	assert.NotContains(t, clauses, "LIMIT")
	assert.Equal(t, []interface{}{int64(5000)}, args)
}

func TestWindowEnd(t *testing.T) {
	rec := sampleRecord("e1", models.Window4H, "alice", "BTC", 1000, 0.5)
	assert.Equal(t, int64(1000+14_400_000), windowEnd(&rec))
}
