package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmux/agentmux/internal/logging"
	"github.com/agentmux/agentmux/internal/track"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(":memory:", logging.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func TestOpenCreatesFileAndDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")
	db, err := Open(path, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Reopening runs no migrations twice.
	db, err = Open(path, logging.Nop())
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestRecordAndTotals(t *testing.T) {
	ledger := NewLedger(testDB(t))

	rec := track.UsageRecord{
		Model:          "gpt-4o",
		Provider:       "openai",
		InputTokens:    100,
		OutputTokens:   40,
		TotalTokens:    140,
		EstimatedCost:  fptr(0.002),
		ResponseTimeMS: iptr(800),
		StopReason:     "end_turn",
		ReceivedAt:     time.Now(),
	}
	require.NoError(t, ledger.RecordUsage("data_analyst", "c1", rec))
	require.NoError(t, ledger.RecordUsage("data_analyst", "c2", track.UsageRecord{
		Model: "gpt-4o", TotalTokens: 60, InputTokens: 50, OutputTokens: 10, ReceivedAt: time.Now(),
	}))
	require.NoError(t, ledger.RecordUsage("researcher", "c3", track.UsageRecord{
		Model: "claude-sonnet-4", TotalTokens: 500, ReceivedAt: time.Now(),
	}))

	totals, err := ledger.Totals("data_analyst")
	require.NoError(t, err)
	assert.Equal(t, int64(2), totals.Records)
	assert.Equal(t, int64(150), totals.InputTokens)
	assert.Equal(t, int64(50), totals.OutputTokens)
	assert.Equal(t, int64(200), totals.TotalTokens)
	assert.InDelta(t, 0.002, totals.EstimatedCost, 1e-9)

	all, err := ledger.Totals("")
	require.NoError(t, err)
	assert.Equal(t, int64(3), all.Records)
	assert.Equal(t, int64(700), all.TotalTokens)
}

func TestTotalsEmpty(t *testing.T) {
	ledger := NewLedger(testDB(t))
	totals, err := ledger.Totals("nobody")
	require.NoError(t, err)
	assert.Zero(t, totals.Records)
	assert.Zero(t, totals.TotalTokens)
}

func TestByModel(t *testing.T) {
	ledger := NewLedger(testDB(t))
	require.NoError(t, ledger.RecordUsage("a", "c1", track.UsageRecord{Model: "small", TotalTokens: 10, ReceivedAt: time.Now()}))
	require.NoError(t, ledger.RecordUsage("a", "c1", track.UsageRecord{Model: "big", TotalTokens: 900, EstimatedCost: fptr(0.1), ReceivedAt: time.Now()}))
	require.NoError(t, ledger.RecordUsage("a", "c2", track.UsageRecord{Model: "big", TotalTokens: 100, ReceivedAt: time.Now()}))

	byModel, err := ledger.ByModel("a")
	require.NoError(t, err)
	require.Len(t, byModel, 2)
	assert.Equal(t, "big", byModel[0].Model)
	assert.Equal(t, int64(2), byModel[0].Records)
	assert.Equal(t, int64(1000), byModel[0].TotalTokens)
	assert.Equal(t, "small", byModel[1].Model)
}
