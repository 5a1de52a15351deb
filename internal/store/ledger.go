package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agentmux/agentmux/internal/track"
)

// Ledger persists usage telemetry rows append-only.
type Ledger struct {
	db *DB
}

// NewLedger creates a ledger over an open database.
func NewLedger(db *DB) *Ledger {
	return &Ledger{db: db}
}

// RecordUsage inserts one usage record. Implements session.Recorder.
func (l *Ledger) RecordUsage(agent, conversationID string, rec track.UsageRecord) error {
	_, err := l.db.sql.Exec(`
		INSERT INTO usage_records (
			id, agent, conversation_id, model, provider,
			input_tokens, output_tokens, total_tokens,
			estimated_cost, response_time_ms, stop_reason, received_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), agent, conversationID, rec.Model, rec.Provider,
		rec.InputTokens, rec.OutputTokens, rec.TotalTokens,
		nullFloat(rec.EstimatedCost), nullInt(rec.ResponseTimeMS), rec.StopReason,
		rec.ReceivedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting usage record: %w", err)
	}
	return nil
}

// UsageTotals aggregates the ledger for one agent, or for all agents when
// agent is empty.
type UsageTotals struct {
	Records       int64
	InputTokens   int64
	OutputTokens  int64
	TotalTokens   int64
	EstimatedCost float64
}

// Totals sums usage over all recorded conversations.
func (l *Ledger) Totals(agent string) (UsageTotals, error) {
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(input_tokens), 0),
		       COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(estimated_cost), 0)
		FROM usage_records`
	args := []any{}
	if agent != "" {
		query += " WHERE agent = ?"
		args = append(args, agent)
	}

	var t UsageTotals
	err := l.db.sql.QueryRow(query, args...).Scan(
		&t.Records, &t.InputTokens, &t.OutputTokens, &t.TotalTokens, &t.EstimatedCost,
	)
	if err != nil {
		return UsageTotals{}, fmt.Errorf("aggregating usage: %w", err)
	}
	return t, nil
}

// ModelBreakdown is per-model aggregated usage.
type ModelBreakdown struct {
	Model         string
	Records       int64
	TotalTokens   int64
	EstimatedCost float64
}

// ByModel aggregates usage per model, most-used first.
func (l *Ledger) ByModel(agent string) ([]ModelBreakdown, error) {
	query := `
		SELECT model, COUNT(*),
		       COALESCE(SUM(total_tokens), 0),
		       COALESCE(SUM(estimated_cost), 0)
		FROM usage_records`
	args := []any{}
	if agent != "" {
		query += " WHERE agent = ?"
		args = append(args, agent)
	}
	query += " GROUP BY model ORDER BY SUM(total_tokens) DESC"

	rows, err := l.db.sql.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregating usage by model: %w", err)
	}
	defer rows.Close()

	var out []ModelBreakdown
	for rows.Next() {
		var b ModelBreakdown
		if err := rows.Scan(&b.Model, &b.Records, &b.TotalTokens, &b.EstimatedCost); err != nil {
			return nil, fmt.Errorf("scanning usage row: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nullFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func nullInt(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}
