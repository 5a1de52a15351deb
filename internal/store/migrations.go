package store

// migration is one schema change, applied in order.
type migration struct {
	Version int
	Name    string
	SQL     string
}

var migrations = []migration{
	{
		Version: 1,
		Name:    "usage_records",
		SQL: `
			CREATE TABLE usage_records (
				id TEXT PRIMARY KEY,
				agent TEXT NOT NULL,
				conversation_id TEXT NOT NULL,
				model TEXT NOT NULL DEFAULT '',
				provider TEXT NOT NULL DEFAULT '',
				input_tokens INTEGER NOT NULL DEFAULT 0,
				output_tokens INTEGER NOT NULL DEFAULT 0,
				total_tokens INTEGER NOT NULL DEFAULT 0,
				estimated_cost REAL,
				response_time_ms INTEGER,
				stop_reason TEXT NOT NULL DEFAULT '',
				received_at TEXT NOT NULL
			);
			CREATE INDEX idx_usage_agent ON usage_records(agent);
			CREATE INDEX idx_usage_conversation ON usage_records(conversation_id);
		`,
	},
}
