package track

import (
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/agentmux/agentmux/internal/events"
)

// UsageRecord is one model-usage telemetry record from an llm_usage event.
// It is not correlated to a specific tool call.
type UsageRecord struct {
	Model          string    `json:"model,omitempty"`
	Provider       string    `json:"provider,omitempty"`
	InputTokens    int64     `json:"inputTokens"`
	OutputTokens   int64     `json:"outputTokens"`
	TotalTokens    int64     `json:"totalTokens"`
	EstimatedCost  *float64  `json:"estimatedCost,omitempty"`
	InputCost      *float64  `json:"inputCost,omitempty"`
	OutputCost     *float64  `json:"outputCost,omitempty"`
	PricingModel   string    `json:"pricingModel,omitempty"`
	InputRate      *float64  `json:"inputRate,omitempty"`
	OutputRate     *float64  `json:"outputRate,omitempty"`
	ResponseTimeMS *int64    `json:"responseTimeMs,omitempty"`
	StopReason     string    `json:"stopReason,omitempty"`
	ReceivedAt     time.Time `json:"receivedAt"`
}

// DecodeUsage transforms an llm_usage event into a UsageRecord. It never
// fails: token counts default to zero and optional numeric fields that do
// not parse are omitted rather than rejecting the whole record.
func DecodeUsage(ev events.Event) UsageRecord {
	var fields map[string]json.RawMessage
	rec := UsageRecord{ReceivedAt: time.Now()}
	if err := json.Unmarshal(ev.Raw, &fields); err != nil {
		return rec
	}

	rec.Model = asString(fields["model"])
	rec.Provider = asString(fields["provider"])
	rec.InputTokens = asInt(fields["input_tokens"])
	rec.OutputTokens = asInt(fields["output_tokens"])
	rec.TotalTokens = asInt(fields["total_tokens"])
	rec.EstimatedCost = asFloatPtr(fields["estimated_cost"])
	rec.InputCost = asFloatPtr(fields["input_cost"])
	rec.OutputCost = asFloatPtr(fields["output_cost"])
	rec.PricingModel = asString(fields["pricing_model"])
	rec.InputRate = asFloatPtr(fields["input_rate"])
	rec.OutputRate = asFloatPtr(fields["output_rate"])
	rec.ResponseTimeMS = asIntPtr(fields["llm_response_time_ms"])
	rec.StopReason = asString(fields["stop_reason"])
	return rec
}

func asString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// asInt parses a JSON number or numeric string, returning 0 on anything else.
func asInt(raw json.RawMessage) int64 {
	if v := asIntPtr(raw); v != nil {
		return *v
	}
	return 0
}

func asIntPtr(raw json.RawMessage) *int64 {
	f := asFloatPtr(raw)
	if f == nil {
		return nil
	}
	n := int64(*f)
	return &n
}

func asFloatPtr(raw json.RawMessage) *float64 {
	if len(raw) == 0 {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return &f
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return &f
		}
	}
	return nil
}

// UsageLog retains usage records for the current session, append-only.
type UsageLog struct {
	mu      sync.Mutex
	records []UsageRecord
}

// NewUsageLog creates an empty usage log.
func NewUsageLog() *UsageLog {
	return &UsageLog{}
}

// Append adds a record.
func (u *UsageLog) Append(rec UsageRecord) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = append(u.records, rec)
}

// Records returns a copy of all records in arrival order.
func (u *UsageLog) Records() []UsageRecord {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]UsageRecord, len(u.records))
	copy(out, u.records)
	return out
}

// Len returns the number of records.
func (u *UsageLog) Len() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.records)
}

// Totals sums token counts and estimated cost across all records.
func (u *UsageLog) Totals() (input, output, total int64, cost float64) {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, r := range u.records {
		input += r.InputTokens
		output += r.OutputTokens
		total += r.TotalTokens
		if r.EstimatedCost != nil {
			cost += *r.EstimatedCost
		}
	}
	return input, output, total, cost
}

// Reset drops all retained records.
func (u *UsageLog) Reset() {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.records = nil
}
