package events

import (
	"encoding/json"
	"fmt"
)

// Type discriminates push-channel event envelopes.
type Type string

const (
	TypeToolCallStart         Type = "tool_call_start"
	TypeToolExecutionStart    Type = "tool_execution_start"
	TypeToolExecutionComplete Type = "tool_execution_complete"
	TypeToolExecutionError    Type = "tool_execution_error"
	TypeLLMUsage              Type = "llm_usage"
	TypeKeepalive             Type = "keepalive"
)

// Event is a decoded push-channel envelope. Only the fields matching Type are
// populated; Raw holds the full original payload for lenient secondary decodes
// (usage telemetry tolerates malformed numeric fields, see track.DecodeUsage).
type Event struct {
	Type Type `json:"type"`

	// Tool lifecycle fields.
	ToolID          string          `json:"tool_id,omitempty"`
	ToolName        string          `json:"tool_name,omitempty"`
	Params          json.RawMessage `json:"params,omitempty"`
	Result          json.RawMessage `json:"result,omitempty"`
	Err             string          `json:"error,omitempty"`
	ExecutionTimeMS *int64          `json:"execution_time_ms,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// Decode parses a push-channel payload into an Event.
func Decode(data []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(data, &ev); err != nil {
		return Event{}, fmt.Errorf("decoding event payload: %w", err)
	}
	if ev.Type == "" {
		return Event{}, fmt.Errorf("event payload missing type")
	}
	ev.Raw = json.RawMessage(data)
	return ev, nil
}

// ResultText renders the result field as display text: JSON strings are
// unquoted, anything else is the raw JSON text.
func (e Event) ResultText() string {
	if len(e.Result) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Result, &s); err == nil {
		return s
	}
	return string(e.Result)
}
