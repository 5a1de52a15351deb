// Package track maintains the live view of tool invocations and model-usage
// telemetry for the current conversation. It is pure state plus transition
// logic; transport lives in the events package.
package track

import (
	"encoding/json"
	"sync"

	"github.com/agentmux/agentmux/internal/events"
	"github.com/agentmux/agentmux/internal/logging"
)

// Status is the lifecycle state of one tool invocation.
type Status string

const (
	StatusRequested Status = "requested"
	StatusExecuting Status = "executing"
	StatusCompleted Status = "completed"
	StatusError     Status = "error"
)

// rank orders statuses so transitions never regress.
func (s Status) rank() int {
	switch s {
	case StatusRequested:
		return 0
	case StatusExecuting:
		return 1
	case StatusCompleted, StatusError:
		return 2
	}
	return -1
}

// Terminal reports whether the status is final.
func (s Status) Terminal() bool { return s == StatusCompleted || s == StatusError }

// ToolCall is the tracked state of one tool invocation.
type ToolCall struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Params     json.RawMessage `json:"params,omitempty"`
	Status     Status          `json:"status"`
	Output     string          `json:"output,omitempty"`
	Err        string          `json:"error,omitempty"`
	DurationMS *int64          `json:"durationMs,omitempty"`
}

// Succeeded reports whether the call finished without error.
func (tc ToolCall) Succeeded() bool { return tc.Status == StatusCompleted }

// Tracker holds every tool call announced for the current conversation,
// keyed by tool-call id. Transitions are monotonic: a terminal status never
// regresses, and out-of-order events for unknown ids are inserted at the
// state the event implies instead of being dropped.
type Tracker struct {
	mu    sync.Mutex
	calls map[string]*ToolCall
	order []string
	log   *logging.Logger
}

// NewTracker creates an empty tracker.
func NewTracker(log *logging.Logger) *Tracker {
	return &Tracker{
		calls: make(map[string]*ToolCall),
		log:   log.Sub("track"),
	}
}

// Apply folds one push-channel event into the tracked state. Keepalives and
// unknown event types are no-ops.
func (t *Tracker) Apply(ev events.Event) {
	switch ev.Type {
	case events.TypeToolCallStart:
		t.start(ev)
	case events.TypeToolExecutionStart:
		t.executing(ev)
	case events.TypeToolExecutionComplete:
		t.complete(ev)
	case events.TypeToolExecutionError:
		t.fail(ev)
	case events.TypeKeepalive, events.TypeLLMUsage:
		// Not tool-call state.
	default:
		t.log.Debug().Str("type", string(ev.Type)).Msg("ignoring unknown event type")
	}
}

func (t *Tracker) start(ev events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.calls[ev.ToolID]; ok {
		t.log.Warn().
			Str("toolId", ev.ToolID).
			Str("status", string(existing.Status)).
			Msg("duplicate tool_call_start, keeping existing state")
		if existing.Name == "" {
			existing.Name = ev.ToolName
		}
		if len(existing.Params) == 0 {
			existing.Params = ev.Params
		}
		return
	}

	t.insert(&ToolCall{
		ID:     ev.ToolID,
		Name:   ev.ToolName,
		Params: ev.Params,
		Status: StatusRequested,
	})
}

func (t *Tracker) executing(ev events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tc, ok := t.calls[ev.ToolID]
	if !ok {
		t.log.Warn().Str("toolId", ev.ToolID).Msg("execution start for unseen tool call, inserting")
		t.insert(&ToolCall{ID: ev.ToolID, Status: StatusExecuting})
		return
	}
	if tc.Status.rank() >= StatusExecuting.rank() {
		t.log.Warn().
			Str("toolId", ev.ToolID).
			Str("status", string(tc.Status)).
			Msg("ignoring execution start past executing")
		return
	}
	tc.Status = StatusExecuting
}

func (t *Tracker) complete(ev events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tc, ok := t.calls[ev.ToolID]
	if !ok {
		t.log.Warn().Str("toolId", ev.ToolID).Msg("completion for unseen tool call, inserting")
		tc = &ToolCall{ID: ev.ToolID}
		t.insert(tc)
	}
	if tc.Status.Terminal() {
		t.log.Warn().
			Str("toolId", ev.ToolID).
			Str("status", string(tc.Status)).
			Msg("ignoring completion for finished tool call")
		return
	}
	tc.Status = StatusCompleted
	tc.Output = ev.ResultText()
	tc.DurationMS = ev.ExecutionTimeMS
}

func (t *Tracker) fail(ev events.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	tc, ok := t.calls[ev.ToolID]
	if !ok {
		t.log.Warn().Str("toolId", ev.ToolID).Msg("error for unseen tool call, inserting")
		tc = &ToolCall{ID: ev.ToolID}
		t.insert(tc)
	}
	if tc.Status.Terminal() {
		t.log.Warn().
			Str("toolId", ev.ToolID).
			Str("status", string(tc.Status)).
			Msg("ignoring error for finished tool call")
		return
	}
	tc.Status = StatusError
	tc.Err = ev.Err
	tc.DurationMS = ev.ExecutionTimeMS
}

// insert must be called with the mutex held.
func (t *Tracker) insert(tc *ToolCall) {
	t.calls[tc.ID] = tc
	t.order = append(t.order, tc.ID)
}

// Get returns a copy of the tracked call for an id.
func (t *Tracker) Get(id string) (ToolCall, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tc, ok := t.calls[id]
	if !ok {
		return ToolCall{}, false
	}
	return *tc, true
}

// List returns copies of all tracked calls in announcement order.
func (t *Tracker) List() []ToolCall {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ToolCall, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.calls[id])
	}
	return out
}

// Len returns the number of tracked calls.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Reset drops all tracked state, starting a fresh set.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = make(map[string]*ToolCall)
	t.order = nil
}
