package track

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentmux/agentmux/internal/events"
	"github.com/agentmux/agentmux/internal/logging"
)

func testTracker() *Tracker {
	return NewTracker(logging.Nop())
}

func ev(t *testing.T, payload string) events.Event {
	t.Helper()
	e, err := events.Decode([]byte(payload))
	require.NoError(t, err)
	return e
}

func TestHappyPathLifecycle(t *testing.T) {
	tr := testTracker()

	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calculator", "params": {"param1": 2, "param2": 2, "operator": "add"}}`))
	tc, ok := tr.Get("t1")
	require.True(t, ok)
	assert.Equal(t, StatusRequested, tc.Status)
	assert.Equal(t, "calculator", tc.Name)

	tr.Apply(ev(t, `{"type": "tool_execution_start", "tool_id": "t1"}`))
	tc, _ = tr.Get("t1")
	assert.Equal(t, StatusExecuting, tc.Status)

	tr.Apply(ev(t, `{"type": "tool_execution_complete", "tool_id": "t1", "result": "4", "execution_time_ms": 12}`))
	tc, _ = tr.Get("t1")
	assert.Equal(t, StatusCompleted, tc.Status)
	assert.Equal(t, "4", tc.Output)
	require.NotNil(t, tc.DurationMS)
	assert.Equal(t, int64(12), *tc.DurationMS)
	assert.True(t, tc.Succeeded())
}

func TestErrorFromExecuting(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`))
	tr.Apply(ev(t, `{"type": "tool_execution_start", "tool_id": "t1"}`))
	tr.Apply(ev(t, `{"type": "tool_execution_error", "tool_id": "t1", "error": "division by zero", "execution_time_ms": 3}`))

	tc, _ := tr.Get("t1")
	assert.Equal(t, StatusError, tc.Status)
	assert.Equal(t, "division by zero", tc.Err)
	assert.False(t, tc.Succeeded())
}

func TestErrorDirectlyFromRequested(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`))
	tr.Apply(ev(t, `{"type": "tool_execution_error", "tool_id": "t1", "error": "load failed"}`))

	tc, _ := tr.Get("t1")
	assert.Equal(t, StatusError, tc.Status)
}

func TestStatusNeverRegresses(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`))
	tr.Apply(ev(t, `{"type": "tool_execution_start", "tool_id": "t1"}`))
	tr.Apply(ev(t, `{"type": "tool_execution_complete", "tool_id": "t1", "result": "4", "execution_time_ms": 12}`))

	// Late or duplicate events must not move the call backwards.
	tr.Apply(ev(t, `{"type": "tool_execution_start", "tool_id": "t1"}`))
	tc, _ := tr.Get("t1")
	assert.Equal(t, StatusCompleted, tc.Status)

	tr.Apply(ev(t, `{"type": "tool_execution_error", "tool_id": "t1", "error": "too late"}`))
	tc, _ = tr.Get("t1")
	assert.Equal(t, StatusCompleted, tc.Status)
	assert.Empty(t, tc.Err)

	tr.Apply(ev(t, `{"type": "tool_execution_complete", "tool_id": "t1", "result": "5"}`))
	tc, _ = tr.Get("t1")
	assert.Equal(t, "4", tc.Output, "terminal output must not be overwritten")
}

func TestFinalStatusMatchesLastEvent(t *testing.T) {
	// For a valid event sequence the final status matches the last
	// non-keepalive event received.
	sequences := []struct {
		name   string
		events []string
		want   Status
	}{
		{
			name: "stops at requested",
			events: []string{
				`{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`,
				`{"type": "keepalive"}`,
			},
			want: StatusRequested,
		},
		{
			name: "stops at executing",
			events: []string{
				`{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`,
				`{"type": "tool_execution_start", "tool_id": "t1"}`,
			},
			want: StatusExecuting,
		},
		{
			name: "full run to completion",
			events: []string{
				`{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`,
				`{"type": "tool_execution_start", "tool_id": "t1"}`,
				`{"type": "keepalive"}`,
				`{"type": "tool_execution_complete", "tool_id": "t1", "result": "ok"}`,
			},
			want: StatusCompleted,
		},
		{
			name: "full run to error",
			events: []string{
				`{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`,
				`{"type": "tool_execution_start", "tool_id": "t1"}`,
				`{"type": "tool_execution_error", "tool_id": "t1", "error": "boom"}`,
			},
			want: StatusError,
		},
	}

	for _, tt := range sequences {
		t.Run(tt.name, func(t *testing.T) {
			tr := testTracker()
			for _, raw := range tt.events {
				tr.Apply(ev(t, raw))
			}
			tc, ok := tr.Get("t1")
			require.True(t, ok)
			assert.Equal(t, tt.want, tc.Status)
		})
	}
}

func TestUnknownIDInsertedAtImpliedState(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    Status
	}{
		{"execution start", `{"type": "tool_execution_start", "tool_id": "tx"}`, StatusExecuting},
		{"completion", `{"type": "tool_execution_complete", "tool_id": "tx", "result": "r"}`, StatusCompleted},
		{"error", `{"type": "tool_execution_error", "tool_id": "tx", "error": "e"}`, StatusError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := testTracker()
			tr.Apply(ev(t, tt.payload))
			tc, ok := tr.Get("tx")
			require.True(t, ok, "out-of-order event must be inserted, not dropped")
			assert.Equal(t, tt.want, tc.Status)
		})
	}
}

func TestLateStartFillsNameAndParams(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "tool_execution_start", "tool_id": "t1"}`))
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calculator", "params": {"x": 1}}`))

	tc, _ := tr.Get("t1")
	assert.Equal(t, StatusExecuting, tc.Status, "late start must not regress status")
	assert.Equal(t, "calculator", tc.Name)
	assert.JSONEq(t, `{"x": 1}`, string(tc.Params))
}

func TestUnknownEventTypeIsNoOp(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "something_new", "tool_id": "t1"}`))
	assert.Equal(t, 0, tr.Len())
}

func TestKeepaliveIsNoOp(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "keepalive"}`))
	assert.Equal(t, 0, tr.Len())
}

func TestListPreservesAnnouncementOrder(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "a", "tool_name": "first"}`))
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "b", "tool_name": "second"}`))
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "c", "tool_name": "third"}`))

	list := tr.List()
	require.Len(t, list, 3)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
	assert.Equal(t, "c", list[2].ID)
}

func TestReset(t *testing.T) {
	tr := testTracker()
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`))
	require.Equal(t, 1, tr.Len())

	tr.Reset()
	assert.Equal(t, 0, tr.Len())
	_, ok := tr.Get("t1")
	assert.False(t, ok)

	// A new set starts fresh: the same id can be announced again.
	tr.Apply(ev(t, `{"type": "tool_call_start", "tool_id": "t1", "tool_name": "calc"}`))
	tc, ok := tr.Get("t1")
	require.True(t, ok)
	assert.Equal(t, StatusRequested, tc.Status)
}
