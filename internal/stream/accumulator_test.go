package stream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbonatakis/reshai/internal/conversation"
)

func intPtr(v int) *int { return &v }

func TestAccumulatorJoinsSplitFragments(t *testing.T) {
	acc := NewAccumulator()
	acc.Update([]ToolCallFragment{{Index: intPtr(0), ID: "t1", Type: "function", Name: "run"}})
	acc.Update([]ToolCallFragment{{Index: intPtr(0), Arguments: `{"x":1}`}})

	require.Equal(t, []conversation.ToolCall{{
		ID:        "t1",
		Type:      "function",
		Name:      "run",
		Arguments: `{"x":1}`,
	}}, acc.Finalize())
}

func TestAccumulatorFromNormalizedFrames(t *testing.T) {
	frames := []string{
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"id":"t1","function":{"name":"run"}}]}}]}`,
		`{"choices":[{"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"x\":1}"}}]}}]}`,
	}
	acc := NewAccumulator()
	for _, data := range frames {
		ev := Normalize(data)
		require.Equal(t, EventToolCallDelta, ev.Kind)
		acc.Update(ev.ToolCalls)
	}

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	require.Equal(t, "t1", calls[0].ID)
	require.Equal(t, "run", calls[0].Name)
	require.Equal(t, `{"x":1}`, calls[0].Arguments)
}

func TestAccumulatorOrdersBySlotIndex(t *testing.T) {
	acc := NewAccumulator()
	acc.Update([]ToolCallFragment{
		{Index: intPtr(1), ID: "b", Type: "function", Name: "second", Arguments: "{}"},
		{Index: intPtr(0), ID: "a", Type: "function", Name: "first", Arguments: "{"},
	})
	acc.Update([]ToolCallFragment{{Index: intPtr(0), Arguments: "}"}})

	calls := acc.Finalize()
	require.Len(t, calls, 2)
	require.Equal(t, "a", calls[0].ID)
	require.Equal(t, "{}", calls[0].Arguments)
	require.Equal(t, "b", calls[1].ID)
}

func TestAccumulatorDropsSlotWithoutID(t *testing.T) {
	acc := NewAccumulator()
	acc.Update([]ToolCallFragment{
		{Index: intPtr(0), Name: "orphan", Arguments: "{}"},
		{Index: intPtr(1), ID: "ok", Type: "function", Name: "kept", Arguments: "{}"},
		{Index: intPtr(2), ID: "typeless"},
	})

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	require.Equal(t, "ok", calls[0].ID)
	require.Equal(t, 3, acc.Len())
}

func TestAccumulatorRoutesUnindexedFragments(t *testing.T) {
	acc := NewAccumulator()
	acc.Update([]ToolCallFragment{{ID: "x", Name: "run_in_terminal"}})
	acc.Update([]ToolCallFragment{{Arguments: `{"command":`}})
	acc.Update([]ToolCallFragment{{ID: "x", Arguments: `"pwd"}`}})

	calls := acc.Finalize()
	require.Len(t, calls, 1)
	require.Equal(t, conversation.ToolCallTypeFunction, calls[0].Type)
	require.Equal(t, `{"command":"pwd"}`, calls[0].Arguments)
}

func TestAccumulatorEmpty(t *testing.T) {
	require.Empty(t, NewAccumulator().Finalize())
}
