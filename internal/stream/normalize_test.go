package stream

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jbonatakis/reshai/internal/conversation"
)

func TestNormalizeDoneSentinel(t *testing.T) {
	require.Equal(t, EventDone, Normalize("[DONE]").Kind)
	require.Equal(t, EventDone, Normalize(" [DONE] ").Kind)
}

func TestNormalizeDeltaContent(t *testing.T) {
	ev := Normalize(`{"choices":[{"delta":{"content":"ab"}}]}`)

	require.Equal(t, Event{Kind: EventContent, Text: "ab"}, ev)
}

func TestNormalizeDeltaReasoning(t *testing.T) {
	tests := []string{
		`{"choices":[{"delta":{"reasoning_content":"hmm"}}]}`,
		`{"choices":[{"delta":{"content":null,"reasoning":"hmm"}}]}`,
		`{"choices":[{"delta":{"content":"","reasoning_content":"hmm"}}]}`,
	}
	for _, data := range tests {
		ev := Normalize(data)
		require.Equal(t, EventReasoning, ev.Kind, data)
		require.Equal(t, "hmm", ev.Text, data)
	}
}

func TestNormalizeDeltaToolCalls(t *testing.T) {
	ev := Normalize(`{"choices":[{"delta":{"content":null,"tool_calls":[{"index":0,"id":"t1","type":"function","function":{"name":"run","arguments":""}}]}}]}`)

	require.Equal(t, EventToolCallDelta, ev.Kind)
	require.Len(t, ev.ToolCalls, 1)
	frag := ev.ToolCalls[0]
	require.NotNil(t, frag.Index)
	require.Equal(t, 0, *frag.Index)
	require.Equal(t, "t1", frag.ID)
	require.Equal(t, "function", frag.Type)
	require.Equal(t, "run", frag.Name)
}

func TestNormalizeKeepAlives(t *testing.T) {
	tests := []string{
		`{"choices":[{"delta":{}}]}`,
		`{"choices":[{"delta":{"role":"assistant"}}]}`,
		`{"choices":[]}`,
		`{"usage":{"prompt_tokens":3}}`,
		`{"choices":[{"delta":{"content":"a"`,
		`not json at all`,
		``,
	}
	for _, data := range tests {
		ev := Normalize(data)
		require.True(t, ev.IsKeepAlive(), "data %q gave %+v", data, ev)
	}
}

func TestNormalizeSingleMessageExtractsThinking(t *testing.T) {
	ev := Normalize(`{"choices":[{"message":{"role":"assistant","content":"<thinking>reasoning</thinking>visible"}}]}`)

	require.Equal(t, EventContent, ev.Kind)
	require.Equal(t, "visible", ev.Text)
	require.Equal(t, "reasoning", ev.Reasoning)
}

func TestNormalizeSingleMessagePrefersReasoningField(t *testing.T) {
	ev := Normalize(`{"choices":[{"message":{"content":"<thinking>inline</thinking>answer","reasoning_content":"explicit"}}]}`)

	require.Equal(t, "answer", ev.Text)
	require.Equal(t, "explicit", ev.Reasoning)
}

func TestNormalizeSingleMessageWithToolCalls(t *testing.T) {
	ev := Normalize(`{"choices":[{"message":{"role":"assistant","content":null,"tool_calls":[{"id":"c1","function":{"name":"get_terminal_output","arguments":{}}}]}}]}`)

	require.Equal(t, EventMessageBatch, ev.Kind)
	require.Equal(t, []conversation.Message{{
		Role: conversation.RoleAssistant,
		ToolCalls: []conversation.ToolCall{{
			ID:        "c1",
			Type:      conversation.ToolCallTypeFunction,
			Name:      "get_terminal_output",
			Arguments: "{}",
		}},
	}}, ev.Messages)
}

func TestNormalizeMultiRoleBatch(t *testing.T) {
	data := `{"choices":[
		{"message":{"role":"assistant","content":"<thinking>plan</thinking>calling","tool_calls":[{"id":"c1","type":"function","function":{"name":"run_in_terminal","arguments":"{\"command\":\"ls\"}"}}]}},
		{"message":{"role":"tool","tool_call_id":"c1","content":"file.txt"}},
		{"message":{"role":"assistant","content":""}}
	]}`

	ev := Normalize(data)

	require.Equal(t, EventMessageBatch, ev.Kind)
	require.Len(t, ev.Messages, 2)
	require.Equal(t, conversation.RoleAssistant, ev.Messages[0].Role)
	require.Equal(t, "calling", ev.Messages[0].Content)
	require.Equal(t, "plan", ev.Messages[0].Reasoning)
	require.Equal(t, `{"command":"ls"}`, ev.Messages[0].ToolCalls[0].Arguments)
	require.Equal(t, conversation.RoleTool, ev.Messages[1].Role)
	require.Equal(t, "c1", ev.Messages[1].ToolCallID)
	require.Equal(t, "file.txt", ev.Messages[1].Content)
}

func TestNormalizeContentParts(t *testing.T) {
	ev := Normalize(`{"choices":[{"message":{"content":[{"type":"text","text":"a"},{"type":"text","text":"b"}]}}]}`)

	require.Equal(t, "ab", ev.Text)
}

func TestExtractThinking(t *testing.T) {
	tests := []struct {
		in        string
		cleaned   string
		reasoning string
	}{
		{in: "<thinking>reasoning</thinking>visible", cleaned: "visible", reasoning: "reasoning"},
		{in: "plain", cleaned: "plain"},
		{in: "a <think> r </think> b", cleaned: "a  b", reasoning: "r"},
		{in: "x<thinking>never closed", cleaned: "x", reasoning: "never closed"},
	}
	for _, tt := range tests {
		cleaned, reasoning := ExtractThinking(tt.in)
		require.Equal(t, tt.cleaned, cleaned, tt.in)
		require.Equal(t, tt.reasoning, reasoning, tt.in)
	}
}
