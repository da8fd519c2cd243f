package conversation

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func toolCall(id string) ToolCall {
	return ToolCall{ID: id, Type: ToolCallTypeFunction, Name: "get_terminal_output", Arguments: "{}"}
}

func assistantWithCalls(ids ...string) Message {
	msg := Message{Role: RoleAssistant}
	for _, id := range ids {
		msg.ToolCalls = append(msg.ToolCalls, toolCall(id))
	}
	return msg
}

func TestRepairMergesConsecutiveUserMessages(t *testing.T) {
	log := []Message{System("sys"), User("Hello"), User(" World")}

	got, report := Repair(log)

	require.Len(t, got, 2)
	require.Equal(t, RoleUser, got[1].Role)
	require.Equal(t, "Hello World", got[1].Content)
	require.Equal(t, []string{"Merged consecutive user messages at positions 1 and 2"}, report.Fixes)
	require.Empty(t, report.Findings)
}

func TestRepairMergesAssistantContentAndReasoning(t *testing.T) {
	log := []Message{
		System("sys"),
		User("q"),
		{Role: RoleAssistant, Content: "Answer 1", Reasoning: "r1"},
		{Role: RoleAssistant, Content: "Answer 2", Reasoning: "r2"},
		User("next"),
	}

	got, report := Repair(log)

	require.Len(t, got, 4)
	require.Equal(t, "Answer 1Answer 2", got[2].Content)
	require.Equal(t, "r1r2", got[2].Reasoning)
	require.Len(t, report.Fixes, 1)
	require.True(t, report.Valid())
}

func TestRepairMergesRunsOfThree(t *testing.T) {
	log := []Message{System("sys"), User("a"), User("b"), User("c")}

	got, report := Repair(log)

	require.Len(t, got, 2)
	require.Equal(t, "abc", got[1].Content)
	require.Equal(t, []string{
		"Merged consecutive user messages at positions 1 and 2",
		"Merged consecutive user messages at positions 1 and 2",
	}, report.Fixes)
}

func TestRepairTrimsTrailingEmptyAssistant(t *testing.T) {
	log := []Message{User("hi"), {Role: RoleAssistant}}

	got, report := Repair(log)

	require.Equal(t, []Message{User("hi")}, got)
	require.Contains(t, report.Fixes, "Removed empty assistant message at end")
}

func TestRepairKeepsAssistantWithOnlyReasoning(t *testing.T) {
	log := []Message{System("sys"), User("hi"), {Role: RoleAssistant, Reasoning: "thinking"}}

	got, report := Repair(log)

	require.Len(t, got, 3)
	require.Empty(t, report.Fixes)
	require.Equal(t, []string{"Last message is Assistant at 2, should end with User or Tool"}, report.Findings)
}

func TestRepairValidConversationHasNoFixes(t *testing.T) {
	log := []Message{
		System("sys"),
		User("Hello"),
		Assistant("Hi there"),
		User("How are you?"),
	}

	got, report := Repair(log)

	require.Len(t, got, 4)
	require.Empty(t, report.Fixes)
	require.Empty(t, report.Findings)
}

func TestRepairAcceptsMatchingToolSequence(t *testing.T) {
	log := []Message{
		System("sys"),
		User("check the terminal"),
		assistantWithCalls("tc1"),
		ToolResult("tc1", "output"),
		Assistant("Looks fine"),
		User("thanks"),
	}
	want := Clone(log)

	got, report := Repair(log)

	require.Equal(t, want, got)
	require.Empty(t, report.Fixes)
	require.Empty(t, report.Findings)
}

func TestRepairAcceptsMultipleToolMessages(t *testing.T) {
	log := []Message{
		System("sys"),
		User("go"),
		assistantWithCalls("a", "b"),
		ToolResult("b", "2"),
		ToolResult("a", "1"),
	}
	want := Clone(log)

	got, report := Repair(log)

	require.Equal(t, want, got)
	require.True(t, report.Valid(), "findings: %v", report.Findings)
	require.False(t, report.Changed())
}

func TestRepairFlagsToolCountMismatch(t *testing.T) {
	tests := []struct {
		name     string
		log      []Message
		findings []string
	}{
		{
			name: "fewer",
			log: []Message{
				System("sys"),
				User("go"),
				assistantWithCalls("a", "b"),
				ToolResult("a", "1"),
			},
			findings: []string{
				"Assistant at 2 has 2 tool_calls but followed by 1 tool messages, counts must match",
				"Tool call 'b' in Assistant at 2 has no corresponding Tool message",
			},
		},
		{
			name: "more",
			log: []Message{
				System("sys"),
				User("go"),
				assistantWithCalls("a"),
				ToolResult("a", "1"),
				ToolResult("a", "again"),
			},
			findings: []string{
				"Tool message at 4 repeats tool_call_id='a' already answered for Assistant at 2",
				"Assistant at 2 has 1 tool_calls but followed by 2 tool messages, counts must match",
			},
		},
		{
			name: "none",
			log: []Message{
				System("sys"),
				User("go"),
				assistantWithCalls("a"),
				User("hello?"),
			},
			findings: []string{
				"Assistant with tool_calls at 2 followed by user, expected Tool",
				"Assistant at 2 has 1 tool_calls but followed by 0 tool messages, counts must match",
				"Tool call 'a' in Assistant at 2 has no corresponding Tool message",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, report := Repair(tt.log)
			require.Equal(t, tt.findings, report.Findings)
		})
	}
}

func TestRepairScrubsUnknownToolCallID(t *testing.T) {
	log := []Message{
		System("sys"),
		User("go"),
		assistantWithCalls("a"),
		ToolResult("a", "1"),
		ToolResult("ghost", "2"),
	}

	got, report := Repair(log)

	require.Equal(t, "", got[4].ToolCallID)
	require.Equal(t, []string{"Tool message at 4 has unknown tool_call_id: ghost, clearing it"}, report.Fixes)
	require.Contains(t, report.Findings, "Tool message at 4 missing tool_call_id")
}

func TestRepairFlagsNonSystemFirstAndPreservesOrder(t *testing.T) {
	log := []Message{User("one"), Assistant("two"), User("three")}
	want := Clone(log)

	got, report := Repair(log)

	require.Equal(t, want, got)
	require.Equal(t, []string{"First message must be system, but found user"}, report.Findings)
}

func TestRepairFlagsStructuralViolations(t *testing.T) {
	log := []Message{
		System("sys"),
		User("q"),
		Assistant("a"),
		System("again"),
		{Role: RoleTool, Content: "loose"},
		{Role: Role("critic"), Content: "?"},
	}

	_, report := Repair(log)

	require.Equal(t, []string{
		"Assistant without tool_calls at 2 followed by system, expected User",
		"System message found at position 3, should only be at position 0",
		"Tool message at 4 missing tool_call_id",
		"Tool message at 4 followed by critic, expected Tool or Assistant",
		"Unknown role 'critic' at position 5",
	}, report.Findings)
}

func TestRepairFlagsEmptyAssistantInTheMiddle(t *testing.T) {
	log := []Message{System("sys"), User("q"), {Role: RoleAssistant}, User("q2")}

	_, report := Repair(log)

	require.Equal(t, []string{"Assistant message at 2 has no content and no tool_calls, this is invalid"}, report.Findings)
}

func TestRepairIsIdempotent(t *testing.T) {
	logs := [][]Message{
		{User("Hello"), User(" World"), {Role: RoleAssistant}},
		{System("s"), User("a"), assistantWithCalls("x", "y"), ToolResult("x", "1"), ToolResult("zz", "2"), Assistant("ok"), Assistant("!")},
		{System("s"), Assistant("a"), Assistant("b"), {Role: RoleAssistant}, {Role: RoleAssistant}},
		{{Role: RoleTool, ToolCallID: "nope"}, User("u"), User("v")},
		{},
	}

	for _, log := range logs {
		once, _ := Repair(Clone(log))
		onceCopy := Clone(once)
		twice, report := Repair(once)
		require.Equal(t, onceCopy, twice)
		require.Empty(t, report.Fixes)
	}
}
