package agent

import "github.com/jbonatakis/reshai/internal/conversation"

type EventType string

const (
	EventStarted   EventType = "started"
	EventChunk     EventType = "chunk"
	EventReasoning EventType = "reasoning"
	// EventToolResult reports one executed or declined call before the
	// follow-up turn starts.
	EventToolResult EventType = "tool_result"
	EventToolCall   EventType = "tool_call"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one notification on a session's event channel. Each turn ends
// with exactly one of EventToolCall, EventDone or EventError.
type Event struct {
	Type      EventType
	SessionID string
	TurnID    string
	Text      string
	// ToolCalls is the pending batch on EventToolCall, or the single call
	// on EventToolResult.
	ToolCalls []conversation.ToolCall
	// Message is the persisted assistant message on EventToolCall and
	// EventDone when one was stored.
	Message *conversation.Message
	Err     error
}

// Terminal reports whether e ends a turn.
func (e Event) Terminal() bool {
	return e.Type == EventToolCall || e.Type == EventDone || e.Type == EventError
}

const eventBuffer = 64
