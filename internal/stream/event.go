package stream

import "github.com/jbonatakis/reshai/internal/conversation"

// DoneSentinel is the data payload that ends a chat completion stream.
const DoneSentinel = "[DONE]"

type EventKind int

const (
	EventContent EventKind = iota
	EventReasoning
	EventToolCallDelta
	EventMessageBatch
	EventDone
)

func (k EventKind) String() string {
	switch k {
	case EventContent:
		return "content"
	case EventReasoning:
		return "reasoning"
	case EventToolCallDelta:
		return "tool_call_delta"
	case EventMessageBatch:
		return "message_batch"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is one normalized unit of model output.
//
// Text carries the Content or Reasoning delta. A Content event produced from a
// complete single message may also carry Reasoning extracted from it.
type Event struct {
	Kind      EventKind
	Text      string
	Reasoning string
	ToolCalls []ToolCallFragment
	Messages  []conversation.Message
}

// ToolCallFragment is one slot-indexed piece of a streamed tool call.
type ToolCallFragment struct {
	Index     *int
	ID        string
	Type      string
	Name      string
	Arguments string
}

// IsKeepAlive reports an empty Content event.
func (e Event) IsKeepAlive() bool {
	return e.Kind == EventContent && e.Text == "" && e.Reasoning == ""
}

func keepAlive() Event {
	return Event{Kind: EventContent}
}
