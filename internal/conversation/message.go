package conversation

import (
	"strings"
	"time"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCallTypeFunction is the only tool call type the chat APIs emit today.
const ToolCallTypeFunction = "function"

type ToolCall struct {
	ID        string `json:"id"`
	Type      string `json:"type,omitempty"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is one entry of a conversation log. Empty strings stand for absent
// optional fields: content and reasoning are never stored as "".
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       Role       `json:"role"`
	Content    string     `json:"content,omitempty"`
	Reasoning  string     `json:"reasoning_content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ModelID    string     `json:"model_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

func (m Message) HasContent() bool   { return m.Content != "" }
func (m Message) HasReasoning() bool { return m.Reasoning != "" }
func (m Message) HasToolCalls() bool { return len(m.ToolCalls) > 0 }

// IsEmptyAssistant reports an assistant message with nothing to send.
func (m Message) IsEmptyAssistant() bool {
	return m.Role == RoleAssistant && !m.HasContent() && !m.HasReasoning() && !m.HasToolCalls()
}

func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

func ToolResult(callID string, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: callID}
}

// CallIDs returns the tool call ids of m in order.
func (m Message) CallIDs() []string {
	if len(m.ToolCalls) == 0 {
		return nil
	}
	ids := make([]string, 0, len(m.ToolCalls))
	for _, call := range m.ToolCalls {
		ids = append(ids, call.ID)
	}
	return ids
}

// Clone returns a deep copy of messages.
func Clone(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	out := make([]Message, len(messages))
	for i, msg := range messages {
		out[i] = msg
		if msg.ToolCalls != nil {
			out[i].ToolCalls = append([]ToolCall(nil), msg.ToolCalls...)
		}
	}
	return out
}

// ParseRole maps a stored role string onto a Role. Unknown values are kept
// verbatim so the validator can report them.
func ParseRole(value string) Role {
	return Role(strings.ToLower(strings.TrimSpace(value)))
}
