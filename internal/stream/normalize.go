package stream

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/jbonatakis/reshai/internal/conversation"
)

type frameShape int

const (
	shapeUnknown frameShape = iota
	shapeDelta
	shapeMessage
)

// Normalize classifies one SSE data payload. Classification order is fixed:
// the sentinel, then a delta object on the first choice, then complete
// messages. Frames that fit neither, including malformed JSON, become an
// empty Content event.
func Normalize(data string) Event {
	data = strings.TrimSpace(data)
	if data == DoneSentinel {
		return Event{Kind: EventDone}
	}
	if data == "" {
		return keepAlive()
	}
	if !gjson.Valid(data) {
		log.Debugf("stream: ignoring malformed frame (%d bytes)", len(data))
		return keepAlive()
	}

	root := gjson.Parse(data)
	choices := root.Get("choices")
	switch classify(choices) {
	case shapeDelta:
		return normalizeDelta(choices.Get("0.delta"))
	case shapeMessage:
		return normalizeMessages(choices)
	default:
		return keepAlive()
	}
}

func classify(choices gjson.Result) frameShape {
	if !choices.IsArray() {
		return shapeUnknown
	}
	if choices.Get("0.delta").IsObject() {
		return shapeDelta
	}
	shape := shapeUnknown
	choices.ForEach(func(_, choice gjson.Result) bool {
		if choice.Get("message").IsObject() {
			shape = shapeMessage
			return false
		}
		return true
	})
	return shape
}

func normalizeDelta(delta gjson.Result) Event {
	if content := delta.Get("content"); content.Type == gjson.String && content.String() != "" {
		return Event{Kind: EventContent, Text: content.String()}
	}
	if reasoning := reasoningField(delta); reasoning != "" {
		return Event{Kind: EventReasoning, Text: reasoning}
	}
	if calls := delta.Get("tool_calls"); calls.IsArray() && len(calls.Array()) > 0 {
		return Event{Kind: EventToolCallDelta, ToolCalls: parseFragments(calls)}
	}
	return keepAlive()
}

func normalizeMessages(choices gjson.Result) Event {
	var messages []gjson.Result
	roles := make(map[string]struct{})
	hasTool := false
	choices.ForEach(func(_, choice gjson.Result) bool {
		msg := choice.Get("message")
		if !msg.IsObject() {
			return true
		}
		role := messageRole(msg)
		roles[role] = struct{}{}
		if role == string(conversation.RoleTool) {
			hasTool = true
		}
		messages = append(messages, msg)
		return true
	})

	if len(roles) > 1 || hasTool {
		batch := make([]conversation.Message, 0, len(messages))
		for _, raw := range messages {
			msg := extractMessage(raw)
			if !msg.HasContent() && !msg.HasReasoning() && !msg.HasToolCalls() {
				continue
			}
			batch = append(batch, msg)
		}
		return Event{Kind: EventMessageBatch, Messages: batch}
	}

	msg := extractMessage(messages[0])
	msg.Role = conversation.RoleAssistant
	if msg.HasToolCalls() {
		return Event{Kind: EventMessageBatch, Messages: []conversation.Message{msg}}
	}
	return Event{Kind: EventContent, Text: msg.Content, Reasoning: msg.Reasoning}
}

func messageRole(msg gjson.Result) string {
	role := strings.ToLower(strings.TrimSpace(msg.Get("role").String()))
	if role == "" {
		return string(conversation.RoleAssistant)
	}
	return role
}

func extractMessage(raw gjson.Result) conversation.Message {
	cleaned, thinking := ExtractThinking(contentText(raw.Get("content")))
	reasoning := reasoningField(raw)
	if reasoning == "" {
		reasoning = thinking
	}

	msg := conversation.Message{
		Role:       conversation.Role(messageRole(raw)),
		Content:    cleaned,
		Reasoning:  reasoning,
		ToolCallID: raw.Get("tool_call_id").String(),
	}
	raw.Get("tool_calls").ForEach(func(_, call gjson.Result) bool {
		tc := conversation.ToolCall{
			ID:        call.Get("id").String(),
			Type:      call.Get("type").String(),
			Name:      call.Get("function.name").String(),
			Arguments: argumentsText(call.Get("function.arguments")),
		}
		if tc.Type == "" {
			tc.Type = conversation.ToolCallTypeFunction
		}
		msg.ToolCalls = append(msg.ToolCalls, tc)
		return true
	})
	return msg
}

func reasoningField(obj gjson.Result) string {
	for _, key := range []string{"reasoning_content", "reasoning"} {
		if value := obj.Get(key); value.Type == gjson.String && value.String() != "" {
			return value.String()
		}
	}
	return ""
}

// contentText flattens string content and arrays of text parts.
func contentText(content gjson.Result) string {
	switch {
	case content.Type == gjson.String:
		return content.String()
	case content.IsArray():
		var b strings.Builder
		content.ForEach(func(_, part gjson.Result) bool {
			if part.Type == gjson.String {
				b.WriteString(part.String())
				return true
			}
			if text := part.Get("text"); text.Exists() {
				b.WriteString(text.String())
			}
			return true
		})
		return b.String()
	case content.IsObject():
		return content.Get("text").String()
	default:
		return ""
	}
}

// argumentsText keeps string arguments verbatim and re-serializes objects.
func argumentsText(args gjson.Result) string {
	if args.Type == gjson.String {
		return args.String()
	}
	if args.IsObject() || args.IsArray() {
		return args.Raw
	}
	return ""
}

func parseFragments(calls gjson.Result) []ToolCallFragment {
	var out []ToolCallFragment
	calls.ForEach(func(_, call gjson.Result) bool {
		frag := ToolCallFragment{
			ID:        call.Get("id").String(),
			Type:      call.Get("type").String(),
			Name:      call.Get("function.name").String(),
			Arguments: argumentsText(call.Get("function.arguments")),
		}
		if idx := call.Get("index"); idx.Type == gjson.Number {
			value := int(idx.Int())
			frag.Index = &value
		}
		out = append(out, frag)
		return true
	})
	return out
}
