package conversation

import (
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// SanitizeForSend drops persisted tool calls that a provider would reject:
// calls without a function name and calls whose arguments are not a JSON
// object. Blank arguments become "{}". An assistant message left with
// nothing to send is dropped as well.
func SanitizeForSend(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role != RoleAssistant || len(msg.ToolCalls) == 0 {
			out = append(out, msg)
			continue
		}

		kept := make([]ToolCall, 0, len(msg.ToolCalls))
		for _, call := range msg.ToolCalls {
			if strings.TrimSpace(call.Name) == "" {
				log.Warnf("conversation: dropping persisted tool call with empty function name: id=%s", call.ID)
				continue
			}
			args := strings.TrimSpace(call.Arguments)
			if args == "" {
				args = "{}"
			}
			if !gjson.Valid(args) || !gjson.Parse(args).IsObject() {
				log.Warnf("conversation: dropping persisted tool call with non-object args: id=%s name=%s", call.ID, call.Name)
				continue
			}
			call.Arguments = args
			if call.Type == "" {
				call.Type = ToolCallTypeFunction
			}
			kept = append(kept, call)
		}

		msg.ToolCalls = kept
		if len(kept) == 0 {
			msg.ToolCalls = nil
		}
		if msg.IsEmptyAssistant() {
			log.Warnf("conversation: dropping assistant message left empty after tool call cleanup")
			continue
		}
		out = append(out, msg)
	}
	return out
}
