package conversation

import "fmt"

// Report lists what Repair changed and what it found but left alone.
// Fixes are mechanical repairs (merge, trim, orphan id scrub); Findings are
// structural violations recorded for diagnosis only.
type Report struct {
	Fixes    []string
	Findings []string
}

// Changed reports whether Repair modified the log.
func (r Report) Changed() bool { return len(r.Fixes) > 0 }

// Valid reports whether the repaired log satisfies every sequence rule.
func (r Report) Valid() bool { return len(r.Findings) == 0 }

// All returns fixes followed by findings.
func (r Report) All() []string {
	out := make([]string, 0, len(r.Fixes)+len(r.Findings))
	out = append(out, r.Fixes...)
	return append(out, r.Findings...)
}

func (r *Report) fix(format string, args ...any) {
	r.Fixes = append(r.Fixes, fmt.Sprintf(format, args...))
}

func (r *Report) finding(format string, args ...any) {
	r.Findings = append(r.Findings, fmt.Sprintf(format, args...))
}

// Repair merges, trims and scrubs messages, then scans the result for
// protocol violations. It may reuse the backing array of messages; callers
// should use the returned slice. Running Repair on its own output yields no
// further fixes.
func Repair(messages []Message) ([]Message, Report) {
	var report Report
	messages = mergeConsecutiveRoles(messages, &report)
	messages = trimTrailingEmptyAssistant(messages, &report)
	scrubUnknownToolCallIDs(messages, &report)
	scanSequence(messages, &report)
	return messages, report
}

// Tool messages are never merged: an assistant with N calls needs N of them.
func mergeConsecutiveRoles(messages []Message, report *Report) []Message {
	i := 0
	for i < len(messages)-1 {
		cur := &messages[i]
		next := messages[i+1]
		if cur.Role != next.Role || cur.Role == RoleTool {
			i++
			continue
		}

		cur.Content += next.Content
		if cur.Role == RoleAssistant {
			cur.Reasoning += next.Reasoning
			if len(next.ToolCalls) > 0 {
				cur.ToolCalls = append(append([]ToolCall(nil), cur.ToolCalls...), next.ToolCalls...)
			}
		}
		messages = append(messages[:i+1], messages[i+2:]...)
		report.fix("Merged consecutive %s messages at positions %d and %d", cur.Role, i, i+1)
	}
	return messages
}

func trimTrailingEmptyAssistant(messages []Message, report *Report) []Message {
	for len(messages) > 0 && messages[len(messages)-1].IsEmptyAssistant() {
		messages = messages[:len(messages)-1]
		report.fix("Removed empty assistant message at end")
	}
	return messages
}

func scrubUnknownToolCallIDs(messages []Message, report *Report) {
	known := make(map[string]struct{})
	for _, msg := range messages {
		for _, call := range msg.ToolCalls {
			known[call.ID] = struct{}{}
		}
	}
	for i := range messages {
		msg := &messages[i]
		if msg.Role != RoleTool || msg.ToolCallID == "" {
			continue
		}
		if _, ok := known[msg.ToolCallID]; ok {
			continue
		}
		report.fix("Tool message at %d has unknown tool_call_id: %s, clearing it", i, msg.ToolCallID)
		msg.ToolCallID = ""
	}
}

func scanSequence(messages []Message, report *Report) {
	if len(messages) == 0 {
		return
	}
	if messages[0].Role != RoleSystem {
		report.finding("First message must be system, but found %s", messages[0].Role)
	}

	last := len(messages) - 1
	for i := 0; i < len(messages); i++ {
		msg := messages[i]
		switch msg.Role {
		case RoleSystem:
			if i != 0 {
				report.finding("System message found at position %d, should only be at position 0", i)
			}
		case RoleUser:
			if i < last && messages[i+1].Role != RoleAssistant {
				report.finding("User message at %d followed by %s, expected Assistant", i, messages[i+1].Role)
			}
		case RoleAssistant:
			i = scanAssistant(messages, i, report)
		case RoleTool:
			if msg.ToolCallID == "" {
				report.finding("Tool message at %d missing tool_call_id", i)
			}
			if i < last {
				next := messages[i+1].Role
				if next != RoleTool && next != RoleAssistant {
					report.finding("Tool message at %d followed by %s, expected Tool or Assistant", i, next)
				}
			}
		default:
			report.finding("Unknown role '%s' at position %d", msg.Role, i)
		}
	}
}

// scanAssistant checks the assistant at i and the tool messages answering it.
// It returns the index of the last message it consumed.
func scanAssistant(messages []Message, i int, report *Report) int {
	msg := messages[i]
	last := len(messages) - 1

	if msg.IsEmptyAssistant() {
		report.finding("Assistant message at %d has no content and no tool_calls, this is invalid", i)
	}
	if i == last {
		if msg.IsEmptyAssistant() {
			report.finding("Assistant message at %d (last message) is empty, should be removed", i)
		} else {
			report.finding("Last message is Assistant at %d, should end with User or Tool", i)
		}
		return i
	}

	next := messages[i+1]
	if !msg.HasToolCalls() {
		if next.Role != RoleUser {
			report.finding("Assistant without tool_calls at %d followed by %s, expected User", i, next.Role)
		}
		return i
	}

	if next.Role != RoleTool {
		report.finding("Assistant with tool_calls at %d followed by %s, expected Tool", i, next.Role)
	}

	callIDs := make(map[string]struct{}, len(msg.ToolCalls))
	for _, call := range msg.ToolCalls {
		callIDs[call.ID] = struct{}{}
	}
	answered := make(map[string]struct{}, len(msg.ToolCalls))
	j := i + 1
	for ; j < len(messages) && messages[j].Role == RoleTool; j++ {
		id := messages[j].ToolCallID
		if id == "" {
			report.finding("Tool message at %d missing tool_call_id", j)
			continue
		}
		if _, ok := callIDs[id]; !ok {
			report.finding("Tool message at %d has tool_call_id='%s' which doesn't match any tool_calls in Assistant at %d", j, id, i)
			continue
		}
		if _, dup := answered[id]; dup {
			report.finding("Tool message at %d repeats tool_call_id='%s' already answered for Assistant at %d", j, id, i)
			continue
		}
		answered[id] = struct{}{}
	}

	if tools := j - (i + 1); tools != len(msg.ToolCalls) {
		report.finding("Assistant at %d has %d tool_calls but followed by %d tool messages, counts must match", i, len(msg.ToolCalls), tools)
	}
	for _, call := range msg.ToolCalls {
		if _, ok := answered[call.ID]; !ok {
			report.finding("Tool call '%s' in Assistant at %d has no corresponding Tool message", call.ID, i)
		}
	}

	if j == i+1 {
		return i
	}
	if j <= last {
		if follow := messages[j].Role; follow != RoleAssistant {
			report.finding("Tool message at %d followed by %s, expected Tool or Assistant", j-1, follow)
		}
	}
	return j - 1
}
