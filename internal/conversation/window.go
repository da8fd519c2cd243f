package conversation

import log "github.com/sirupsen/logrus"

// TruncateForHistory keeps at most roughly maxHistory trailing dialog
// messages, moving the window start onto a user message so a tool exchange
// is never cut in half. It looks forward inside the window first, then
// backward before it; with no user message at all it returns nil.
func TruncateForHistory(dialog []Message, maxHistory int) []Message {
	if len(dialog) == 0 || maxHistory <= 0 {
		return nil
	}

	tentative := len(dialog) - maxHistory
	if tentative < 0 {
		tentative = 0
	}

	start := -1
	for i := tentative; i < len(dialog); i++ {
		if dialog[i].Role == RoleUser {
			start = i
			break
		}
	}
	if start < 0 {
		for i := tentative - 1; i >= 0; i-- {
			if dialog[i].Role == RoleUser {
				start = i
				break
			}
		}
	}
	if start < 0 {
		log.Warnf("conversation: no user message in history window; dropping %d dialog messages", len(dialog))
		return nil
	}
	if start != tentative {
		log.Debugf("conversation: history window start moved from %d to %d to keep a user boundary", tentative, start)
	}

	out := make([]Message, len(dialog)-start)
	copy(out, dialog[start:])
	return out
}

// WithoutSystem drops system messages; the system prompt is rebuilt per turn.
func WithoutSystem(messages []Message) []Message {
	out := make([]Message, 0, len(messages))
	for _, msg := range messages {
		if msg.Role == RoleSystem {
			continue
		}
		out = append(out, msg)
	}
	return out
}
