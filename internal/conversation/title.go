package conversation

import "strings"

const (
	DefaultTitle   = "New Chat"
	maxTitleLength = 50
)

// Title derives a session title from the first user message.
func Title(firstMessage string) string {
	text := strings.TrimSpace(firstMessage)
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		text = strings.TrimSpace(text[:idx])
	}
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return DefaultTitle
	}
	runes := []rune(text)
	if len(runes) <= maxTitleLength {
		return text
	}
	return string(runes[:maxTitleLength-3]) + "..."
}
