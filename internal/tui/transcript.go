package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jbonatakis/reshai/internal/conversation"
)

type entryKind int

const (
	entryUser entryKind = iota
	entryAssistant
	entryReasoning
	entryToolCall
	entryToolResult
	entryNotice
	entryError
)

type entry struct {
	kind  entryKind
	label string
	text  string
}

var (
	userLabelStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	assistantLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("46"))
	reasoningStyle      = lipgloss.NewStyle().Faint(true).Italic(true)
	toolStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	resultStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	noticeStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle          = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// transcript is the rendered conversation. Streaming text extends the last
// entry while it has the same kind.
type transcript struct {
	entries []entry
	// open is true while the last entry may still grow.
	open bool
}

func (t *transcript) add(e entry) {
	t.entries = append(t.entries, e)
	t.open = false
}

// stream appends text to the open entry of kind, starting one if needed.
func (t *transcript) stream(kind entryKind, text string) {
	if t.open && len(t.entries) > 0 && t.entries[len(t.entries)-1].kind == kind {
		t.entries[len(t.entries)-1].text += text
		return
	}
	t.entries = append(t.entries, entry{kind: kind, text: text})
	t.open = true
}

func (t *transcript) has(kind entryKind) bool {
	for _, e := range t.entries {
		if e.kind == kind {
			return true
		}
	}
	return false
}

func (t *transcript) close() {
	t.open = false
}

// loadHistory renders a stored log.
func (t *transcript) loadHistory(messages []conversation.Message) {
	for _, msg := range messages {
		switch msg.Role {
		case conversation.RoleUser:
			t.add(entry{kind: entryUser, text: msg.Content})
		case conversation.RoleAssistant:
			if msg.HasReasoning() {
				t.add(entry{kind: entryReasoning, text: msg.Reasoning})
			}
			if msg.HasContent() {
				t.add(entry{kind: entryAssistant, text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				t.add(toolCallEntry(call))
			}
		case conversation.RoleTool:
			t.add(entry{kind: entryToolResult, text: msg.Content})
		}
	}
}

func toolCallEntry(call conversation.ToolCall) entry {
	return entry{kind: entryToolCall, label: call.Name, text: call.Arguments}
}

func (t *transcript) render(width int) string {
	wrap := lipgloss.NewStyle()
	if width > 0 {
		wrap = wrap.Width(width)
	}
	blocks := make([]string, 0, len(t.entries))
	for _, e := range t.entries {
		blocks = append(blocks, wrap.Render(renderEntry(e)))
	}
	return strings.Join(blocks, "\n\n")
}

func renderEntry(e entry) string {
	switch e.kind {
	case entryUser:
		return userLabelStyle.Render("you") + "\n" + e.text
	case entryAssistant:
		return assistantLabelStyle.Render("assistant") + "\n" + e.text
	case entryReasoning:
		return reasoningStyle.Render("thinking: " + e.text)
	case entryToolCall:
		return toolStyle.Render(fmt.Sprintf("tool call %s(%s)", e.label, e.text))
	case entryToolResult:
		head := "result"
		if e.label != "" {
			head = e.label + " result"
		}
		return resultStyle.Render(head + "\n" + strings.TrimRight(e.text, "\n"))
	case entryError:
		return errorStyle.Render("error: " + e.text)
	default:
		return noticeStyle.Render(e.text)
	}
}
