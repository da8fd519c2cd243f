package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbonatakis/reshai/internal/conversation"
)

// ConfirmPanel lists the tool calls of a turn and which of them the user
// approves. Every call starts approved.
type ConfirmPanel struct {
	calls    []conversation.ToolCall
	approved []bool
	cursor   int
}

func NewConfirmPanel(calls []conversation.ToolCall) *ConfirmPanel {
	approved := make([]bool, len(calls))
	for i := range approved {
		approved[i] = true
	}
	return &ConfirmPanel{calls: calls, approved: approved}
}

// ApprovedIDs returns the ids of the approved calls in order.
func (p *ConfirmPanel) ApprovedIDs() []string {
	var ids []string
	for i, call := range p.calls {
		if p.approved[i] {
			ids = append(ids, call.ID)
		}
	}
	return ids
}

func (p *ConfirmPanel) setAll(v bool) {
	for i := range p.approved {
		p.approved[i] = v
	}
}

// HandleKey updates the panel. It reports whether the user submitted.
func (p *ConfirmPanel) HandleKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(p.calls)-1 {
			p.cursor++
		}
	case " ", "x":
		if len(p.approved) > 0 {
			p.approved[p.cursor] = !p.approved[p.cursor]
		}
	case "a", "y":
		p.setAll(true)
		return msg.String() == "y"
	case "d", "n":
		p.setAll(false)
		return msg.String() == "n"
	case "enter":
		return true
	}
	return false
}

func (p *ConfirmPanel) View(width int) string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214"))
	itemStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	selectedStyle := itemStyle.Bold(true)
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	lines := []string{titleStyle.Render(fmt.Sprintf("Run %d tool call(s)?", len(p.calls))), ""}
	for i, call := range p.calls {
		box := "[ ]"
		if p.approved[i] {
			box = "[x]"
		}
		cursor := "  "
		style := itemStyle
		if i == p.cursor {
			cursor = "> "
			style = selectedStyle
		}
		line := fmt.Sprintf("%s%s %s %s", cursor, box, call.Name, compactArgs(call.Arguments))
		lines = append(lines, style.Render(line))
	}
	lines = append(lines, "", helpStyle.Render("space toggle  y approve all  n decline all  enter submit"))

	modalWidth := width - 4
	if modalWidth > 100 {
		modalWidth = 100
	}
	if modalWidth < 30 {
		modalWidth = 30
	}
	modalStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("214")).
		Padding(0, 1).
		Width(modalWidth)
	return modalStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func compactArgs(args string) string {
	args = strings.Join(strings.Fields(args), " ")
	if len(args) > 80 {
		return args[:77] + "..."
	}
	return args
}
