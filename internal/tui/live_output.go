package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jbonatakis/reshai/internal/agent"
)

// turnEventMsg carries one event of the running turn.
type turnEventMsg struct {
	events <-chan agent.Event
	event  agent.Event
}

// turnClosedMsg reports that the turn's event channel was closed.
type turnClosedMsg struct {
	events <-chan agent.Event
}

// turnStartedMsg is the result of Send, Confirm or Regenerate.
type turnStartedMsg struct {
	events <-chan agent.Event
	err    error
}

type spinnerTickMsg struct{}

func listenTurnCmd(ch <-chan agent.Event) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return turnClosedMsg{events: ch}
		}
		return turnEventMsg{events: ch, event: ev}
	}
}

func startTurnCmd(start func() (<-chan agent.Event, error)) tea.Cmd {
	return func() tea.Msg {
		events, err := start()
		return turnStartedMsg{events: events, err: err}
	}
}
