package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// Start runs the chat UI until the user quits. Quitting cancels any turn
// still running.
func Start(cfg Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	program := tea.NewProgram(NewModel(ctx, cfg), tea.WithAltScreen())
	_, err := program.Run()
	return err
}
