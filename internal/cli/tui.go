package cli

import (
	"context"

	"github.com/jbonatakis/reshai/internal/agent"
	"github.com/jbonatakis/reshai/internal/tui"
)

func runTUI(args []string) error {
	f, err := parseChatFlags("tui", args)
	if err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	session, err := a.chatSession(f.session, f.model)
	if err != nil {
		return err
	}
	defer a.terminal.Close(session.TerminalSessionID)

	messages, err := a.history.Load(context.Background(), session.ID, 0)
	if err != nil {
		return err
	}

	return tui.Start(tui.Config{
		Chat:        a.orchestrator(),
		SessionID:   session.ID,
		Title:       session.Title,
		History:     messages,
		Turn:        agent.TurnOptions{Mode: agent.Mode(f.mode), ModelID: f.model},
		DefaultMode: agent.Mode(a.cfg.AI.Mode),
		AutoApprove: f.yes,
	})
}
