package tui

import (
	"strings"
	"testing"

	"github.com/jbonatakis/reshai/internal/agent"
	"github.com/jbonatakis/reshai/internal/conversation"
)

func TestBottomBarIdleHints(t *testing.T) {
	model := Model{
		mode:        agent.ModeAgent,
		turn:        agent.TurnOptions{ModelID: "gpt-4o"},
		windowWidth: 140,
	}

	out := RenderBottomBar(model)
	for _, hint := range []string{"[enter]send", "[ctrl+r]egenerate", "[ctrl+c]quit", "mode:agent", "model:gpt-4o"} {
		if !strings.Contains(out, hint) {
			t.Fatalf("expected %q in bottom bar, got %q", hint, out)
		}
	}
}

func TestBottomBarBusyShowsSpinner(t *testing.T) {
	model := Model{mode: agent.ModeAsk, busy: true, spinnerIndex: 1, windowWidth: 120}

	out := RenderBottomBar(model)
	if !strings.Contains(out, "/ waiting for the model") {
		t.Fatalf("expected spinner frame, got %q", out)
	}
	if !strings.Contains(out, "[esc]cancel") || strings.Contains(out, "[enter]send") {
		t.Fatalf("unexpected busy hints: %q", out)
	}
}

func TestBottomBarConfirmHints(t *testing.T) {
	model := Model{
		mode:    agent.ModeAgent,
		confirm: NewConfirmPanel([]conversation.ToolCall{{ID: "c1", Name: "send_interrupt"}}),
	}

	out := RenderBottomBar(model)
	if !strings.Contains(out, "[y]es") || !strings.Contains(out, "[enter]submit") {
		t.Fatalf("expected confirm hints, got %q", out)
	}
}

func TestLayoutBarTruncatesLeft(t *testing.T) {
	bar := layoutBar("a very long list of hints", "mode:ask", 20)
	if len([]rune(bar)) != 20 {
		t.Fatalf("bar width = %d, want 20: %q", len([]rune(bar)), bar)
	}
	if !strings.HasSuffix(bar, "mode:ask") {
		t.Fatalf("right side should survive truncation: %q", bar)
	}
}
