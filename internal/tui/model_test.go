package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jbonatakis/reshai/internal/agent"
	"github.com/jbonatakis/reshai/internal/conversation"
	"github.com/jbonatakis/reshai/internal/errs"
)

type fakeChat struct {
	sent       []string
	confirmed  [][]string
	regenerate int
	cancelled  int
	confirmErr error
	events     chan agent.Event
}

func (f *fakeChat) Send(_ context.Context, _ string, text string, _ agent.TurnOptions) (<-chan agent.Event, error) {
	f.sent = append(f.sent, text)
	return f.events, nil
}

func (f *fakeChat) Confirm(_ context.Context, _ string, approved []string) (<-chan agent.Event, error) {
	f.confirmed = append(f.confirmed, approved)
	if f.confirmErr != nil {
		err := f.confirmErr
		f.confirmErr = nil
		return nil, err
	}
	return f.events, nil
}

func (f *fakeChat) Regenerate(context.Context, string, agent.TurnOptions) (<-chan agent.Event, error) {
	f.regenerate++
	return f.events, nil
}

func (f *fakeChat) Cancel(string) bool {
	f.cancelled++
	return true
}

func newTestModel(chat *fakeChat) Model {
	m := NewModel(context.Background(), Config{Chat: chat, SessionID: "s1", DefaultMode: agent.ModeAgent})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	return updated.(Model)
}

// runCmd executes cmd and feeds the resulting messages back into the model
// until no command is left. Spinner ticks are dropped.
func runCmd(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	if cmd == nil {
		return m
	}
	return feed(t, m, cmd())
}

func feed(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	switch typed := msg.(type) {
	case tea.BatchMsg:
		for _, c := range typed {
			if c != nil {
				m = feed(t, m, c())
			}
		}
		return m
	case spinnerTickMsg:
		return m
	}
	updated, next := m.Update(msg)
	return runCmd(t, updated.(Model), next)
}

func typeText(m Model, text string) Model {
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
	return updated.(Model)
}

func closedTurn(events ...agent.Event) chan agent.Event {
	ch := make(chan agent.Event, len(events))
	for _, ev := range events {
		ch <- ev
	}
	close(ch)
	return ch
}

func TestUpdateQuitCommand(t *testing.T) {
	chat := &fakeChat{}
	model := newTestModel(chat)

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command, got nil")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit command to return tea.QuitMsg")
	}
	if chat.cancelled != 0 {
		t.Fatalf("idle quit should not cancel")
	}
}

func TestUpdateQuitCancelsRunningTurn(t *testing.T) {
	chat := &fakeChat{}
	model := newTestModel(chat)
	model.busy = true

	_, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if chat.cancelled != 1 {
		t.Fatalf("expected the running turn to be cancelled")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit command to return tea.QuitMsg")
	}
}

func TestSendStreamsAnswerIntoTranscript(t *testing.T) {
	chat := &fakeChat{events: closedTurn(
		agent.Event{Type: agent.EventStarted},
		agent.Event{Type: agent.EventReasoning, Text: "checking df"},
		agent.Event{Type: agent.EventChunk, Text: "Disk is "},
		agent.Event{Type: agent.EventChunk, Text: "40% full."},
		agent.Event{Type: agent.EventDone},
	)}
	model := typeText(newTestModel(chat), "how full is the disk?")

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	if !model.busy {
		t.Fatalf("expected model to be busy after send")
	}
	model = runCmd(t, model, cmd)

	if len(chat.sent) != 1 || chat.sent[0] != "how full is the disk?" {
		t.Fatalf("sent = %v", chat.sent)
	}
	if model.busy {
		t.Fatalf("expected turn to finish")
	}
	if model.title != "how full is the disk?" {
		t.Fatalf("title = %q", model.title)
	}
	kinds := []entryKind{entryUser, entryReasoning, entryAssistant}
	if len(model.transcript.entries) != len(kinds) {
		t.Fatalf("entries = %+v", model.transcript.entries)
	}
	for i, kind := range kinds {
		if model.transcript.entries[i].kind != kind {
			t.Fatalf("entry %d kind = %v, want %v", i, model.transcript.entries[i].kind, kind)
		}
	}
	if got := model.transcript.entries[2].text; got != "Disk is 40% full." {
		t.Fatalf("assistant text = %q", got)
	}
}

func TestToolCallOpensConfirmPanelAndSubmits(t *testing.T) {
	calls := []conversation.ToolCall{
		{ID: "c1", Name: "run_in_terminal", Arguments: `{"command":"df -h"}`},
		{ID: "c2", Name: "send_interrupt", Arguments: `{}`},
	}
	chat := &fakeChat{events: closedTurn(
		agent.Event{Type: agent.EventStarted},
		agent.Event{Type: agent.EventToolCall, ToolCalls: calls},
	)}
	model := typeText(newTestModel(chat), "check disk")
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = runCmd(t, updated.(Model), cmd)

	if model.confirm == nil {
		t.Fatalf("expected confirm panel")
	}
	if !strings.Contains(model.View(), "Run 2 tool call(s)?") {
		t.Fatalf("expected confirm panel in view")
	}

	// decline the second call, then submit
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeyDown})
	model = updated.(Model)
	updated, _ = model.Update(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}})
	model = updated.(Model)

	chat.events = closedTurn(
		agent.Event{Type: agent.EventToolResult, Text: "Filesystem  Size", ToolCalls: calls[:1]},
		agent.Event{Type: agent.EventToolResult, Text: agent.DeclinedResult, ToolCalls: calls[1:]},
		agent.Event{Type: agent.EventStarted},
		agent.Event{Type: agent.EventChunk, Text: "Plenty of space."},
		agent.Event{Type: agent.EventDone},
	)
	updated, cmd = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = runCmd(t, updated.(Model), cmd)

	if len(chat.confirmed) != 1 || len(chat.confirmed[0]) != 1 || chat.confirmed[0][0] != "c1" {
		t.Fatalf("confirmed = %v", chat.confirmed)
	}
	if model.confirm != nil {
		t.Fatalf("confirm panel should close after submit")
	}
	last := model.transcript.entries[len(model.transcript.entries)-1]
	if last.kind != entryAssistant || last.text != "Plenty of space." {
		t.Fatalf("last entry = %+v", last)
	}
}

func TestAuthorizationErrorDeclinesAll(t *testing.T) {
	calls := []conversation.ToolCall{{ID: "c1", Name: "run_in_terminal", Arguments: `{"command":"reboot"}`}}
	chat := &fakeChat{
		events:     closedTurn(agent.Event{Type: agent.EventDone}),
		confirmErr: errs.Authorization("tool run_in_terminal is not permitted in ask mode"),
	}
	model := newTestModel(chat)
	model.confirm = NewConfirmPanel(calls)

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'y'}})
	runCmd(t, updated.(Model), cmd)

	if len(chat.confirmed) != 2 || len(chat.confirmed[1]) != 0 {
		t.Fatalf("expected a retry declining every call, got %v", chat.confirmed)
	}
}

func TestAutoApproveConfirmsWithoutPanel(t *testing.T) {
	calls := []conversation.ToolCall{{ID: "c1", Name: "get_terminal_output", Arguments: `{}`}}
	chat := &fakeChat{events: closedTurn(agent.Event{Type: agent.EventToolCall, ToolCalls: calls})}
	model := NewModel(context.Background(), Config{Chat: chat, SessionID: "s1", AutoApprove: true})
	model = typeText(model, "look")

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = updated.(Model)
	// the confirmed turn reuses the closed channel and ends at once
	model = runCmd(t, model, cmd)

	if len(chat.confirmed) != 1 || len(chat.confirmed[0]) != 1 || chat.confirmed[0][0] != "c1" {
		t.Fatalf("confirmed = %v", chat.confirmed)
	}
	if model.confirm != nil || model.busy {
		t.Fatalf("expected idle model after auto approval")
	}
}

func TestTurnErrorIsShown(t *testing.T) {
	chat := &fakeChat{events: closedTurn(
		agent.Event{Type: agent.EventStarted},
		agent.Event{Type: agent.EventError, Err: errs.Transport(errors.New("connection reset"))},
	)}
	model := typeText(newTestModel(chat), "hi")
	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = runCmd(t, updated.(Model), cmd)

	last := model.transcript.entries[len(model.transcript.entries)-1]
	if last.kind != entryError || !strings.Contains(last.text, "connection reset") {
		t.Fatalf("last entry = %+v", last)
	}
}

func TestCancelledTurnIsANotice(t *testing.T) {
	model := newTestModel(&fakeChat{})
	model.showError(errors.Join(errors.New("turn cancelled"), context.Canceled))

	last := model.transcript.entries[len(model.transcript.entries)-1]
	if last.kind != entryNotice || last.text != "cancelled" {
		t.Fatalf("last entry = %+v", last)
	}
}

func TestStaleTurnMessagesAreIgnored(t *testing.T) {
	model := newTestModel(&fakeChat{})
	model.busy = true
	model.events = make(chan agent.Event)

	stale := make(chan agent.Event)
	updated, _ := model.Update(turnClosedMsg{events: stale})
	if !updated.(Model).busy {
		t.Fatalf("a closed stale channel must not end the current turn")
	}
}

func TestToggleModeAndRegenerate(t *testing.T) {
	chat := &fakeChat{events: closedTurn(agent.Event{Type: agent.EventDone})}
	model := newTestModel(chat)

	updated, _ := model.Update(tea.KeyMsg{Type: tea.KeyCtrlT})
	model = updated.(Model)
	if model.mode != agent.ModeAsk || model.turn.Mode != agent.ModeAsk {
		t.Fatalf("mode = %q, turn mode = %q", model.mode, model.turn.Mode)
	}

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	runCmd(t, updated.(Model), cmd)
	if chat.regenerate != 1 {
		t.Fatalf("expected regenerate to be called once")
	}
}

func TestHistoryIsLoadedIntoTranscript(t *testing.T) {
	assistant := conversation.Assistant("Let me look.")
	assistant.ToolCalls = []conversation.ToolCall{{ID: "c1", Name: "get_terminal_output", Arguments: "{}"}}
	model := NewModel(context.Background(), Config{
		Chat: &fakeChat{},
		History: []conversation.Message{
			conversation.User("what is running?"),
			assistant,
			conversation.ToolResult("c1", "top - 10:00"),
		},
	})

	kinds := []entryKind{entryUser, entryAssistant, entryToolCall, entryToolResult}
	if len(model.transcript.entries) != len(kinds) {
		t.Fatalf("entries = %+v", model.transcript.entries)
	}
	for i, kind := range kinds {
		if model.transcript.entries[i].kind != kind {
			t.Fatalf("entry %d kind = %v, want %v", i, model.transcript.entries[i].kind, kind)
		}
	}
}
