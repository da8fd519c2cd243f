package tui

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jbonatakis/reshai/internal/agent"
	"github.com/jbonatakis/reshai/internal/conversation"
	"github.com/jbonatakis/reshai/internal/errs"
)

// Chat is the part of the orchestrator the TUI drives.
type Chat interface {
	Send(ctx context.Context, sessionID string, text string, opts agent.TurnOptions) (<-chan agent.Event, error)
	Confirm(ctx context.Context, sessionID string, approvedIDs []string) (<-chan agent.Event, error)
	Regenerate(ctx context.Context, sessionID string, opts agent.TurnOptions) (<-chan agent.Event, error)
	Cancel(sessionID string) bool
}

type Config struct {
	Chat      Chat
	SessionID string
	Title     string
	History   []conversation.Message
	Turn      agent.TurnOptions
	// DefaultMode is shown when Turn.Mode is empty.
	DefaultMode agent.Mode
	// AutoApprove confirms every tool call without showing the panel.
	AutoApprove bool
}

const (
	inputHeight     = 3
	spinnerInterval = 120 * time.Millisecond
)

type Model struct {
	chat      Chat
	ctx       context.Context
	sessionID string
	title     string
	turn      agent.TurnOptions
	mode      agent.Mode
	auto      bool

	transcript transcript
	viewport   viewport.Model
	input      textarea.Model
	confirm    *ConfirmPanel

	events       <-chan agent.Event
	busy         bool
	spinnerIndex int
	windowWidth  int
	windowHeight int
}

func NewModel(ctx context.Context, cfg Config) Model {
	input := textarea.New()
	input.Placeholder = "Ask about your terminal..."
	input.ShowLineNumbers = false
	input.CharLimit = 8000
	input.SetHeight(inputHeight)
	input.Focus()

	mode := cfg.Turn.Mode
	if mode == "" {
		mode = cfg.DefaultMode
	}

	m := Model{
		chat:      cfg.Chat,
		ctx:       ctx,
		sessionID: cfg.SessionID,
		title:     cfg.Title,
		turn:      cfg.Turn,
		mode:      mode,
		auto:      cfg.AutoApprove,
		viewport:  viewport.New(80, 20),
		input:     input,
	}
	m.transcript.loadHistory(cfg.History)
	m.refresh()
	return m
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = typed.Width
		m.windowHeight = typed.Height
		m.input.SetWidth(typed.Width)
		m.layout()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(typed)

	case turnStartedMsg:
		if typed.err != nil {
			m.busy = false
			m.showError(typed.err)
			return m, nil
		}
		m.events = typed.events
		return m, listenTurnCmd(m.events)

	case turnEventMsg:
		if typed.events != m.events {
			return m, nil
		}
		m.applyEvent(typed.event)
		return m, listenTurnCmd(m.events)

	case turnClosedMsg:
		if typed.events != m.events {
			return m, nil
		}
		m.events = nil
		m.busy = false
		m.transcript.close()
		m.refresh()
		if m.auto && m.confirm != nil {
			return m.submitConfirm()
		}
		return m, nil

	case spinnerTickMsg:
		if !m.busy {
			return m, nil
		}
		m.spinnerIndex++
		return m, spinnerTickCmd()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		if m.busy {
			m.chat.Cancel(m.sessionID)
		}
		return m, tea.Quit
	case "esc":
		if m.busy {
			m.chat.Cancel(m.sessionID)
			return m, nil
		}
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.confirm != nil {
		if m.busy || !m.confirm.HandleKey(msg) {
			return m, nil
		}
		return m.submitConfirm()
	}

	if m.busy {
		return m, nil
	}

	switch msg.String() {
	case "ctrl+r":
		m.transcript.add(entry{kind: entryNotice, text: "regenerating last answer"})
		turn := m.turn
		return m.begin(func() (<-chan agent.Event, error) {
			return m.chat.Regenerate(m.ctx, m.sessionID, turn)
		})
	case "ctrl+t":
		m.toggleMode()
		return m, nil
	case "enter":
		text := strings.TrimSpace(m.input.Value())
		if text == "" {
			return m, nil
		}
		m.input.Reset()
		if !m.transcript.has(entryUser) && (m.title == "" || m.title == conversation.DefaultTitle) {
			m.title = conversation.Title(text)
		}
		m.transcript.add(entry{kind: entryUser, text: text})
		turn := m.turn
		return m.begin(func() (<-chan agent.Event, error) {
			return m.chat.Send(m.ctx, m.sessionID, text, turn)
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submitConfirm sends the panel's decisions. Approvals the mode forbids
// are turned into declines.
func (m Model) submitConfirm() (tea.Model, tea.Cmd) {
	approved := m.confirm.ApprovedIDs()
	m.confirm = nil
	m.layout()
	return m.begin(func() (<-chan agent.Event, error) {
		events, err := m.chat.Confirm(m.ctx, m.sessionID, approved)
		if errs.Is(err, errs.KindAuthorization) {
			return m.chat.Confirm(m.ctx, m.sessionID, nil)
		}
		return events, err
	})
}

// begin starts a turn and the spinner.
func (m Model) begin(start func() (<-chan agent.Event, error)) (tea.Model, tea.Cmd) {
	m.busy = true
	m.spinnerIndex = 0
	m.refresh()
	return m, tea.Batch(startTurnCmd(start), spinnerTickCmd())
}

func (m *Model) toggleMode() {
	next := agent.ModeAgent
	if m.mode == agent.ModeAgent {
		next = agent.ModeAsk
	}
	m.mode = next
	m.turn.Mode = next
	m.transcript.add(entry{kind: entryNotice, text: "mode: " + string(next)})
	m.refresh()
}

func (m *Model) applyEvent(ev agent.Event) {
	switch ev.Type {
	case agent.EventStarted:
		m.transcript.close()
	case agent.EventReasoning:
		m.transcript.stream(entryReasoning, ev.Text)
	case agent.EventChunk:
		m.transcript.stream(entryAssistant, ev.Text)
	case agent.EventToolResult:
		label := ""
		if len(ev.ToolCalls) == 1 {
			label = ev.ToolCalls[0].Name
		}
		m.transcript.add(entry{kind: entryToolResult, label: label, text: ev.Text})
	case agent.EventToolCall:
		for _, call := range ev.ToolCalls {
			m.transcript.add(toolCallEntry(call))
		}
		m.confirm = NewConfirmPanel(ev.ToolCalls)
		m.layout()
	case agent.EventDone:
		m.transcript.close()
	case agent.EventError:
		m.showError(ev.Err)
	}
	m.refresh()
}

func (m *Model) showError(err error) {
	if errors.Is(err, context.Canceled) {
		m.transcript.add(entry{kind: entryNotice, text: "cancelled"})
	} else {
		m.transcript.add(entry{kind: entryError, text: err.Error()})
	}
	m.refresh()
}

func (m *Model) layout() {
	if m.windowWidth <= 0 || m.windowHeight <= 0 {
		return
	}
	used := lipgloss.Height(m.headerView()) + lipgloss.Height(RenderBottomBar(*m))
	if m.confirm != nil {
		used += lipgloss.Height(m.confirm.View(m.windowWidth))
	} else {
		used += inputHeight
	}
	height := m.windowHeight - used
	if height < 1 {
		height = 1
	}
	m.viewport.Width = m.windowWidth
	m.viewport.Height = height
	m.refresh()
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.transcript.render(m.viewport.Width))
	m.viewport.GotoBottom()
}

func (m Model) headerView() string {
	style := lipgloss.NewStyle().Bold(true)
	title := m.title
	if title == "" {
		title = conversation.DefaultTitle
	}
	return style.Render(title)
}

func (m Model) View() string {
	parts := []string{m.headerView(), m.viewport.View()}
	if m.confirm != nil {
		parts = append(parts, m.confirm.View(m.windowWidth))
	} else {
		parts = append(parts, m.input.View())
	}
	parts = append(parts, RenderBottomBar(m))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func spinnerTickCmd() tea.Cmd {
	return tea.Tick(spinnerInterval, func(time.Time) tea.Msg {
		return spinnerTickMsg{}
	})
}
