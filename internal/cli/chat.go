package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jbonatakis/reshai/internal/agent"
	"github.com/jbonatakis/reshai/internal/conversation"
	"github.com/jbonatakis/reshai/internal/errs"
)

var reasoningStyle = lipgloss.NewStyle().Faint(true)

type chatFlags struct {
	session string
	mode    string
	model   string
	yes     bool
}

func parseChatFlags(name string, args []string) (chatFlags, error) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var f chatFlags
	fs.StringVar(&f.session, "session", "", "session id to resume (new session when empty)")
	fs.StringVar(&f.mode, "mode", "", "ask or agent (defaults to ai.mode)")
	fs.StringVar(&f.model, "model", "", "model id (defaults to the session model or ai.defaultModel)")
	fs.BoolVar(&f.yes, "yes", false, "approve every tool call without asking")

	if err := fs.Parse(args); err != nil {
		return chatFlags{}, UsageError{Message: err.Error()}
	}
	if fs.NArg() != 0 {
		return chatFlags{}, UsageError{Message: fmt.Sprintf("%s takes no positional arguments", name)}
	}
	if f.mode != "" {
		if _, err := agent.ParseMode(f.mode, ""); err != nil {
			return chatFlags{}, UsageError{Message: err.Error()}
		}
	}
	return f, nil
}

func runChat(args []string) error {
	f, err := parseChatFlags("chat", args)
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := &chatLoop{
		orch:        a.orchestrator(),
		sessionID:   session.ID,
		out:         os.Stdout,
		turn:        agent.TurnOptions{Mode: agent.Mode(f.mode), ModelID: f.model},
		autoConfirm: f.yes,
		interactive: stdinIsTerminal(),
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt)
	defer signal.Stop(sigs)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-sigs:
				if !loop.orch.Cancel(session.ID) {
					fmt.Fprintln(os.Stdout, "\n(type /exit to quit)")
				}
			}
		}
	}()

	if loop.interactive {
		fmt.Fprintf(os.Stdout, "session %s: %s\n", session.ID, session.Title)
	}
	return loop.run(ctx)
}

// chatLoop drives a line-oriented conversation over stdin/stdout.
type chatLoop struct {
	orch        *agent.Orchestrator
	sessionID   string
	out         io.Writer
	turn        agent.TurnOptions
	autoConfirm bool
	// interactive keeps the loop alive after a failed turn.
	interactive bool
}

func (c *chatLoop) run(ctx context.Context) error {
	for {
		label := ""
		if c.interactive {
			label = "> "
		}
		line, err := readLine(label)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var events <-chan agent.Event
		if strings.HasPrefix(line, "/") {
			quit, regenerate, err := c.command(line)
			if quit {
				return nil
			}
			if err != nil {
				fmt.Fprintln(c.out, err)
				continue
			}
			if !regenerate {
				continue
			}
			events, err = c.orch.Regenerate(ctx, c.sessionID, c.turn)
			err = c.handle(ctx, events, err)
			if err = c.report(err); err != nil {
				return err
			}
			continue
		}

		events, err = c.orch.Send(ctx, c.sessionID, line, c.turn)
		err = c.handle(ctx, events, err)
		if err = c.report(err); err != nil {
			return err
		}
	}
}

// command applies a slash command. It reports whether the loop should end
// and whether the last answer should be regenerated.
func (c *chatLoop) command(line string) (quit bool, regenerate bool, err error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "/exit", "/quit":
		return true, false, nil
	case "/regenerate":
		return false, true, nil
	case "/mode":
		if len(fields) != 2 {
			return false, false, errors.New("usage: /mode ask|agent")
		}
		mode, err := agent.ParseMode(fields[1], "")
		if err != nil {
			return false, false, err
		}
		c.turn.Mode = mode
		fmt.Fprintf(c.out, "mode: %s\n", mode)
		return false, false, nil
	case "/model":
		if len(fields) != 2 {
			return false, false, errors.New("usage: /model <id>")
		}
		c.turn.ModelID = fields[1]
		fmt.Fprintf(c.out, "model: %s\n", fields[1])
		return false, false, nil
	default:
		return false, false, fmt.Errorf("unknown chat command %s", fields[0])
	}
}

// report prints a failed turn and keeps interactive sessions going.
func (c *chatLoop) report(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(c.out, "(cancelled)")
		return nil
	case c.interactive:
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return nil
	default:
		return err
	}
}

// handle renders a turn and keeps confirming tool calls until the model
// answers without requesting any.
func (c *chatLoop) handle(ctx context.Context, events <-chan agent.Event, err error) error {
	for {
		if err != nil {
			return err
		}
		pending, turnErr := c.render(events)
		if turnErr != nil || len(pending) == 0 {
			return turnErr
		}
		var approved []string
		approved, err = c.confirm(pending)
		if err != nil {
			return err
		}
		events, err = c.orch.Confirm(ctx, c.sessionID, approved)
		if errs.Is(err, errs.KindAuthorization) {
			fmt.Fprintf(c.out, "%v; declining all calls\n", err)
			events, err = c.orch.Confirm(ctx, c.sessionID, nil)
		}
	}
}

func (c *chatLoop) render(events <-chan agent.Event) ([]conversation.ToolCall, error) {
	var (
		pending  []conversation.ToolCall
		turnErr  error
		thinking bool
	)
	for ev := range events {
		switch ev.Type {
		case agent.EventReasoning:
			if !thinking {
				fmt.Fprint(c.out, reasoningStyle.Render("thinking: "))
				thinking = true
			}
			fmt.Fprint(c.out, reasoningStyle.Render(ev.Text))
		case agent.EventChunk:
			if thinking {
				fmt.Fprintln(c.out)
				thinking = false
			}
			fmt.Fprint(c.out, ev.Text)
		case agent.EventToolResult:
			if len(ev.ToolCalls) == 1 {
				fmt.Fprintf(c.out, "[%s]\n", ev.ToolCalls[0].Name)
			}
			fmt.Fprintln(c.out, ev.Text)
		case agent.EventToolCall:
			pending = ev.ToolCalls
		case agent.EventError:
			turnErr = ev.Err
		}
	}
	fmt.Fprintln(c.out)
	return pending, turnErr
}

func (c *chatLoop) confirm(calls []conversation.ToolCall) ([]string, error) {
	var approved []string
	for _, call := range calls {
		fmt.Fprintf(c.out, "tool call %s(%s)\n", call.Name, call.Arguments)
		if c.autoConfirm {
			approved = append(approved, call.ID)
			continue
		}
		ok, err := promptConfirm("run it?")
		if err != nil {
			return nil, err
		}
		if ok {
			approved = append(approved, call.ID)
		}
	}
	return approved, nil
}
