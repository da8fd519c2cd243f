package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/jbonatakis/reshai/internal/conversation"
)

func runSessions(args []string) error {
	if len(args) == 0 {
		return UsageError{Message: "sessions requires a subcommand: list|delete|rename"}
	}

	switch args[0] {
	case "list":
		if len(args) != 1 {
			return UsageError{Message: "sessions list takes no arguments"}
		}
		return runSessionsList()
	case "delete":
		if len(args) != 2 {
			return UsageError{Message: "sessions delete requires exactly 1 argument: <id>"}
		}
		return runSessionsDelete(args[1])
	case "rename":
		if len(args) < 3 {
			return UsageError{Message: "sessions rename requires 2 arguments: <id> <title>"}
		}
		return runSessionsRename(args[1], strings.Join(args[2:], " "))
	default:
		return UsageError{Message: fmt.Sprintf("unknown sessions subcommand: %q", args[0])}
	}
}

func runSessionsList() error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	sessions, err := a.history.ListSessions(context.Background())
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stdout, "(no sessions)")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tUPDATED\tMODEL\tTITLE")
	for _, s := range sessions {
		model := s.ModelID
		if model == "" {
			model = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", s.ID, s.UpdatedAt.Local().Format(time.DateTime), model, s.Title)
	}
	return w.Flush()
}

func runSessionsDelete(id string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.history.DeleteSession(context.Background(), id); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "deleted %s\n", id)
	return nil
}

func runSessionsRename(id string, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return UsageError{Message: "title must not be empty"}
	}
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.history.RenameSession(context.Background(), id, title); err != nil {
		return err
	}
	fmt.Fprintf(os.Stdout, "renamed %s: %s\n", id, title)
	return nil
}

func runHistory(args []string) error {
	fs := flag.NewFlagSet("history", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	limit := fs.Int("limit", 0, "show only the most recent n messages")
	asJSON := fs.Bool("json", false, "print one JSON message per line")

	if err := fs.Parse(args); err != nil {
		return UsageError{Message: err.Error()}
	}
	if fs.NArg() != 1 {
		return UsageError{Message: "history requires exactly 1 argument: <session>"}
	}
	if *limit < 0 {
		return UsageError{Message: "--limit must be >= 0"}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	if _, err := a.history.GetSession(ctx, fs.Arg(0)); err != nil {
		return err
	}
	messages, err := a.history.Load(ctx, fs.Arg(0), *limit)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		for _, msg := range messages {
			if err := enc.Encode(msg); err != nil {
				return err
			}
		}
		return nil
	}
	for _, msg := range messages {
		printMessage(os.Stdout, msg)
	}
	return nil
}

func printMessage(w io.Writer, msg conversation.Message) {
	switch msg.Role {
	case conversation.RoleTool:
		fmt.Fprintf(w, "[tool %s]\n", msg.ToolCallID)
	default:
		fmt.Fprintf(w, "[%s]\n", msg.Role)
	}
	if msg.HasReasoning() {
		fmt.Fprintln(w, reasoningStyle.Render("thinking: "+msg.Reasoning))
	}
	if msg.HasContent() {
		fmt.Fprintln(w, msg.Content)
	}
	for _, call := range msg.ToolCalls {
		fmt.Fprintf(w, "-> %s %s(%s)\n", call.ID, call.Name, call.Arguments)
	}
	fmt.Fprintln(w)
}

func runValidate(args []string) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fix := fs.Bool("fix", false, "write the repaired log back")

	if err := fs.Parse(args); err != nil {
		return UsageError{Message: err.Error()}
	}
	if fs.NArg() != 1 {
		return UsageError{Message: "validate requires exactly 1 argument: <session>"}
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := context.Background()
	id := fs.Arg(0)
	if _, err := a.history.GetSession(ctx, id); err != nil {
		return err
	}
	stored, err := a.history.Load(ctx, id, 0)
	if err != nil {
		return err
	}

	// Stored logs carry no system message; validate them as they are sent.
	dialog := append([]conversation.Message{conversation.System("")}, conversation.WithoutSystem(stored)...)
	repaired, report := conversation.Repair(dialog)

	if !report.Changed() && report.Valid() {
		fmt.Fprintln(os.Stdout, "OK")
		return nil
	}
	for _, f := range report.Fixes {
		fmt.Fprintf(os.Stdout, "- fix: %s\n", f)
	}
	for _, f := range report.Findings {
		fmt.Fprintf(os.Stdout, "- invalid: %s\n", f)
	}

	if *fix && report.Changed() {
		if err := a.history.Rewrite(ctx, id, conversation.WithoutSystem(repaired)); err != nil {
			return fmt.Errorf("rewrite history: %w", err)
		}
		fmt.Fprintf(os.Stdout, "rewrote %s\n", id)
	}
	if !report.Valid() {
		return errors.New("validation failed")
	}
	return nil
}
