package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jbonatakis/reshai/internal/conversation"
	"github.com/jbonatakis/reshai/internal/history"
)

func openTestHistory(t *testing.T, home string) *history.Store {
	t.Helper()
	store, err := history.Open(filepath.Join(home, ".reshai", history.FileName))
	if err != nil {
		t.Fatalf("open history: %v", err)
	}
	return store
}

func seedSession(t *testing.T, home string, title string, messages ...conversation.Message) string {
	t.Helper()
	store := openTestHistory(t, home)
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	session, err := store.CreateSession(ctx, history.Session{Title: title})
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	for _, msg := range messages {
		if _, err := store.Append(ctx, session.ID, msg); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return session.ID
}

func TestSessionsListRenameDelete(t *testing.T) {
	home, _ := testEnv(t)
	id := seedSession(t, home, "Disk usage")

	out, err := captureStdout(func() error { return Run([]string{"sessions", "list"}) })
	if err != nil {
		t.Fatalf("sessions list: %v", err)
	}
	if !strings.Contains(out, id) || !strings.Contains(out, "Disk usage") {
		t.Fatalf("sessions list missing session:\n%s", out)
	}

	if _, err := captureStdout(func() error {
		return Run([]string{"sessions", "rename", id, "Nginx", "logs"})
	}); err != nil {
		t.Fatalf("sessions rename: %v", err)
	}
	out, _ = captureStdout(func() error { return Run([]string{"sessions", "list"}) })
	if !strings.Contains(out, "Nginx logs") {
		t.Fatalf("expected renamed title:\n%s", out)
	}

	if _, err := captureStdout(func() error { return Run([]string{"sessions", "delete", id}) }); err != nil {
		t.Fatalf("sessions delete: %v", err)
	}
	out, _ = captureStdout(func() error { return Run([]string{"sessions", "list"}) })
	if !strings.Contains(out, "(no sessions)") {
		t.Fatalf("expected empty list after delete:\n%s", out)
	}

	_, err = captureStdout(func() error { return Run([]string{"sessions", "delete", id}) })
	if !errors.Is(err, history.ErrSessionNotFound) {
		t.Fatalf("deleting twice = %v, want ErrSessionNotFound", err)
	}
}

func TestHistoryPrintsMessages(t *testing.T) {
	home, _ := testEnv(t)
	assistant := conversation.Assistant("")
	assistant.ToolCalls = []conversation.ToolCall{{ID: "call_1", Type: "function", Name: "get_terminal_output", Arguments: "{}"}}
	id := seedSession(t, home, "Debug",
		conversation.User("what failed?"),
		assistant,
		conversation.ToolResult("call_1", "make: *** [build] Error 1"),
		conversation.Assistant("The build step failed."),
	)

	out, err := captureStdout(func() error { return Run([]string{"history", id}) })
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	for _, want := range []string{
		"[user]\nwhat failed?",
		"-> call_1 get_terminal_output({})",
		"[tool call_1]\nmake: *** [build] Error 1",
		"[assistant]\nThe build step failed.",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("history output missing %q:\n%s", want, out)
		}
	}

	out, err = captureStdout(func() error { return Run([]string{"history", "--json", "--limit", "1", id}) })
	if err != nil {
		t.Fatalf("history --json: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) != 1 || !strings.Contains(lines[0], `"content":"The build step failed."`) {
		t.Fatalf("history --json --limit 1 = %q", out)
	}
}

func TestHistoryUnknownSession(t *testing.T) {
	testEnv(t)

	_, err := captureStdout(func() error { return Run([]string{"history", "missing"}) })
	if !errors.Is(err, history.ErrSessionNotFound) {
		t.Fatalf("history missing = %v, want ErrSessionNotFound", err)
	}
}

func TestValidateFixRewritesLog(t *testing.T) {
	home, _ := testEnv(t)
	id := seedSession(t, home, "Broken",
		conversation.User("Hello"),
		conversation.User(" World"),
		conversation.Assistant("Hi"),
	)

	out, err := captureStdout(func() error { return Run([]string{"validate", id}) })
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if !strings.Contains(out, "- fix: Merged consecutive user messages") {
		t.Fatalf("expected merge fix to be reported:\n%s", out)
	}
	if strings.Contains(out, "rewrote") {
		t.Fatalf("validate without --fix must not rewrite:\n%s", out)
	}

	if _, err := captureStdout(func() error { return Run([]string{"validate", "--fix", id}) }); err != nil {
		t.Fatalf("validate --fix: %v", err)
	}
	out, err = captureStdout(func() error { return Run([]string{"validate", id}) })
	if err != nil {
		t.Fatalf("validate after fix: %v", err)
	}
	if strings.TrimSpace(out) != "OK" {
		t.Fatalf("validate after fix = %q, want OK", out)
	}

	store := openTestHistory(t, home)
	defer func() { _ = store.Close() }()
	messages, err := store.Load(context.Background(), id, 0)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(messages) != 2 || messages[0].Content != "Hello World" {
		t.Fatalf("rewritten log = %+v", messages)
	}
}

func TestValidateReportsStructuralFindings(t *testing.T) {
	home, _ := testEnv(t)
	id := seedSession(t, home, "Orphan",
		conversation.User("hi"),
		conversation.ToolResult("", "stray output"),
	)

	out, err := captureStdout(func() error { return Run([]string{"validate", id}) })
	if err == nil || err.Error() != "validation failed" {
		t.Fatalf("validate = %v, want validation failed", err)
	}
	if !strings.Contains(out, "- invalid: ") {
		t.Fatalf("expected findings in output:\n%s", out)
	}
}
