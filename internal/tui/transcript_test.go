package tui

import (
	"strings"
	"testing"
)

func TestTranscriptStreamExtendsOpenEntry(t *testing.T) {
	var tr transcript
	tr.stream(entryAssistant, "Hello")
	tr.stream(entryAssistant, " World")
	tr.close()
	tr.stream(entryAssistant, "again")

	if len(tr.entries) != 2 {
		t.Fatalf("entries = %+v", tr.entries)
	}
	if tr.entries[0].text != "Hello World" || tr.entries[1].text != "again" {
		t.Fatalf("entries = %+v", tr.entries)
	}
}

func TestTranscriptAddClosesStream(t *testing.T) {
	var tr transcript
	tr.stream(entryReasoning, "thinking")
	tr.add(entry{kind: entryNotice, text: "mode: ask"})
	tr.stream(entryReasoning, "more")

	if len(tr.entries) != 3 {
		t.Fatalf("entries = %+v", tr.entries)
	}
}

func TestTranscriptRender(t *testing.T) {
	var tr transcript
	tr.add(entry{kind: entryUser, text: "list files"})
	tr.add(entry{kind: entryToolCall, label: "run_in_terminal", text: `{"command":"ls"}`})
	tr.add(entry{kind: entryToolResult, label: "run_in_terminal", text: "a.txt\nb.txt\n"})
	tr.add(entry{kind: entryError, text: "upstream error (status 500)"})

	out := tr.render(0)
	for _, want := range []string{
		"you",
		"list files",
		`tool call run_in_terminal({"command":"ls"})`,
		"run_in_terminal result",
		"error: upstream error (status 500)",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("render missing %q:\n%s", want, out)
		}
	}
}
