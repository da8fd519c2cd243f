package agent

import (
	"errors"
	"strings"
	"testing"

	"github.com/jbonatakis/reshai/internal/terminal"
)

func TestSystemPromptAssembly(t *testing.T) {
	prompt := SystemPrompt(ModeAgent, "Prefer systemctl.", &terminal.SystemInfo{
		OS: "linux", Distro: "Debian 12", User: "root", Shell: "/bin/bash", IP: "10.0.0.2",
	})

	if !strings.HasPrefix(prompt, "You are an expert Terminal Command Line Assistant embedded in the Resh SSH client.") {
		t.Fatalf("prompt does not start with the base prompt: %q", prompt[:80])
	}
	for _, want := range []string{
		agentModePrompt,
		"\n\nGlobal Additional Prompt:\nPrefer systemctl.",
		"\n\nCurrent System Context:\n- OS: linux\n- Distro: Debian 12\n- User: root\n- Shell: /bin/bash\n- IP: 10.0.0.2",
	} {
		if !strings.Contains(prompt, want) {
			t.Fatalf("prompt missing %q", want)
		}
	}
}

func TestSystemPromptAskModeWithoutExtras(t *testing.T) {
	prompt := SystemPrompt(ModeAsk, "  ", nil)

	if !strings.HasSuffix(prompt, askModePrompt) {
		t.Fatalf("ask prompt should end with the mode description: %q", prompt)
	}
	if strings.Contains(prompt, "Global Additional Prompt") {
		t.Fatalf("blank additional prompt should be omitted")
	}
}

func TestParseMode(t *testing.T) {
	if got, err := ParseMode(" ASK ", ModeAgent); err != nil || got != ModeAsk {
		t.Fatalf("ParseMode(ASK) = %q, %v", got, err)
	}
	if got, err := ParseMode("", ModeAgent); err != nil || got != ModeAgent {
		t.Fatalf("ParseMode(\"\") = %q, %v", got, err)
	}
	_, err := ParseMode("yolo", ModeAgent)
	if err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	var agentErr *Error
	if !errors.As(err, &agentErr) || agentErr.Kind != KindConfiguration {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
