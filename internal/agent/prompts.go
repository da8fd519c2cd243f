package agent

import (
	"fmt"
	"strings"

	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/errs"
	"github.com/jbonatakis/reshai/internal/terminal"
)

// Mode decides which tools the model is offered and which it may run.
type Mode string

const (
	ModeAsk   Mode = config.ModeAsk
	ModeAgent Mode = config.ModeAgent
)

// ParseMode accepts "ask" or "agent" in any case. Empty input yields
// fallback.
func ParseMode(value string, fallback Mode) (Mode, error) {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	if trimmed == "" {
		return fallback, nil
	}
	if !config.ValidMode(trimmed) {
		return "", errs.Configuration("unknown mode %q (expected ask or agent)", value)
	}
	return Mode(trimmed), nil
}

const basePrompt = `You are an expert Terminal Command Line Assistant embedded in the Resh SSH client.
Your primary role is to assist users with server management, command execution, and troubleshooting in a Linux/Unix environment.

Operational Guidelines:
1. **Conciseness**: Be direct. Provide the answer or command immediately. Avoid "I hope this helps" or "Here is the command".
2. **Safety**: Always warn about destructive commands (e.g., recursive deletion, force operations).
3. **Context**: You are integrated into an SSH client. The user is likely an engineer or developer.
4. **Formatting**: Use Markdown code blocks for all commands and file contents.
5. **Tools**:
   - If tools are available, you can read the terminal output (` + "`get_terminal_output`" + `) and run commands (` + "`run_in_terminal`" + `).
   - Read the terminal first to understand the error or state before acting.
   - Run commands to fix issues or explore (e.g., ` + "`ls`, `grep`, `cat`" + `).

If the user asks a question, answer it. If the user reports an error, analyze it (using tools if possible) and suggest a fix.
`

const (
	agentModePrompt = "You are currently in AGENT mode. You can read terminal output AND execute commands to solve problems."
	askModePrompt   = "You are currently in ASK mode. You can read terminal output to analyze issues, but you CANNOT execute commands directly. Suggest commands to the user instead."
)

// SystemPrompt assembles the per-turn system message: the base prompt, the
// mode description, the user's additional prompt and, when known, the
// terminal host.
func SystemPrompt(mode Mode, additional string, info *terminal.SystemInfo) string {
	var b strings.Builder
	b.WriteString(basePrompt)
	b.WriteString("\n\n")
	if mode == ModeAgent {
		b.WriteString(agentModePrompt)
	} else {
		b.WriteString(askModePrompt)
	}
	if strings.TrimSpace(additional) != "" {
		b.WriteString("\n\nGlobal Additional Prompt:\n")
		b.WriteString(additional)
	}
	if info != nil {
		fmt.Fprintf(&b, "\n\nCurrent System Context:\n- OS: %s\n- Distro: %s\n- User: %s\n- Shell: %s\n- IP: %s",
			info.OS, info.Distro, info.User, info.Shell, info.IP)
	}
	return b.String()
}
