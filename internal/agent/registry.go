package agent

import (
	"encoding/json"
	"strings"

	"github.com/jbonatakis/reshai/internal/provider"
)

// ToolName identifies a tool the model can call.
type ToolName string

const (
	ToolGetTerminalOutput ToolName = "get_terminal_output"
	ToolRunInTerminal     ToolName = "run_in_terminal"
	ToolSendInterrupt     ToolName = "send_interrupt"
	ToolSendTerminalInput ToolName = "send_terminal_input"
)

type ToolInfo struct {
	Name        ToolName
	Description string
	Parameters  string
	// Mutating tools change terminal state and are only offered, and only
	// run, in agent mode.
	Mutating bool
}

const emptyParameters = `{"type":"object","properties":{},"required":[]}`

var ToolRegistry = []ToolInfo{
	{
		Name:        ToolGetTerminalOutput,
		Description: "Get the current terminal output text to analyze errors, command results, or system state.",
		Parameters:  emptyParameters,
	},
	{
		Name:        ToolRunInTerminal,
		Description: "Execute a command in the terminal. By default it waits for command completion or timeout and then returns output. Set wait_finish=false for interactive TUI programs (for example vim/top/htop) when you only need to launch without waiting.",
		Parameters: `{"type":"object","properties":{` +
			`"command":{"type":"string","description":"The shell command to execute"},` +
			`"timeoutSeconds":{"type":"integer","description":"Timeout in seconds (default: 30). Maximum time to wait for command completion."},` +
			`"wait_finish":{"type":"boolean","description":"Whether to wait for command completion before returning (default: true). Set false for TUI/interactive programs that keep running."}` +
			`},"required":["command"]}`,
		Mutating: true,
	},
	{
		Name:        ToolSendInterrupt,
		Description: "Send Ctrl+C (ETX, character code 3) to interrupt a running program. Use this when a TUI program (like htop, vim, less, iftop) is blocking and needs to be terminated. Returns confirmation of the interrupt being sent.",
		Parameters:  emptyParameters,
		Mutating:    true,
	},
	{
		Name:        ToolSendTerminalInput,
		Description: "Send arbitrary characters or escape sequences to the terminal. Use this to send key presses like 'q' to quit a TUI program, or special keys like escape sequences. To press Enter, send '\\n' (newline), not literal '\\\\n'. Useful for dismissing prompts or navigating TUI applications.",
		Parameters: `{"type":"object","properties":{"input":{"type":"string",` +
			`"description":"The characters or escape sequence to send. IMPORTANT: use '\\n' (newline) to send Enter; do not send literal '\\\\n' text. Example: ':wq\\n'."}},` +
			`"required":["input"]}`,
		Mutating: true,
	},
}

func LookupTool(name string) (ToolInfo, bool) {
	normalized := strings.TrimSpace(name)
	for _, tool := range ToolRegistry {
		if string(tool.Name) == normalized {
			return tool, true
		}
	}
	return ToolInfo{}, false
}

// ToolsForMode lists the tools offered to the model in mode.
func ToolsForMode(mode Mode) []provider.Tool {
	tools := make([]provider.Tool, 0, len(ToolRegistry))
	for _, tool := range ToolRegistry {
		if tool.Mutating && mode != ModeAgent {
			continue
		}
		tools = append(tools, provider.Tool{
			Name:        string(tool.Name),
			Description: tool.Description,
			Parameters:  json.RawMessage(tool.Parameters),
		})
	}
	return tools
}

// Allowed reports whether a call to name may run in mode. Unknown tools are
// allowed so the executor can answer with an error result.
func Allowed(mode Mode, name string) bool {
	tool, ok := LookupTool(name)
	if !ok {
		return true
	}
	return !tool.Mutating || mode == ModeAgent
}
