package cli

import (
	"fmt"
	"os"
)

type UsageError struct {
	Message string
}

func (e UsageError) Error() string { return e.Message }

func Usage() string {
	return `reshai: terminal-aware AI chat for Resh

Usage:
  reshai chat [--session <id>] [--mode ask|agent] [--model <id>] [--yes]
  reshai tui [--session <id>] [--mode ask|agent] [--model <id>] [--yes]
  reshai sessions list
  reshai sessions delete <id>
  reshai sessions rename <id> <title>
  reshai history [--limit <n>] [--json] <session>
  reshai validate [--fix] <session>
  reshai models [--channel <id>]
  reshai login <channelId>
  reshai logout <channelId>
  reshai config list
  reshai config get <key>
  reshai config set [--global] <key> <value>
  reshai config unset [--global] <key>

Modes:
  ask   | the assistant may only read terminal output
  agent | the assistant may also run commands (each call is confirmed)

Chat commands:
  /exit  /regenerate  /mode ask|agent  /model <id>
`
}

func Run(args []string) error {
	if len(args) == 0 {
		return UsageError{Message: "missing command"}
	}

	switch args[0] {
	case "help", "-h", "--help":
		fmt.Fprintln(os.Stdout, Usage())
		return nil
	case "chat":
		return runChat(args[1:])
	case "tui":
		return runTUI(args[1:])
	case "sessions":
		return runSessions(args[1:])
	case "history":
		return runHistory(args[1:])
	case "validate":
		return runValidate(args[1:])
	case "models":
		return runModels(args[1:])
	case "login":
		if len(args) != 2 {
			return UsageError{Message: "login requires exactly 1 argument: <channelId>"}
		}
		return runLogin(args[1])
	case "logout":
		if len(args) != 2 {
			return UsageError{Message: "logout requires exactly 1 argument: <channelId>"}
		}
		return runLogout(args[1])
	case "config":
		return runConfig(args[1:])
	default:
		return UsageError{Message: fmt.Sprintf("unknown command: %q", args[0])}
	}
}
