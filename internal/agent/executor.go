package agent

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"

	"github.com/jbonatakis/reshai/internal/conversation"
	"github.com/jbonatakis/reshai/internal/terminal"
)

const (
	DefaultToolTimeout = 30 * time.Second

	noTerminalResult = "Error: No active terminal session linked to this chat."
	noOutputResult   = "Command produced no output"
	noWaitResult     = "Command sent to terminal without waiting for completion (wait_finish=false)."
	interruptResult  = "Interrupt signal (Ctrl+C) sent successfully"
	invalidArgs      = "Error: Invalid arguments JSON"
	// DeclinedResult answers a tool call the user did not approve.
	DeclinedResult = "Tool call declined by the user."
)

// Executor runs approved tool calls against a terminal session. Tool
// failures are reported to the model as result text; only cancellation is
// returned as an error.
type Executor struct {
	Terminal terminal.Accessor
	// Timeout applies to run_in_terminal when the call gives none.
	Timeout time.Duration
	// Capture tunes completion polling; its Timeout is ignored.
	Capture terminal.CaptureOptions
}

func (e *Executor) Execute(ctx context.Context, terminalSessionID string, call conversation.ToolCall) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	name := strings.TrimSpace(call.Name)
	if _, ok := LookupTool(name); !ok {
		return fmt.Sprintf("Error: Unknown tool %s", call.Name), nil
	}
	if e.Terminal == nil || terminalSessionID == "" {
		return noTerminalResult, nil
	}

	log.Debugf("executor: running %s id=%s args=%s", name, call.ID, call.Arguments)
	switch ToolName(name) {
	case ToolGetTerminalOutput:
		text, err := e.Terminal.ReadOutput(ctx, terminalSessionID)
		if err != nil {
			return fmt.Sprintf("Error: %v", err), nil
		}
		return terminal.StripANSI(text), nil
	case ToolRunInTerminal:
		return e.runInTerminal(ctx, terminalSessionID, call.Arguments)
	case ToolSendInterrupt:
		if err := e.Terminal.SendInput(ctx, terminalSessionID, []byte(terminal.Interrupt)); err != nil {
			return fmt.Sprintf("Error sending interrupt: %v", err), nil
		}
		return interruptResult, nil
	case ToolSendTerminalInput:
		args, ok := parseArgs(call.Arguments)
		if !ok {
			return invalidArgs, nil
		}
		input := args.Get("input")
		if input.Type != gjson.String {
			return "Error: Missing 'input' argument", nil
		}
		if err := e.Terminal.SendInput(ctx, terminalSessionID, []byte(input.Str)); err != nil {
			return fmt.Sprintf("Error sending input: %v", err), nil
		}
		return fmt.Sprintf("Input '%s' sent successfully", escapeInput(input.Str)), nil
	}
	return fmt.Sprintf("Error: Unknown tool %s", call.Name), nil
}

func (e *Executor) runInTerminal(ctx context.Context, sessionID string, rawArgs string) (string, error) {
	args, ok := parseArgs(rawArgs)
	if !ok {
		return invalidArgs, nil
	}
	command := args.Get("command")
	if command.Type != gjson.String {
		return "Error: Missing 'command' argument", nil
	}

	timeout := e.Timeout
	if timeout <= 0 {
		timeout = DefaultToolTimeout
	}
	if secs := args.Get("timeoutSeconds"); secs.Type == gjson.Number && secs.Int() > 0 {
		timeout = time.Duration(secs.Int()) * time.Second
	}
	wait := true
	if flag := args.Get("wait_finish"); flag.IsBool() {
		wait = flag.Bool()
	}

	if !wait {
		if err := e.Terminal.SendInput(ctx, sessionID, []byte(command.Str+"\n")); err != nil {
			return fmt.Sprintf("Failed to send command: %v", err), nil
		}
		return noWaitResult, nil
	}

	opts := e.Capture
	opts.Timeout = timeout
	capture, err := terminal.RunCommand(ctx, e.Terminal, sessionID, command.Str, opts)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return "", err
		}
		return fmt.Sprintf("Failed to send command: %v", err), nil
	}
	log.Debugf("executor: %q finished completed=%t after %s", command.Str, capture.Completed, capture.Elapsed)

	if !capture.Completed {
		return timeoutResult(timeout, capture.Output), nil
	}
	if strings.TrimSpace(capture.Output) == "" {
		return noOutputResult, nil
	}
	return capture.Output, nil
}

func timeoutResult(timeout time.Duration, partial string) string {
	base := fmt.Sprintf("Error: run_in_terminal timed out after %ds without detecting command completion. "+
		"Treat this as a failed foreground execution. Use send_interrupt to stop the process if it is still running.",
		int(math.Ceil(timeout.Seconds())))
	if strings.TrimSpace(partial) == "" {
		return base
	}
	return base + "\n\n[Partial output]\n" + strings.TrimSpace(partial)
}

func parseArgs(raw string) (gjson.Result, bool) {
	if strings.TrimSpace(raw) == "" {
		raw = "{}"
	}
	if !gjson.Valid(raw) {
		return gjson.Result{}, false
	}
	parsed := gjson.Parse(raw)
	return parsed, parsed.IsObject()
}

// escapeInput renders control characters the way a debug print would, so
// "q\n" reads as q\n in the result.
func escapeInput(input string) string {
	quoted := strconv.Quote(input)
	return quoted[1 : len(quoted)-1]
}
