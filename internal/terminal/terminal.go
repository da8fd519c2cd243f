// Package terminal defines how the conversation engine reaches a terminal
// session: reading its screen text and typing into it.
package terminal

import (
	"context"
	"errors"
	"regexp"
)

// CompletionMarker is typed after a command so a Recorder can tell when the
// shell has consumed everything before it.
const CompletionMarker = "\x1b\x1b\n"

// Interrupt is the ETX byte a terminal maps to SIGINT.
const Interrupt = "\x03"

// ErrUnknownSession is returned for a session id the accessor does not know.
var ErrUnknownSession = errors.New("unknown terminal session")

// Accessor reads and writes a terminal session owned by the host client.
type Accessor interface {
	// ReadOutput returns the current terminal text with escape sequences
	// removed.
	ReadOutput(ctx context.Context, sessionID string) (string, error)
	SendInput(ctx context.Context, sessionID string, data []byte) error
}

// Recorder is implemented by accessors that can capture exactly the output
// of one command and detect its completion.
type Recorder interface {
	StartRecording(ctx context.Context, sessionID string) error
	CommandCompleted(ctx context.Context, sessionID string) (bool, error)
	// StopRecording ends the capture and returns what was recorded.
	StopRecording(ctx context.Context, sessionID string) (string, error)
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-?]*[ -/]*[@-~]|\x1b\][^\x07\x1b]*(?:\x07|\x1b\\)|\x1b[PX^_][^\x1b]*\x1b\\|\x1b[@-Z\\-_]|\r`)

// StripANSI removes CSI, OSC and other escape sequences along with carriage
// returns.
func StripANSI(text string) string {
	return ansiPattern.ReplaceAllString(text, "")
}
