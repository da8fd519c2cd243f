package agent

import (
	"errors"

	"github.com/jbonatakis/reshai/internal/errs"
)

// Error is the taxonomy error surfaced on the event channel. errors.As with
// *Error recovers its Kind.
type Error = errs.Error

type ErrorKind = errs.Kind

const (
	KindConfiguration = errs.KindConfiguration
	KindTransport     = errs.KindTransport
	KindUpstream      = errs.KindUpstream
	KindFrame         = errs.KindFrame
	KindAuthorization = errs.KindAuthorization
	KindSequence      = errs.KindSequence
)

var (
	// ErrBusy is returned when a session already has a turn in flight.
	ErrBusy = errors.New("session has an active turn")

	// ErrNoPendingTools is returned by Confirm when nothing awaits approval.
	ErrNoPendingTools = errors.New("no tool calls awaiting confirmation")

	ErrNothingToRegenerate = errors.New("no user message to regenerate from")
)
