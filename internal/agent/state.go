package agent

type State string

const (
	StateIdle                     State = "idle"
	StateAwaitingModel            State = "awaiting_model"
	StateStreamingContent         State = "streaming_content"
	StateStreamingTools           State = "streaming_tools"
	StateTurnComplete             State = "turn_complete"
	StateAwaitingToolConfirmation State = "awaiting_tool_confirmation"
	StateExecutingTools           State = "executing_tools"
	StateFailed                   State = "failed"
	StateCancelled                State = "cancelled"
)

// Active reports whether a turn is in flight.
func (s State) Active() bool {
	switch s {
	case StateAwaitingModel, StateStreamingContent, StateStreamingTools, StateExecutingTools:
		return true
	default:
		return false
	}
}
