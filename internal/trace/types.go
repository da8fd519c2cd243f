package trace

import "time"

const SchemaVersion = 1

const (
	EventRequestStart  = "request.start"
	EventResponseStart = "response.start"
	EventFrame         = "stream.frame"
	EventRequestEnd    = "request.end"
	EventError         = "error"
)

// Event is one line of the trace log. Frame holds the raw SSE data payload
// for stream.frame events.
type Event struct {
	SchemaVersion int       `json:"schemaVersion"`
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`

	SessionID string `json:"session_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	ChannelID string `json:"channel_id,omitempty"`
	Model     string `json:"model,omitempty"`

	Method  string              `json:"method,omitempty"`
	URL     string              `json:"url,omitempty"`
	Status  int                 `json:"status,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`

	Seq   int    `json:"seq,omitempty"`
	Frame string `json:"frame,omitempty"`

	Frames     int   `json:"frames,omitempty"`
	DurationMs int64 `json:"duration_ms,omitempty"`

	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}
