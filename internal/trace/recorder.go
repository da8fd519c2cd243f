package trace

import (
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Recorder traces a single upstream request. All methods are no-ops on a nil
// Recorder, so callers never branch on whether tracing is enabled.
type Recorder struct {
	w      *Writer
	base   Event
	start  time.Time
	frames int
}

// Request starts tracing a request. It returns nil when w is nil.
func (w *Writer) Request(sessionID string, channelID string, model string) *Recorder {
	if w == nil {
		return nil
	}
	return &Recorder{
		w: w,
		base: Event{
			SessionID: sessionID,
			RequestID: uuid.NewString(),
			ChannelID: channelID,
			Model:     model,
		},
		start: w.opts.Now(),
	}
}

func (r *Recorder) RequestID() string {
	if r == nil {
		return ""
	}
	return r.base.RequestID
}

func (r *Recorder) Start(method string, url string, headers map[string][]string) {
	if r == nil {
		return
	}
	ev := r.base
	ev.Type = EventRequestStart
	ev.Method = method
	ev.URL = url
	ev.Headers = headers
	r.append(ev)
}

func (r *Recorder) Response(status int, headers map[string][]string) {
	if r == nil {
		return
	}
	ev := r.base
	ev.Type = EventResponseStart
	ev.Status = status
	ev.Headers = headers
	r.append(ev)
}

func (r *Recorder) Frame(data string) {
	if r == nil {
		return
	}
	r.frames++
	ev := r.base
	ev.Type = EventFrame
	ev.Seq = r.frames
	ev.Frame = data
	r.append(ev)
}

// End closes the request. A non-nil err is recorded as an error event with
// kind before the end marker.
func (r *Recorder) End(err error, kind string) {
	if r == nil {
		return
	}
	if err != nil {
		ev := r.base
		ev.Type = EventError
		ev.Error = err.Error()
		ev.ErrorKind = kind
		r.append(ev)
	}
	ev := r.base
	ev.Type = EventRequestEnd
	ev.Frames = r.frames
	ev.DurationMs = r.w.opts.Now().Sub(r.start).Milliseconds()
	r.append(ev)
}

func (r *Recorder) append(ev Event) {
	if err := r.w.Append(ev); err != nil {
		log.Debugf("trace: append %s: %v", ev.Type, err)
	}
}
