package stream

import (
	"errors"
	"fmt"
	"io"
)

const defaultReadSize = 32 * 1024

// ErrTruncated reports a stream that ended without the [DONE] sentinel.
var ErrTruncated = errors.New("stream closed before [DONE]")

// Decoder pulls normalized events from an SSE response body.
type Decoder struct {
	r       io.Reader
	parser  sseParser
	pending []Frame
	buf     []byte
	eof     bool
	done    bool

	// OnFrame, when set, observes every raw data payload before it is
	// normalized.
	OnFrame func(data string)
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, buf: make([]byte, defaultReadSize)}
}

// Next returns the next event. After Done it returns io.EOF. A body that ends
// without Done yields ErrTruncated; read failures are returned wrapped and end
// the stream.
func (d *Decoder) Next() (Event, error) {
	for {
		if d.done {
			return Event{}, io.EOF
		}
		if len(d.pending) > 0 {
			frame := d.pending[0]
			d.pending = d.pending[1:]
			if d.OnFrame != nil {
				d.OnFrame(frame.Data)
			}
			ev := Normalize(frame.Data)
			if ev.Kind == EventDone {
				d.done = true
			}
			return ev, nil
		}
		if d.eof {
			return Event{}, ErrTruncated
		}
		if err := d.fill(); err != nil {
			return Event{}, err
		}
	}
}

func (d *Decoder) fill() error {
	n, err := d.r.Read(d.buf)
	if n > 0 {
		d.pending = append(d.pending, d.parser.Feed(d.buf[:n])...)
	}
	if err == nil {
		return nil
	}
	if errors.Is(err, io.EOF) {
		d.eof = true
		d.pending = append(d.pending, d.parser.Flush()...)
		return nil
	}
	return fmt.Errorf("read stream: %w", err)
}
