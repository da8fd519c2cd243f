package stream

import (
	"bytes"
	"strings"
)

// Frame is one dispatched server-sent event.
type Frame struct {
	Event string
	Data  string
}

// sseParser splits a byte stream into SSE events. Data lines of one event are
// joined with "\n"; comments and unknown fields are ignored.
type sseParser struct {
	buffer     []byte
	eventName  string
	eventLines []string
}

func (p *sseParser) Feed(chunk []byte) []Frame {
	if len(chunk) == 0 {
		return nil
	}
	p.buffer = append(p.buffer, chunk...)

	var out []Frame
	for {
		idx := bytes.IndexByte(p.buffer, '\n')
		if idx < 0 {
			break
		}
		line := p.buffer[:idx]
		p.buffer = p.buffer[idx+1:]
		line = bytes.TrimSuffix(line, []byte{'\r'})
		if frame, ok := p.consumeLine(string(line)); ok {
			out = append(out, frame)
		}
	}
	return out
}

func (p *sseParser) Flush() []Frame {
	var out []Frame
	if len(p.buffer) > 0 {
		line := string(bytes.TrimSuffix(p.buffer, []byte{'\r'}))
		p.buffer = nil
		if frame, ok := p.consumeLine(line); ok {
			out = append(out, frame)
		}
	}
	if frame, ok := p.flushEvent(); ok {
		out = append(out, frame)
	}
	return out
}

func (p *sseParser) consumeLine(line string) (Frame, bool) {
	if line == "" {
		return p.flushEvent()
	}
	if strings.HasPrefix(line, ":") {
		return Frame{}, false
	}
	field, value, _ := strings.Cut(line, ":")
	value = strings.TrimPrefix(value, " ")
	switch field {
	case "data":
		p.eventLines = append(p.eventLines, value)
	case "event":
		p.eventName = value
	}
	return Frame{}, false
}

func (p *sseParser) flushEvent() (Frame, bool) {
	if len(p.eventLines) == 0 {
		p.eventName = ""
		return Frame{}, false
	}
	frame := Frame{
		Event: p.eventName,
		Data:  strings.Join(p.eventLines, "\n"),
	}
	p.eventName = ""
	p.eventLines = nil
	return frame, true
}
