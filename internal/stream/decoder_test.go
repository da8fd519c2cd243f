package stream

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkReader returns its chunks one Read at a time.
type chunkReader struct {
	chunks []string
	err    error
}

func (r *chunkReader) Read(p []byte) (int, error) {
	if len(r.chunks) == 0 {
		if r.err != nil {
			return 0, r.err
		}
		return 0, io.EOF
	}
	n := copy(p, r.chunks[0])
	r.chunks[0] = r.chunks[0][n:]
	if r.chunks[0] == "" {
		r.chunks = r.chunks[1:]
	}
	return n, nil
}

func collect(t *testing.T, d *Decoder) ([]Event, error) {
	t.Helper()
	var events []Event
	for {
		ev, err := d.Next()
		if err != nil {
			return events, err
		}
		events = append(events, ev)
	}
}

func TestDecoderContentThenDone(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"ab\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"cd\"}}]}\n\n" +
		"data: [DONE]\n\n"
	var frames []string
	d := NewDecoder(strings.NewReader(body))
	d.OnFrame = func(data string) { frames = append(frames, data) }

	events, err := collect(t, d)

	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []Event{
		{Kind: EventContent, Text: "ab"},
		{Kind: EventContent, Text: "cd"},
		{Kind: EventDone},
	}, events)
	require.Len(t, frames, 3)
}

func TestDecoderHandlesSplitChunksAndCRLF(t *testing.T) {
	r := &chunkReader{chunks: []string{
		"data: {\"choices\":[{\"del",
		"ta\":{\"content\":\"hi\"}}]}\r\n\r\n: keep-alive comment\r\n\r\nda",
		"ta: [DONE]\r\n\r\n",
	}}

	events, err := collect(t, NewDecoder(r))

	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, []Event{{Kind: EventContent, Text: "hi"}, {Kind: EventDone}}, events)
}

func TestDecoderSilentCloseIsTruncated(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n"

	events, err := collect(t, NewDecoder(strings.NewReader(body)))

	require.ErrorIs(t, err, ErrTruncated)
	require.Equal(t, []Event{{Kind: EventContent, Text: "partial"}}, events)
}

func TestDecoderMalformedFrameDoesNotStopStream(t *testing.T) {
	body := "data: {broken\n\ndata: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\ndata: [DONE]\n\n"

	events, err := collect(t, NewDecoder(strings.NewReader(body)))

	require.ErrorIs(t, err, io.EOF)
	require.Len(t, events, 3)
	require.True(t, events[0].IsKeepAlive())
	require.Equal(t, "ok", events[1].Text)
	require.Equal(t, EventDone, events[2].Kind)
}

func TestDecoderTransportErrorEndsStream(t *testing.T) {
	boom := errors.New("connection reset")
	r := &chunkReader{
		chunks: []string{"data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n"},
		err:    boom,
	}

	events, err := collect(t, NewDecoder(r))

	require.ErrorIs(t, err, boom)
	require.Len(t, events, 1)
}

func TestSSEParserJoinsMultilineData(t *testing.T) {
	var p sseParser
	frames := p.Feed([]byte("event: message\ndata: a\ndata: b\n\n"))

	require.Equal(t, []Frame{{Event: "message", Data: "a\nb"}}, frames)
}
