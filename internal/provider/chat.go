package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	"github.com/tidwall/sjson"

	"github.com/jbonatakis/reshai/internal/conversation"
	"github.com/jbonatakis/reshai/internal/errs"
	"github.com/jbonatakis/reshai/internal/stream"
	"github.com/jbonatakis/reshai/internal/trace"
)

// Tool is a function the model may call. Parameters is a JSON schema object.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

type ChatRequest struct {
	Messages []conversation.Message
	Tools    []Tool
}

// BuildChatBody renders the streaming chat-completions request for target.
func BuildChatBody(target Target, req ChatRequest) ([]byte, error) {
	body := []byte(`{}`)
	var err error
	set := func(path string, value any) {
		if err == nil {
			body, err = sjson.SetBytes(body, path, value)
		}
	}
	setRaw := func(path string, raw string) {
		if err == nil {
			body, err = sjson.SetRawBytes(body, path, []byte(raw))
		}
	}

	set("model", target.Model)
	set("stream", true)
	setRaw("messages", "[]")
	for _, msg := range req.Messages {
		var raw string
		raw, err = messageJSON(msg, target.Dialect)
		if err != nil {
			return nil, err
		}
		setRaw("messages.-1", raw)
	}

	if len(req.Tools) > 0 {
		for i, tool := range req.Tools {
			prefix := fmt.Sprintf("tools.%d", i)
			set(prefix+".type", conversation.ToolCallTypeFunction)
			set(prefix+".function.name", tool.Name)
			set(prefix+".function.description", tool.Description)
			params := string(tool.Parameters)
			if strings.TrimSpace(params) == "" {
				params = `{"type":"object","properties":{}}`
			}
			setRaw(prefix+".function.parameters", params)
		}
		set("tool_choice", "auto")
	}

	if err != nil {
		return nil, fmt.Errorf("build chat body: %w", err)
	}
	return body, nil
}

func messageJSON(msg conversation.Message, dialect Dialect) (string, error) {
	out := `{}`
	var err error
	set := func(path string, value any) {
		if err == nil {
			out, err = sjson.Set(out, path, value)
		}
	}

	set("role", msg.Role)
	switch {
	case msg.Content != "":
		set("content", msg.Content)
	case msg.HasToolCalls() && dialect == DialectAnthropic:
	case msg.HasToolCalls():
		set("content", nil)
	default:
		set("content", "")
	}

	for i, call := range msg.ToolCalls {
		prefix := fmt.Sprintf("tool_calls.%d", i)
		callType := call.Type
		if callType == "" {
			callType = conversation.ToolCallTypeFunction
		}
		set(prefix+".id", call.ID)
		set(prefix+".type", callType)
		set(prefix+".function.name", call.Name)
		set(prefix+".function.arguments", call.Arguments)
	}
	if msg.Role == conversation.RoleTool && msg.ToolCallID != "" {
		set("tool_call_id", msg.ToolCallID)
	}
	return out, err
}

// Stream yields normalized events from an open chat response.
type Stream struct {
	body    io.ReadCloser
	decoder *stream.Decoder
	rec     *trace.Recorder

	closeOnce sync.Once
	mu        sync.Mutex
	ended     bool
}

// OpenStream posts the chat request and returns the event stream once the
// upstream has answered with a 2xx status. rec may be nil.
func OpenStream(ctx context.Context, target Target, req ChatRequest, rec *trace.Recorder) (*Stream, error) {
	body, err := BuildChatBody(target, req)
	if err != nil {
		return nil, err
	}

	url := target.URL("chat/completions")
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		return nil, errs.Configuration("build request for %s: %v", url, err)
	}
	for name, values := range target.Headers {
		httpReq.Header[name] = append([]string(nil), values...)
	}
	httpReq.Header.Set("Accept", "text/event-stream")

	rec.Start(http.MethodPost, url, httpReq.Header)

	client := target.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		err = errs.Transport(err)
		rec.End(err, string(errs.KindTransport))
		return nil, err
	}
	rec.Response(resp.StatusCode, resp.Header)

	if err := checkStatus(resp); err != nil {
		_ = resp.Body.Close()
		rec.End(err, string(errs.KindUpstream))
		return nil, err
	}

	decoder := stream.NewDecoder(resp.Body)
	decoder.OnFrame = rec.Frame
	return &Stream{body: resp.Body, decoder: decoder, rec: rec}, nil
}

// Next returns the next event, io.EOF after Done, or a transport error when
// the body fails or closes before Done.
func (s *Stream) Next() (stream.Event, error) {
	ev, err := s.decoder.Next()
	if err == nil {
		return ev, nil
	}
	if errors.Is(err, io.EOF) {
		s.end(nil)
		return stream.Event{}, io.EOF
	}
	err = errs.Transport(err)
	s.end(err)
	return stream.Event{}, err
}

// Close releases the response body. It is safe to call more than once and
// from another goroutine to abort a blocked Next.
func (s *Stream) Close() error {
	var err error
	s.closeOnce.Do(func() {
		err = s.body.Close()
		s.end(nil)
	})
	return err
}

func (s *Stream) end(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ended {
		return
	}
	s.ended = true
	kind := ""
	if err != nil {
		kind = string(errs.KindOf(err))
	}
	s.rec.End(err, kind)
}
