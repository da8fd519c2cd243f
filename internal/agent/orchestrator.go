// Package agent runs conversation turns: it builds the outgoing dialog,
// streams the model's answer, persists it and drives the confirmation-gated
// tool loop.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/jbonatakis/reshai/internal/config"
	"github.com/jbonatakis/reshai/internal/conversation"
	"github.com/jbonatakis/reshai/internal/errs"
	"github.com/jbonatakis/reshai/internal/history"
	"github.com/jbonatakis/reshai/internal/provider"
	"github.com/jbonatakis/reshai/internal/stream"
	"github.com/jbonatakis/reshai/internal/terminal"
	"github.com/jbonatakis/reshai/internal/trace"
)

// notExecutedResult answers tool calls left unanswered when the user moves
// on with a new message.
const notExecutedResult = "Tool call was not executed."

// Store is the slice of the history store the orchestrator needs.
type Store interface {
	GetSession(ctx context.Context, id string) (history.Session, error)
	RenameSession(ctx context.Context, id string, title string) error
	Append(ctx context.Context, sessionID string, msg conversation.Message) (conversation.Message, error)
	Load(ctx context.Context, sessionID string, limit int) ([]conversation.Message, error)
	TruncateAfterLastUser(ctx context.Context, sessionID string) (int, error)
}

type TargetResolver interface {
	Resolve(ctx context.Context, modelID string) (provider.Target, error)
}

// EventStream yields normalized model output. Next returns io.EOF once the
// stream has ended cleanly.
type EventStream interface {
	Next() (stream.Event, error)
	Close() error
}

type StreamOpener func(ctx context.Context, target provider.Target, req provider.ChatRequest, rec *trace.Recorder) (EventStream, error)

func openProviderStream(ctx context.Context, target provider.Target, req provider.ChatRequest, rec *trace.Recorder) (EventStream, error) {
	s, err := provider.OpenStream(ctx, target, req, rec)
	if err != nil {
		return nil, err
	}
	return s, nil
}

type Options struct {
	// Mode is used when a turn does not pick one.
	Mode             Mode
	MaxHistory       int
	AdditionalPrompt string
	// Trace records upstream traffic when non-nil.
	Trace *trace.Writer
	// OpenStream replaces the HTTP transport, mainly in tests.
	OpenStream StreamOpener
}

// TurnOptions override per-session defaults for one request.
type TurnOptions struct {
	Mode    Mode
	ModelID string
}

// Orchestrator runs at most one turn per session at a time. Sessions are
// independent of each other.
type Orchestrator struct {
	store    Store
	resolver TargetResolver
	executor *Executor
	opts     Options

	mu       sync.Mutex
	sessions map[string]*sessionState
}

type sessionState struct {
	state   State
	mode    Mode
	modelID string
	cancel  context.CancelFunc
	pending []conversation.ToolCall
}

func New(store Store, resolver TargetResolver, executor *Executor, opts Options) *Orchestrator {
	if opts.Mode == "" {
		opts.Mode = Mode(config.DefaultMode)
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = config.DefaultMaxHistory
	}
	if opts.OpenStream == nil {
		opts.OpenStream = openProviderStream
	}
	return &Orchestrator{
		store:    store,
		resolver: resolver,
		executor: executor,
		opts:     opts,
		sessions: make(map[string]*sessionState),
	}
}

// State returns the session's current state; unknown sessions are idle.
func (o *Orchestrator) State(sessionID string) State {
	o.mu.Lock()
	defer o.mu.Unlock()
	if st, ok := o.sessions[sessionID]; ok {
		return st.state
	}
	return StateIdle
}

// Pending returns the tool calls awaiting confirmation.
func (o *Orchestrator) Pending(sessionID string) []conversation.ToolCall {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionID]
	if !ok || st.state != StateAwaitingToolConfirmation {
		return nil
	}
	return append([]conversation.ToolCall(nil), st.pending...)
}

// Cancel aborts the session's active turn. It reports whether there was one.
func (o *Orchestrator) Cancel(sessionID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionID]
	if !ok || !st.state.Active() || st.cancel == nil {
		return false
	}
	st.cancel()
	return true
}

// Send appends a user message and starts a turn. The returned channel
// carries the turn's events and is closed after its terminal event; callers
// must drain it. Tool calls still awaiting confirmation are answered as not
// executed first.
func (o *Orchestrator) Send(ctx context.Context, sessionID string, text string, opts TurnOptions) (<-chan Event, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("message is empty")
	}
	mode, err := o.mode(opts.Mode)
	if err != nil {
		return nil, err
	}
	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, err := o.begin(sessionID, mode, firstNonEmpty(opts.ModelID, session.ModelID))
	if err != nil {
		return nil, err
	}

	if err := o.appendUser(ctx, session, text); err != nil {
		o.transition(st, StateFailed)
		return nil, err
	}
	return o.start(ctx, session, st, nil), nil
}

// Confirm executes the approved pending calls, answers the rest as declined
// and re-enters the model with the results. In ask mode approving a
// state-changing tool fails with an authorization error and nothing is
// persisted; the calls stay pending.
func (o *Orchestrator) Confirm(ctx context.Context, sessionID string, approvedIDs []string) (<-chan Event, error) {
	approved := make(map[string]bool, len(approvedIDs))
	for _, id := range approvedIDs {
		approved[id] = true
	}

	o.mu.Lock()
	st, ok := o.sessions[sessionID]
	if !ok || st.state != StateAwaitingToolConfirmation || len(st.pending) == 0 {
		o.mu.Unlock()
		return nil, ErrNoPendingTools
	}
	for _, call := range st.pending {
		if approved[call.ID] && !Allowed(st.mode, call.Name) {
			o.mu.Unlock()
			log.Warnf("orchestrator: rejected %s in %s mode for session %s", call.Name, st.mode, sessionID)
			return nil, errs.Authorization("tool %s is not permitted in %s mode", call.Name, st.mode)
		}
	}
	pending := st.pending
	st.state = StateExecutingTools
	o.mu.Unlock()

	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		o.transition(st, StateAwaitingToolConfirmation)
		return nil, err
	}

	before := func(ctx context.Context, em *emitter) bool {
		return o.executeTools(ctx, session, st, pending, approved, em)
	}
	return o.start(ctx, session, st, before), nil
}

// Regenerate drops everything after the last user message and reruns the
// turn.
func (o *Orchestrator) Regenerate(ctx context.Context, sessionID string, opts TurnOptions) (<-chan Event, error) {
	mode, err := o.mode(opts.Mode)
	if err != nil {
		return nil, err
	}
	session, err := o.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	st, err := o.begin(sessionID, mode, firstNonEmpty(opts.ModelID, session.ModelID))
	if err != nil {
		return nil, err
	}

	messages, err := o.store.Load(ctx, sessionID, 0)
	if err != nil {
		o.transition(st, StateFailed)
		return nil, err
	}
	if !hasRole(messages, conversation.RoleUser) {
		o.transition(st, StateIdle)
		return nil, ErrNothingToRegenerate
	}
	removed, err := o.store.TruncateAfterLastUser(ctx, sessionID)
	if err != nil {
		o.transition(st, StateFailed)
		return nil, err
	}
	log.Infof("orchestrator: regenerating session %s, removed %d messages", sessionID, removed)
	return o.start(ctx, session, st, nil), nil
}

func (o *Orchestrator) mode(requested Mode) (Mode, error) {
	return ParseMode(string(requested), o.opts.Mode)
}

// begin claims the session for a new turn.
func (o *Orchestrator) begin(sessionID string, mode Mode, modelID string) (*sessionState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.sessions[sessionID]
	if !ok {
		st = &sessionState{state: StateIdle}
		o.sessions[sessionID] = st
	}
	if st.state.Active() {
		return nil, ErrBusy
	}
	st.state = StateAwaitingModel
	st.mode = mode
	st.modelID = modelID
	st.pending = nil
	return st, nil
}

func (o *Orchestrator) transition(st *sessionState, next State) {
	o.mu.Lock()
	defer o.mu.Unlock()
	st.state = next
	if !next.Active() {
		st.cancel = nil
	}
}

func (o *Orchestrator) snapshot(st *sessionState) (Mode, string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return st.mode, st.modelID
}

// start runs before (if any) and then one model turn on a goroutine.
func (o *Orchestrator) start(ctx context.Context, session history.Session, st *sessionState, before func(context.Context, *emitter) bool) <-chan Event {
	turnCtx, cancel := context.WithCancel(ctx)
	o.mu.Lock()
	st.cancel = cancel
	o.mu.Unlock()

	events := make(chan Event, eventBuffer)
	em := &emitter{ch: events, sessionID: session.ID}
	go func() {
		defer close(events)
		defer cancel()
		if before != nil && !before(turnCtx, em) {
			return
		}
		o.runTurn(turnCtx, session, st, em)
	}()
	return events
}

// appendUser closes out unanswered tool calls, stores the user message and
// titles a fresh session after it.
func (o *Orchestrator) appendUser(ctx context.Context, session history.Session, text string) error {
	messages, err := o.store.Load(ctx, session.ID, 0)
	if err != nil {
		return err
	}
	for _, call := range danglingCalls(messages) {
		log.Infof("orchestrator: answering unconfirmed tool call %s (%s) as not executed", call.ID, call.Name)
		if _, err := o.store.Append(ctx, session.ID, conversation.ToolResult(call.ID, notExecutedResult)); err != nil {
			return err
		}
	}
	if _, err := o.store.Append(ctx, session.ID, conversation.User(text)); err != nil {
		return err
	}
	if !hasRole(messages, conversation.RoleUser) && session.Title == conversation.DefaultTitle {
		if err := o.store.RenameSession(ctx, session.ID, conversation.Title(text)); err != nil {
			log.Warnf("orchestrator: title session %s: %v", session.ID, err)
		}
	}
	return nil
}

func (o *Orchestrator) executeTools(ctx context.Context, session history.Session, st *sessionState, pending []conversation.ToolCall, approved map[string]bool, em *emitter) bool {
	em.turnID = uuid.NewString()
	results := make([]conversation.Message, 0, len(pending))
	for _, call := range pending {
		content := DeclinedResult
		if approved[call.ID] {
			var err error
			content, err = o.execute(ctx, session.TerminalSessionID, call)
			if err != nil {
				o.fail(ctx, st, em, err)
				return false
			}
		}
		results = append(results, conversation.ToolResult(call.ID, content))
		em.emit(Event{Type: EventToolResult, Text: content, ToolCalls: []conversation.ToolCall{call}})
	}

	persistCtx := context.WithoutCancel(ctx)
	for _, msg := range results {
		if _, err := o.store.Append(persistCtx, session.ID, msg); err != nil {
			o.fail(ctx, st, em, err)
			return false
		}
	}
	if ctx.Err() != nil {
		o.fail(ctx, st, em, ctx.Err())
		return false
	}
	o.transition(st, StateAwaitingModel)
	return true
}

func (o *Orchestrator) execute(ctx context.Context, terminalSessionID string, call conversation.ToolCall) (string, error) {
	if o.executor == nil {
		return noTerminalResult, nil
	}
	return o.executor.Execute(ctx, terminalSessionID, call)
}

func (o *Orchestrator) runTurn(ctx context.Context, session history.Session, st *sessionState, em *emitter) {
	em.turnID = uuid.NewString()
	mode, modelID := o.snapshot(st)
	em.emit(Event{Type: EventStarted})

	messages, err := o.buildDialog(ctx, session, mode)
	if err != nil {
		o.fail(ctx, st, em, err)
		return
	}
	target, err := o.resolver.Resolve(ctx, modelID)
	if err != nil {
		o.fail(ctx, st, em, err)
		return
	}
	log.Debugf("orchestrator: session %s turn %s -> %s/%s (%d messages, mode %s)",
		session.ID, em.turnID, target.ChannelID, target.Model, len(messages), mode)

	rec := o.opts.Trace.Request(session.ID, target.ChannelID, target.Model)
	s, err := o.opts.OpenStream(ctx, target, provider.ChatRequest{Messages: messages, Tools: ToolsForMode(mode)}, rec)
	if err != nil {
		o.fail(ctx, st, em, err)
		return
	}
	stop := context.AfterFunc(ctx, func() { _ = s.Close() })
	out, err := o.consume(ctx, st, s, em)
	stop()
	_ = s.Close()
	if err != nil {
		o.fail(ctx, st, em, err)
		return
	}

	if out.content == "" && len(out.calls) == 0 {
		log.Infof("orchestrator: session %s turn %s produced no content", session.ID, em.turnID)
		o.transition(st, StateTurnComplete)
		em.emit(Event{Type: EventDone})
		return
	}

	msg := conversation.Message{
		Role:      conversation.RoleAssistant,
		Content:   out.content,
		Reasoning: out.reasoning,
		ToolCalls: out.calls,
		ModelID:   firstNonEmpty(modelID, target.Model),
	}
	stored, err := o.store.Append(context.WithoutCancel(ctx), session.ID, msg)
	if err != nil {
		o.fail(ctx, st, em, err)
		return
	}

	if len(out.calls) > 0 {
		o.mu.Lock()
		st.state = StateAwaitingToolConfirmation
		st.pending = out.calls
		st.cancel = nil
		o.mu.Unlock()
		log.Infof("orchestrator: session %s awaiting confirmation of %d tool calls", session.ID, len(out.calls))
		em.emit(Event{Type: EventToolCall, ToolCalls: append([]conversation.ToolCall(nil), out.calls...), Message: &stored})
		return
	}
	o.transition(st, StateTurnComplete)
	em.emit(Event{Type: EventDone, Message: &stored})
}

// buildDialog loads the windowed history, prepends the system prompt and
// repairs the result for sending.
func (o *Orchestrator) buildDialog(ctx context.Context, session history.Session, mode Mode) ([]conversation.Message, error) {
	stored, err := o.store.Load(ctx, session.ID, 0)
	if err != nil {
		return nil, err
	}
	dialog := conversation.TruncateForHistory(conversation.WithoutSystem(stored), o.opts.MaxHistory)

	var info *terminal.SystemInfo
	if o.executor != nil && session.TerminalSessionID != "" {
		if sip, ok := o.executor.Terminal.(terminal.SystemInfoProvider); ok {
			if si, ok := sip.SystemInfo(ctx, session.TerminalSessionID); ok {
				info = &si
			}
		}
	}

	messages := make([]conversation.Message, 0, len(dialog)+1)
	messages = append(messages, conversation.System(SystemPrompt(mode, o.opts.AdditionalPrompt, info)))
	messages = append(messages, dialog...)

	repaired, report := conversation.Repair(messages)
	for _, fix := range report.Fixes {
		log.Infof("orchestrator: session %s: %s", session.ID, fix)
	}
	for _, finding := range report.Findings {
		log.Debugf("orchestrator: session %s: %s", session.ID, finding)
	}
	return conversation.SanitizeForSend(repaired), nil
}

type turnOutput struct {
	content   string
	reasoning string
	calls     []conversation.ToolCall
}

// consume folds stream events into one assistant turn, forwarding text as it
// arrives. A stream that ends without Done is a truncated turn.
func (o *Orchestrator) consume(ctx context.Context, st *sessionState, s EventStream, em *emitter) (turnOutput, error) {
	acc := stream.NewAccumulator()
	var think stream.ThinkParser
	var content, reasoning strings.Builder
	var batched []conversation.ToolCall

	route := func(segments []stream.Segment) {
		for _, seg := range segments {
			if seg.Text == "" {
				continue
			}
			if seg.Reasoning {
				reasoning.WriteString(seg.Text)
				em.emit(Event{Type: EventReasoning, Text: seg.Text})
				continue
			}
			content.WriteString(seg.Text)
			em.emit(Event{Type: EventChunk, Text: seg.Text})
		}
	}
	addReasoning := func(text string) {
		if text == "" {
			return
		}
		reasoning.WriteString(text)
		em.emit(Event{Type: EventReasoning, Text: text})
	}

	streamingContent, streamingTools := false, false
	done := false
	for !done {
		ev, err := s.Next()
		if errors.Is(err, io.EOF) {
			if ctx.Err() != nil {
				return turnOutput{}, ctx.Err()
			}
			return turnOutput{}, errs.Transport(stream.ErrTruncated)
		}
		if err != nil {
			if ctx.Err() != nil {
				return turnOutput{}, ctx.Err()
			}
			return turnOutput{}, err
		}

		switch ev.Kind {
		case stream.EventContent:
			if ev.Text != "" && !streamingContent {
				streamingContent = true
				o.transition(st, StateStreamingContent)
			}
			route(think.Feed(ev.Text))
			addReasoning(ev.Reasoning)
		case stream.EventReasoning:
			addReasoning(ev.Text)
		case stream.EventToolCallDelta:
			if !streamingTools {
				streamingTools = true
				o.transition(st, StateStreamingTools)
			}
			acc.Update(ev.ToolCalls)
		case stream.EventMessageBatch:
			for _, msg := range ev.Messages {
				if msg.Role != conversation.RoleAssistant {
					log.Debugf("orchestrator: ignoring %s message in batch", msg.Role)
					continue
				}
				route([]stream.Segment{{Text: msg.Content}})
				addReasoning(msg.Reasoning)
				batched = append(batched, msg.ToolCalls...)
			}
		case stream.EventDone:
			done = true
		}
	}
	route(think.Flush())

	calls := append(batched, acc.Finalize()...)
	if len(calls) == 0 {
		calls = nil
	}
	return turnOutput{content: content.String(), reasoning: reasoning.String(), calls: calls}, nil
}

func (o *Orchestrator) fail(ctx context.Context, st *sessionState, em *emitter, err error) {
	if ctx.Err() != nil {
		o.transition(st, StateCancelled)
		log.Infof("orchestrator: session %s turn %s cancelled", em.sessionID, em.turnID)
		em.emit(Event{Type: EventError, Err: fmt.Errorf("turn cancelled: %w", ctx.Err())})
		return
	}
	o.transition(st, StateFailed)
	log.Warnf("orchestrator: session %s turn %s failed (%s): %v", em.sessionID, em.turnID, errs.KindOf(err), err)
	em.emit(Event{Type: EventError, Err: err})
}

type emitter struct {
	ch        chan<- Event
	sessionID string
	turnID    string
}

func (e *emitter) emit(ev Event) {
	ev.SessionID = e.sessionID
	ev.TurnID = e.turnID
	e.ch <- ev
}

// danglingCalls returns the calls of a trailing assistant message that have
// no tool result yet.
func danglingCalls(messages []conversation.Message) []conversation.ToolCall {
	answered := make(map[string]bool)
	i := len(messages) - 1
	for ; i >= 0 && messages[i].Role == conversation.RoleTool; i-- {
		answered[messages[i].ToolCallID] = true
	}
	if i < 0 || messages[i].Role != conversation.RoleAssistant {
		return nil
	}
	var out []conversation.ToolCall
	for _, call := range messages[i].ToolCalls {
		if !answered[call.ID] {
			out = append(out, call)
		}
	}
	return out
}

func hasRole(messages []conversation.Message, role conversation.Role) bool {
	for _, msg := range messages {
		if msg.Role == role {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}
