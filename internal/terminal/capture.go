package terminal

import (
	"context"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	// DefaultQuietPeriod is how long output must stay unchanged before a
	// command is considered finished on accessors without a Recorder.
	DefaultQuietPeriod = 1500 * time.Millisecond
)

// Capture is the result of running one command in a terminal session.
type Capture struct {
	Output    string
	Completed bool
	Elapsed   time.Duration
}

type CaptureOptions struct {
	Timeout      time.Duration
	PollInterval time.Duration
	QuietPeriod  time.Duration
}

// RunCommand types command into the session and waits for it to finish or
// for opts.Timeout to pass. With a Recorder the command's own output is
// captured; otherwise completion is inferred from the screen going quiet and
// the output is whatever appeared after the command was sent.
func RunCommand(ctx context.Context, acc Accessor, sessionID, command string, opts CaptureOptions) (Capture, error) {
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.QuietPeriod <= 0 {
		opts.QuietPeriod = DefaultQuietPeriod
	}
	if rec, ok := acc.(Recorder); ok {
		return runRecorded(ctx, acc, rec, sessionID, command, opts)
	}
	return runPolled(ctx, acc, sessionID, command, opts)
}

func runRecorded(ctx context.Context, acc Accessor, rec Recorder, sessionID, command string, opts CaptureOptions) (Capture, error) {
	if err := rec.StartRecording(ctx, sessionID); err != nil {
		return Capture{}, fmt.Errorf("start recording: %w", err)
	}
	stop := func() string {
		out, err := rec.StopRecording(context.WithoutCancel(ctx), sessionID)
		if err != nil {
			log.Warnf("terminal: stop recording for %s: %v", sessionID, err)
		}
		return out
	}

	if err := acc.SendInput(ctx, sessionID, []byte(command+"\n")); err != nil {
		stop()
		return Capture{}, fmt.Errorf("send command: %w", err)
	}
	if err := acc.SendInput(ctx, sessionID, []byte(CompletionMarker)); err != nil {
		log.Debugf("terminal: completion marker not sent: %v", err)
	}

	start := time.Now()
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	completed := false
	for !completed {
		select {
		case <-ctx.Done():
			stop()
			return Capture{}, ctx.Err()
		case <-ticker.C:
		}
		done, err := rec.CommandCompleted(ctx, sessionID)
		if err != nil {
			stop()
			return Capture{}, fmt.Errorf("check completion: %w", err)
		}
		completed = done
		if !completed && time.Since(start) >= opts.Timeout {
			log.Warnf("terminal: timeout after %s waiting for %q", opts.Timeout, command)
			break
		}
	}
	return Capture{Output: StripANSI(stop()), Completed: completed, Elapsed: time.Since(start)}, nil
}

func runPolled(ctx context.Context, acc Accessor, sessionID, command string, opts CaptureOptions) (Capture, error) {
	before, err := acc.ReadOutput(ctx, sessionID)
	if err != nil {
		return Capture{}, fmt.Errorf("read output: %w", err)
	}
	if err := acc.SendInput(ctx, sessionID, []byte(command+"\n")); err != nil {
		return Capture{}, fmt.Errorf("send command: %w", err)
	}

	start := time.Now()
	lastChange := start
	last := before
	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return Capture{}, ctx.Err()
		case <-ticker.C:
		}
		current, err := acc.ReadOutput(ctx, sessionID)
		if err != nil {
			return Capture{}, fmt.Errorf("read output: %w", err)
		}
		now := time.Now()
		if current != last {
			last = current
			lastChange = now
		}
		changed := last != before
		if changed && now.Sub(lastChange) >= opts.QuietPeriod {
			return Capture{Output: outputSince(before, last), Completed: true, Elapsed: now.Sub(start)}, nil
		}
		if now.Sub(start) >= opts.Timeout {
			return Capture{Output: outputSince(before, last), Elapsed: now.Sub(start)}, nil
		}
	}
}

// outputSince returns the text appended to before. When the screen scrolled
// and before is no longer a prefix, the whole of after is returned.
func outputSince(before, after string) string {
	if strings.HasPrefix(after, before) {
		return after[len(before):]
	}
	return after
}
