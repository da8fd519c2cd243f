package terminal

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// outputLimit caps the retained screen text per session.
	outputLimit = 256 * 1024
	// waitDelay bounds how long a killed command's orphaned children may
	// hold its output pipes open.
	waitDelay = 500 * time.Millisecond
)

// Local is an Accessor backed by the local shell. Each line typed into a
// session runs as one shell command; while a command runs, further input is
// written to its stdin. It implements Recorder.
type Local struct {
	// Shell defaults to $SHELL, then /bin/sh.
	Shell string
	Dir   string

	mu       sync.Mutex
	sessions map[string]*localSession
}

type localSession struct {
	mu      sync.Mutex
	screen  []byte
	dropped int
	line    []byte

	running *localCommand

	recording   bool
	recordStart int
}

type localCommand struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	done  chan struct{}
}

func NewLocal(dir string) *Local {
	return &Local{Dir: dir}
}

// Open registers sessionID. Opening an existing session is a no-op.
func (l *Local) Open(sessionID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sessions == nil {
		l.sessions = make(map[string]*localSession)
	}
	if _, ok := l.sessions[sessionID]; !ok {
		l.sessions[sessionID] = &localSession{}
	}
}

// Close interrupts any running command and forgets the session.
func (l *Local) Close(sessionID string) {
	l.mu.Lock()
	sess := l.sessions[sessionID]
	delete(l.sessions, sessionID)
	l.mu.Unlock()
	if sess == nil {
		return
	}
	if running := sess.interrupt(); running != nil {
		<-running.done
	}
}

func (l *Local) session(sessionID string) (*localSession, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	sess, ok := l.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSession, sessionID)
	}
	return sess, nil
}

func (l *Local) ReadOutput(_ context.Context, sessionID string) (string, error) {
	sess, err := l.session(sessionID)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return StripANSI(string(sess.screen)), nil
}

func (l *Local) SendInput(_ context.Context, sessionID string, data []byte) error {
	sess, err := l.session(sessionID)
	if err != nil {
		return err
	}
	data = bytes.ReplaceAll(data, []byte(CompletionMarker), nil)

	for len(data) > 0 {
		if data[0] == Interrupt[0] {
			_ = sess.interrupt()
			data = data[1:]
			continue
		}

		sess.mu.Lock()
		running := sess.running
		sess.mu.Unlock()
		if running != nil {
			chunk := data
			if idx := bytes.IndexByte(chunk, Interrupt[0]); idx >= 0 {
				chunk = chunk[:idx]
			}
			if _, err := running.stdin.Write(chunk); err != nil {
				log.Debugf("terminal: stdin write failed: %v", err)
			}
			data = data[len(chunk):]
			continue
		}

		idx := bytes.IndexAny(data, "\n"+Interrupt)
		if idx < 0 {
			sess.mu.Lock()
			sess.line = append(sess.line, data...)
			sess.mu.Unlock()
			return nil
		}
		if data[idx] == Interrupt[0] {
			sess.mu.Lock()
			sess.line = append(sess.line, data[:idx]...)
			sess.mu.Unlock()
			data = data[idx:]
			continue
		}

		sess.mu.Lock()
		command := string(append(sess.line, data[:idx]...))
		sess.line = nil
		sess.mu.Unlock()
		data = data[idx+1:]
		if err := l.run(sess, command); err != nil {
			return err
		}
	}
	return nil
}

func (l *Local) run(sess *localSession, command string) error {
	sess.write([]byte("$ " + command + "\n"))
	if strings.TrimSpace(command) == "" {
		return nil
	}

	cmd := exec.Command(l.shell(), "-c", command)
	cmd.Dir = l.Dir
	cmd.WaitDelay = waitDelay
	out := sessionWriter{sess: sess}
	cmd.Stdout = out
	cmd.Stderr = out
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		sess.write([]byte(err.Error() + "\n"))
		return nil
	}

	running := &localCommand{cmd: cmd, stdin: stdin, done: make(chan struct{})}
	sess.mu.Lock()
	sess.running = running
	sess.mu.Unlock()

	go func() {
		err := cmd.Wait()
		if err != nil {
			log.Debugf("terminal: command %q exited: %v", command, err)
		}
		sess.mu.Lock()
		if sess.running == running {
			sess.running = nil
		}
		sess.mu.Unlock()
		close(running.done)
	}()
	return nil
}

func (l *Local) shell() string {
	if l.Shell != "" {
		return l.Shell
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh
	}
	return "/bin/sh"
}

func (l *Local) StartRecording(_ context.Context, sessionID string) error {
	sess, err := l.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.recording = true
	sess.recordStart = sess.dropped + len(sess.screen)
	return nil
}

func (l *Local) CommandCompleted(_ context.Context, sessionID string) (bool, error) {
	sess, err := l.session(sessionID)
	if err != nil {
		return false, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.recording && sess.running == nil && len(sess.line) == 0, nil
}

func (l *Local) StopRecording(_ context.Context, sessionID string) (string, error) {
	sess, err := l.session(sessionID)
	if err != nil {
		return "", err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if !sess.recording {
		return "", nil
	}
	sess.recording = false
	start := sess.recordStart - sess.dropped
	if start < 0 {
		start = 0
	}
	recorded := string(sess.screen[start:])
	// Drop the echoed command line.
	if _, rest, ok := strings.Cut(recorded, "\n"); ok && strings.HasPrefix(recorded, "$ ") {
		recorded = rest
	}
	return StripANSI(recorded), nil
}

// interrupt stops the running command, if any, and returns it.
func (s *localSession) interrupt() *localCommand {
	s.mu.Lock()
	running := s.running
	s.line = nil
	s.mu.Unlock()
	s.write([]byte("^C\n"))
	if running == nil {
		return nil
	}
	_ = running.stdin.Close()
	if err := running.cmd.Process.Kill(); err != nil {
		log.Debugf("terminal: kill: %v", err)
	}
	return running
}

func (s *localSession) write(p []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.screen = append(s.screen, p...)
	if over := len(s.screen) - outputLimit; over > 0 {
		s.screen = append([]byte(nil), s.screen[over:]...)
		s.dropped += over
	}
}

type sessionWriter struct {
	sess *localSession
}

func (w sessionWriter) Write(p []byte) (int, error) {
	w.sess.write(p)
	return len(p), nil
}
