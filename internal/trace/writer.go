package trace

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultMaxAge    = 24 * time.Hour
	DefaultRetention = 7 * 24 * time.Hour

	logSuffix = ".jsonl"
)

type Options struct {
	MaxSizeBytes int64
	MaxAge       time.Duration
	Retention    time.Duration
	// OmitFrames drops stream.frame events and keeps request metadata only.
	OmitFrames bool
	Redactor   *Redactor
	Now        func() time.Time
}

// Writer appends events to a JSONL file, rotating it by size and age.
// Rotated files are named <base>-<unixnano>.jsonl next to the active file.
type Writer struct {
	mu           sync.Mutex
	path         string
	dir          string
	baseName     string
	file         *os.File
	buf          *bufio.Writer
	bytesWritten int64
	openedAt     time.Time
	opts         Options
}

func NewWriter(path string, opts Options) (*Writer, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("trace path is required")
	}
	opts = applyDefaults(opts)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create trace dir: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(path), logSuffix)
	if baseName == "" {
		return nil, errors.New("trace base name is required")
	}

	file, buf, size, openedAt, err := openLog(path, opts.Now())
	if err != nil {
		return nil, err
	}

	return &Writer{
		path:         path,
		dir:          dir,
		baseName:     baseName,
		file:         file,
		buf:          buf,
		bytesWritten: size,
		openedAt:     openedAt,
		opts:         opts,
	}, nil
}

func (w *Writer) Append(event Event) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil || w.buf == nil {
		return errors.New("trace writer is closed")
	}
	if event.Type == EventFrame && w.opts.OmitFrames {
		return nil
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = w.opts.Now()
	}
	if event.SchemaVersion == 0 {
		event.SchemaVersion = SchemaVersion
	}
	if event.Headers != nil {
		event.Headers = w.opts.Redactor.RedactHeaders(event.Headers)
	}
	event.Frame = w.opts.Redactor.RedactText(event.Frame)
	event.Error = w.opts.Redactor.RedactText(event.Error)

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	payload = append(payload, '\n')

	if w.shouldRotate(int64(len(payload))) {
		if err := w.rotate(); err != nil {
			return err
		}
	}

	if _, err := w.buf.Write(payload); err != nil {
		return fmt.Errorf("write trace: %w", err)
	}
	w.bytesWritten += int64(len(payload))

	// Frames arrive in bursts; flush at request boundaries only.
	if event.Type != EventFrame {
		if err := w.buf.Flush(); err != nil {
			return fmt.Errorf("flush trace: %w", err)
		}
	}
	return nil
}

func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.file == nil {
		return nil
	}

	if err := w.flushAndSync(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close trace: %w", err)
	}
	w.file = nil
	w.buf = nil
	return nil
}

func (w *Writer) shouldRotate(nextWrite int64) bool {
	if w.file == nil || w.bytesWritten == 0 {
		return false
	}
	if w.opts.MaxSizeBytes > 0 && w.bytesWritten+nextWrite > w.opts.MaxSizeBytes {
		return true
	}
	if w.opts.MaxAge > 0 && w.opts.Now().Sub(w.openedAt) >= w.opts.MaxAge {
		return true
	}
	return false
}

func (w *Writer) rotate() error {
	if err := w.flushAndSync(); err != nil {
		return err
	}
	if err := w.file.Close(); err != nil {
		return fmt.Errorf("close trace before rotate: %w", err)
	}

	rotatedPath := filepath.Join(w.dir, rotationName(w.baseName, w.opts.Now()))
	if err := os.Rename(w.path, rotatedPath); err != nil {
		return fmt.Errorf("rotate trace: %w", err)
	}
	if err := fsyncDir(w.dir); err != nil {
		return fmt.Errorf("fsync trace dir: %w", err)
	}

	file, buf, size, openedAt, err := openLog(w.path, w.opts.Now())
	if err != nil {
		return err
	}
	w.file = file
	w.buf = buf
	w.bytesWritten = size
	w.openedAt = openedAt

	return pruneRetention(w.dir, w.baseName, w.opts.Retention, w.opts.Now())
}

func (w *Writer) flushAndSync() error {
	if w.buf == nil || w.file == nil {
		return nil
	}
	if err := w.buf.Flush(); err != nil {
		return fmt.Errorf("flush trace: %w", err)
	}
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("fsync trace: %w", err)
	}
	return nil
}

func openLog(path string, now time.Time) (*os.File, *bufio.Writer, int64, time.Time, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, 0, time.Time{}, fmt.Errorf("open trace: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, nil, 0, time.Time{}, fmt.Errorf("stat trace: %w", err)
	}
	openedAt := info.ModTime()
	if info.Size() == 0 {
		openedAt = now
	}
	return file, bufio.NewWriter(file), info.Size(), openedAt, nil
}

func applyDefaults(opts Options) Options {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Redactor == nil {
		opts.Redactor = DefaultRedactor()
	}
	if opts.MaxAge == 0 {
		opts.MaxAge = DefaultMaxAge
	}
	if opts.MaxAge < 0 {
		opts.MaxAge = 0
	}
	if opts.Retention == 0 {
		opts.Retention = DefaultRetention
	}
	return opts
}

func rotationName(baseName string, now time.Time) string {
	return fmt.Sprintf("%s-%d%s", baseName, now.UTC().UnixNano(), logSuffix)
}

func pruneRetention(dir string, baseName string, retention time.Duration, now time.Time) error {
	if retention <= 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read trace dir: %w", err)
	}
	cutoff := now.Add(-retention)

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		when, ok := rotatedAt(baseName, entry)
		if ok && when.Before(cutoff) {
			_ = os.Remove(filepath.Join(dir, entry.Name()))
		}
	}
	return nil
}

// rotatedAt reports when a rotated file was closed, from its name or, failing
// that, its mtime. The active file is never reported.
func rotatedAt(baseName string, entry os.DirEntry) (time.Time, bool) {
	name := entry.Name()
	if !strings.HasPrefix(name, baseName+"-") || !strings.HasSuffix(name, logSuffix) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, baseName+"-"), logSuffix)
	if nanos, err := strconv.ParseInt(stamp, 10, 64); err == nil {
		return time.Unix(0, nanos).UTC(), true
	}
	info, err := entry.Info()
	if err != nil {
		return time.Time{}, false
	}
	return info.ModTime(), true
}

func fsyncDir(dir string) error {
	if runtime.GOOS == "windows" {
		return nil
	}
	f, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Sync()
}
