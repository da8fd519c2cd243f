// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	log "github.com/sirupsen/logrus"
)

type Options struct {
	// Dir receives reshai-YYYY-MM-DD.log files. Empty disables file output.
	Dir           string
	Debug         bool
	RetentionDays int
	// Stderr mirrors log lines to standard error.
	Stderr bool
}

// Setup points logrus at a daily rolling file under opts.Dir. The returned
// closer sends logrus back to stderr and closes the file.
func Setup(opts Options) (io.Closer, error) {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	log.SetLevel(level)
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   true,
	})

	var outputs []io.Writer
	var closer io.Closer = nopCloser{}
	if opts.Dir != "" {
		roll, err := NewDailyWriter(opts.Dir, opts.RetentionDays)
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, roll)
		closer = closeFunc(func() error {
			log.SetOutput(os.Stderr)
			return roll.Close()
		})
	}
	if opts.Stderr || len(outputs) == 0 {
		outputs = append(outputs, os.Stderr)
	}
	log.SetOutput(io.MultiWriter(outputs...))
	return closer, nil
}

type closeFunc func() error

func (f closeFunc) Close() error { return f() }

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
