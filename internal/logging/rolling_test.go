package logging

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestDailyWriterRollsAndPrunes(t *testing.T) {
	dir := t.TempDir()
	stale := filepath.Join(dir, "reshai-2026-01-01.log")
	require.NoError(t, os.WriteFile(stale, []byte("old\n"), 0o600))
	unrelated := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(unrelated, []byte("keep"), 0o600))

	w, err := NewDailyWriter(dir, 7)
	require.NoError(t, err)
	now := time.Date(2026, 5, 10, 23, 59, 0, 0, time.Local)
	w.now = func() time.Time { return now }

	_, err = w.Write([]byte("first\n"))
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "reshai-2026-05-10.log"), w.Path())

	now = now.Add(2 * time.Minute)
	_, err = w.Write([]byte("second\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	first, err := os.ReadFile(filepath.Join(dir, "reshai-2026-05-10.log"))
	require.NoError(t, err)
	require.Equal(t, "first\n", string(first))
	second, err := os.ReadFile(filepath.Join(dir, "reshai-2026-05-11.log"))
	require.NoError(t, err)
	require.Equal(t, "second\n", string(second))

	_, err = os.Stat(stale)
	require.True(t, errors.Is(err, os.ErrNotExist))
	_, err = os.Stat(unrelated)
	require.NoError(t, err)
}

func TestSetupWritesToFile(t *testing.T) {
	dir := t.TempDir()
	t.Cleanup(func() {
		log.SetOutput(os.Stderr)
		log.SetLevel(log.InfoLevel)
	})

	closer, err := Setup(Options{Dir: dir, Debug: true, RetentionDays: 3})
	require.NoError(t, err)
	log.Debugf("logging: hello %d", 42)
	require.NoError(t, closer.Close())

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	body, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	require.Contains(t, string(body), "logging: hello 42")
	require.Contains(t, string(body), "level=debug")
}
