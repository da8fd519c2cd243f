package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Replay returns the events of the trace at path, rotated files first, that
// match keep. A nil keep returns everything.
func Replay(path string, keep func(Event) bool) ([]Event, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("trace path is required")
	}
	paths, err := listLogFiles(filepath.Dir(path), strings.TrimSuffix(filepath.Base(path), logSuffix))
	if err != nil {
		return nil, err
	}

	var events []Event
	for _, p := range paths {
		err := readLogFile(p, func(ev Event) {
			if keep == nil || keep(ev) {
				events = append(events, ev)
			}
		})
		if err != nil {
			return nil, err
		}
	}
	return events, nil
}

func readLogFile(path string, fn func(Event)) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open trace %s: %w", path, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var ev Event
		if err := json.Unmarshal([]byte(line), &ev); err != nil {
			return fmt.Errorf("parse event: %w", err)
		}
		fn(ev)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read trace: %w", err)
	}
	return nil
}

func listLogFiles(dir string, baseName string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read trace dir: %w", err)
	}

	type rotated struct {
		path string
		when int64
	}
	var activePath string
	var rotatedFiles []rotated

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if entry.Name() == baseName+logSuffix {
			activePath = filepath.Join(dir, entry.Name())
			continue
		}
		when, ok := rotatedAt(baseName, entry)
		if !ok {
			continue
		}
		rotatedFiles = append(rotatedFiles, rotated{
			path: filepath.Join(dir, entry.Name()),
			when: when.UnixNano(),
		})
	}

	sort.Slice(rotatedFiles, func(i, j int) bool {
		if rotatedFiles[i].when == rotatedFiles[j].when {
			return rotatedFiles[i].path < rotatedFiles[j].path
		}
		return rotatedFiles[i].when < rotatedFiles[j].when
	})

	paths := make([]string, 0, len(rotatedFiles)+1)
	for _, entry := range rotatedFiles {
		paths = append(paths, entry.path)
	}
	if activePath != "" {
		paths = append(paths, activePath)
	}
	return paths, nil
}
