package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogFileName is the per-run processing log inside the output directory.
const LogFileName = "processing_log.txt"

// logTimeFormat renders the wall-clock time with microseconds.
const logTimeFormat = "15:04:05.000000"

// LogFile appends one record per case to a text file. The file is opened,
// appended and closed for every record so a crash leaves a readable log.
type LogFile struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewLogFile creates a LogFile writing to path.
func NewLogFile(path string) *LogFile {
	return &LogFile{path: path, now: time.Now}
}

// Path returns the log file location.
func (l *LogFile) Path() string {
	return l.path
}

// Append writes the record for r.
func (l *LogFile) Append(r Result) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := FormatLogRecord(r, l.now())

	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	if _, err := f.WriteString(record); err != nil {
		f.Close()
		return fmt.Errorf("writing log file: %w", err)
	}
	return f.Close()
}

// FormatLogRecord renders the log lines for one case.
func FormatLogRecord(r Result, at time.Time) string {
	var b strings.Builder
	ts := at.Format(logTimeFormat)
	if r.Success {
		fmt.Fprintf(&b, "Successfully processed image with UID:%s\n", r.UID)
		fmt.Fprintf(&b, "Exact time of processing:%s\n", ts)
	} else {
		fmt.Fprintf(&b, "Error occurred while processing image with UID:%s\n", r.UID)
		fmt.Fprintf(&b, "Error: %s\n", r.Error)
		fmt.Fprintf(&b, "Time of error: %s\n", ts)
	}
	return b.String()
}
