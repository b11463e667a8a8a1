// Package alertlog appends a human-readable line per decoded alert to a
// dedicated log file, independent of the daemon's general process log.
package alertlog

import (
	"fmt"
	"os"
	"time"
)

// Logger appends formatted alert lines to one file, opening it in append
// mode on first use and keeping it open thereafter.
type Logger struct {
	path string
	file *os.File
}

// New returns a Logger targeting path. The file is created on first write.
func New(path string) *Logger {
	return &Logger{path: path}
}

// Log appends one entry in the form:
//
//	<raw_header>: <pretty_text> (Received @ <local time>)
//
// followed by a blank line, matching the format operators have grepped
// this log with for years.
func (l *Logger) Log(rawHeader, prettyText string, receivedAt time.Time) error {
	if l.file == nil {
		f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("open alert log %s: %w", l.path, err)
		}
		l.file = f
	}

	line := fmt.Sprintf("%s: %s (Received @ %s)\n\n", rawHeader, prettyText, receivedAt.Local().Format("2006-01-02 15:04:05"))
	if _, err := l.file.WriteString(line); err != nil {
		return fmt.Errorf("write alert log entry: %w", err)
	}
	return nil
}

// Close closes the underlying file handle.
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}
