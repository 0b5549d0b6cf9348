package session

import (
	"time"

	"github.com/oklog/ulid/v2"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
	LevelSuccess Level = "success"
)

// Log sources used by the engine.
const (
	SourceAnalysis   = "Analysis"
	SourceConnection = "Connection"
	SourceSystem     = "System"
)

// LogEntry is an immutable record in the session log.
type LogEntry struct {
	ID        string `json:"id"`
	Timestamp string `json:"timestamp"`
	Level     Level  `json:"level"`
	Source    string `json:"source"`
	Message   string `json:"message"`
	Details   string `json:"details,omitempty"`
}

// NewLogEntry stamps a log entry with a fresh id and a wall-clock time.
func NewLogEntry(now time.Time, level Level, source, message, details string) LogEntry {
	return LogEntry{
		ID:        ulid.Make().String(),
		Timestamp: now.Format("15:04:05"),
		Level:     level,
		Source:    source,
		Message:   message,
		Details:   details,
	}
}

// LogFilter selects entries for display.
type LogFilter string

const (
	FilterAll    LogFilter = "all"
	FilterErrors LogFilter = "error"
)

// FilterLogs returns matching entries, newest first. The input is not
// modified.
func FilterLogs(logs []LogEntry, filter LogFilter) []LogEntry {
	out := make([]LogEntry, 0, len(logs))
	for i := len(logs) - 1; i >= 0; i-- {
		if filter == FilterErrors && logs[i].Level != LevelError {
			continue
		}
		out = append(out, logs[i])
	}
	return out
}
