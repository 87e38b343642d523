package model

import "time"

// LogEntry is a single normalized log line recovered for a crashed task.
// Timestamp is epoch milliseconds; backends reporting other formats are
// converted at ingestion.
type LogEntry struct {
	Timestamp int64  `json:"timestamp"`
	Message   string `json:"message"`
}

// NowMillis returns the current time as epoch milliseconds. Used as the
// fallback timestamp when a backend record carries none.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
