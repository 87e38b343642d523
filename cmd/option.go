package cmd

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// NotifierOptions holds crash-notifier CLI options after parsing flags and
// env defaults.
type NotifierOptions struct {
	EventPath string
	DryRun    bool
	LogLevel  string
}

// Validate checks required flags. Returns an error message and exit code;
// code 0 means the options are usable.
func (o *NotifierOptions) Validate() (string, int) {
	if o.EventPath == "" {
		return "error: no event provided (use --event or pipe the event to stdin with --event -)", 2
	}
	return "", 0
}

// CollectNotifierOptions parses crash-notifier flags with environment-backed
// defaults and returns NotifierOptions.
func CollectNotifierOptions() *NotifierOptions {
	var eventPath string
	var dryRun bool
	var logLevel string

	flag.StringVar(&eventPath, "event", "-", "Path to the EventBridge task state-change event JSON; \"-\" reads stdin")
	flag.BoolVar(&dryRun, "dry-run", false, "Resolve logs and print the notification instead of sending it")
	flag.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	return &NotifierOptions{
		EventPath: eventPath,
		DryRun:    dryRun,
		LogLevel:  logLevel,
	}
}

// SummaryOptions holds daily-summary CLI options.
type SummaryOptions struct {
	DryRun   bool
	LogLevel string
}

// CollectSummaryOptions parses daily-summary flags.
func CollectSummaryOptions() *SummaryOptions {
	var dryRun bool
	var logLevel string

	flag.BoolVar(&dryRun, "dry-run", false, "Analyze crash events and print the summary instead of sending it")
	flag.StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level: debug, info, warn, error")
	flag.Parse()

	return &SummaryOptions{DryRun: dryRun, LogLevel: logLevel}
}

// ReadEvent reads the raw event JSON from the given path, or from stdin when
// the path is "-".
func ReadEvent(path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(os.Stdin)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read event file: %w", err)
	}
	return raw, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
