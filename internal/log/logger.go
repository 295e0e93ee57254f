package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	charmlog "github.com/charmbracelet/log"
)

// DefaultLogFile is the durable log file written next to the artifact.
const DefaultLogFile = "autocomplete_extraction.log"

// Options configures NewLogger.
type Options struct {
	// Console receives human-oriented, styled output. Nil disables it.
	Console io.Writer

	// File is the path of the durable log file. Empty disables it.
	// The file is appended to, so consecutive runs share one log.
	File string

	// Verbose lowers the level to Debug on every sink.
	Verbose bool

	// Quiet raises the console level to Warn. The log file still records
	// Info so that per-prefix progress is never lost.
	Quiet bool

	// JSON switches the log file to JSON lines.
	JSON bool
}

// NewLogger builds the application logger.
// The returned close function flushes and closes the log file; it is safe
// to call when no file was opened.
//
// Design decision: The console sink uses charmbracelet/log because the
// crawl emits one line per prefix and colored levels make rate-limit
// warnings and errors stand out. The file sink uses the standard slog text
// handler so the durable log stays grep-friendly.
func NewLogger(opts Options) (*slog.Logger, func() error, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var handlers []slog.Handler
	closeFn := func() error { return nil }

	if opts.Console != nil {
		consoleLevel := level
		if opts.Quiet && !opts.Verbose {
			consoleLevel = slog.LevelWarn
		}
		handlers = append(handlers, newConsoleHandler(opts.Console, consoleLevel))
	}

	if opts.File != "" {
		dir := filepath.Dir(opts.File)
		if dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0750); err != nil {
				return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
			}
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600) //nolint:gosec // User-provided log path is intentional
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		handlerOpts := &slog.HandlerOptions{Level: level}
		if opts.JSON {
			handlers = append(handlers, slog.NewJSONHandler(f, handlerOpts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(f, handlerOpts))
		}
		closeFn = f.Close
	}

	if len(handlers) == 0 {
		handlers = append(handlers, slog.NewTextHandler(io.Discard, nil))
	}

	return slog.New(NewSecureHandler(NewFanoutHandler(handlers...))), closeFn, nil
}

// newConsoleHandler creates the styled console sink.
func newConsoleHandler(w io.Writer, level slog.Level) slog.Handler {
	return charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.Level(level),
		ReportTimestamp: true,
		TimeFormat:      time.DateTime,
		Formatter:       charmlog.TextFormatter,
	})
}

// NewSecureLogger creates a new slog.Logger with secure handling that
// writes plain text to w.
//
// Parameters:
//   - w: The io.Writer to write log output to (typically os.Stderr)
//   - verbose: If true, sets log level to Debug; otherwise Info
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	textHandler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(NewSecureHandler(textHandler))
}
